package wiki

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// fakeWiki is a minimal DokuWiki JSON-RPC endpoint backed by a map.
type fakeWiki struct {
	mu        sync.Mutex
	pages     map[string]string
	summaries map[string]string
	auth      []string
}

func newFakeWiki(pages map[string]string) *fakeWiki {
	if pages == nil {
		pages = map[string]string{}
	}
	return &fakeWiki{pages: pages, summaries: map[string]string{}}
}

func (f *fakeWiki) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != JSONRPCPath || r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req struct {
		ID     int64          `json:"id"`
		Method string         `json:"method"`
		Params map[string]any `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.auth = append(f.auth, r.Header.Get("Authorization"))

	resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
	page, _ := req.Params["page"].(string)
	switch req.Method {
	case "core.getPage":
		resp["result"] = f.pages[page]
	case "core.savePage":
		text, _ := req.Params["text"].(string)
		summary, _ := req.Params["summary"].(string)
		f.pages[page] = text
		f.summaries[page] = summary
		resp["result"] = true
	case "core.getPageInfo":
		if _, ok := f.pages[page]; !ok {
			resp["error"] = map[string]any{"code": errCodePageNotFound, "message": "The requested page does not exist"}
		} else {
			resp["result"] = map[string]any{"id": page, "revision": 1718600000}
		}
	case "core.listPages":
		ns, _ := req.Params["namespace"].(string)
		var list []map[string]any
		for id := range f.pages {
			if ns == "" || strings.HasPrefix(id, ns+":") {
				list = append(list, map[string]any{"id": id})
			}
		}
		resp["result"] = list
	default:
		resp["error"] = map[string]any{"code": -32601, "message": "method not found"}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func newTestDokuWiki(t *testing.T, wiki *fakeWiki, opts DokuWikiOptions) *DokuWikiStore {
	t.Helper()
	server := httptest.NewServer(wiki)
	t.Cleanup(server.Close)

	opts.URL = server.URL + "/"
	store, err := NewDokuWikiStore(opts)
	if err != nil {
		t.Fatalf("NewDokuWikiStore failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestNewDokuWikiStore_EmptyURL(t *testing.T) {
	if _, err := NewDokuWikiStore(DokuWikiOptions{}); err == nil {
		t.Error("Expected error for empty url")
	}
}

func TestDokuWikiStore_GetSet(t *testing.T) {
	ctx := context.Background()
	wiki := newFakeWiki(map[string]string{"plenum:2024-06-10": "last week"})
	store := newTestDokuWiki(t, wiki, DokuWikiOptions{})

	text, err := store.Get(ctx, "plenum:2024-06-10")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if text != "last week" {
		t.Errorf("Unexpected text %q", text)
	}

	text, err = store.Get(ctx, "plenum:missing")
	if err != nil || text != "" {
		t.Errorf("Expected empty text for missing page, got %q, %v", text, err)
	}

	if err := store.Set(ctx, "plenum:2024-06-17", "next week", "modified by plenumbot"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if wiki.pages["plenum:2024-06-17"] != "next week" {
		t.Errorf("Expected page to be saved, got %q", wiki.pages["plenum:2024-06-17"])
	}
	if wiki.summaries["plenum:2024-06-17"] != "modified by plenumbot" {
		t.Errorf("Unexpected summary %q", wiki.summaries["plenum:2024-06-17"])
	}
}

func TestDokuWikiStore_Exists(t *testing.T) {
	ctx := context.Background()
	store := newTestDokuWiki(t, newFakeWiki(map[string]string{"plenum:start": "x"}), DokuWikiOptions{})

	ok, err := store.Exists(ctx, "plenum:start")
	if err != nil || !ok {
		t.Errorf("Expected page to exist, got %v, %v", ok, err)
	}

	ok, err = store.Exists(ctx, "plenum:missing")
	if err != nil || ok {
		t.Errorf("Expected missing page, got %v, %v", ok, err)
	}
}

func TestDokuWikiStore_List(t *testing.T) {
	wiki := newFakeWiki(map[string]string{
		"plenum:start":      "",
		"plenum:2024-06-17": "",
		"plenum:2024-06-10": "",
		"orga:start":        "",
	})
	store := newTestDokuWiki(t, wiki, DokuWikiOptions{})

	ids, err := store.List(context.Background(), "plenum")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if got := strings.Join(ids, ","); got != "plenum:2024-06-10,plenum:2024-06-17,plenum:start" {
		t.Errorf("Unexpected ids %s", got)
	}
}

func TestDokuWikiStore_Auth(t *testing.T) {
	ctx := context.Background()

	wiki := newFakeWiki(nil)
	store := newTestDokuWiki(t, wiki, DokuWikiOptions{Token: "secret-token"})
	_, _ = store.Get(ctx, "start")
	if wiki.auth[0] != "Bearer secret-token" {
		t.Errorf("Expected bearer auth, got %q", wiki.auth[0])
	}

	wiki = newFakeWiki(nil)
	store = newTestDokuWiki(t, wiki, DokuWikiOptions{Username: "bot", Password: "pw"})
	_, _ = store.Get(ctx, "start")
	if !strings.HasPrefix(wiki.auth[0], "Basic ") {
		t.Errorf("Expected basic auth, got %q", wiki.auth[0])
	}

	wiki = newFakeWiki(nil)
	store = newTestDokuWiki(t, wiki, DokuWikiOptions{})
	_, _ = store.Get(ctx, "start")
	if wiki.auth[0] != "" {
		t.Errorf("Expected no auth header, got %q", wiki.auth[0])
	}
}

func TestDokuWikiStore_RPCError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":111,"message":"You are not allowed to edit this page"}}`))
	}))
	defer server.Close()

	store, _ := NewDokuWikiStore(DokuWikiOptions{URL: server.URL})
	err := store.Set(context.Background(), "plenum:start", "x", "y")
	if err == nil {
		t.Fatal("Expected error")
	}
	if !strings.Contains(err.Error(), "not allowed") {
		t.Errorf("Expected wiki message in error, got %v", err)
	}
}

func TestDokuWikiStore_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer server.Close()

	store, _ := NewDokuWikiStore(DokuWikiOptions{URL: server.URL})
	_, err := store.Get(context.Background(), "plenum:start")
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Errorf("Expected status error, got %v", err)
	}
}

func TestDokuWikiStore_RejectedSave(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":false}`))
	}))
	defer server.Close()

	store, _ := NewDokuWikiStore(DokuWikiOptions{URL: server.URL})
	err := store.Set(context.Background(), "plenum:start", "x", "y")
	if err == nil || !strings.Contains(err.Error(), "rejected") {
		t.Errorf("Expected rejection error, got %v", err)
	}
}
