package wiki

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestRedirectText(t *testing.T) {
	if got := RedirectText("plenum:2024-06-24"); got != "~~GOTO>plenum:2024-06-24~~" {
		t.Errorf("Unexpected redirect text: %q", got)
	}
}

func TestSetRedirect(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(nil)

	if err := SetRedirect(ctx, store, "plenum:aktuell", "plenum:2024-06-24"); err != nil {
		t.Fatalf("SetRedirect failed: %v", err)
	}

	text, _ := store.Get(ctx, "plenum:aktuell")
	if text != "~~GOTO>plenum:2024-06-24~~" {
		t.Errorf("Unexpected redirect page: %q", text)
	}
	if got := store.Summary("plenum:aktuell"); got != "redirect target set to plenum:2024-06-24" {
		t.Errorf("Unexpected summary: %q", got)
	}
}

type failingStore struct {
	*MemoryStore
}

func (f failingStore) Set(context.Context, string, string, string) error {
	return errors.New("read-only")
}

func TestSetRedirect_Error(t *testing.T) {
	err := SetRedirect(context.Background(), failingStore{NewMemoryStore(nil)}, "a", "b")
	if err == nil {
		t.Fatal("Expected error")
	}
	if !strings.Contains(err.Error(), "read-only") {
		t.Errorf("Expected wrapped cause, got %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(map[string]string{
		"plenum:2024-06-10": "old",
		"plenum:start":      "index",
		"orga:start":        "other",
	})
	defer func() { _ = store.Close() }()

	text, err := store.Get(ctx, "plenum:2024-06-10")
	if err != nil || text != "old" {
		t.Errorf("Get = %q, %v", text, err)
	}

	text, err = store.Get(ctx, "plenum:missing")
	if err != nil || text != "" {
		t.Errorf("Expected empty text for missing page, got %q, %v", text, err)
	}

	if ok, _ := store.Exists(ctx, "plenum:missing"); ok {
		t.Error("Expected missing page not to exist")
	}

	if err := store.Set(ctx, "plenum:2024-06-17", "new", "created"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if ok, _ := store.Exists(ctx, "plenum:2024-06-17"); !ok {
		t.Error("Expected page to exist after Set")
	}
	if store.Summary("plenum:2024-06-17") != "created" {
		t.Errorf("Unexpected summary %q", store.Summary("plenum:2024-06-17"))
	}

	ids, _ := store.List(ctx, "plenum")
	want := []string{"plenum:2024-06-10", "plenum:2024-06-17", "plenum:start"}
	if strings.Join(ids, ",") != strings.Join(want, ",") {
		t.Errorf("List = %v, want %v", ids, want)
	}

	all, _ := store.List(ctx, "")
	if len(all) != 4 {
		t.Errorf("Expected 4 pages, got %v", all)
	}
}

func TestNewMemoryStore_CopiesInput(t *testing.T) {
	pages := map[string]string{"a": "1"}
	store := NewMemoryStore(pages)
	pages["a"] = "changed"

	if text, _ := store.Get(context.Background(), "a"); text != "1" {
		t.Errorf("Expected store to be independent of input map, got %q", text)
	}
}
