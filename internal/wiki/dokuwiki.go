package wiki

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync/atomic"
	"time"
)

const (
	// JSONRPCPath is the DokuWiki JSON-RPC endpoint relative to the wiki URL.
	JSONRPCPath = "/lib/exe/jsonrpc.php"

	// errCodePageNotFound is returned by core.getPageInfo for missing pages.
	errCodePageNotFound = 121

	maxResponseBytes = 16 * 1024 * 1024
)

// RPCError is an error reported by the wiki API.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("dokuwiki error %d: %s", e.Code, e.Message)
}

// DokuWikiOptions configures a DokuWikiStore.
type DokuWikiOptions struct {
	URL      string
	Username string
	Password string
	// Token is sent as a bearer token and takes precedence over basic auth.
	Token   string
	Timeout time.Duration
}

// DokuWikiStore talks to a DokuWiki instance through its JSON-RPC API.
type DokuWikiStore struct {
	endpoint string
	opts     DokuWikiOptions
	client   *http.Client
	nextID   atomic.Int64
}

// NewDokuWikiStore creates a client for the wiki at opts.URL.
func NewDokuWikiStore(opts DokuWikiOptions) (*DokuWikiStore, error) {
	if strings.TrimSpace(opts.URL) == "" {
		return nil, errors.New("dokuwiki url cannot be empty")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	return &DokuWikiStore{
		endpoint: strings.TrimRight(opts.URL, "/") + JSONRPCPath,
		opts:     opts,
		client:   &http.Client{Timeout: opts.Timeout},
	}, nil
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type rpcResponse struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// call invokes method and decodes the result into out (if non-nil).
func (s *DokuWikiStore) call(ctx context.Context, method string, params any, out any) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      s.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case s.opts.Token != "":
		req.Header.Set("Authorization", "Bearer "+s.opts.Token)
	case s.opts.Username != "":
		req.SetBasicAuth(s.opts.Username, s.opts.Password)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s request failed with status %d: %s", method, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(data, &rpcResp); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", method, err)
	}
	if rpcResp.Error != nil && rpcResp.Error.Code != 0 {
		return rpcResp.Error
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", method, err)
	}
	return nil
}

func (s *DokuWikiStore) Get(ctx context.Context, id string) (string, error) {
	var text string
	if err := s.call(ctx, "core.getPage", map[string]any{"page": id}, &text); err != nil {
		return "", fmt.Errorf("failed to get page %s: %w", id, err)
	}
	return text, nil
}

func (s *DokuWikiStore) Set(ctx context.Context, id, text, summary string) error {
	var ok bool
	params := map[string]any{
		"page":    id,
		"text":    text,
		"summary": summary,
		"isminor": false,
	}
	if err := s.call(ctx, "core.savePage", params, &ok); err != nil {
		return fmt.Errorf("failed to set page %s: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("failed to set page %s: wiki rejected the edit", id)
	}
	return nil
}

type pageInfo struct {
	ID string `json:"id"`
}

func (s *DokuWikiStore) Exists(ctx context.Context, id string) (bool, error) {
	var info pageInfo
	err := s.call(ctx, "core.getPageInfo", map[string]any{"page": id}, &info)
	if err != nil {
		var rpcErr *RPCError
		if errors.As(err, &rpcErr) && rpcErr.Code == errCodePageNotFound {
			return false, nil
		}
		return false, fmt.Errorf("failed to get page info %s: %w", id, err)
	}
	return info.ID == id, nil
}

func (s *DokuWikiStore) List(ctx context.Context, namespace string) ([]string, error) {
	var pages []pageInfo
	if err := s.call(ctx, "core.listPages", map[string]any{"namespace": namespace, "depth": 0}, &pages); err != nil {
		return nil, fmt.Errorf("failed to list namespace %q: %w", namespace, err)
	}

	ids := make([]string, 0, len(pages))
	for _, p := range pages {
		ids = append(ids, p.ID)
	}
	sort.Strings(ids)
	return ids, nil
}

// Close releases idle connections.
func (s *DokuWikiStore) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
