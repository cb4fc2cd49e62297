package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/notifsync/internal/models"
	"github.com/starford/notifsync/internal/store"
	"github.com/starford/notifsync/internal/testutil"
)

func testServer(t *testing.T, content string) (*Server, *store.Store) {
	t.Helper()
	s, _ := testutil.TestStore(t, content)
	return New(s, "test"), s
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no in-process call helper, so the handlers are called directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_commitments":
		result, err = srv.listCommitments(ctx, req)
	case "get_commitment":
		result, err = srv.getCommitment(ctx, req)
	case "create_commitment":
		result, err = srv.createCommitment(ctx, req)
	case "update_commitment":
		result, err = srv.updateCommitment(ctx, req)
	case "delete_commitment":
		result, err = srv.deleteCommitment(ctx, req)
	case "purge_deleted":
		result, err = srv.purgeDeleted(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func resultRecord(t *testing.T, r *mcp.CallToolResult) models.Commitment {
	t.Helper()
	if r.IsError {
		t.Fatalf("tool error: %s", resultText(r))
	}
	var c models.Commitment
	if err := json.Unmarshal([]byte(resultText(r)), &c); err != nil {
		t.Fatalf("decode %q: %v", resultText(r), err)
	}
	return c
}

// args turns a record into the argument map a JSON-RPC client would send.
func args(t *testing.T, c models.Commitment) map[string]any {
	t.Helper()
	data, _ := json.Marshal(c)
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	return m
}

func TestCreateAndGet(t *testing.T) {
	srv, _ := testServer(t, "[]")

	rec := args(t, testutil.Commitment("", "Dentist"))
	delete(rec, "id")
	rec["reminded"] = true

	created := resultRecord(t, callTool(t, srv, "create_commitment", map[string]any{"commitment": rec}))
	if created.ID != "1" || created.Reminded != models.FlagTrue {
		t.Errorf("created = %+v", created)
	}

	got := resultRecord(t, callTool(t, srv, "get_commitment", map[string]any{"id": "1"}))
	if got.Title != "Dentist" {
		t.Errorf("title = %q", got.Title)
	}
}

func TestCreateNumericID(t *testing.T) {
	srv, _ := testServer(t, "[]")

	rec := args(t, testutil.Commitment("", "x"))
	rec["id"] = float64(12)
	created := resultRecord(t, callTool(t, srv, "create_commitment", map[string]any{"commitment": rec}))
	if created.ID != "12" {
		t.Errorf("id = %q, want 12", created.ID)
	}

	r := callTool(t, srv, "create_commitment", map[string]any{"commitment": rec})
	if !r.IsError || !strings.Contains(resultText(r), "already exists") {
		t.Errorf("duplicate create = %q", resultText(r))
	}
}

func TestCreateInvalid(t *testing.T) {
	srv, s := testServer(t, "[]")

	r := callTool(t, srv, "create_commitment", map[string]any{"commitment": "not an object"})
	if !r.IsError {
		t.Error("expected error for non-object argument")
	}
	r = callTool(t, srv, "create_commitment", map[string]any{"commitment": map[string]any{"title": "only"}})
	if !r.IsError || !strings.Contains(resultText(r), "description") {
		t.Errorf("missing fields result = %q", resultText(r))
	}
	if len(s.List()) != 0 {
		t.Error("invalid create stored a record")
	}
}

func TestListCommitments(t *testing.T) {
	srv, s := testServer(t, "")
	if _, err := s.SoftDelete(context.Background(), "2"); err != nil {
		t.Fatal(err)
	}

	var all []models.Commitment
	_ = json.Unmarshal([]byte(resultText(callTool(t, srv, "list_commitments", map[string]any{}))), &all)
	if len(all) != 3 {
		t.Errorf("len(all) = %d, want 3", len(all))
	}

	var live []models.Commitment
	r := callTool(t, srv, "list_commitments", map[string]any{"include_deleted": false})
	_ = json.Unmarshal([]byte(resultText(r)), &live)
	if len(live) != 2 {
		t.Errorf("len(live) = %d, want 2", len(live))
	}
}

func TestUpdateDeletePurge(t *testing.T) {
	srv, s := testServer(t, "")

	updated := resultRecord(t, callTool(t, srv, "update_commitment", map[string]any{
		"id":         "1",
		"commitment": args(t, testutil.Commitment("77", "Moved sync")),
	}))
	if updated.ID != "1" || updated.Title != "Moved sync" {
		t.Errorf("updated = %+v", updated)
	}

	deleted := resultRecord(t, callTool(t, srv, "delete_commitment", map[string]any{"id": "1"}))
	if !deleted.IsDeleted() {
		t.Error("delete did not mark the record")
	}

	r := callTool(t, srv, "purge_deleted", map[string]any{})
	if resultText(r) != "purged: 1" {
		t.Errorf("purge = %q", resultText(r))
	}
	if _, ok := s.Get("1"); ok {
		t.Error("purged record still present")
	}
}

func TestMissingIDs(t *testing.T) {
	srv, _ := testServer(t, "[]")

	for _, tool := range []string{"get_commitment", "delete_commitment"} {
		r := callTool(t, srv, tool, map[string]any{"id": "nope"})
		if !r.IsError {
			t.Errorf("%s: expected error for unknown id", tool)
		}
	}
	r := callTool(t, srv, "update_commitment", map[string]any{
		"id":         "nope",
		"commitment": args(t, testutil.Commitment("", "x")),
	})
	if !r.IsError || resultText(r) != "not found" {
		t.Errorf("update unknown = %q", resultText(r))
	}
	r = callTool(t, srv, "get_commitment", map[string]any{})
	if !r.IsError {
		t.Error("expected error for missing id argument")
	}
}

func TestRecordFormatResource(t *testing.T) {
	srv, _ := testServer(t, "[]")

	contents, err := srv.readRecordFormatResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if len(contents) != 1 {
		t.Fatalf("contents = %d", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || tc.URI != RecordFormatURI || !strings.Contains(tc.Text, "date_present") {
		t.Errorf("resource = %+v", contents[0])
	}
}
