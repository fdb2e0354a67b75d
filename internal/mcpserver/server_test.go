package mcpserver

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/quillhq/vellum/internal/api"
	"github.com/quillhq/vellum/internal/testutil"
)

func testServer(t *testing.T) (*Server, *api.Service) {
	t.Helper()

	stores, fs, _ := testutil.Stores(t)
	db := testutil.DB(t)
	svc := api.NewService(stores, fs, db, testutil.Logger())
	return New(svc), svc
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so the handler
	// functions are invoked directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "search_vault":
		result, err = srv.searchVault(ctx, req)
	case "list_entities":
		result, err = srv.listEntities(ctx, req)
	case "read_conversation":
		result, err = srv.readConversation(ctx, req)
	case "append_message":
		result, err = srv.appendMessage(ctx, req)
	case "read_riff":
		result, err = srv.readRiff(ctx, req)
	case "update_riff_body":
		result, err = srv.updateRiffBody(ctx, req)
	case "add_riff_comment":
		result, err = srv.addRiffComment(ctx, req)
	case "get_entity_contract":
		result, err = srv.getEntityContract(ctx, req)
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

func TestAppendAndReadConversation(t *testing.T) {
	srv, svc := testServer(t)

	c, err := svc.CreateConversation(context.Background(), "sonnet", "Field test", nil)
	if err != nil {
		t.Fatal(err)
	}

	r := callTool(t, srv, "append_message", map[string]interface{}{
		"id": c.ID, "role": "user", "content": "hello from the agent",
	})
	if r.IsError {
		t.Fatalf("append error: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), "1 messages") {
		t.Errorf("append result = %q", resultText(r))
	}

	r = callTool(t, srv, "read_conversation", map[string]interface{}{"id": c.ID})
	if !strings.Contains(resultText(r), "hello from the agent") {
		t.Errorf("read result missing message: %q", resultText(r))
	}
}

func TestUpdateRiffBodyPreservesComments(t *testing.T) {
	srv, svc := testServer(t)

	riff, err := svc.CreateRiff(context.Background(), "essay", "# Draft\n\nOriginal paragraph.")
	if err != nil {
		t.Fatal(err)
	}

	r := callTool(t, srv, "add_riff_comment", map[string]interface{}{
		"id": riff.Meta.ID, "paragraph_index": 1, "content": "needs work",
	})
	if r.IsError {
		t.Fatalf("comment error: %s", resultText(r))
	}

	r = callTool(t, srv, "update_riff_body", map[string]interface{}{
		"id": riff.Meta.ID, "body": "# Draft\n\nRewritten paragraph.", "change": "rewrote",
	})
	if r.IsError {
		t.Fatalf("update error: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), "1 comments preserved") {
		t.Errorf("update result = %q", resultText(r))
	}

	r = callTool(t, srv, "read_riff", map[string]interface{}{"id": riff.Meta.ID})
	text := resultText(r)
	if !strings.Contains(text, "Rewritten paragraph.") || !strings.Contains(text, "needs work") {
		t.Errorf("read riff = %q", text)
	}
}

func TestListEntities(t *testing.T) {
	srv, svc := testServer(t)

	if _, err := svc.CreateRiff(context.Background(), "essay", "# One\n\ntext"); err != nil {
		t.Fatal(err)
	}

	r := callTool(t, srv, "list_entities", map[string]interface{}{"kind": "riff"})
	if !strings.Contains(resultText(r), "One") {
		t.Errorf("list = %q", resultText(r))
	}

	r = callTool(t, srv, "list_entities", map[string]interface{}{"kind": "conversation"})
	if resultText(r) != "no entities found" {
		t.Errorf("empty list = %q", resultText(r))
	}

	r = callTool(t, srv, "list_entities", map[string]interface{}{"kind": "banana"})
	if !r.IsError {
		t.Error("expected error for unknown kind")
	}
}

func TestSearchVault(t *testing.T) {
	srv, svc := testServer(t)

	if _, err := svc.CreateRiff(context.Background(), "essay", "# Notes\n\nzeppelin itinerary"); err != nil {
		t.Fatal(err)
	}

	r := callTool(t, srv, "search_vault", map[string]interface{}{"query": "zeppelin"})
	if !strings.Contains(resultText(r), "zeppelin") {
		t.Errorf("search = %q", resultText(r))
	}
}

func TestReadConversationMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "read_conversation", map[string]interface{}{"id": "nope"})
	if !r.IsError {
		t.Error("expected error for missing conversation")
	}
}

func TestEntityContract(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_entity_contract", map[string]interface{}{})
	if !strings.Contains(resultText(r), "paragraphIndex") {
		t.Error("contract missing anchor documentation")
	}
}
