// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the vault to LLM agents via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/quillhq/vellum/internal/api"
	"github.com/quillhq/vellum/internal/models"
)

// Server wraps the MCP server with Vellum tools. Agent writes go through
// the same service layer as the REST API, so they take the atomic
// read-merge-write path and never clobber concurrent edits.
type Server struct {
	mcp *server.MCPServer
	svc *api.Service
}

// New creates a new MCP server with all Vellum tools registered.
func New(svc *api.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Vellum",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_vault",
		mcp.WithDescription("Full-text search across conversations, triggers, riffs, and notes."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithString("kind", mcp.Description("Optional entity kind filter: conversation, trigger, riff, or note")),
	), s.searchVault)

	s.mcp.AddTool(mcp.NewTool("list_entities",
		mcp.WithDescription("List entities of one kind, newest first."),
		mcp.WithString("kind", mcp.Required(), mcp.Description("Entity kind: conversation, trigger, or riff")),
	), s.listEntities)

	s.mcp.AddTool(mcp.NewTool("read_conversation",
		mcp.WithDescription("Read a conversation transcript by id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Conversation id")),
	), s.readConversation)

	s.mcp.AddTool(mcp.NewTool("append_message",
		mcp.WithDescription("Append one message to a conversation. The write merges with any "+
			"edits made since the conversation was read; never re-send the whole transcript."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Conversation id")),
		mcp.WithString("role", mcp.Required(), mcp.Description("Message role: user or assistant")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Message content")),
	), s.appendMessage)

	s.mcp.AddTool(mcp.NewTool("read_riff",
		mcp.WithDescription("Read a riff draft by id, including its comments and edit history."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Riff id")),
	), s.readRiff)

	s.mcp.AddTool(mcp.NewTool("update_riff_body",
		mcp.WithDescription("Replace a riff's body with regenerated content. Comments and other "+
			"metadata added while the content was being generated are preserved and re-anchored. "+
			"Read the entity contract first via get_entity_contract or the vellum://entity-format resource."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Riff id")),
		mcp.WithString("body", mcp.Required(), mcp.Description("New Markdown body")),
		mcp.WithString("change", mcp.Description("One-line summary of the edit for the riff's history")),
	), s.updateRiffBody)

	s.mcp.AddTool(mcp.NewTool("add_riff_comment",
		mcp.WithDescription("Attach a comment to a riff paragraph."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Riff id")),
		mcp.WithNumber("paragraph_index", mcp.Required(), mcp.Description("Zero-based paragraph index")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Comment content")),
	), s.addRiffComment)

	s.mcp.AddTool(mcp.NewTool("get_entity_contract",
		mcp.WithDescription("Returns the canonical Vellum entity file formats. "+
			"Call this before writing riff bodies or interpreting vault files."),
	), s.getEntityContract)

	// Resource: entity format contract.
	s.mcp.AddResource(
		mcp.NewResource("vellum://entity-format", "Entity Format Contract",
			mcp.WithResourceDescription("Canonical file formats for conversations, triggers, riffs, and notes."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readEntityFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) searchVault(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	kind := models.Kind(req.GetString("kind", ""))
	results, err := s.svc.Search(ctx, query, kind, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listEntities(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := req.RequireString("kind")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var lines []string
	switch models.Kind(kind) {
	case models.KindConversation:
		rows, _, err := s.svc.ListConversations(ctx, 100, 0)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		for _, r := range rows {
			lines = append(lines, r.ID+"\t"+r.Title)
		}
	case models.KindRiff:
		rows, _, err := s.svc.ListRiffs(ctx, 100, 0)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		for _, r := range rows {
			lines = append(lines, r.ID+"\t"+r.Title)
		}
	case models.KindTrigger:
		triggers, err := s.svc.ListTriggers(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		for _, tr := range triggers {
			lines = append(lines, tr.ID+"\t"+tr.Title)
		}
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown kind: %s", kind)), nil
	}

	if len(lines) == 0 {
		return mcp.NewToolResultText("no entities found"), nil
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) readConversation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	c, err := s.svc.GetConversation(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	out, _ := json.MarshalIndent(c, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) appendMessage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	role, err := req.RequireString("role")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	c, err := s.svc.AppendMessage(ctx, id, models.Message{Role: role, Content: content})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("appended; conversation now has %d messages", len(c.Messages))), nil
}

func (s *Server) readRiff(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	r, err := s.svc.GetRiff(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	out, _ := json.MarshalIndent(r, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) updateRiffBody(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	body, err := req.RequireString("body")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	change := req.GetString("change", "")

	r, err := s.svc.UpdateRiffBody(ctx, id, body, change)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("updated: %s (%d comments preserved)", id, len(r.Meta.Comments))), nil
}

func (s *Server) addRiffComment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	idx, err := req.RequireInt("paragraph_index")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	c, err := s.svc.AddRiffComment(ctx, id, idx, content)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("comment %s added at paragraph %d", c.ID, c.Anchor.ParagraphIndex)), nil
}

func (s *Server) getEntityContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(EntityFormatContract), nil
}

func (s *Server) readEntityFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "vellum://entity-format",
			MIMEType: "text/markdown",
			Text:     EntityFormatContract,
		},
	}, nil
}
