// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the commitment store as tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/notifsync/internal/apperr"
	"github.com/starford/notifsync/internal/models"
)

// RecordFormatURI is the resource holding RecordFormatContract.
const RecordFormatURI = "notifsync://record-format"

// Store is the commitment store surface the tools need. *store.Store
// implements it.
type Store interface {
	List() []models.Commitment
	Get(id string) (models.Commitment, bool)
	Create(ctx context.Context, c models.Commitment) (models.Commitment, error)
	Update(ctx context.Context, id string, c models.Commitment) (models.Commitment, error)
	SoftDelete(ctx context.Context, id string) (models.Commitment, error)
	PurgeDeleted(ctx context.Context) (int, error)
}

// Server wraps the MCP server with the commitment tools.
type Server struct {
	mcp   *server.MCPServer
	store Store
}

// New creates a new MCP server with all tools registered.
func New(store Store, version string) *Server {
	s := &Server{store: store}

	s.mcp = server.NewMCPServer(
		"notifsync",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_commitments",
		mcp.WithDescription("List stored commitments in insertion order."),
		mcp.WithBoolean("include_deleted",
			mcp.DefaultBool(true),
			mcp.Description("Include soft-deleted commitments (deleted is \"true\")")),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.listCommitments)

	s.mcp.AddTool(mcp.NewTool("get_commitment",
		mcp.WithDescription("Get a single commitment by id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Commitment id")),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.getCommitment)

	s.mcp.AddTool(mcp.NewTool("create_commitment",
		mcp.WithDescription("Create a commitment. Omit id to have one assigned. "+
			"Fields MUST follow the record format; read "+RecordFormatURI+" first."),
		mcp.WithObject("commitment", mcp.Required(), mcp.Description("Commitment record")),
	), s.createCommitment)

	s.mcp.AddTool(mcp.NewTool("update_commitment",
		mcp.WithDescription("Replace every field of an existing commitment. The id argument wins over any id in the record."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Commitment id")),
		mcp.WithObject("commitment", mcp.Required(), mcp.Description("Full replacement record")),
		mcp.WithIdempotentHintAnnotation(true),
	), s.updateCommitment)

	s.mcp.AddTool(mcp.NewTool("delete_commitment",
		mcp.WithDescription("Soft-delete a commitment. It stays listed with deleted \"true\" until purge_deleted runs."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Commitment id")),
		mcp.WithIdempotentHintAnnotation(true),
	), s.deleteCommitment)

	s.mcp.AddTool(mcp.NewTool("purge_deleted",
		mcp.WithDescription("Permanently remove every soft-deleted commitment."),
		mcp.WithDestructiveHintAnnotation(true),
	), s.purgeDeleted)

	s.mcp.AddResource(
		mcp.NewResource(RecordFormatURI, "Commitment Record Format",
			mcp.WithResourceDescription("Field list and accepted encodings for commitment records."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readRecordFormatResource,
	)

	return s
}

// ServeStdio serves MCP over the given streams until ctx is cancelled or
// in is closed. Transport errors go to errLog when it is non-nil.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer, errLog *log.Logger) error {
	stdio := server.NewStdioServer(s.mcp)
	if errLog != nil {
		stdio.SetErrorLogger(errLog)
	}
	return stdio.Listen(ctx, in, out)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listCommitments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	all := s.store.List()
	if !req.GetBool("include_deleted", true) {
		live := make([]models.Commitment, 0, len(all))
		for _, c := range all {
			if !c.IsDeleted() {
				live = append(live, c)
			}
		}
		all = live
	}
	return jsonResult(all), nil
}

func (s *Server) getCommitment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	c, ok := s.store.Get(id)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	return jsonResult(c), nil
}

func (s *Server) createCommitment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c, errResult := commitmentArg(req)
	if errResult != nil {
		return errResult, nil
	}
	created, err := s.store.Create(ctx, c)
	if err != nil {
		return storeError(err), nil
	}
	return jsonResult(created), nil
}

func (s *Server) updateCommitment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	c, errResult := commitmentArg(req)
	if errResult != nil {
		return errResult, nil
	}
	updated, err := s.store.Update(ctx, id, c)
	if err != nil {
		return storeError(err), nil
	}
	return jsonResult(updated), nil
}

func (s *Server) deleteCommitment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	deleted, err := s.store.SoftDelete(ctx, id)
	if err != nil {
		return storeError(err), nil
	}
	return jsonResult(deleted), nil
}

func (s *Server) purgeDeleted(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n, err := s.store.PurgeDeleted(ctx)
	if err != nil {
		return storeError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("purged: %d", n)), nil
}

func (s *Server) readRecordFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      RecordFormatURI,
			MIMEType: "text/markdown",
			Text:     RecordFormatContract,
		},
	}, nil
}

// commitmentArg normalizes the "commitment" object argument.
func commitmentArg(req mcp.CallToolRequest) (models.Commitment, *mcp.CallToolResult) {
	raw, ok := req.GetArguments()["commitment"].(map[string]any)
	if !ok {
		return models.Commitment{}, mcp.NewToolResultError("commitment must be an object")
	}
	c, err := models.Normalize(raw)
	if err != nil {
		return models.Commitment{}, mcp.NewToolResultError(err.Error())
	}
	return c, nil
}

func storeError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("not found")
	case errors.Is(err, apperr.ErrAlreadyExists):
		return mcp.NewToolResultError("a commitment with this id already exists")
	}
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}
