// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the tracker's items and mutations over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/notebase/internal/activities"
	"github.com/starford/notebase/internal/apperr"
	"github.com/starford/notebase/internal/models"
	"github.com/starford/notebase/internal/query"
	"github.com/starford/notebase/internal/querycache"
)

// FilterLanguageURI names the filter language resource.
const FilterLanguageURI = "notebase://filter-language"

const maxPerPage = 100

// Server wraps the MCP server with tracker tools.
type Server struct {
	mcp    *server.MCPServer
	client *querycache.CachedClient
	acts   *activities.Service
}

// New creates a new MCP server with all tools registered.
func New(client *querycache.CachedClient, acts *activities.Service) *Server {
	s := &Server{client: client, acts: acts}

	s.mcp = server.NewMCPServer(
		"notebase",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_items",
		mcp.WithDescription("List tracker items (tasks, debts, tracks, groceries) ordered by creation. "+
			"Deleted items are never returned. Read the filter language via get_filter_language "+
			"before using mode=querylang."),
		mcp.WithString("query", mcp.Description("Search text, or a filter expression when mode is querylang")),
		mcp.WithString("mode", mcp.Description("fulltext (default) or querylang"), mcp.Enum("fulltext", "querylang")),
		mcp.WithString("type", mcp.Description("Only items of this type: task, debt, track, groceries, none")),
		mcp.WithString("path", mcp.Description("Only items whose path contains this text")),
		mcp.WithNumber("page", mcp.Description("1-based page (default 1)")),
		mcp.WithNumber("per_page", mcp.Description("Page size (default 20, max 100)")),
	), s.listItems)

	s.mcp.AddTool(mcp.NewTool("get_item",
		mcp.WithDescription("Get one item with its full typed frontmatter and body."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Item id")),
	), s.getItem)

	s.mcp.AddTool(mcp.NewTool("toggle_item",
		mcp.WithDescription("Mark an open item completed now, or reopen a completed item."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Item id")),
	), s.toggleItem)

	s.mcp.AddTool(mcp.NewTool("add_transaction",
		mcp.WithDescription("Append a transaction to a debt. Positive amounts are owed to me, negative ones by me."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Debt item id")),
		mcp.WithNumber("amount", mcp.Required(), mcp.Description("Signed amount in the debt's currency")),
		mcp.WithString("comment", mcp.Description("Optional note")),
	), s.addTransaction)

	s.mcp.AddTool(mcp.NewTool("toggle_checklist_item",
		mcp.WithDescription("Flip the done flag of a grocery list entry."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Groceries item id")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Entry name")),
	), s.toggleChecklistItem)

	s.mcp.AddTool(mcp.NewTool("advance_episode",
		mcp.WithDescription("Move a track to its next episode."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Track item id")),
	), s.advanceEpisode)

	s.mcp.AddTool(mcp.NewTool("get_filter_language",
		mcp.WithDescription("Returns the filter expression language accepted by list_items in querylang mode."),
	), s.getFilterLanguage)

	s.mcp.AddResource(
		mcp.NewResource(FilterLanguageURI, "Filter Language",
			mcp.WithResourceDescription("Grammar and fields of the item filter language."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFilterLanguageResource,
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

type listResponse struct {
	Items      []models.Display `json:"items"`
	Page       int              `json:"page"`
	PerPage    int              `json:"perPage"`
	TotalItems int              `json:"totalItems"`
	TotalPages int              `json:"totalPages"`
	Filter     string           `json:"filter"`
}

func (s *Server) listItems(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	state := query.FilterState{
		Query:             req.GetString("query", ""),
		Mode:              query.Mode(req.GetString("mode", "")),
		TypeFilter:        req.GetString("type", ""),
		PathFilter:        req.GetString("path", ""),
		TypeFilterEnabled: true,
		PathFilterEnabled: true,
	}.Normalized()
	if err := state.Validate(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	page := req.GetInt("page", 1)
	perPage := req.GetInt("per_page", activities.DefaultPageSize)
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	filter := query.Build(state)
	res, err := s.client.GetList(ctx, page, perPage, filter)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out := listResponse{
		Items:      make([]models.Display, len(res.Items)),
		Page:       res.Page,
		PerPage:    res.PerPage,
		TotalItems: res.TotalItems,
		TotalPages: res.TotalPages,
		Filter:     filter,
	}
	for i, item := range res.Items {
		out.Items[i] = item.Display()
	}
	return jsonResult(out)
}

func (s *Server) getItem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	item, err := s.client.GetItem(ctx, id)
	if err != nil {
		return toolError(id, err), nil
	}
	return jsonResult(item)
}

func (s *Server) toggleItem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	item, err := s.acts.Toggle(ctx, id)
	if err != nil {
		return toolError(id, err), nil
	}
	return jsonResult(item.Display())
}

func (s *Server) addTransaction(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	amount, err := req.RequireFloat("amount")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tx, err := s.acts.AddTransaction(ctx, id, amount, req.GetString("comment", ""))
	if err != nil {
		return toolError(id, err), nil
	}
	return jsonResult(tx)
}

func (s *Server) toggleChecklistItem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	item, err := s.acts.ToggleChecklistItem(ctx, id, name)
	if err != nil {
		return toolError(id, err), nil
	}
	return jsonResult(item.Frontmatter.Checklist)
}

func (s *Server) advanceEpisode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	item, err := s.acts.AdvanceEpisode(ctx, id)
	if err != nil {
		return toolError(id, err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s: episode %d", item.Title(), *item.Frontmatter.Episode)), nil
}

func (s *Server) getFilterLanguage(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(FilterLanguage), nil
}

func (s *Server) readFilterLanguageResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      FilterLanguageURI,
			MIMEType: "text/markdown",
			Text:     FilterLanguage,
		},
	}, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

// toolError renders err for the model. Failed item lookups are reported by
// id so the model can correct its call.
func toolError(id string, err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("%s (id %s)", err.Error(), id))
	}
	return mcp.NewToolResultError(err.Error())
}
