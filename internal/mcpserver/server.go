// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Vouch lookups for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/vouch/internal/apperr"
	"github.com/starford/vouch/internal/hierarchy"
	"github.com/starford/vouch/internal/models"
	"github.com/starford/vouch/internal/picker"
	"github.com/starford/vouch/internal/requestservice"
	"github.com/starford/vouch/internal/taxonomy"
)

// GuideURI is the resource holding TaxonomyGuide.
const GuideURI = "vouch://taxonomy-guide"

const defaultLimit = 10

// Taxonomy is the part of the taxonomy store the tools read.
type Taxonomy interface {
	Locations(ctx context.Context) (*taxonomy.LocationView, error)
	BusinessTypes(ctx context.Context) ([]models.CategoryOption, error)
}

// Server wraps the MCP server with Vouch tools.
type Server struct {
	mcp *server.MCPServer
	tax Taxonomy
	svc *requestservice.Service
}

// searchResult mirrors what the web picker shows for a query.
type searchResult struct {
	Query     string            `json:"query"`
	State     string            `json:"state"`
	Matches   []hierarchy.Entry `json:"matches"`
	CreateNew string            `json:"create_new,omitempty"`
}

// New creates a new MCP server with all Vouch tools registered.
func New(tax Taxonomy, svc *requestservice.Service) *Server {
	s := &Server{tax: tax, svc: svc}

	s.mcp = server.NewMCPServer(
		"Vouch",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_locations",
		mcp.WithDescription("Search cities, areas and neighbourhoods by name. Children also match "+
			"through their parent's name. Returns ranked matches, or the query offered as a new location."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Location name or part of it")),
		mcp.WithNumber("limit", mcp.Description("Maximum matches (default 10)")),
	), s.searchLocations)

	s.mcp.AddTool(mcp.NewTool("search_business_types",
		mcp.WithDescription("Search business categories and subcategories. Subcategories are shown as "+
			"\"Name (Category)\". Returns ranked matches, or the query offered as a new type."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Business type or part of it")),
		mcp.WithNumber("limit", mcp.Description("Maximum matches (default 10)")),
	), s.searchBusinessTypes)

	s.mcp.AddTool(mcp.NewTool("find_requests",
		mcp.WithDescription("List public recommendation requests, newest first. A location id also "+
			"matches every location below it. Use the search tools to find ids first."),
		mcp.WithString("location_id", mcp.Description("Location id from search_locations")),
		mcp.WithString("business_type", mcp.Description("Category or subcategory id from search_business_types")),
		mcp.WithString("search", mcp.Description("Text to look for in title or context")),
		mcp.WithNumber("limit", mcp.Description("Maximum requests (default 50, max 200)")),
	), s.findRequests)

	s.mcp.AddTool(mcp.NewTool("get_request",
		mcp.WithDescription("Read one request and the recommendations it received."),
		mcp.WithString("share_token", mcp.Required(), mcp.Description("Share token from find_requests")),
	), s.getRequest)

	s.mcp.AddTool(mcp.NewTool("get_taxonomy_guide",
		mcp.WithDescription("Explains how locations and business types are organised. "+
			"Read it before filtering requests."),
	), s.getTaxonomyGuide)

	s.mcp.AddResource(
		mcp.NewResource(GuideURI, "Taxonomy Guide",
			mcp.WithResourceDescription("How Vouch organises locations and business types."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readGuideResource,
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

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func runSearch(query string, limit int, entries []hierarchy.Entry) searchResult {
	if limit <= 0 {
		limit = defaultLimit
	}
	p := picker.New(limit)
	p.SetEntries(entries)
	_ = p.Type(query)
	matches := p.Matches()
	if matches == nil {
		matches = []hierarchy.Entry{}
	}
	return searchResult{Query: query, State: p.State().String(), Matches: matches, CreateNew: p.NewName()}
}

func (s *Server) searchLocations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	view, err := s.tax.Locations(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(runSearch(query, req.GetInt("limit", 0), view.Entries))
}

func (s *Server) searchBusinessTypes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	opts, err := s.tax.BusinessTypes(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(runSearch(query, req.GetInt("limit", 0), hierarchy.OptionEntries(opts)))
}

func (s *Server) findRequests(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.svc.ListRequests(ctx, requestservice.Filter{
		LocationID:   req.GetString("location_id", ""),
		BusinessType: req.GetString("business_type", ""),
		Search:       req.GetString("search", ""),
		Limit:        req.GetInt("limit", 0),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(items)
}

func (s *Server) getRequest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	token, err := req.RequireString("share_token")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	detail, err := s.svc.GetRequest(ctx, token)
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError("not found: " + token), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(detail)
}

func (s *Server) getTaxonomyGuide(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(TaxonomyGuide), nil
}

func (s *Server) readGuideResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      GuideURI,
			MIMEType: "text/markdown",
			Text:     TaxonomyGuide,
		},
	}, nil
}
