package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"designkit/internal/errdefs"
	"designkit/internal/services"
)

// registerTools adds every query tool to the MCP server. Handlers are thin:
// parameter extraction, one facade call, result or error payload rendering.
func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("get_design_tokens",
		mcp.WithDescription("List design tokens, optionally filtered by category and deprecation state"),
		mcp.WithString("category",
			mcp.Description("Token category: color, typography, spacing, elevation or motion"),
		),
		mcp.WithBoolean("deprecated",
			mcp.Description("When set, only tokens whose deprecated flag matches"),
		),
	), s.handleGetTokens)

	s.mcpServer.AddTool(mcp.NewTool("get_design_token",
		mcp.WithDescription("Get a single design token by name (case-insensitive)"),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Token name, e.g. primary-blue"),
		),
	), s.handleGetToken)

	s.mcpServer.AddTool(mcp.NewTool("search_design_tokens",
		mcp.WithDescription("Search design tokens by substring across name, description, category, value, usage and aliases"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search text"),
		),
	), s.handleSearchTokens)

	s.mcpServer.AddTool(mcp.NewTool("get_components",
		mcp.WithDescription("List UI components, optionally filtered by category"),
		mcp.WithString("category",
			mcp.Description("Component category"),
		),
	), s.handleGetComponents)

	s.mcpServer.AddTool(mcp.NewTool("get_component",
		mcp.WithDescription("Get a single UI component spec by name (case-insensitive), including props, variants, examples and accessibility notes"),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Component name, e.g. Button"),
		),
	), s.handleGetComponent)

	s.mcpServer.AddTool(mcp.NewTool("search_components",
		mcp.WithDescription("Search UI components by substring across name, description, category and guideline texts"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search text"),
		),
	), s.handleSearchComponents)

	s.mcpServer.AddTool(mcp.NewTool("get_guidelines",
		mcp.WithDescription("List usage guidelines, optionally filtered by category or tag"),
		mcp.WithString("category",
			mcp.Description("Guideline category"),
		),
		mcp.WithString("tag",
			mcp.Description("Guideline tag"),
		),
	), s.handleGetGuidelines)

	s.mcpServer.AddTool(mcp.NewTool("get_guideline",
		mcp.WithDescription("Get a single usage guideline by id (case-insensitive)"),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Guideline id"),
		),
	), s.handleGetGuideline)

	s.mcpServer.AddTool(mcp.NewTool("search_guidelines",
		mcp.WithDescription("Search usage guidelines by substring across title, content, category and tags"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search text"),
		),
	), s.handleSearchGuidelines)

	s.mcpServer.AddTool(mcp.NewTool("get_component_guidelines",
		mcp.WithDescription("List the guidelines related to a component; unknown components yield an empty list"),
		mcp.WithString("component",
			mcp.Required(),
			mcp.Description("Component name"),
		),
	), s.handleComponentGuidelines)

	s.mcpServer.AddTool(mcp.NewTool("get_token_guidelines",
		mcp.WithDescription("List the guidelines related to a design token; unknown tokens yield an empty list"),
		mcp.WithString("token",
			mcp.Required(),
			mcp.Description("Token name"),
		),
	), s.handleTokenGuidelines)

	s.mcpServer.AddTool(mcp.NewTool("get_system_health",
		mcp.WithDescription("Report circuit breaker statistics and cache freshness"),
	), s.handleSystemHealth)
}

// jsonResult marshals v as indented JSON text content.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(errdefs.New(errdefs.InternalError, "failed to encode result").WithCause(err))
	}
	return mcp.NewToolResultText(string(b)), nil
}

// errorResult renders a classified error as the normalized error payload.
// The error is carried in the tool result, not as a protocol failure, so
// the client always sees the structured code/retryable shape.
func errorResult(err error) (*mcp.CallToolResult, error) {
	e := errdefs.AsError(err)
	if e == nil {
		e = errdefs.Normalize("mcp", "tool", err)
	}
	b, merr := json.Marshal(e.ToPayload())
	if merr != nil {
		return mcp.NewToolResultError(e.Error()), nil
	}
	return mcp.NewToolResultError(string(b)), nil
}

// requiredArg fetches a required string parameter, converting a missing or
// mistyped value into a ProtocolError payload.
func requiredArg(req mcp.CallToolRequest, key string) (string, *mcp.CallToolResult, error) {
	v, err := req.RequireString(key)
	if err != nil {
		res, rerr := errorResult(errdefs.Newf(errdefs.ProtocolError, "parameter %q is required and must be a string", key).WithCause(err))
		return "", res, rerr
	}
	return v, nil, nil
}

func (s *Server) handleGetTokens(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := services.TokenFilter{Category: req.GetString("category", "")}
	if v, ok := req.GetArguments()["deprecated"].(bool); ok {
		filter.Deprecated = &v
	}

	tokens, err := s.tokens.List(ctx, filter)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(map[string]any{"tokens": tokens, "count": len(tokens)})
}

func (s *Server) handleGetToken(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, res, err := requiredArg(req, "name")
	if res != nil || err != nil {
		return res, err
	}

	token, terr := s.tokens.Get(ctx, name)
	if terr != nil {
		return errorResult(terr)
	}
	return jsonResult(token)
}

func (s *Server) handleSearchTokens(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, res, err := requiredArg(req, "query")
	if res != nil || err != nil {
		return res, err
	}

	tokens, serr := s.tokens.Search(ctx, query)
	if serr != nil {
		return errorResult(serr)
	}
	return jsonResult(map[string]any{"tokens": tokens, "count": len(tokens)})
}

func (s *Server) handleGetComponents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := services.ComponentFilter{Category: req.GetString("category", "")}

	components, err := s.components.List(ctx, filter)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(map[string]any{"components": components, "count": len(components)})
}

func (s *Server) handleGetComponent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, res, err := requiredArg(req, "name")
	if res != nil || err != nil {
		return res, err
	}

	component, cerr := s.components.Get(ctx, name)
	if cerr != nil {
		return errorResult(cerr)
	}
	return jsonResult(component)
}

func (s *Server) handleSearchComponents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, res, err := requiredArg(req, "query")
	if res != nil || err != nil {
		return res, err
	}

	components, serr := s.components.Search(ctx, query)
	if serr != nil {
		return errorResult(serr)
	}
	return jsonResult(map[string]any{"components": components, "count": len(components)})
}

func (s *Server) handleGetGuidelines(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := services.GuidelineFilter{
		Category: req.GetString("category", ""),
		Tag:      req.GetString("tag", ""),
	}

	guidelines, err := s.guidelines.List(ctx, filter)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(map[string]any{"guidelines": guidelines, "count": len(guidelines)})
}

func (s *Server) handleGetGuideline(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, res, err := requiredArg(req, "id")
	if res != nil || err != nil {
		return res, err
	}

	guideline, gerr := s.guidelines.Get(ctx, id)
	if gerr != nil {
		return errorResult(gerr)
	}
	return jsonResult(guideline)
}

func (s *Server) handleSearchGuidelines(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, res, err := requiredArg(req, "query")
	if res != nil || err != nil {
		return res, err
	}

	guidelines, serr := s.guidelines.Search(ctx, query)
	if serr != nil {
		return errorResult(serr)
	}
	return jsonResult(map[string]any{"guidelines": guidelines, "count": len(guidelines)})
}

func (s *Server) handleComponentGuidelines(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	component, res, err := requiredArg(req, "component")
	if res != nil || err != nil {
		return res, err
	}

	guidelines, gerr := s.guidelines.ForComponent(ctx, component)
	if gerr != nil {
		return errorResult(gerr)
	}
	return jsonResult(map[string]any{"guidelines": guidelines, "count": len(guidelines)})
}

func (s *Server) handleTokenGuidelines(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	token, res, err := requiredArg(req, "token")
	if res != nil || err != nil {
		return res, err
	}

	guidelines, gerr := s.guidelines.ForToken(ctx, token)
	if gerr != nil {
		return errorResult(gerr)
	}
	return jsonResult(map[string]any{"guidelines": guidelines, "count": len(guidelines)})
}

func (s *Server) handleSystemHealth(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(map[string]any{
		"breakers": s.registry.AllStats(),
		"cache":    s.manager.Status(),
	})
}
