package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/fuse/internal/matching"
	"github.com/kalambet/fuse/internal/profile"
	"github.com/kalambet/fuse/internal/scoring"
)

const (
	defaultMCPMatchLimit = 10
	maxMCPMatchLimit     = 100
	weightsResourceURI   = "fuse://scoring/weights"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store  profile.Store
	Scorer *scoring.Scorer
	Finder *matching.Finder
}

// NewMCPServer creates an MCP server with the fuse tools and resources registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"fuse",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("fuse scores compatibility between stored profiles and ranks match candidates."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("get_profile",
			mcp.WithDescription("Fetch a stored profile by id."),
			mcp.WithString("id", mcp.Description("Profile id"), mcp.Required()),
		),
		mcpGetProfile(deps),
	)

	s.AddTool(
		mcp.NewTool("compute_compatibility",
			mcp.WithDescription("Score how compatible a candidate is from the subject's point of view. Scores are directional."),
			mcp.WithString("subject_id", mcp.Description("Profile id of the subject"), mcp.Required()),
			mcp.WithString("candidate_id", mcp.Description("Profile id of the candidate"), mcp.Required()),
		),
		mcpComputeCompatibility(deps),
	)

	s.AddTool(
		mcp.NewTool("find_matches",
			mcp.WithDescription("Rank stored profiles by compatibility with the subject, best first."),
			mcp.WithString("subject_id", mcp.Description("Profile id of the subject"), mcp.Required()),
			mcp.WithNumber("min_age", mcp.Description("Minimum candidate age in years")),
			mcp.WithNumber("max_age", mcp.Description("Maximum candidate age in years")),
			mcp.WithString("location", mcp.Description("Preferred location")),
			mcp.WithString("mbti", mcp.Description("Preferred MBTI type (informational)")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of matches (default 10)")),
		),
		mcpFindMatches(deps),
	)

	s.AddResource(
		mcp.NewResource(
			weightsResourceURI,
			"Scoring Weights",
			mcp.WithResourceDescription("Dimension weights used for the overall compatibility score"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceWeights(deps),
	)

	return s
}

func mcpGetProfile(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcpError("id is required"), nil
		}

		p, err := deps.Store.Get(ctx, id)
		if errors.Is(err, profile.ErrNotFound) {
			return mcpError(fmt.Sprintf("profile %s not found", id)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("failed to get profile: %v", err)), nil
		}
		return mcpJSON(p)
	}
}

func mcpComputeCompatibility(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		subjectID, err := req.RequireString("subject_id")
		if err != nil {
			return mcpError("subject_id is required"), nil
		}
		candidateID, err := req.RequireString("candidate_id")
		if err != nil {
			return mcpError("candidate_id is required"), nil
		}

		subject, err := deps.Store.Get(ctx, subjectID)
		if err != nil {
			return mcpError(fmt.Sprintf("subject %s: %v", subjectID, err)), nil
		}
		candidate, err := deps.Store.Get(ctx, candidateID)
		if err != nil {
			return mcpError(fmt.Sprintf("candidate %s: %v", candidateID, err)), nil
		}

		return mcpJSON(deps.Scorer.Compute(subject, candidate))
	}
}

func mcpFindMatches(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		subjectID, err := req.RequireString("subject_id")
		if err != nil {
			return mcpError("subject_id is required"), nil
		}

		c := matching.Criteria{
			MinAge:   req.GetInt("min_age", 0),
			MaxAge:   req.GetInt("max_age", 0),
			Location: req.GetString("location", ""),
			MBTI:     req.GetString("mbti", ""),
		}

		limit := req.GetInt("limit", defaultMCPMatchLimit)
		if limit <= 0 {
			limit = defaultMCPMatchLimit
		}
		if limit > maxMCPMatchLimit {
			limit = maxMCPMatchLimit
		}

		matches, err := deps.Finder.FindMatches(ctx, subjectID, c)
		if err != nil {
			return mcpError(fmt.Sprintf("find matches failed: %v", err)), nil
		}
		if len(matches) > limit {
			matches = matches[:limit]
		}
		if len(matches) == 0 {
			return mcpText("[]"), nil
		}
		return mcpJSON(matches)
	}
}

func mcpResourceWeights(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(deps.Scorer.Weights())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal weights: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
