// Package mcpserver exposes extraction as an MCP tool over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"callscribe/internal/domain"
	"callscribe/internal/service"
)

const (
	serverName    = "callscribe"
	serverVersion = "1.0.0"

	// ToolExtractCall is the name of the extraction tool.
	ToolExtractCall = "extract_call"
)

// Extractor is the part of the service the tool calls.
type Extractor interface {
	Extract(ctx context.Context, req service.Request) (domain.ExtractionResult, error)
}

// New builds an MCP server with the extraction tool registered.
func New(svc Extractor, logger logrus.FieldLogger) *server.MCPServer {
	s := server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(false),
	)

	tool := mcp.NewTool(ToolExtractCall,
		mcp.WithDescription("Open a recorded call page in a headless browser and return the call metadata "+
			"(date, salesperson, prospect, duration, link, title) and the full transcript as JSON."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The share URL of the call recording"),
		),
	)
	s.AddTool(tool, HandleExtractCall(svc, logger.WithField("component", "mcp")))
	return s
}

// Serve runs the server on stdin/stdout until the input closes.
func Serve(s *server.MCPServer) error {
	if err := server.ServeStdio(s); err != nil {
		return fmt.Errorf("mcp server error: %w", err)
	}
	return nil
}

// HandleExtractCall runs one extraction per tool call. Extraction failures
// are reported as tool errors, never as protocol errors.
func HandleExtractCall(svc Extractor, log logrus.FieldLogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		res, err := svc.Extract(ctx, service.Request{URL: url, Source: domain.SourceMCP})
		if err != nil {
			if errors.Is(err, domain.ErrInvalidURL) {
				return mcp.NewToolResultError(err.Error()), nil
			}
			log.WithError(err).Error("Extraction call failed")
			return mcp.NewToolResultError(fmt.Sprintf("extraction failed: %v", err)), nil
		}
		if !res.OK() {
			return mcp.NewToolResultError(res.Error), nil
		}

		body, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
		}
		return mcp.NewToolResultText(string(body)), nil
	}
}
