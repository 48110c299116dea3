// Package mcpserver wires the Core's engines to the stdio MCP surface.
// The MCP framing itself (JSON-RPC envelope, tool-registration plumbing)
// is mark3labs/mcp-go's concern, named only per spec.md §1; this package
// supplies the descriptor-based tool registry spec.md §9 calls for in
// place of a BaseTool inheritance ladder.
package mcpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	gmerrors "github.com/gas-mcp/gas-mcp-server/internal/errors"
	"github.com/gas-mcp/gas-mcp-server/internal/telemetry"
)

// Mode distinguishes a tool's content view: smart (semantic, wrap/unwrap
// applied) or raw (byte-exact, system files visible as-is).
type Mode string

const (
	ModeSmart Mode = "smart"
	ModeRaw   Mode = "raw"
)

// Descriptor is a tool's full definition: the "smart vs raw" duality is
// a tag on the descriptor rather than a subclass (spec.md §9).
type Descriptor struct {
	Name        string
	Description string
	Mode        Mode
	InputSchema map[string]any
	Execute     func(ctx context.Context, params map[string]interface{}) (any, error)
}

// Server wraps the mcp-go stdio server and registers Descriptors against it.
type Server struct {
	inner *server.MCPServer
}

// NewServer creates a new MCP server identified by name/version.
func NewServer(name, version string) *Server {
	return &Server{inner: server.NewMCPServer(name, version)}
}

// Register adds a Descriptor as a callable MCP tool.
func (s *Server) Register(desc Descriptor) {
	tool := mcp.NewToolWithRawSchema(desc.Name, desc.Description, rawSchema(desc.InputSchema))

	s.inner.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := req.Params.Arguments.(map[string]interface{})
		if args == nil {
			args = map[string]interface{}{}
		}

		ctx = telemetry.WithToolName(ctx, desc.Name)
		if scriptID, ok := args["scriptId"].(string); ok {
			ctx = telemetry.WithScriptID(ctx, scriptID)
		}

		start := time.Now()
		result, err := desc.Execute(ctx, args)
		durationMs := float64(time.Since(start)) / float64(time.Millisecond)
		slog.DebugContext(ctx, "tool call finished",
			slog.Float64(telemetry.AttrToolDurationMs, durationMs),
			slog.Bool("success", err == nil))
		if err != nil {
			return toErrorResult(err), nil
		}
		return toSuccessResult(result)
	})
}

// ServeStdio starts the server, blocking on the stdio transport.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.inner)
}

func rawSchema(schema map[string]any) json.RawMessage {
	if schema == nil {
		schema = map[string]any{"type": "object"}
	}
	encoded, err := json.Marshal(schema)
	if err != nil {
		encoded = []byte(`{"type":"object"}`)
	}
	return encoded
}

// toErrorResult renders the Core's typed error taxonomy as the JSON
// envelope spec.md §7 requires: never an uncaught exception on stdio.
func toErrorResult(err error) *mcp.CallToolResult {
	ge := gmerrors.As(err)
	payload, marshalErr := json.Marshal(ge)
	if marshalErr != nil {
		return mcp.NewToolResultError(ge.Error())
	}
	return mcp.NewToolResultError(string(payload))
}

func toSuccessResult(value any) (*mcp.CallToolResult, error) {
	switch v := value.(type) {
	case string:
		return mcp.NewToolResultText(v), nil
	case *mcp.CallToolResult:
		return v, nil
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(string(encoded)), nil
	}
}
