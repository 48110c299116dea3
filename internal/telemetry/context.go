package telemetry

import "context"

type scriptIDKey struct{}
type toolNameKey struct{}

// WithScriptID attaches the Apps Script project id a request is operating
// against, so every log record emitted underneath carries it without the
// call chain threading it through explicit parameters.
func WithScriptID(ctx context.Context, scriptID string) context.Context {
	if scriptID == "" {
		return ctx
	}
	return context.WithValue(ctx, scriptIDKey{}, scriptID)
}

// ScriptIDFromContext returns the script id attached by WithScriptID, if any.
func ScriptIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(scriptIDKey{}).(string)
	return id, ok
}

// WithToolName attaches the name of the MCP tool currently executing.
func WithToolName(ctx context.Context, name string) context.Context {
	if name == "" {
		return ctx
	}
	return context.WithValue(ctx, toolNameKey{}, name)
}

// ToolNameFromContext returns the tool name attached by WithToolName, if any.
func ToolNameFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(toolNameKey{}).(string)
	return name, ok
}
