package tools

import "go.uber.org/zap"

// logger is shared by every tool handler; stdout belongs to the MCP transport
var logger = zap.NewNop()

// SetLogger sets the logger used by tool handlers (nil = no-op)
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger = l.Named("tools")
}
