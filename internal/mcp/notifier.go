package mcpserver

import (
	"context"
	"sync/atomic"

	"github.com/mark3labs/mcp-go/server"
)

// NotificationPrefix namespaces the notifications pushed to MCP clients.
const NotificationPrefix = "notifications/opsdash/"

// Notifier forwards service events to every connected MCP client. It is
// created before the server so services can hold it from construction;
// events emitted before New attaches it are dropped.
type Notifier struct {
	srv atomic.Pointer[server.MCPServer]
}

func NewNotifier() *Notifier {
	return &Notifier{}
}

func (n *Notifier) attach(s *server.MCPServer) {
	n.srv.Store(s)
}

// Emit implements service.EventEmitter.
func (n *Notifier) Emit(_ context.Context, event string, data any) {
	s := n.srv.Load()
	if s == nil {
		return
	}
	params := toParams(data)
	if params == nil {
		params = map[string]any{}
	}
	params["event"] = event
	s.SendNotificationToAllClients(NotificationPrefix+event, params)
}
