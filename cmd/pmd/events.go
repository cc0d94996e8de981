package main

import (
	"sync"

	"github.com/rexliu/pdfmarks/pkg/ipc"
	"github.com/rexliu/pdfmarks/pkg/session"
)

// treeChanged is broadcast after a session commits a mutation.
type treeChanged struct {
	Type    string         `json:"type"`
	Session session.Status `json:"session"`
}

// eventHub broadcasts tree_changed events to subscribed clients.
type eventHub struct {
	logger  ipc.Logger
	mu      sync.Mutex
	clients map[*eventClient]struct{}
}

type eventClient struct {
	session string
	send    chan any
}

func newEventHub(logger ipc.Logger) *eventHub {
	return &eventHub{
		logger:  logger,
		clients: make(map[*eventClient]struct{}),
	}
}

// register adds a client. A non-empty sessionID limits it to that session.
func (h *eventHub) register(sessionID string) *eventClient {
	h.mu.Lock()
	defer h.mu.Unlock()
	client := &eventClient{session: sessionID, send: make(chan any, 16)}
	h.clients[client] = struct{}{}
	return client
}

func (h *eventHub) unregister(client *eventClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
}

func (h *eventHub) broadcast(ev treeChanged) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		if client.session != "" && client.session != ev.Session.ID {
			continue
		}
		select {
		case client.send <- ev:
		default:
			h.logger.Warnf("dropping event for slow client")
		}
	}
}

func (d *daemon) sessionChanged(s *session.Session) {
	d.events.broadcast(treeChanged{Type: "tree_changed", Session: s.State()})
}
