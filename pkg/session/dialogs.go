package session

import (
	"context"
	"sync"
)

// NoticeKind classifies a user notice.
type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeInfo    NoticeKind = "info"
	NoticeError   NoticeKind = "error"
)

// Notice is a message shown to the user after an action.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
}

// Dialogs is the modal layer of an editor. Implementations must not call
// back into the session.
type Dialogs interface {
	// Confirm asks a yes/no question and reports the answer.
	Confirm(ctx context.Context, message string) bool
	Notify(ctx context.Context, n Notice)
}

type answerKey struct{}

type noticesKey struct{}

// WithAnswer returns a context whose confirmations are answered with yes.
func WithAnswer(ctx context.Context, yes bool) context.Context {
	return context.WithValue(ctx, answerKey{}, yes)
}

// Notices collects the notices raised while handling one request.
type Notices struct {
	mu   sync.Mutex
	list []Notice
}

// List returns the notices collected so far.
func (n *Notices) List() []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notice(nil), n.list...)
}

// WithNotices returns a context that collects notices into the returned set.
func WithNotices(ctx context.Context) (context.Context, *Notices) {
	n := &Notices{}
	return context.WithValue(ctx, noticesKey{}, n), n
}

// RequestDialogs answers confirmations from the request context and collects
// notices into it. Without WithAnswer every confirmation is declined.
type RequestDialogs struct{}

func (RequestDialogs) Confirm(ctx context.Context, _ string) bool {
	yes, _ := ctx.Value(answerKey{}).(bool)
	return yes
}

func (RequestDialogs) Notify(ctx context.Context, n Notice) {
	if set, ok := ctx.Value(noticesKey{}).(*Notices); ok {
		set.mu.Lock()
		set.list = append(set.list, n)
		set.mu.Unlock()
	}
}
