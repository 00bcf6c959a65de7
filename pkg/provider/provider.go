// Package provider is the boundary to the external conversational
// collaborator: text goes in, a reply message (and optional native actions)
// comes out.
//
// [HTTPProvider] speaks the JSON wire format over HTTP. [Cached] decorates
// any provider with a reply cache and collapses identical in-flight calls.
// [Func] adapts a plain function, mainly for tests.
//
// Providers do not retry. A failed call is reported to the caller as is.
package provider

import (
	"context"
	"encoding/json"

	"github.com/matzehuels/canvasflow/pkg/history"
)

// Context is the conversational context sent with a message.
type Context struct {
	History []history.Turn `json:"history" msgpack:"history"`
}

// Reply is the provider's answer. Message carries the action markers that
// drive materialization; Actions is provider-native enrichment that callers
// may log but never materialize.
type Reply struct {
	Message string            `json:"message" msgpack:"message"`
	Actions []json.RawMessage `json:"actions,omitempty" msgpack:"actions,omitempty"`
}

// Provider sends one message and waits for the reply.
type Provider interface {
	SendMessage(ctx context.Context, text string, c Context) (*Reply, error)
}

// Func adapts a function to [Provider].
type Func func(ctx context.Context, text string, c Context) (*Reply, error)

// SendMessage calls f.
func (f Func) SendMessage(ctx context.Context, text string, c Context) (*Reply, error) {
	return f(ctx, text, c)
}

// Static returns a provider that always answers with message.
func Static(message string) Provider {
	return Func(func(context.Context, string, Context) (*Reply, error) {
		return &Reply{Message: message}, nil
	})
}
