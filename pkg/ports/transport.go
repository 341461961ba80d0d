package ports

import (
	"context"

	"github.com/aretw0/graff/pkg/codec"
)

// Transport is a synchronous request/reply channel.
type Transport interface {
	// RoundTrip sends one serialized envelope and blocks until exactly one
	// reply arrives, the context is done, or the channel fails.
	// A failed call must return an error, never an empty reply.
	RoundTrip(ctx context.Context, request []byte) ([]byte, error)

	// Close releases the underlying connection.
	Close() error
}

// RequestHandler answers decoded requests. Failures are expressed as non-OK
// replies, so the handler never returns an error.
type RequestHandler interface {
	HandleRequest(ctx context.Context, req codec.Request) codec.Reply
}

// HandlerFunc adapts a function to RequestHandler.
type HandlerFunc func(ctx context.Context, req codec.Request) codec.Reply

func (f HandlerFunc) HandleRequest(ctx context.Context, req codec.Request) codec.Reply {
	return f(ctx, req)
}

// ServeBytes decodes a raw envelope, dispatches it and encodes the reply.
// Servers built on byte-oriented channels share it.
func ServeBytes(ctx context.Context, h RequestHandler, raw []byte) []byte {
	var reply codec.Reply
	req, err := codec.DecodeRequest(raw)
	if err != nil {
		reply = codec.ErrorReply(err.Error())
	} else {
		reply = h.HandleRequest(ctx, req)
	}
	out, err := codec.MarshalReply(reply)
	if err != nil {
		out, _ = codec.MarshalReply(codec.ErrorReply("encode reply: " + err.Error()))
	}
	return out
}
