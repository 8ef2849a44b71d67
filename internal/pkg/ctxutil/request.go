package ctxutil

import (
	"context"

	"github.com/yungbote/neurobridge-publish/internal/domain/publishing"
)

// Default returns context.Background() when ctx is nil.
func Default(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

type requestDataKey struct{}

// RequestData carries the verified caller identity for one request.
type RequestData struct {
	TokenString string
	Actor       publishing.Actor
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(Default(ctx), requestDataKey{}, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if ctx == nil {
		return nil
	}
	if rd, ok := ctx.Value(requestDataKey{}).(*RequestData); ok {
		return rd
	}
	return nil
}

// ActorFrom returns the caller identity, or the zero Actor when unauthenticated.
func ActorFrom(ctx context.Context) publishing.Actor {
	if rd := GetRequestData(ctx); rd != nil {
		return rd.Actor
	}
	return publishing.Actor{}
}
