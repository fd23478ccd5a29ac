package llmclient

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// Middleware decorates a Client to inject cross-cutting concerns.
type Middleware func(Client) Client

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner Client, mws ...Middleware) Client {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// WithLogging logs request size, latency and errors. A nil logger disables it.
func WithLogging(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next Client) Client {
		return &logging{next: next, log: logger.Named("llm")}
	}
}

type logging struct {
	next Client
	log  *zap.Logger
}

func (l *logging) Name() string { return l.next.Name() }

func (l *logging) GenerateJSON(ctx context.Context, req JSONRequest) (json.RawMessage, error) {
	start := time.Now()
	raw, err := l.next.GenerateJSON(ctx, req)
	fields := []zap.Field{
		zap.String("client", l.next.Name()),
		zap.Int("image_bytes", len(req.Image.Data)),
		zap.Int("prompt_bytes", len(req.Prompt)),
		zap.Duration("elapsed", time.Since(start)),
	}
	if err != nil {
		l.log.Warn("generate json failed", append(fields, zap.Error(err))...)
		return raw, err
	}
	l.log.Debug("generate json", append(fields, zap.Int("response_bytes", len(raw)))...)
	return raw, nil
}

func (l *logging) GenerateImage(ctx context.Context, req ImageRequest) (*Blob, error) {
	start := time.Now()
	out, err := l.next.GenerateImage(ctx, req)
	fields := []zap.Field{
		zap.String("client", l.next.Name()),
		zap.Int("image_bytes", len(req.Image.Data)),
		zap.Duration("elapsed", time.Since(start)),
	}
	if err != nil {
		l.log.Warn("generate image failed", append(fields, zap.Error(err))...)
		return out, err
	}
	l.log.Debug("generate image", append(fields, zap.Bool("has_image", out != nil))...)
	return out, nil
}
