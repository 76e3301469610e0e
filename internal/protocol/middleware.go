package protocol

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/pavelanni/coursework/internal/model"
)

// Logger logs one line per request, and failures at warn level.
func Logger(log *slog.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) Response {
			start := time.Now()
			resp := next(ctx, req)

			attrs := []any{
				"conn", model.ConnIDFromContext(ctx),
				"method", req.Method,
				"path", req.Path,
				"status", resp.Status,
				"duration", time.Since(start),
			}
			if eb, ok := resp.Body.(ErrorBody); ok {
				log.Warn("request failed", append(attrs, "error", eb.Error)...)
				return resp
			}
			log.Info("request", attrs...)
			return resp
		}
	}
}

// Recoverer turns a panicking handler into a 500 response.
func Recoverer(log *slog.Logger, t Translator) Middleware {
	if t == nil {
		t = DefaultTranslator
	}
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) (resp Response) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error("handler panic",
						"path", req.Path,
						"panic", fmt.Sprint(rec),
						"stack", string(debug.Stack()),
					)
					resp = Error(500, t(ctx, MsgInternalError))
				}
			}()
			return next(ctx, req)
		}
	}
}
