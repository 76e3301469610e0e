package i18n

import (
	"context"

	"github.com/pavelanni/coursework/internal/protocol"
)

// Middleware injects a localizer into every request context, honouring the
// request's Accept-Language header.
func (c *Catalog) Middleware() protocol.Middleware {
	return func(next protocol.HandlerFunc) protocol.HandlerFunc {
		return func(ctx context.Context, req *protocol.Request) protocol.Response {
			loc := c.fallback
			if accept := req.Header["Accept-Language"]; accept != "" {
				loc = c.Localizer(accept)
			}
			return next(WithLocalizer(ctx, loc), req)
		}
	}
}
