package protocol

import (
	"context"
	"encoding/json"
)

// HandlerFunc handles one request and returns exactly one response.
type HandlerFunc func(ctx context.Context, req *Request) Response

// Middleware wraps a HandlerFunc.
type Middleware func(next HandlerFunc) HandlerFunc

// Handler serves decoded requests.
type Handler interface {
	ServeRequest(ctx context.Context, req *Request) Response
}

// Translator maps a message id to user-visible text.
type Translator func(ctx context.Context, msgID string) string

// Message ids used by the router and server.
const (
	MsgMethodNotAllowed = "MethodNotAllowed"
	MsgInvalidJSON      = "InvalidJSON"
	MsgNotFound         = "NotFound"
	MsgMalformedRequest = "MalformedRequest"
	MsgRequestTooLarge  = "RequestTooLarge"
	MsgInternalError    = "InternalError"
)

var defaultMessages = map[string]string{
	MsgMethodNotAllowed: "method not allowed",
	MsgInvalidJSON:      "invalid JSON body",
	MsgNotFound:         "resource not found",
	MsgMalformedRequest: "malformed request",
	MsgRequestTooLarge:  "request too large",
	MsgInternalError:    "internal server error",
}

// DefaultTranslator returns built-in English text for the protocol
// message ids and the id itself for anything else.
func DefaultTranslator(_ context.Context, msgID string) string {
	if s, ok := defaultMessages[msgID]; ok {
		return s
	}
	return msgID
}

// Router dispatches POST requests by exact path match.
type Router struct {
	routes      map[string]HandlerFunc
	middlewares []Middleware
	translate   Translator
}

// NewRouter creates an empty router. A nil translator falls back to
// DefaultTranslator.
func NewRouter(t Translator) *Router {
	if t == nil {
		t = DefaultTranslator
	}
	return &Router{routes: make(map[string]HandlerFunc), translate: t}
}

// Use appends middlewares. The first one added is the outermost.
func (r *Router) Use(mw ...Middleware) {
	r.middlewares = append(r.middlewares, mw...)
}

// Handle registers h for an exact path.
func (r *Router) Handle(path string, h HandlerFunc) {
	r.routes[path] = h
}

// Paths returns the number of registered routes.
func (r *Router) Paths() int {
	return len(r.routes)
}

// ServeRequest runs the middleware chain around dispatch.
func (r *Router) ServeRequest(ctx context.Context, req *Request) Response {
	h := r.dispatch
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		h = r.middlewares[i](h)
	}
	return h(ctx, req)
}

// dispatch checks the method, then that the body is a JSON object, then
// looks up the path.
func (r *Router) dispatch(ctx context.Context, req *Request) Response {
	if req.Method != MethodPost {
		return Error(405, r.translate(ctx, MsgMethodNotAllowed))
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(req.Body, &obj); err != nil || obj == nil {
		return Error(400, r.translate(ctx, MsgInvalidJSON))
	}
	h, ok := r.routes[req.Path]
	if !ok {
		return Error(404, r.translate(ctx, MsgNotFound))
	}
	return h(ctx, req)
}
