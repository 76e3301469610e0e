package handler

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/pavelanni/coursework/internal/events"
	"github.com/pavelanni/coursework/internal/i18n"
	"github.com/pavelanni/coursework/internal/model"
	"github.com/pavelanni/coursework/internal/protocol"
	"github.com/pavelanni/coursework/internal/store"
)

// Handler holds shared dependencies for the API handlers.
type Handler struct {
	store  *store.Store
	log    *slog.Logger
	config model.ServerConfig
	msgs   *i18n.Catalog
	events events.Publisher
}

// New creates a new Handler. A nil publisher disables domain events.
func New(s *store.Store, msgs *i18n.Catalog, pub events.Publisher, cfg model.ServerConfig, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	if pub == nil {
		pub = events.Nop{}
	}
	return &Handler{store: s, log: log, config: cfg, msgs: msgs, events: pub}
}

// Routes registers all API routes.
func (h *Handler) Routes(r *protocol.Router) {
	r.Handle("/api/login", h.handleLogin)
	r.Handle("/api/submit", h.handleSubmit)
	r.Handle("/api/publish", h.handlePublish)
	r.Handle("/api/homeworks", h.handleHomeworks)
	r.Handle("/api/grade", h.handleGrade)
	r.Handle("/api/users/list", h.handleUserList)
	r.Handle("/api/users/add", h.handleUserAdd)
	r.Handle("/api/users/edit", h.handleUserEdit)
	r.Handle("/api/users/delete", h.handleUserDelete)
}

// messageResponse is the success body of the mutating routes.
type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// decode unmarshals the request body into dst. The router has already
// checked that the body is a JSON object, so a failure here means a field
// has the wrong type.
func (h *Handler) decode(ctx context.Context, req *protocol.Request, dst any) (protocol.Response, bool) {
	if err := json.Unmarshal(req.Body, dst); err != nil {
		h.log.Debug("invalid request fields", "path", req.Path, "error", err)
		return h.fail(ctx, 400, "InvalidFields"), false
	}
	return protocol.Response{}, true
}

func (h *Handler) fail(ctx context.Context, status int, msgID string) protocol.Response {
	return protocol.Error(status, h.msgs.T(ctx, msgID))
}

func (h *Handler) ok(ctx context.Context, msgID string) protocol.Response {
	return protocol.OK(messageResponse{Success: true, Message: h.msgs.T(ctx, msgID)})
}

// emit publishes a domain event. Failures are logged and never change the
// response.
func (h *Handler) emit(ctx context.Context, eventType string, payload any) {
	if err := h.events.Publish(ctx, eventType, payload); err != nil {
		h.log.Error("failed to publish event", "type", eventType, "error", err)
	}
}
