package handler

import (
	"context"
	"errors"

	"github.com/pavelanni/coursework/internal/events"
	"github.com/pavelanni/coursework/internal/model"
	"github.com/pavelanni/coursework/internal/protocol"
	"github.com/pavelanni/coursework/internal/store"
)

type userListResponse struct {
	Success bool                  `json:"success"`
	Users   []model.PublicAccount `json:"users"`
}

func (h *Handler) handleUserList(ctx context.Context, req *protocol.Request) protocol.Response {
	accounts := h.store.ListAccounts()
	users := make([]model.PublicAccount, 0, len(accounts))
	for _, a := range accounts {
		users = append(users, a.Public())
	}
	return protocol.OK(userListResponse{Success: true, Users: users})
}

type userAddRequest struct {
	Username string         `json:"username"`
	Password string         `json:"password"`
	Role     model.UserRole `json:"role"`
}

func (h *Handler) handleUserAdd(ctx context.Context, req *protocol.Request) protocol.Response {
	var in userAddRequest
	if resp, ok := h.decode(ctx, req, &in); !ok {
		return resp
	}
	if in.Username == "" || in.Password == "" || in.Role == "" {
		return h.fail(ctx, 400, "MissingUserFields")
	}
	if !in.Role.Valid() {
		return h.fail(ctx, 400, "InvalidRole")
	}

	password, err := h.storedPassword(in.Password)
	if err != nil {
		h.log.Error("failed to hash password", "error", err)
		return h.fail(ctx, 500, "UserSaveFailed")
	}

	acct, err := h.store.CreateAccount(in.Username, password, in.Role)
	if errors.Is(err, store.ErrDuplicateUsername) {
		return h.fail(ctx, 400, "UsernameTaken")
	}
	if err != nil {
		h.log.Error("failed to create account", "username", in.Username, "error", err)
		return h.fail(ctx, 500, "UserSaveFailed")
	}

	h.emit(ctx, events.AccountCreated, acct.Public())
	return h.ok(ctx, "UserCreated")
}

type userEditRequest struct {
	UserID   int64                `json:"userId"`
	Password *string              `json:"password"`
	Role     *model.UserRole      `json:"role"`
	Status   *model.AccountStatus `json:"status"`
}

func (h *Handler) handleUserEdit(ctx context.Context, req *protocol.Request) protocol.Response {
	var in userEditRequest
	if resp, ok := h.decode(ctx, req, &in); !ok {
		return resp
	}
	if in.Role != nil && !in.Role.Valid() {
		return h.fail(ctx, 400, "InvalidRole")
	}
	if in.Status != nil && !in.Status.Valid() {
		return h.fail(ctx, 400, "InvalidStatus")
	}

	patch := model.AccountPatch{Role: in.Role, Status: in.Status}
	if in.Password != nil {
		password, err := h.storedPassword(*in.Password)
		if err != nil {
			h.log.Error("failed to hash password", "error", err)
			return h.fail(ctx, 500, "UserSaveFailed")
		}
		patch.Password = &password
	}

	err := h.store.UpdateAccount(in.UserID, patch)
	if errors.Is(err, store.ErrNotFound) {
		return h.fail(ctx, 404, "UserNotFound")
	}
	if err != nil {
		h.log.Error("failed to update account", "id", in.UserID, "error", err)
		return h.fail(ctx, 500, "UserSaveFailed")
	}

	h.emit(ctx, events.AccountUpdated, map[string]any{
		"id":              in.UserID,
		"role":            in.Role,
		"status":          in.Status,
		"passwordChanged": in.Password != nil,
	})
	return h.ok(ctx, "UserUpdated")
}

type userDeleteRequest struct {
	UserID int64 `json:"userId"`
}

func (h *Handler) handleUserDelete(ctx context.Context, req *protocol.Request) protocol.Response {
	var in userDeleteRequest
	if resp, ok := h.decode(ctx, req, &in); !ok {
		return resp
	}

	err := h.store.DeleteAccount(in.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return h.fail(ctx, 404, "UserNotFound")
	}
	if err != nil {
		h.log.Error("failed to delete account", "id", in.UserID, "error", err)
		return h.fail(ctx, 500, "UserDeleteFailed")
	}

	h.emit(ctx, events.AccountDeleted, map[string]any{"id": in.UserID})
	return h.ok(ctx, "UserDeleted")
}
