package handler

import (
	"context"
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/coursework/internal/model"
	"github.com/pavelanni/coursework/internal/protocol"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success bool           `json:"success"`
	UserID  int64          `json:"userId"`
	Role    model.UserRole `json:"role"`
}

// handleLogin checks the username, then the password, then the account
// status, in that order.
func (h *Handler) handleLogin(ctx context.Context, req *protocol.Request) protocol.Response {
	var in loginRequest
	if resp, ok := h.decode(ctx, req, &in); !ok {
		return resp
	}

	acct := h.store.GetAccountByUsername(in.Username)
	if acct == nil {
		return h.fail(ctx, 404, "UserNotFound")
	}
	if !checkPassword(acct.Password, in.Password) {
		h.log.Warn("login failed", "username", in.Username)
		return h.fail(ctx, 401, "WrongPassword")
	}
	if acct.Disabled() {
		return h.fail(ctx, 403, "AccountDisabled")
	}

	h.log.Info("login", "username", acct.Username, "role", acct.Role)
	return protocol.OK(loginResponse{Success: true, UserID: acct.ID, Role: acct.Role})
}

// checkPassword compares a login attempt with the stored password. Stored
// values that look like bcrypt hashes are verified with bcrypt, anything
// else is compared as plain text.
func checkPassword(stored, attempt string) bool {
	if isBcryptHash(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(attempt)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(attempt)) == 1
}

func isBcryptHash(s string) bool {
	return len(s) == 60 && strings.HasPrefix(s, "$2")
}

// storedPassword returns the value to persist for a new or changed
// password.
func (h *Handler) storedPassword(password string) (string, error) {
	if !h.config.HashPasswords {
		return password, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
