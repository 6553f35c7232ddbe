package api

import (
	"net/http"
	"strconv"

	"github.com/go-faster/errors"

	"github.com/quickshelf/pos/internal/domain/user"
)

type userResponse struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Active   bool   `json:"active"`
}

type createUserRequest struct {
	UserID   int64  `json:"user_id"` // acting admin
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type setUserActiveRequest struct {
	UserID int64 `json:"user_id"` // acting admin
	Active bool  `json:"active"`
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		internalError(w, r, err)
		return
	}
	resp := make([]userResponse, len(users))
	for i, u := range users {
		resp[i] = userResponse{
			UserID:   u.ID,
			Username: u.Username,
			Role:     string(u.Role),
			Active:   u.Active,
		}
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	role := user.Role(req.Role)
	if req.Username == "" || req.Password == "" || !role.Valid() {
		writeError(w, r, http.StatusUnprocessableEntity, "username, password and a valid role required")
		return
	}

	id, err := h.users.CreateUser(r.Context(), req.UserID, req.Username, req.Password, role)
	if err != nil {
		if errors.Is(err, user.ErrUsernameTaken) {
			writeError(w, r, http.StatusConflict, user.ErrUsernameTaken.Error())
			return
		}
		internalError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, map[string]int64{"user_id": id})
}

func (h *Handler) handleSetUserActive(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid user id")
		return
	}
	var req setUserActiveRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.users.SetActive(r.Context(), req.UserID, id, req.Active); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "user not found")
			return
		}
		internalError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
