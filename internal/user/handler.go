package user

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ovaphlow/accountd/internal/auth"
	"github.com/ovaphlow/accountd/internal/respond"
)

// Handler exposes HTTP endpoints for account operations.
type Handler struct {
	svc      *Service
	logger   *zap.SugaredLogger
	validate *validator.Validate
}

func NewHandler(db *sqlx.DB, issuer *auth.Issuer, logger *zap.SugaredLogger) *Handler {
	return &Handler{
		svc:      NewService(db, issuer, nil),
		logger:   logger,
		validate: validator.New(),
	}
}

// RegisterRequest request body for the register endpoint.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Fail(w, http.StatusBadRequest, "Name, email, and password are required")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respond.Fail(w, http.StatusBadRequest, "Name, email, and password are required")
		return
	}
	u, token, err := h.svc.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrEmailExists) {
			respond.Fail(w, http.StatusConflict, "Email already exists")
			return
		}
		h.logger.Errorw("registration failed", "err", err)
		respond.Fail(w, http.StatusInternalServerError, "Registration failed")
		return
	}
	respond.JSON(w, http.StatusCreated, "User registered successfully",
		map[string]any{"user": u, "token": token})
}

// LoginRequest login payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Fail(w, http.StatusBadRequest, "Email and password are required")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respond.Fail(w, http.StatusBadRequest, "Email and password are required")
		return
	}
	u, token, err := h.svc.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			respond.Fail(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		h.logger.Errorw("login failed", "err", err)
		respond.Fail(w, http.StatusInternalServerError, "Login failed")
		return
	}
	respond.JSON(w, http.StatusOK, "Login successful",
		map[string]any{"user": u, "token": token})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.List(r.Context())
	if err != nil {
		h.logger.Errorw("list users failed", "err", err)
		respond.Fail(w, http.StatusInternalServerError, "Failed to retrieve users")
		return
	}
	respond.JSON(w, http.StatusOK, "Users retrieved successfully",
		map[string]any{"users": users, "count": len(users)})
}

// Profile resolves the identity from the verified claim, never from a
// client-supplied id.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		respond.Fail(w, http.StatusUnauthorized, "Access token required")
		return
	}
	u, err := h.svc.Profile(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Fail(w, http.StatusNotFound, "User not found")
			return
		}
		h.logger.Errorw("profile lookup failed", "err", err)
		respond.Fail(w, http.StatusInternalServerError, "Failed to retrieve profile")
		return
	}
	respond.JSON(w, http.StatusOK, "Profile retrieved successfully",
		map[string]any{"user": u})
}

// UpdateRequest carries the optional profile fields; at least one must be set.
type UpdateRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		respond.Fail(w, http.StatusUnauthorized, "Access token required")
		return
	}
	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Fail(w, http.StatusBadRequest, "At least name or email must be provided")
		return
	}
	if (req.Name == nil || *req.Name == "") && (req.Email == nil || *req.Email == "") {
		respond.Fail(w, http.StatusBadRequest, "At least name or email must be provided")
		return
	}
	// treat empty strings as absent so a partial body only touches the
	// fields it names
	if req.Name != nil && *req.Name == "" {
		req.Name = nil
	}
	if req.Email != nil && *req.Email == "" {
		req.Email = nil
	}
	u, err := h.svc.UpdateProfile(r.Context(), claims.UserID, req.Name, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmailExists):
			respond.Fail(w, http.StatusConflict, "Email already exists")
		case errors.Is(err, ErrNotFound):
			respond.Fail(w, http.StatusNotFound, "User not found")
		default:
			h.logger.Errorw("profile update failed", "err", err)
			respond.Fail(w, http.StatusInternalServerError, "Failed to update profile")
		}
		return
	}
	respond.JSON(w, http.StatusOK, "Profile updated successfully",
		map[string]any{"user": u})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		respond.Fail(w, http.StatusUnauthorized, "Access token required")
		return
	}
	// a target id that does not parse can never match the caller's own id,
	// so it takes the ownership rejection
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respond.Fail(w, http.StatusForbidden, "You can only delete your own account")
		return
	}
	u, err := h.svc.Delete(r.Context(), id, claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, ErrForbidden):
			respond.Fail(w, http.StatusForbidden, "You can only delete your own account")
		case errors.Is(err, ErrNotFound):
			respond.Fail(w, http.StatusNotFound, "User not found")
		default:
			h.logger.Errorw("delete failed", "err", err, "id", id)
			respond.Fail(w, http.StatusInternalServerError, "Failed to delete user")
		}
		return
	}
	respond.JSON(w, http.StatusOK, "User deleted successfully",
		map[string]any{"deletedUser": u})
}
