package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bookon-app/bookon/internal/api/dto"
	"github.com/bookon-app/bookon/internal/model"
	"github.com/bookon-app/bookon/internal/model/parent"
	"github.com/bookon-app/bookon/internal/serviceerrs"
	"github.com/bookon-app/bookon/internal/utils/auth"
)

type AuthHandler struct {
	parents parent.Repository
	log     *slog.Logger
	secret  []byte
}

func NewAuthHandler(parents parent.Repository, log *slog.Logger, secret string) *AuthHandler {
	return &AuthHandler{
		parents: parents,
		log:     log,
		secret:  []byte(secret),
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.ParentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.IsValid(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	loginHash := auth.HashLogin(req.Login)
	if h.parents.Exists(r.Context(), loginHash) {
		http.Error(w, "login already taken", http.StatusConflict)
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.log.LogAttrs(r.Context(),
			slog.LevelError,
			"failed to hash password",
			slog.Any(model.KeyLoggerError, err),
		)
		http.Error(w, "registration failed", http.StatusInternalServerError)
		return
	}

	p := parent.Parent{
		ID:           uuid.NewString(),
		LoginHash:    loginHash,
		PasswordHash: passwordHash,
	}
	if err := h.parents.Create(r.Context(), &p); err != nil {
		if errors.Is(err, serviceerrs.ErrLoginTaken) {
			http.Error(w, "login already taken", http.StatusConflict)
			return
		}
		h.log.LogAttrs(r.Context(),
			slog.LevelError,
			"failed to create parent",
			slog.Any(model.KeyLoggerError, err),
		)
		http.Error(w, "registration failed", http.StatusInternalServerError)
		return
	}

	h.setToken(w, r, p.ID)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.ParentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Login == "" || req.Password == "" {
		http.Error(w, "login and password are required", http.StatusBadRequest)
		return
	}

	p, err := h.parents.FindByLogin(r.Context(), auth.HashLogin(req.Login))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			http.Error(w, "authentication failed", http.StatusUnauthorized)
			return
		}
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}
	if !auth.VerifyPassword(p.PasswordHash, req.Password) {
		http.Error(w, "authentication failed", http.StatusUnauthorized)
		return
	}

	h.setToken(w, r, p.ID)
}

func (h *AuthHandler) setToken(w http.ResponseWriter, r *http.Request, parentID string) {
	cookie, err := auth.Authenticate(parentID, h.secret)
	if err != nil {
		h.log.LogAttrs(r.Context(),
			slog.LevelError,
			"failed to issue token",
			slog.Any(model.KeyLoggerError, err),
		)
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &cookie)
	w.WriteHeader(http.StatusOK)
}
