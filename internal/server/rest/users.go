package rest

import (
	"context"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/licensegate/internal/common"
	"github.com/dmitrijs2005/licensegate/internal/logging"
	"github.com/dmitrijs2005/licensegate/internal/server/models"
	"github.com/dmitrijs2005/licensegate/internal/server/router"
	"github.com/dmitrijs2005/licensegate/internal/server/services"
)

const MsgInvalidCredentials = "Invalid login credentials"

type UserService interface {
	Register(ctx context.Context, name, userName, password string) (*models.Account, error)
	Login(ctx context.Context, userName, password string) (*services.LoginResult, error)
}

type RegisterRequest struct {
	Name     string `json:"name"`
	UserName string `json:"username"`
	Password string `json:"password"`
}

type LoginRequest struct {
	UserName string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token           string   `json:"token"`
	Licensed        bool     `json:"licensed"`
	IncomingMessage []string `json:"incoming_message,omitempty"`
}

type UserResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	UserName string `json:"username"`
	Licensed bool   `json:"licensed"`
}

// UserRoutes serves registration, login and the current user.
type UserRoutes struct {
	users    UserService
	sessions SessionResolver
	log      logging.Logger
}

func NewUserRoutes(users UserService, sessions SessionResolver, log logging.Logger) *UserRoutes {
	return &UserRoutes{users: users, sessions: sessions, log: log.With("module", "rest.users")}
}

func (h *UserRoutes) Routes() []router.Route {
	return []router.Route{
		{Method: http.MethodPost, Path: "/register", Handler: h.Register},
		{Method: http.MethodPost, Path: "/login", Handler: h.Login},
		{Method: http.MethodGet, Path: "/user", Handler: h.User},
	}
}

func (h *UserRoutes) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := readJSON(r, &req); err != nil {
		writeText(w, http.StatusBadRequest, err.Error())
		return
	}

	_, err := h.users.Register(r.Context(), req.Name, req.UserName, req.Password)
	if err != nil {
		var verr *common.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, verr.Problems)
			return
		}
		writeText(w, http.StatusInternalServerError, MsgInternal)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *UserRoutes) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := readJSON(r, &req); err != nil {
		writeText(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.users.Login(r.Context(), req.UserName, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			writeText(w, http.StatusBadRequest, MsgInvalidCredentials)
			return
		}
		writeText(w, http.StatusInternalServerError, MsgInternal)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Token:           res.Token,
		Licensed:        res.Licensed,
		IncomingMessage: res.IncomingMessage,
	})
}

func (h *UserRoutes) User(w http.ResponseWriter, r *http.Request) {
	account, ok := authenticate(w, r, h.sessions, h.log)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, UserResponse{
		ID:       account.ID,
		Name:     account.Name,
		UserName: account.UserName,
		Licensed: account.Licensed(),
	})
}
