package auth

import (
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/postboard/postboard/internal/platform/httpx"
	"github.com/postboard/postboard/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	resolver  *Resolver
	loginRate int
}

// NewHandler constructs a Handler instance. loginRate is the number of
// register/login attempts allowed per client IP per minute; zero disables
// the limit.
func NewHandler(logger *slog.Logger, service *Service, resolver *Resolver, loginRate int) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, resolver: resolver, loginRate: loginRate}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		if h.loginRate > 0 {
			r.Use(httprate.Limit(h.loginRate, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
		}
		r.Post("/register", h.handleRegister)
		r.Post("/login", h.handleLogin)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.resolver.RequireIdentity)
		r.Get("/me", h.handleMe)
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in RegisterInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "request body must be a JSON object")
		return
	}
	account, err := h.service.Register(r.Context(), in)
	if err != nil {
		h.respondError(w, r, "register", err)
		return
	}
	h.logger.InfoContext(r.Context(), "account registered", slog.Int64("account_id", account.ID))
	httpx.JSON(w, http.StatusCreated, account.Public())
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeLogin(r)
	if !ok || req.Username == "" || req.Password == "" {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "username and password are required")
		return
	}
	token, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.respondError(w, r, "login", err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	httpx.JSON(w, http.StatusOK, tokenResponse{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		ExpiresIn:   int64(time.Until(token.ExpiresAt).Round(time.Second) / time.Second),
	})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	account, ok := AccountFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrMissingCredentials)
		return
	}
	httpx.JSON(w, http.StatusOK, account.Public())
}

// decodeLogin accepts both a JSON body and an OAuth2 password-grant form.
func decodeLogin(r *http.Request) (loginRequest, bool) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/x-www-form-urlencoded" {
		if err := r.ParseForm(); err != nil {
			return loginRequest{}, false
		}
		return loginRequest{Username: r.PostFormValue("username"), Password: r.PostFormValue("password")}, true
	}
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		return loginRequest{}, false
	}
	return req, true
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if httpx.StatusFor(err) == http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), op+" failed", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
