package posts

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/postboard/postboard/internal/auth"
	"github.com/postboard/postboard/internal/platform/httpx"
	"github.com/postboard/postboard/internal/shared"
)

// Handler exposes post endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	resolver *auth.Resolver
}

// NewHandler constructs a post Handler.
func NewHandler(logger *slog.Logger, service *Service, resolver *auth.Resolver) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, resolver: resolver}
}

// MountRoutes registers post routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.resolver.OptionalIdentity).Get("/{id}", h.handleGet)
	r.Group(func(r chi.Router) {
		r.Use(h.resolver.RequireIdentity)
		r.Post("/", h.handleCreate)
		r.Delete("/{id}", h.handleDelete)
		r.Post("/{id}/like", h.handleLike)
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	account, ok := auth.AccountFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrMissingCredentials)
		return
	}
	var in CreatePostInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "request body must be a JSON object")
		return
	}
	post, err := h.service.Create(r.Context(), account, in)
	if err != nil {
		h.respondError(w, r, "create post", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, post)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(w, r)
	if !ok {
		return
	}
	viewer, _ := auth.AccountFromContext(r.Context())
	view, err := h.service.Get(r.Context(), viewer, id)
	if err != nil {
		h.respondError(w, r, "get post", err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	account, ok := auth.AccountFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrMissingCredentials)
		return
	}
	id, ok := postID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), account, id); err != nil {
		h.respondError(w, r, "delete post", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleLike(w http.ResponseWriter, r *http.Request) {
	account, ok := auth.AccountFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrMissingCredentials)
		return
	}
	id, ok := postID(w, r)
	if !ok {
		return
	}
	result, err := h.service.ToggleLike(r.Context(), account, id)
	if err != nil {
		h.respondError(w, r, "toggle like", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func postID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid post id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if httpx.StatusFor(err) == http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), op+" failed", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
