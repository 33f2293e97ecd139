package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/postboard/postboard/internal/platform/httpx"
	"github.com/postboard/postboard/internal/shared"
)

// Resolver turns a bearer token into the current account. It keeps no state
// between requests: every call decodes the token and reloads the account.
type Resolver struct {
	repo     Repository
	tokens   *TokenCodec
	logger   *slog.Logger
	observer Observer
	now      func() time.Time
}

// NewResolver constructs a Resolver. logger and observer may be nil.
func NewResolver(repo Repository, tokens *TokenCodec, logger *slog.Logger, observer Observer) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &Resolver{repo: repo, tokens: tokens, logger: logger, observer: observer, now: time.Now}
}

// BearerToken extracts the token from an Authorization header value. The
// scheme is matched case-insensitively.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Resolve authenticates an Authorization header value.
func (r *Resolver) Resolve(ctx context.Context, header string) (*Account, error) {
	raw, ok := BearerToken(header)
	if !ok {
		r.observer.ObserveTokenRejection("missing")
		return nil, shared.ErrMissingCredentials
	}
	subject, err := r.tokens.Decode(raw, r.now())
	if err != nil {
		reason := TokenFailureReason(err)
		r.observer.ObserveTokenRejection(reason)
		r.logger.DebugContext(ctx, "bearer token rejected", slog.String("reason", reason))
		return nil, err
	}
	account, err := r.repo.FindByUsername(ctx, subject)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			r.observer.ObserveTokenRejection("unknown_subject")
			r.logger.DebugContext(ctx, "bearer token rejected", slog.String("reason", "unknown_subject"))
			return nil, shared.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("auth: resolve subject: %w", err)
	}
	return account, nil
}

// RequireIdentity rejects requests without a valid bearer token before the
// wrapped handler runs.
func (r *Resolver) RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		account, err := r.Resolve(req.Context(), req.Header.Get("Authorization"))
		if err != nil {
			if httpx.StatusFor(err) == http.StatusInternalServerError {
				r.logger.ErrorContext(req.Context(), "resolve identity", slog.Any("error", err))
			}
			httpx.RespondError(w, err)
			return
		}
		next.ServeHTTP(w, req.WithContext(ContextWithAccount(req.Context(), account)))
	})
}

// OptionalIdentity attaches the account when the request carries a valid
// token and otherwise serves the request anonymously.
func (r *Resolver) OptionalIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if _, ok := BearerToken(req.Header.Get("Authorization")); !ok {
			next.ServeHTTP(w, req)
			return
		}
		account, err := r.Resolve(req.Context(), req.Header.Get("Authorization"))
		if err != nil {
			if httpx.StatusFor(err) == http.StatusInternalServerError {
				r.logger.ErrorContext(req.Context(), "resolve identity", slog.Any("error", err))
				httpx.RespondError(w, err)
				return
			}
			next.ServeHTTP(w, req)
			return
		}
		next.ServeHTTP(w, req.WithContext(ContextWithAccount(req.Context(), account)))
	})
}

type accountContextKey struct{}

// ContextWithAccount stores the authenticated account in context.
func ContextWithAccount(ctx context.Context, account *Account) context.Context {
	return context.WithValue(ctx, accountContextKey{}, account)
}

// AccountFromContext returns the account stored by the identity middleware.
func AccountFromContext(ctx context.Context) (*Account, bool) {
	account, ok := ctx.Value(accountContextKey{}).(*Account)
	return account, ok && account != nil
}
