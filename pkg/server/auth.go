package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tarifscope/tarifscope/pkg/log"
	"github.com/tarifscope/tarifscope/pkg/storage"
	"github.com/tarifscope/tarifscope/pkg/types"
)

// authMiddleware authenticates every /api/ request via an OIDC bearer token
// and puts the resolved user in the request context. The consent redirect
// arrives from the grid operator's browser redirect without a token; it
// identifies the user through the consent state parameter instead.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx = log.With(ctx, log.Ctx(ctx).With(slog.String("reqPath", r.URL.Path)))

		allowNoLogin := r.URL.Path == "/api/consent/redirect"

		if s.bypassAuth {
			ctx = context.WithValue(ctx, userContextKey, types.User{
				ID:    "dev",
				Admin: true,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			if allowNoLogin {
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			log.Ctx(ctx).WarnContext(ctx, "no auth header found")
			writeJSONError(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			log.Ctx(ctx).WarnContext(ctx, "invalid auth header")
			writeJSONError(w, "invalid auth header", http.StatusBadRequest)
			return
		}
		token := strings.TrimPrefix(authHeader, "Bearer ")

		email, userID, err := s.authenticateToken(ctx, token)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "auth token validation failed", slog.Any("error", err))
			writeJSONError(w, "invalid auth token", http.StatusUnauthorized)
			return
		}

		user, err := s.resolveUser(ctx, userID, email)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "user lookup failed", slog.String("userID", userID), slog.Any("error", err))
			writeJSONError(w, "user lookup failed", http.StatusForbidden)
			return
		}

		for _, admin := range s.adminEmails {
			if email == admin {
				user.Admin = true
				break
			}
		}

		ctx = log.With(ctx, log.Ctx(ctx).With(slog.String("authUserID", userID)))
		log.Ctx(ctx).DebugContext(ctx, "authenticated request", slog.String("email", email))

		ctx = context.WithValue(ctx, userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// resolveUser looks up the authenticated identity, registering it on first
// sight. The record must exist before the consent redirect comes back, since
// that callback identifies the user purely by the stored ID.
func (s *Server) resolveUser(ctx context.Context, userID, email string) (types.User, error) {
	user, err := s.storage.GetUser(ctx, userID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, storage.ErrUserNotFound) {
		return types.User{}, err
	}

	user = types.User{ID: userID, Email: email}
	if err := s.storage.CreateUser(ctx, user); err != nil {
		// a concurrent first request may have won the create; the stub user
		// still works for this request either way
		log.Ctx(ctx).WarnContext(ctx, "failed to register user", slog.String("userID", userID), slog.Any("error", err))
	} else {
		log.Ctx(ctx).InfoContext(ctx, "registered new user", slog.String("userID", userID), slog.String("email", email))
	}
	return user, nil
}

func (s *Server) authenticateToken(ctx context.Context, token string) (string, string, error) {
	if s.oidcVerifier == nil {
		return "", "", errors.New("no oidc verifier configured")
	}
	idToken, err := s.oidcVerifier(ctx, token)
	if err != nil {
		return "", "", fmt.Errorf("token verification failed: %w", err)
	}
	var claims struct {
		Email string `json:"email"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return "", "", fmt.Errorf("failed to parse token claims: %w", err)
	}
	if claims.Email == "" {
		return "", "", errors.New("token missing email claim")
	}
	return claims.Email, idToken.Subject, nil
}
