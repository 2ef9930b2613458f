package middleware

import (
	"context"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/settleup/internal/auth"
)

type contextKey string

const (
	UserIDKey contextKey = "user_id"
	EmailKey  contextKey = "email"
)

// GetUserID returns the caller set by WithUser, or "" for anonymous
// requests.
func GetUserID(ctx context.Context) string {
	id, _ := ctx.Value(UserIDKey).(string)
	return id
}

// GetEmail returns the caller's email set by WithUser, or "".
func GetEmail(ctx context.Context) string {
	email, _ := ctx.Value(EmailKey).(string)
	return email
}

// WithUser marks ctx as acting on behalf of userID. The CLI uses it to run
// services without a token.
func WithUser(ctx context.Context, userID, email string) context.Context {
	return context.WithValue(context.WithValue(ctx, UserIDKey, userID), EmailKey, email)
}

// bearerToken parses an "Authorization: Bearer <token>" value.
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" || strings.Contains(token, " ") {
		return "", false
	}
	return token, true
}

// authenticate resolves the request's token to a caller context.
func authenticate(ctx context.Context, jwtManager *auth.JWTManager, header string) (context.Context, error) {
	if header == "" {
		return ctx, auth.ErrMissingToken
	}
	token, ok := bearerToken(header)
	if !ok {
		return ctx, auth.ErrInvalidToken
	}
	claims, err := jwtManager.Validate(token)
	if err != nil {
		return ctx, err
	}
	return WithUser(ctx, claims.UserID, claims.Email), nil
}

// RequireAuth rejects requests without a valid bearer token with
// CodeUnauthenticated.
func RequireAuth(jwtManager *auth.JWTManager) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			ctx, err := authenticate(ctx, jwtManager, req.Header().Get("Authorization"))
			if err != nil {
				return nil, connect.NewError(connect.CodeUnauthenticated, err)
			}
			return next(ctx, req)
		}
	}
}

// OptionalAuth attaches the caller when a valid token is present and lets
// everything else through anonymously. Handlers needing a caller check
// GetUserID.
func OptionalAuth(jwtManager *auth.JWTManager) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if authed, err := authenticate(ctx, jwtManager, req.Header().Get("Authorization")); err == nil {
				ctx = authed
			}
			return next(ctx, req)
		}
	}
}
