package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/settleup/internal/auth"
	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/internal/storage"
	"github.com/mmynk/settleup/pkg/api"
)

// AuthService handles registration and sessions. It runs behind
// OptionalAuth, so Logout and GetCurrentUser check the caller themselves.
type AuthService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	users         storage.UserStore
	logger        *slog.Logger
}

// NewAuthService creates a new authentication service. A nil logger means
// slog.Default().
func NewAuthService(authenticator auth.Authenticator, jwtManager *auth.JWTManager, users storage.UserStore, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
		users:         users,
		logger:        logger,
	}
}

// Register creates an account and signs the new user in.
func (s *AuthService) Register(ctx context.Context, req *connect.Request[api.RegisterRequest]) (*connect.Response[api.RegisterResponse], error) {
	user, err := s.authenticator.Register(ctx, req.Msg.Email, req.Msg.FullName, req.Msg.Password)
	if err != nil {
		s.logger.Warn("Registration rejected", "email", req.Msg.Email, "error", err)
		return nil, toConnectError(err)
	}
	s.logger.Info("User registered", "user_id", user.ID)

	out, token, err := s.session(user)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&api.RegisterResponse{User: out, Token: token}), nil
}

// Login exchanges email and password for a session token. Unknown emails
// and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, req *connect.Request[api.LoginRequest]) (*connect.Response[api.LoginResponse], error) {
	if req.Msg.Email == "" || req.Msg.Password == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, auth.ErrInvalidCredentials)
	}

	user, err := s.authenticator.Authenticate(ctx, req.Msg.Email, req.Msg.Password)
	if err != nil {
		s.logger.Warn("Login rejected", "email", req.Msg.Email)
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidCredentials)
	}

	out, token, err := s.session(user)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&api.LoginResponse{User: out, Token: token}), nil
}

// session signs a token for user.
func (s *AuthService) session(user *models.User) (*api.User, string, error) {
	token, err := s.jwtManager.Generate(user)
	if err != nil {
		s.logger.Error("Token signing failed", "user_id", user.ID, "error", err)
		return nil, "", connect.NewError(connect.CodeInternal, err)
	}
	return toAPIUser(user), token, nil
}

// Logout ends the session. Tokens are stateless, so the client discards
// its token and the server only records the event.
func (s *AuthService) Logout(ctx context.Context, req *connect.Request[api.LogoutRequest]) (*connect.Response[api.LogoutResponse], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	s.logger.Info("User logged out", "user_id", userID)
	return connect.NewResponse(&api.LogoutResponse{}), nil
}

// GetCurrentUser returns the currently authenticated user's information.
func (s *AuthService) GetCurrentUser(ctx context.Context, req *connect.Request[api.GetCurrentUserRequest]) (*connect.Response[api.GetCurrentUserResponse], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		// A valid token for a deleted account.
		return nil, fail("GetCurrentUser", err, "user_id", userID)
	}

	return connect.NewResponse(&api.GetCurrentUserResponse{User: toAPIUser(user)}), nil
}
