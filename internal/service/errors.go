package service

import (
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/settleup/internal/auth"
	"github.com/mmynk/settleup/internal/calculator"
	"github.com/mmynk/settleup/internal/storage"
)

// Errors raised by the services themselves. They are wrapped with detail
// and mapped to Connect codes by toConnectError.
var (
	ErrUnauthenticated    = errors.New("authentication required")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrFailedPrecondition = errors.New("failed precondition")
)

var invalidArgumentErrors = []error{
	ErrInvalidArgument,
	calculator.ErrInvalidAmount,
	calculator.ErrAmountPrecision,
	calculator.ErrNoParticipants,
	calculator.ErrMissingParticipant,
	calculator.ErrDuplicateParticipant,
	calculator.ErrNegativeShare,
	calculator.ErrSplitMismatch,
	calculator.ErrPercentTotal,
	calculator.ErrZeroShares,
	calculator.ErrUnknownSplitType,
	auth.ErrWeakPassword,
	auth.ErrInvalidEmail,
	auth.ErrMissingName,
}

// toConnectError maps domain and storage errors to Connect codes. Errors
// that are already *connect.Error pass through.
func toConnectError(err error) *connect.Error {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return connectErr
	}

	switch {
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, auth.ErrInvalidCredentials):
		return connect.NewError(connect.CodeUnauthenticated, err)
	case errors.Is(err, ErrPermissionDenied):
		return connect.NewError(connect.CodePermissionDenied, err)
	case errors.Is(err, ErrFailedPrecondition):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, storage.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, storage.ErrAlreadyExists), errors.Is(err, auth.ErrEmailExists):
		return connect.NewError(connect.CodeAlreadyExists, err)
	case errors.Is(err, storage.ErrVersionConflict):
		return connect.NewError(connect.CodeAborted, err)
	}
	for _, target := range invalidArgumentErrors {
		if errors.Is(err, target) {
			return connect.NewError(connect.CodeInvalidArgument, err)
		}
	}
	return connect.NewError(connect.CodeInternal, err)
}

// fail logs a failed operation and returns the Connect error for it.
// Internal errors are logged at error level, everything else at warn.
func fail(op string, err error, args ...any) error {
	connectErr := toConnectError(err)
	args = append(args, "code", connectErr.Code(), "error", err)
	if connectErr.Code() == connect.CodeInternal {
		slog.Error(op+" failed", args...)
	} else {
		slog.Warn(op+" failed", args...)
	}
	return connectErr
}
