package api

import (
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/airport-simulator/internal/sim/runtime"
	"github.com/signalsfoundry/airport-simulator/internal/sim/state"
	"github.com/signalsfoundry/airport-simulator/internal/storage"
)

var (
	// ErrInvalidArgument is used for malformed requests.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidToken is returned for missing, expired or forged session
	// tokens.
	ErrInvalidToken = errors.New("invalid session token")
)

func isNotFound(err error) bool {
	return errors.Is(err, state.ErrFlightNotFound) ||
		errors.Is(err, state.ErrGateNotFound) ||
		errors.Is(err, state.ErrUpgradeNotFound) ||
		errors.Is(err, storage.ErrNoSave)
}

func isRejected(err error) bool {
	return errors.Is(err, state.ErrFlightAssigned) ||
		errors.Is(err, state.ErrGateOccupied) ||
		errors.Is(err, state.ErrUpgradePurchased) ||
		errors.Is(err, state.ErrInsufficientFunds) ||
		errors.Is(err, state.ErrNotRunning) ||
		errors.Is(err, state.ErrSessionEnded) ||
		errors.Is(err, state.ErrAlreadyStarted)
}

// ToStatusError maps game and storage errors onto gRPC status codes.
func ToStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, ErrInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, ErrInvalidToken):
		return status.Error(codes.Unauthenticated, err.Error())
	case isNotFound(err):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, runtime.ErrStaleSession):
		return status.Error(codes.Aborted, err.Error())
	case isRejected(err):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// httpStatus is the HTTP counterpart of ToStatusError.
func httpStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidToken):
		return http.StatusUnauthorized
	case isNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, runtime.ErrStaleSession), isRejected(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
