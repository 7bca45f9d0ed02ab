package server

import (
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/railyard/rails-server-go/internal/engine"
	"github.com/railyard/rails-server-go/internal/game/rules"
	"github.com/railyard/rails-server-go/internal/repository"
)

var errBadRequest = errors.New("bad request")

// classify maps an engine error to a gRPC code and an HTTP status.
func classify(err error) (codes.Code, int) {
	switch {
	case errors.Is(err, errBadRequest):
		return codes.InvalidArgument, http.StatusBadRequest
	case errors.Is(err, engine.ErrGameNotFound), errors.Is(err, repository.ErrNotFound):
		return codes.NotFound, http.StatusNotFound
	case errors.Is(err, engine.ErrTooManyGames):
		return codes.ResourceExhausted, http.StatusServiceUnavailable
	case errors.Is(err, rules.ErrRuleViolation):
		return codes.FailedPrecondition, http.StatusUnprocessableEntity
	case errors.Is(err, rules.ErrReplayInconsistency):
		return codes.DataLoss, http.StatusInternalServerError
	case errors.Is(err, rules.ErrConfiguration):
		return codes.Internal, http.StatusInternalServerError
	}
	return codes.Internal, http.StatusInternalServerError
}

func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	code, _ := classify(err)
	return status.Error(code, err.Error())
}
