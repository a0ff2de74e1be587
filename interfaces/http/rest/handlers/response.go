// Package handlers implements the REST endpoints on top of the command and
// query buses
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/onokeee/mindmap/application/commands/bus"
	querybus "github.com/onokeee/mindmap/application/queries/bus"
	"github.com/onokeee/mindmap/pkg/auth"
	pkgerrors "github.com/onokeee/mindmap/pkg/errors"
)

// base carries what every handler needs
type base struct {
	commandBus   *bus.CommandBus
	queryBus     *querybus.QueryBus
	errorHandler *pkgerrors.ErrorHandler
	logger       *zap.Logger
}

func (h *base) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *base) respondError(w http.ResponseWriter, r *http.Request, err error) {
	h.errorHandler.Handle(w, r, classify(err))
}

// user returns the authenticated caller or writes a 401
func (h *base) user(w http.ResponseWriter, r *http.Request) (*auth.UserContext, bool) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.respondError(w, r, pkgerrors.NewUnauthorizedError("Not logged in"))
		return nil, false
	}
	return userCtx, true
}

func ask[T any](h *base, r *http.Request, query querybus.Query) (T, error) {
	var zero T
	result, err := h.queryBus.Ask(r.Context(), query)
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("unexpected result %T for %T", result, query)
	}
	return typed, nil
}

// classify maps bus validation failures onto validation errors; everything
// else already carries its HTTP status or becomes a 500
func classify(err error) error {
	if errors.Is(err, bus.ErrValidationFailed) || errors.Is(err, querybus.ErrValidationFailed) {
		return pkgerrors.NewValidationError(err.Error()).WithCause(err)
	}
	return err
}
