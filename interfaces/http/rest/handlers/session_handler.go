package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/onokeee/mindmap/application/commands"
	"github.com/onokeee/mindmap/application/commands/bus"
	"github.com/onokeee/mindmap/application/queries"
	querybus "github.com/onokeee/mindmap/application/queries/bus"
	"github.com/onokeee/mindmap/application/session"
	"github.com/onokeee/mindmap/interfaces/http/rest/dto"
	pkgerrors "github.com/onokeee/mindmap/pkg/errors"
)

// SessionHandler handles the editor session endpoints. Every successful
// call except close answers with the session state.
type SessionHandler struct {
	base
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	errorHandler *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *SessionHandler {
	return &SessionHandler{base: base{
		commandBus:   commandBus,
		queryBus:     queryBus,
		errorHandler: errorHandler,
		logger:       logger,
	}}
}

// OpenSession handles POST /sessions
func (h *SessionHandler) OpenSession(w http.ResponseWriter, r *http.Request) {
	userCtx, ok := h.user(w, r)
	if !ok {
		return
	}

	var req dto.OpenSessionRequest
	if err := dto.Decode(r, &req, true); err != nil {
		h.respondError(w, r, err)
		return
	}

	sessionID := uuid.NewString()
	cmd := commands.OpenSessionCommand{
		SessionID: sessionID,
		UserID:    userCtx.UserID,
		MapID:     req.MapID,
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondState(w, r, http.StatusCreated, userCtx.UserID, sessionID)
}

// GetSession handles GET /sessions/{sessionID}
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	userCtx, ok := h.user(w, r)
	if !ok {
		return
	}
	h.respondState(w, r, http.StatusOK, userCtx.UserID, chi.URLParam(r, "sessionID"))
}

// RecordEdit handles PUT /sessions/{sessionID}/document
func (h *SessionHandler) RecordEdit(w http.ResponseWriter, r *http.Request) {
	userCtx, ok := h.user(w, r)
	if !ok {
		return
	}

	var req dto.RecordEditRequest
	if err := dto.Decode(r, &req, false); err != nil {
		h.respondError(w, r, err)
		return
	}
	doc, err := req.Document.ToDocument()
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	cmd := commands.RecordEditCommand{SessionID: sessionID, UserID: userCtx.UserID, Document: doc}
	h.sendAndRespond(w, r, cmd, userCtx.UserID, sessionID)
}

// Undo handles POST /sessions/{sessionID}/undo. Undo at the oldest entry
// is a no-op and still answers 200.
func (h *SessionHandler) Undo(w http.ResponseWriter, r *http.Request) {
	userCtx, ok := h.user(w, r)
	if !ok {
		return
	}
	sessionID := chi.URLParam(r, "sessionID")
	h.sendAndRespond(w, r, commands.UndoCommand{SessionID: sessionID, UserID: userCtx.UserID}, userCtx.UserID, sessionID)
}

// Redo handles POST /sessions/{sessionID}/redo
func (h *SessionHandler) Redo(w http.ResponseWriter, r *http.Request) {
	userCtx, ok := h.user(w, r)
	if !ok {
		return
	}
	sessionID := chi.URLParam(r, "sessionID")
	h.sendAndRespond(w, r, commands.RedoCommand{SessionID: sessionID, UserID: userCtx.UserID}, userCtx.UserID, sessionID)
}

// SaveSession handles POST /sessions/{sessionID}/save
func (h *SessionHandler) SaveSession(w http.ResponseWriter, r *http.Request) {
	userCtx, ok := h.user(w, r)
	if !ok {
		return
	}

	var req dto.SaveSessionRequest
	if err := dto.Decode(r, &req, true); err != nil {
		h.respondError(w, r, err)
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	cmd := commands.SaveSessionCommand{SessionID: sessionID, UserID: userCtx.UserID, Name: req.Name}
	h.sendAndRespond(w, r, cmd, userCtx.UserID, sessionID)
}

// CloseSession handles DELETE /sessions/{sessionID}
func (h *SessionHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	userCtx, ok := h.user(w, r)
	if !ok {
		return
	}

	cmd := commands.CloseSessionCommand{SessionID: chi.URLParam(r, "sessionID"), UserID: userCtx.UserID}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) sendAndRespond(w http.ResponseWriter, r *http.Request, cmd bus.Command, userID, sessionID string) {
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondState(w, r, http.StatusOK, userID, sessionID)
}

func (h *SessionHandler) respondState(w http.ResponseWriter, r *http.Request, status int, userID, sessionID string) {
	state, err := ask[session.State](&h.base, r, queries.GetSessionStateQuery{UserID: userID, SessionID: sessionID})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, status, dto.NewSessionResponse(state))
}
