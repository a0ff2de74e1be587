package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/onokeee/mindmap/application/commands"
	"github.com/onokeee/mindmap/application/commands/bus"
	"github.com/onokeee/mindmap/application/queries"
	querybus "github.com/onokeee/mindmap/application/queries/bus"
	"github.com/onokeee/mindmap/domain/core/aggregates"
	"github.com/onokeee/mindmap/domain/core/valueobjects"
	"github.com/onokeee/mindmap/interfaces/http/rest/dto"
	pkgerrors "github.com/onokeee/mindmap/pkg/errors"
)

// MindMapHandler handles the stored map endpoints
type MindMapHandler struct {
	base
}

// NewMindMapHandler creates a new map handler
func NewMindMapHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	errorHandler *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *MindMapHandler {
	return &MindMapHandler{base: base{
		commandBus:   commandBus,
		queryBus:     queryBus,
		errorHandler: errorHandler,
		logger:       logger,
	}}
}

// ListMindMaps handles GET /mindmaps
func (h *MindMapHandler) ListMindMaps(w http.ResponseWriter, r *http.Request) {
	userCtx, ok := h.user(w, r)
	if !ok {
		return
	}

	maps, err := ask[[]aggregates.MindMapSummary](&h.base, r, queries.ListMindMapsQuery{UserID: userCtx.UserID})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if maps == nil {
		maps = []aggregates.MindMapSummary{}
	}
	h.respondJSON(w, http.StatusOK, dto.MindMapListResponse{Maps: maps})
}

// GetMindMap handles GET /mindmaps/{mapID}
func (h *MindMapHandler) GetMindMap(w http.ResponseWriter, r *http.Request) {
	userCtx, ok := h.user(w, r)
	if !ok {
		return
	}

	m, err := ask[*aggregates.MindMap](&h.base, r, queries.GetMindMapQuery{
		UserID: userCtx.UserID,
		MapID:  chi.URLParam(r, "mapID"),
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	resp, err := dto.NewMindMapResponse(m)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, resp)
}

// SaveMindMap handles POST /mindmaps
func (h *MindMapHandler) SaveMindMap(w http.ResponseWriter, r *http.Request) {
	userCtx, ok := h.user(w, r)
	if !ok {
		return
	}

	var req dto.SaveMindMapRequest
	if err := dto.Decode(r, &req, false); err != nil {
		h.respondError(w, r, err)
		return
	}
	doc, err := req.Data.ToDocument()
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	mapID := req.ID
	status := http.StatusOK
	if mapID == "" {
		mapID = valueobjects.NewMapID().String()
		status = http.StatusCreated
	}

	cmd := commands.SaveMindMapCommand{
		MapID:    mapID,
		UserID:   userCtx.UserID,
		Name:     req.Name,
		Document: doc,
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.respondError(w, r, err)
		return
	}

	// Read back for the normalized name
	m, err := ask[*aggregates.MindMap](&h.base, r, queries.GetMindMapQuery{UserID: userCtx.UserID, MapID: mapID})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, status, dto.SaveMindMapResponse{Status: "success", ID: mapID, Name: m.Name()})
}

// DeleteMindMap handles DELETE /mindmaps/{mapID}
func (h *MindMapHandler) DeleteMindMap(w http.ResponseWriter, r *http.Request) {
	userCtx, ok := h.user(w, r)
	if !ok {
		return
	}

	cmd := commands.DeleteMindMapCommand{
		MapID:  chi.URLParam(r, "mapID"),
		UserID: userCtx.UserID,
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, dto.StatusResponse{Status: "success"})
}
