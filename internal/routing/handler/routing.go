package handler

import (
	"net/http"

	"metro/internal/routing/service"
	httputil "metro/pkg/http"
	"metro/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

type RoutingHandler struct {
	service service.RoutingService
	log     *logger.Logger
}

func NewRoutingHandler(service service.RoutingService, log *logger.Logger) *RoutingHandler {
	return &RoutingHandler{
		service: service,
		log:     log,
	}
}

func (h *RoutingHandler) Stations(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	stations, err := h.service.Stations(r.Context())
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Stations", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteList(w, stations, len(stations)); err != nil {
		h.log.Error("failed to write list response", "handler", "Stations", "operation", "WriteList", "error", err)
	}
}

func (h *RoutingHandler) Network(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	view, err := h.service.Network(r.Context())
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Network", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, view); err != nil {
		h.log.Error("failed to write success response", "handler", "Network", "operation", "WriteSuccess", "error", err)
	}
}

func (h *RoutingHandler) Route(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	from, err := httputil.RequiredQuery(r, "from")
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Route", "operation", "WriteError", "error", writeErr)
		}
		return
	}
	to, err := httputil.RequiredQuery(r, "to")
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Route", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	route, err := h.service.Route(r.Context(), from, to)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Route", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, route); err != nil {
		h.log.Error("failed to write success response", "handler", "Route", "operation", "WriteSuccess", "error", err)
	}
}

func (h *RoutingHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/stations", h.Stations)
	router.GET("/api/v1/network", h.Network)
	router.GET("/api/v1/routes", h.Route)
}
