package service

import (
	"context"
	"errors"
	"fmt"

	"metro/internal/network"
	routingerrors "metro/internal/routing/errors"
	"metro/internal/routing/fare"
	"metro/internal/routing/graph"
	"metro/internal/routing/pathfinder"
	apperrors "metro/pkg/errors"
	"metro/pkg/logger"
	"metro/pkg/model"
)

type RoutingService interface {
	Route(ctx context.Context, fromCode, toCode string) (*model.Route, error)
	Fare(ctx context.Context, fromCode, toCode string) (int, error)
	Stations(ctx context.Context) ([]model.StationListing, error)
	Network(ctx context.Context) (*model.NetworkView, error)
}

type routingService struct {
	name      string
	graph     *graph.Graph
	directory *network.Directory
	fares     fare.Model
	log       *logger.Logger
}

// NewRoutingService serves routes over g. The graph must not be modified
// afterwards.
func NewRoutingService(name string, g *graph.Graph, directory *network.Directory, fares fare.Model, log *logger.Logger) RoutingService {
	return &routingService{
		name:      name,
		graph:     g,
		directory: directory,
		fares:     fares,
		log:       log,
	}
}

func (s *routingService) Route(ctx context.Context, fromCode, toCode string) (*model.Route, error) {
	source, err := s.resolve(fromCode)
	if err != nil {
		return nil, err
	}
	destination, err := s.resolve(toCode)
	if err != nil {
		return nil, err
	}

	path, km, err := pathfinder.ShortestRoute(s.graph, source.Name, destination.Name)
	if err != nil {
		return nil, s.mapRouteError(ctx, err, source, destination)
	}
	minutes, err := s.fares.TimeMinutes(path)
	if err != nil {
		return nil, apperrors.Internal("Failed to compute travel time", err)
	}
	amount, err := s.fares.FareAmount(path)
	if err != nil {
		return nil, apperrors.Internal("Failed to compute fare", err)
	}

	s.log.FromContext(ctx).Debug("Route computed",
		"from", source.Code,
		"to", destination.Code,
		"distance_km", km,
		"stations", len(path),
	)

	return &model.Route{
		Source:      source,
		Destination: destination,
		DistanceKM:  km,
		TimeMinutes: minutes,
		Fare:        amount,
		Path:        path,
	}, nil
}

func (s *routingService) Fare(ctx context.Context, fromCode, toCode string) (int, error) {
	route, err := s.Route(ctx, fromCode, toCode)
	if err != nil {
		return 0, err
	}
	return route.Fare, nil
}

func (s *routingService) Stations(ctx context.Context) ([]model.StationListing, error) {
	stations := s.directory.Stations()
	listing := make([]model.StationListing, len(stations))
	for i, st := range stations {
		listing[i] = model.StationListing{
			Index: i + 1,
			Code:  st.Code,
			Name:  st.Name,
		}
	}
	return listing, nil
}

func (s *routingService) Network(ctx context.Context) (*model.NetworkView, error) {
	stations := s.directory.Stations()
	view := &model.NetworkView{
		Name:     s.name,
		Stations: make([]model.StationConnections, 0, len(stations)),
		Edges:    s.graph.EdgeCount(),
	}
	for _, st := range stations {
		neighbors, err := s.graph.Neighbors(st.Name)
		if err != nil {
			return nil, apperrors.Internal("Station missing from network graph", err)
		}
		view.Stations = append(view.Stations, model.StationConnections{
			Station:   model.StationRef{Code: st.Code, Name: st.Name},
			Neighbors: neighbors,
		})
	}
	return view, nil
}

func (s *routingService) resolve(code string) (model.StationRef, error) {
	name, err := s.directory.Resolve(code)
	if err != nil {
		if errors.Is(err, network.ErrUnknownCode) {
			return model.StationRef{}, apperrors.InvalidInput(fmt.Sprintf("Unknown station code: %q", code))
		}
		return model.StationRef{}, apperrors.Internal("Failed to resolve station code", err)
	}
	return model.StationRef{Code: network.NormalizeCode(code), Name: name}, nil
}

func (s *routingService) mapRouteError(ctx context.Context, err error, source, destination model.StationRef) error {
	switch {
	case errors.Is(err, routingerrors.ErrNoPathFound):
		return apperrors.NoPath(source.Code, destination.Code)
	case errors.Is(err, routingerrors.ErrUnknownVertex):
		return apperrors.InvalidInput(fmt.Sprintf("Station is not part of the network: %s", err))
	default:
		s.log.FromContext(ctx).Error("Route computation failed",
			"from", source.Code,
			"to", destination.Code,
			"error", err,
		)
		return apperrors.Internal("Failed to compute route", err)
	}
}
