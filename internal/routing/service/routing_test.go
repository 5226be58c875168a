package service

import (
	"context"
	"net/http"
	"reflect"
	"testing"

	"metro/internal/network"
	"metro/internal/routing/fare"
	"metro/internal/routing/graph"
	apperrors "metro/pkg/errors"
	"metro/pkg/logger"
)

func newDefaultService(t *testing.T) RoutingService {
	t.Helper()
	topology, err := network.Default()
	if err != nil {
		t.Fatalf("default topology: %v", err)
	}
	g, err := topology.Build()
	if err != nil {
		t.Fatalf("build graph: %v", err)
	}
	return NewRoutingService(topology.Name, g, topology.Directory(), fare.Default(), logger.Nop())
}

func TestRoute_MehdipatnamToAmeerpet(t *testing.T) {
	svc := newDefaultService(t)

	route, err := svc.Route(context.Background(), "mh", "AM")
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}

	if route.Source.Code != "MH" || route.Source.Name != "Mehdipatnam" {
		t.Errorf("Source = %+v", route.Source)
	}
	if route.Destination.Name != "Ameerpet" {
		t.Errorf("Destination = %+v", route.Destination)
	}
	if route.DistanceKM != 22 {
		t.Errorf("DistanceKM = %v, want 22", route.DistanceKM)
	}
	if route.TimeMinutes != 15 {
		t.Errorf("TimeMinutes = %d, want 15", route.TimeMinutes)
	}
	if route.Fare != 35 {
		t.Errorf("Fare = %d, want 35", route.Fare)
	}
	want := []string{"Mehdipatnam", "Gachibowli", "Madhapur", "Ameerpet"}
	if !reflect.DeepEqual(route.Path, want) {
		t.Errorf("Path = %v, want %v", route.Path, want)
	}
}

func TestRoute_SameStation(t *testing.T) {
	svc := newDefaultService(t)

	route, err := svc.Route(context.Background(), "CH", "CH")
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if route.DistanceKM != 0 || route.TimeMinutes != 0 || route.Fare != fare.DefaultBaseFare {
		t.Errorf("route = %+v", route)
	}
	if !reflect.DeepEqual(route.Path, []string{"Charminar"}) {
		t.Errorf("Path = %v", route.Path)
	}
}

func TestRoute_Errors(t *testing.T) {
	svc := newDefaultService(t)

	tests := []struct {
		name       string
		from, to   string
		wantCode   string
		wantStatus int
	}{
		{name: "unknown source", from: "XX", to: "AM", wantCode: apperrors.CodeInvalidInput, wantStatus: http.StatusBadRequest},
		{name: "unknown destination", from: "CH", to: "ZZ", wantCode: apperrors.CodeInvalidInput, wantStatus: http.StatusBadRequest},
		{name: "empty code", from: "", to: "AM", wantCode: apperrors.CodeInvalidInput, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Route(context.Background(), tt.from, tt.to)
			if !apperrors.IsAppError(err) {
				t.Fatalf("expected AppError, got %v", err)
			}
			appErr := apperrors.AsAppError(err)
			if appErr.Code != tt.wantCode || appErr.StatusCode() != tt.wantStatus {
				t.Errorf("got %s/%d, want %s/%d", appErr.Code, appErr.StatusCode(), tt.wantCode, tt.wantStatus)
			}
		})
	}
}

func TestRoute_Unreachable(t *testing.T) {
	topology, err := network.Parse([]byte(`name: Split
stations:
  - { code: AA, name: Alpha }
  - { code: BB, name: Beta }
  - { code: CC, name: Gamma }
edges:
  - { from: Alpha, to: Beta, km: 2 }
`))
	if err != nil {
		t.Fatal(err)
	}
	g, err := topology.Build()
	if err != nil {
		t.Fatal(err)
	}
	svc := NewRoutingService(topology.Name, g, topology.Directory(), fare.Default(), logger.Nop())

	_, err = svc.Route(context.Background(), "AA", "CC")
	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeNoPath || appErr.StatusCode() != http.StatusNotFound {
		t.Fatalf("err = %v", err)
	}
	if appErr.Details["from"] != "AA" || appErr.Details["to"] != "CC" {
		t.Errorf("Details = %v", appErr.Details)
	}

	amount, err := svc.Fare(context.Background(), "AA", "BB")
	if err != nil || amount != 25 {
		t.Errorf("Fare() = %d, %v", amount, err)
	}
}

func TestRoute_StationMissingFromGraph(t *testing.T) {
	topology, err := network.Default()
	if err != nil {
		t.Fatal(err)
	}
	svc := NewRoutingService(topology.Name, graph.New(), topology.Directory(), fare.Default(), logger.Nop())

	_, err = svc.Route(context.Background(), "CH", "AM")
	if appErr := apperrors.AsAppError(err); appErr.Code != apperrors.CodeInvalidInput {
		t.Errorf("err = %v", err)
	}
}

func TestStations(t *testing.T) {
	svc := newDefaultService(t)

	listing, err := svc.Stations(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(listing) != 20 {
		t.Fatalf("len = %d", len(listing))
	}
	for i, st := range listing {
		if st.Index != i+1 {
			t.Errorf("listing[%d].Index = %d", i, st.Index)
		}
	}
}

func TestNetwork(t *testing.T) {
	svc := newDefaultService(t)

	view, err := svc.Network(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if view.Name != "Hyderabad Metro" || view.Edges != 19 || len(view.Stations) != 20 {
		t.Errorf("view = %s/%d/%d", view.Name, view.Edges, len(view.Stations))
	}

	degree := 0
	for _, st := range view.Stations {
		degree += len(st.Neighbors)
		if st.Station.Name == "Mehdipatnam" && st.Neighbors["Gachibowli"] != 6 {
			t.Errorf("Mehdipatnam neighbors = %v", st.Neighbors)
		}
	}
	if degree != 2*view.Edges {
		t.Errorf("sum of degrees = %d, want %d", degree, 2*view.Edges)
	}
}
