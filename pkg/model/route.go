package model

type StationRef struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type Route struct {
	Source      StationRef `json:"source"`
	Destination StationRef `json:"destination"`
	DistanceKM  float64    `json:"distance_km"`
	TimeMinutes int        `json:"time_minutes"`
	Fare        int        `json:"fare"`
	Path        []string   `json:"path"`
}

type StationListing struct {
	Index int    `json:"index"`
	Code  string `json:"code"`
	Name  string `json:"name"`
}

type StationConnections struct {
	Station   StationRef         `json:"station"`
	Neighbors map[string]float64 `json:"neighbors"`
}

type NetworkView struct {
	Name     string               `json:"name"`
	Stations []StationConnections `json:"stations"`
	Edges    int                  `json:"edges"`
}
