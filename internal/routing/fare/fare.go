// Package fare derives travel time and ticket price from a station path.
package fare

import (
	routingerrors "metro/internal/routing/errors"
)

const (
	DefaultPerHopMinutes = 5
	DefaultBaseFare      = 20
	DefaultPerHopFare    = 5
)

// Model prices a path by the number of hops between consecutive stations.
type Model struct {
	PerHopMinutes int
	BaseFare      int
	PerHopFare    int
}

func Default() Model {
	return Model{
		PerHopMinutes: DefaultPerHopMinutes,
		BaseFare:      DefaultBaseFare,
		PerHopFare:    DefaultPerHopFare,
	}
}

func (m Model) TimeMinutes(path []string) (int, error) {
	hops, err := hopCount(path)
	if err != nil {
		return 0, err
	}
	return hops * m.PerHopMinutes, nil
}

func (m Model) FareAmount(path []string) (int, error) {
	hops, err := hopCount(path)
	if err != nil {
		return 0, err
	}
	return m.BaseFare + hops*m.PerHopFare, nil
}

func hopCount(path []string) (int, error) {
	if len(path) == 0 {
		return 0, routingerrors.ErrEmptyPath
	}
	return len(path) - 1, nil
}
