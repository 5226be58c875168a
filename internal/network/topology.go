// Package network describes a transit network as configuration: the stations
// with their short codes and the distances between directly connected ones.
//
// A Topology is decoded from YAML and validated before use. Build turns it
// into the routing graph and Directory exposes the code to name mapping that
// the presentation layer needs. Neither is process-wide state.
package network

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"metro/internal/routing/graph"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidTopology = errors.New("invalid network topology")

	ErrUnknownCode = errors.New("unknown station code")
)

//go:embed hyderabad.yaml
var defaultTopology []byte

type Station struct {
	Code string `yaml:"code" json:"code" validate:"required,len=2,alpha,uppercase"`
	Name string `yaml:"name" json:"name" validate:"required,max=100"`
}

type Link struct {
	From string  `yaml:"from" json:"from" validate:"required"`
	To   string  `yaml:"to" json:"to" validate:"required,nefield=From"`
	KM   float64 `yaml:"km" json:"km" validate:"gt=0"`
}

type Topology struct {
	Name     string    `yaml:"name" json:"name"`
	Stations []Station `yaml:"stations" json:"stations" validate:"required,min=1,dive"`
	Edges    []Link    `yaml:"edges" json:"edges" validate:"dive"`
}

// Default returns the Hyderabad metro network.
func Default() (*Topology, error) {
	return Parse(defaultTopology)
}

// Load reads and validates a topology file.
func Load(path string) (*Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read topology %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Topology, error) {
	var t Topology
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTopology, err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

func (t *Topology) Validate() error {
	v := validator.New()
	if err := v.Struct(t); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTopology, err)
	}

	codes := make(map[string]struct{}, len(t.Stations))
	names := make(map[string]struct{}, len(t.Stations))
	for _, s := range t.Stations {
		if _, dup := codes[s.Code]; dup {
			return fmt.Errorf("%w: duplicate station code %q", ErrInvalidTopology, s.Code)
		}
		if _, dup := names[s.Name]; dup {
			return fmt.Errorf("%w: duplicate station name %q", ErrInvalidTopology, s.Name)
		}
		codes[s.Code] = struct{}{}
		names[s.Name] = struct{}{}
	}

	for _, e := range t.Edges {
		for _, end := range []string{e.From, e.To} {
			if _, ok := names[end]; !ok {
				return fmt.Errorf("%w: edge %q-%q names unknown station %q", ErrInvalidTopology, e.From, e.To, end)
			}
		}
	}
	return nil
}

// Build creates the routing graph, stations first in file order.
func (t *Topology) Build() (*graph.Graph, error) {
	g := graph.New()
	for _, s := range t.Stations {
		if err := g.AddVertex(s.Name); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidTopology, err)
		}
	}
	for _, e := range t.Edges {
		if err := g.AddEdge(e.From, e.To, e.KM); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidTopology, err)
		}
	}
	return g, nil
}

func (t *Topology) Directory() *Directory {
	d := &Directory{
		byCode: make(map[string]string, len(t.Stations)),
		byName: make(map[string]string, len(t.Stations)),
	}
	for _, s := range t.Stations {
		d.byCode[s.Code] = s.Name
		d.byName[s.Name] = s.Code
		d.stations = append(d.stations, s)
	}
	return d
}

// Directory maps station codes such as "CH" to full names such as "Charminar".
type Directory struct {
	stations []Station
	byCode   map[string]string
	byName   map[string]string
}

// Resolve returns the station name for a code. Codes are matched
// case-insensitively and surrounding space is ignored.
func (d *Directory) Resolve(code string) (string, error) {
	name, ok := d.byCode[NormalizeCode(code)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCode, code)
	}
	return name, nil
}

// Code returns the code of a station name.
func (d *Directory) Code(name string) (string, bool) {
	code, ok := d.byName[name]
	return code, ok
}

func (d *Directory) Stations() []Station {
	out := make([]Station, len(d.stations))
	copy(out, d.stations)
	return out
}

func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
