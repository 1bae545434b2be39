package topology

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"

	"github.com/cofi-market/cofi-deploy/internal/domain"
	"github.com/cofi-market/cofi-deploy/internal/domain/config"
	"github.com/cofi-market/cofi-deploy/internal/domain/models"
	"github.com/cofi-market/cofi-deploy/internal/usecase"
	"gopkg.in/yaml.v3"
)

//go:embed cofi.yaml
var defaultTopology []byte

// Loader reads the contract topology from a YAML file, or the built-in CoFi
// topology when no file is configured
type Loader struct {
	path   string
	lookup func(string) string
	log    *slog.Logger
}

// NewLoader creates a loader for cfg.Project.Topology
func NewLoader(cfg *config.RuntimeConfig, log *slog.Logger) *Loader {
	return &Loader{
		path:   cfg.Project.Topology,
		lookup: os.Getenv,
		log:    log.With("component", "TopologyLoader"),
	}
}

// Load reads, expands and validates the topology
func (l *Loader) Load(ctx context.Context) (*models.Topology, error) {
	data := defaultTopology
	source := "built-in"
	if l.path != "" {
		b, err := os.ReadFile(l.path)
		if err != nil {
			return nil, fmt.Errorf("failed to read topology: %w", err)
		}
		data = b
		source = l.path
	}

	t, err := Parse(data, l.lookup)
	if err != nil {
		return nil, fmt.Errorf("%s topology: %w", source, err)
	}
	l.log.Debug("loaded topology", "source", source, "name", t.Name, "contracts", len(t.Contracts))
	return t, nil
}

// Parse decodes a topology document. ${VAR} in literal arguments is expanded with lookup.
func Parse(data []byte, lookup func(string) string) (*models.Topology, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var t models.Topology
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("%w: failed to parse YAML: %v", domain.ErrInvalidTopology, err)
	}

	expand := func(v models.Value) (models.Value, error) {
		if v.Kind != models.LiteralValue {
			return v, nil
		}
		return models.Literal(os.Expand(v.Literal, lookup)), nil
	}
	for i := range t.Contracts {
		args, err := t.Contracts[i].Args.Map(expand)
		if err != nil {
			return nil, err
		}
		t.Contracts[i].Args = args
	}
	for i := range t.Wiring {
		args, err := t.Wiring[i].Args.Map(expand)
		if err != nil {
			return nil, err
		}
		t.Wiring[i].Args = args
	}

	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidTopology, err)
	}
	return &t, nil
}

var _ usecase.TopologySource = (*Loader)(nil)
