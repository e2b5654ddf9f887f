// Package fixtures serves static responses in place of model calls.
package fixtures

import (
	"embed"
	"os"
	"path/filepath"

	"ai-fitness-coach/internal/config"
	"ai-fitness-coach/internal/logger"
)

type Kind string

const Plan Kind = "plan"

//go:embed defaults/*.json
var defaults embed.FS

// Source decides per call whether a fixture replaces a live model call.
type Source interface {
	Lookup(kind Kind) ([]byte, bool)
}

// None never serves fixtures.
type None struct{}

func (None) Lookup(Kind) ([]byte, bool) { return nil, false }

type switchedSource struct {
	enabled map[Kind]bool
	dir     string
	log     *logger.Logger
}

// NewSource returns a Source for the enabled kinds. Files are read from
// dir/<kind>.json when present, otherwise from the built-in defaults.
func NewSource(flags config.FixtureFlags, dir string, log *logger.Logger) Source {
	if !flags.Plan {
		return None{}
	}
	enabled := map[Kind]bool{Plan: true}
	return &switchedSource{enabled: enabled, dir: dir, log: log.With("service", "Fixtures")}
}

func (s *switchedSource) Lookup(kind Kind) ([]byte, bool) {
	if !s.enabled[kind] {
		return nil, false
	}
	name := string(kind) + ".json"

	if s.dir != "" {
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err == nil {
			s.log.Info("MODE: MOCK", "kind", kind, "source", s.dir)
			return data, true
		}
		s.log.Warn("fixture file unreadable, using built-in default", "kind", kind, "error", err)
	}

	data, err := defaults.ReadFile("defaults/" + name)
	if err != nil {
		s.log.Error("no fixture for kind", "kind", kind, "error", err)
		return nil, false
	}
	s.log.Info("MODE: MOCK", "kind", kind, "source", "built-in")
	return data, true
}
