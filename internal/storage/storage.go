package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/samvad-pulse/internal/domain"
)

// Package storage provides the local probe-history abstraction.

// Store keeps the last observed sample per target.
type Store interface {
	Close() error
	LastSample(targetID string) (domain.Sample, bool, error)
	RecordSample(sample domain.Sample) error
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	SampleTTL       time.Duration
	CleanupInterval time.Duration
}

const (
	defaultSampleTTL       = 7 * 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.SampleTTL <= 0 {
		opts.SampleTTL = defaultSampleTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopStore struct{}

func (noopStore) Close() error { return nil }
func (noopStore) LastSample(string) (domain.Sample, bool, error) {
	return domain.Sample{}, false, nil
}
func (noopStore) RecordSample(domain.Sample) error { return nil }
