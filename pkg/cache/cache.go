// Package cache stores fetched pathway graphs and rendered diagrams.
//
// Three backends implement [Cache]:
//
//   - [FileCache]: one JSON file per entry under the XDG cache directory (CLI)
//   - [RedisCache]: a shared cache for dashboard replicas
//   - [NullCache]: caching disabled
//
// Keys are produced by a [Keyer] so that every entry point (CLI, server,
// TUI) agrees on the layout of the key space.
package cache

import (
	"context"
	"time"
)

// Default time-to-live values for cached entries.
const (
	// TTLGraph bounds how long a fetched result graph is reused. Results of a
	// completed job never change, so this is generous.
	TTLGraph = 24 * time.Hour

	// TTLArtifact bounds how long a rendered SVG is reused.
	TTLArtifact = 7 * 24 * time.Hour
)

// Cache is a byte-oriented key/value store with per-entry expiry.
// A ttl of zero means the entry never expires.
type Cache interface {
	// Get returns the value and true on a hit, or nil and false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// ArtifactKeyOpts captures every render option that changes the SVG bytes.
type ArtifactKeyOpts struct {
	ShowAuxiliary  bool    `json:"show_auxiliary"`
	Engine         string  `json:"engine"`
	NodeSeparation float64 `json:"node_separation,omitempty"`
	RankSeparation float64 `json:"rank_separation,omitempty"`
	Width          float64 `json:"width"`
	Height         float64 `json:"height"`
	Margin         float64 `json:"margin"`
	MaxScale       float64 `json:"max_scale,omitempty"`
	TransitionMs   int     `json:"transition_ms,omitempty"`
	Theme          string  `json:"theme"`
	Hydrogens      string  `json:"hydrogens,omitempty"`
}

// Keyer generates cache keys.
type Keyer interface {
	// GraphKey identifies the pathway graph of one job result on one backend.
	GraphKey(backend, jobID, resultID string) string
	// ArtifactKey identifies a rendered diagram of a graph with the given options.
	ArtifactKey(graphHash string, opts ArtifactKeyOpts) string
}

// DefaultKeyer produces "graph:" and "artifact:" prefixed keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default [Keyer].
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// GraphKey implements [Keyer].
func (DefaultKeyer) GraphKey(backend, jobID, resultID string) string {
	return hashKey("graph", backend, jobID, resultID)
}

// ArtifactKey implements [Keyer].
func (DefaultKeyer) ArtifactKey(graphHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", graphHash, opts)
}
