// Package negotiation drives matching sessions from candidate discovery
// through the agent dialogue to confirmation, scheduling and the final
// handover. The stored transcript is the single record of every session;
// agents only ever hold working copies of it.
package negotiation

import (
	"database/sql"
	"errors"
	"time"

	"github.com/erazemk/najdeno/internal/agent"
	"github.com/erazemk/najdeno/internal/match"
)

// Sentinel errors the API layer maps to HTTP statuses.
var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidState = errors.New("invalid state")
	ErrBadInput     = errors.New("invalid input")
)

// Defaults for a service configuration.
const (
	DefaultMaxTurns       = 20
	DefaultCandidateLimit = 10
	DefaultLeaseTTL       = 10 * time.Minute
)

// Config tunes a negotiation service. Zero values pick the defaults.
type Config struct {
	MaxTurns       int           // turn budget per session
	MinScore       float64       // candidate score threshold
	CandidateLimit int           // candidates tried per matching run
	LeaseTTL       time.Duration // item lease lifetime
}

func (c Config) withDefaults() Config {
	if c.MaxTurns == 0 {
		c.MaxTurns = DefaultMaxTurns
	}
	if c.MinScore == 0 {
		c.MinScore = match.DefaultMinScore
	}
	if c.CandidateLimit == 0 {
		c.CandidateLimit = DefaultCandidateLimit
	}
	if c.LeaseTTL == 0 {
		c.LeaseTTL = DefaultLeaseTTL
	}
	return c
}

// Service runs matching and negotiation against a database using a decision
// engine for the agents.
type Service struct {
	db     *sql.DB
	engine agent.Engine
	config Config
}

func NewService(db *sql.DB, engine agent.Engine, config Config) *Service {
	return &Service{
		db:     db,
		engine: engine,
		config: config.withDefaults(),
	}
}
