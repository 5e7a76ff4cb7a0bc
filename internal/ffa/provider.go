package ffa

import (
	"context"
	"time"
)

// StatsProvider is the read-only upstream interface the pipeline consumes.
// The production implementation wraps the Sleeper HTTP API; tests substitute
// a stub.
type StatsProvider interface {
	League(ctx context.Context, leagueID string) (*League, error)
	Rosters(ctx context.Context, leagueID string) ([]Roster, error)
	Users(ctx context.Context, leagueID string) ([]LeagueUser, error)
	Matchups(ctx context.Context, leagueID string, week int) ([]Matchup, error)
	Transactions(ctx context.Context, leagueID string, week int) ([]RawTransaction, error)
	WinnersBracket(ctx context.Context, leagueID string) ([]BracketMatchup, error)
	WeekStats(ctx context.Context, season string, week int) (map[string]StatLine, error)
	Players(ctx context.Context) (map[string]PlayerInfo, error)
	State(ctx context.Context) (*SportState, error)
}

// ResponseCache stores provider responses with a TTL so repeated walks over
// historical weeks do not hammer the upstream API.
type ResponseCache interface {
	SetSimple(key string, value interface{}, expiration time.Duration) error
	GetSimple(key string, dest interface{}) error
}
