package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/jstittsworth/league-analytics/internal/ffa"
)

// DefaultBaseURL is the public Sleeper API root.
const DefaultBaseURL = "https://api.sleeper.app/v1"

// Response cache TTLs. Completed-week data is effectively immutable, so the
// historical endpoints cache long; the live state endpoint stays short.
const (
	leagueTTL  = 1 * time.Hour
	rosterTTL  = 1 * time.Hour
	userTTL    = 6 * time.Hour
	weekTTL    = 6 * time.Hour
	bracketTTL = 1 * time.Hour
	playersTTL = 24 * time.Hour
	stateTTL   = 15 * time.Minute
)

// SleeperClient implements ffa.StatsProvider against the Sleeper API.
type SleeperClient struct {
	baseURL     string
	httpClient  *http.Client
	cache       ffa.ResponseCache
	logger      *logrus.Logger
	rateLimiter *rate.Limiter
	breaker     *gobreaker.CircuitBreaker
}

// NewSleeperClient creates a Sleeper API client. The cache may be nil, in
// which case every call hits the network. requestsPerSecond,
// breakerThreshold and timeout fall back to safe defaults when non-positive.
func NewSleeperClient(baseURL string, requestsPerSecond, breakerThreshold int, timeout time.Duration, cache ffa.ResponseCache, logger *logrus.Logger) *SleeperClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = 10
	}
	if breakerThreshold <= 0 {
		breakerThreshold = 5
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        "sleeper",
		MaxRequests: uint32(breakerThreshold),
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"component": "circuit_breaker",
				"service":   name,
				"from":      from.String(),
				"to":        to.String(),
			}).Info("Circuit breaker state changed")
		},
	}

	return &SleeperClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		cache:       cache,
		logger:      logger,
		rateLimiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
		breaker:     gobreaker.NewCircuitBreaker(settings),
	}
}

// League fetches a league's settings document.
func (c *SleeperClient) League(ctx context.Context, leagueID string) (*ffa.League, error) {
	cacheKey := fmt.Sprintf("sleeper:league:%s", leagueID)

	var cached ffa.League
	if c.cacheGet(cacheKey, &cached) {
		return &cached, nil
	}

	url := fmt.Sprintf("%s/league/%s", c.baseURL, leagueID)
	var league ffa.League
	if err := c.getJSON(ctx, url, &league); err != nil {
		return nil, err
	}
	// Sleeper answers unknown league ids with a JSON null.
	if league.LeagueID == "" {
		return nil, &ffa.FetchError{URL: url, Err: fmt.Errorf("empty league document")}
	}

	c.cacheSet(cacheKey, league, leagueTTL)
	return &league, nil
}

// Rosters fetches a league's roster slots.
func (c *SleeperClient) Rosters(ctx context.Context, leagueID string) ([]ffa.Roster, error) {
	cacheKey := fmt.Sprintf("sleeper:rosters:%s", leagueID)

	var cached []ffa.Roster
	if c.cacheGet(cacheKey, &cached) {
		return cached, nil
	}

	url := fmt.Sprintf("%s/league/%s/rosters", c.baseURL, leagueID)
	var rosters []ffa.Roster
	if err := c.getJSON(ctx, url, &rosters); err != nil {
		return nil, err
	}

	if len(rosters) > 0 {
		c.cacheSet(cacheKey, rosters, rosterTTL)
	}
	return rosters, nil
}

// Users fetches a league's members.
func (c *SleeperClient) Users(ctx context.Context, leagueID string) ([]ffa.LeagueUser, error) {
	cacheKey := fmt.Sprintf("sleeper:users:%s", leagueID)

	var cached []ffa.LeagueUser
	if c.cacheGet(cacheKey, &cached) {
		return cached, nil
	}

	url := fmt.Sprintf("%s/league/%s/users", c.baseURL, leagueID)
	var users []ffa.LeagueUser
	if err := c.getJSON(ctx, url, &users); err != nil {
		return nil, err
	}

	if len(users) > 0 {
		c.cacheSet(cacheKey, users, userTTL)
	}
	return users, nil
}

// Matchups fetches a week's head-to-head pairings.
func (c *SleeperClient) Matchups(ctx context.Context, leagueID string, week int) ([]ffa.Matchup, error) {
	cacheKey := fmt.Sprintf("sleeper:matchups:%s:%d", leagueID, week)

	var cached []ffa.Matchup
	if c.cacheGet(cacheKey, &cached) {
		return cached, nil
	}

	url := fmt.Sprintf("%s/league/%s/matchups/%d", c.baseURL, leagueID, week)
	var matchups []ffa.Matchup
	if err := c.getJSON(ctx, url, &matchups); err != nil {
		return nil, err
	}

	if len(matchups) > 0 {
		c.cacheSet(cacheKey, matchups, weekTTL)
	}
	return matchups, nil
}

// Transactions fetches a week's league transactions.
func (c *SleeperClient) Transactions(ctx context.Context, leagueID string, week int) ([]ffa.RawTransaction, error) {
	cacheKey := fmt.Sprintf("sleeper:transactions:%s:%d", leagueID, week)

	var cached []ffa.RawTransaction
	if c.cacheGet(cacheKey, &cached) {
		return cached, nil
	}

	url := fmt.Sprintf("%s/league/%s/transactions/%d", c.baseURL, leagueID, week)
	var txs []ffa.RawTransaction
	if err := c.getJSON(ctx, url, &txs); err != nil {
		return nil, err
	}

	if len(txs) > 0 {
		c.cacheSet(cacheKey, txs, weekTTL)
	}
	return txs, nil
}

// WinnersBracket fetches a league's postseason winners bracket.
func (c *SleeperClient) WinnersBracket(ctx context.Context, leagueID string) ([]ffa.BracketMatchup, error) {
	cacheKey := fmt.Sprintf("sleeper:bracket:%s", leagueID)

	var cached []ffa.BracketMatchup
	if c.cacheGet(cacheKey, &cached) {
		return cached, nil
	}

	url := fmt.Sprintf("%s/league/%s/winners_bracket", c.baseURL, leagueID)
	var bracket []ffa.BracketMatchup
	if err := c.getJSON(ctx, url, &bracket); err != nil {
		return nil, err
	}

	if len(bracket) > 0 {
		c.cacheSet(cacheKey, bracket, bracketTTL)
	}
	return bracket, nil
}

// WeekStats fetches every entity's raw stat line for a regular-season week.
// Keys are player ids plus team abbreviations for team defenses.
func (c *SleeperClient) WeekStats(ctx context.Context, season string, week int) (map[string]ffa.StatLine, error) {
	cacheKey := fmt.Sprintf("sleeper:stats:%s:%d", season, week)

	var cached map[string]ffa.StatLine
	if c.cacheGet(cacheKey, &cached) {
		return cached, nil
	}

	url := fmt.Sprintf("%s/stats/nfl/regular/%s/%d", c.baseURL, season, week)
	var stats map[string]ffa.StatLine
	if err := c.getJSON(ctx, url, &stats); err != nil {
		return nil, err
	}

	if len(stats) > 0 {
		c.cacheSet(cacheKey, stats, weekTTL)
	}
	return stats, nil
}

// Players fetches the full NFL player catalog. The payload is several
// megabytes, so it caches for a day.
func (c *SleeperClient) Players(ctx context.Context) (map[string]ffa.PlayerInfo, error) {
	cacheKey := "sleeper:players:nfl"

	var cached map[string]ffa.PlayerInfo
	if c.cacheGet(cacheKey, &cached) {
		return cached, nil
	}

	url := fmt.Sprintf("%s/players/nfl", c.baseURL)
	var players map[string]ffa.PlayerInfo
	if err := c.getJSON(ctx, url, &players); err != nil {
		return nil, err
	}

	if len(players) > 0 {
		c.cacheSet(cacheKey, players, playersTTL)
	}
	return players, nil
}

// State fetches the provider's current NFL season/week pointer.
func (c *SleeperClient) State(ctx context.Context) (*ffa.SportState, error) {
	cacheKey := "sleeper:state:nfl"

	var cached ffa.SportState
	if c.cacheGet(cacheKey, &cached) {
		return &cached, nil
	}

	url := fmt.Sprintf("%s/state/nfl", c.baseURL)
	var state ffa.SportState
	if err := c.getJSON(ctx, url, &state); err != nil {
		return nil, err
	}
	if state.Season == "" {
		return nil, &ffa.FetchError{URL: url, Err: fmt.Errorf("empty state document")}
	}

	c.cacheSet(cacheKey, state, stateTTL)
	return &state, nil
}

// getJSON performs a rate-limited GET through the circuit breaker and
// decodes the body into target. Non-2xx statuses and bodies that do not
// match the target shape surface as ffa.FetchError; nothing is retried.
func (c *SleeperClient) getJSON(ctx context.Context, url string, target interface{}) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return err
	}

	_, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, &ffa.FetchError{URL: url, Err: err}
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, &ffa.FetchError{URL: url, Status: resp.StatusCode}
		}

		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return nil, &ffa.FetchError{URL: url, Err: fmt.Errorf("unexpected response shape: %w", err)}
		}
		return nil, nil
	})
	return err
}

func (c *SleeperClient) cacheGet(key string, dest interface{}) bool {
	if c.cache == nil {
		return false
	}
	return c.cache.GetSimple(key, dest) == nil
}

func (c *SleeperClient) cacheSet(key string, value interface{}, ttl time.Duration) {
	if c.cache == nil {
		return
	}
	if err := c.cache.SetSimple(key, value, ttl); err != nil {
		c.logger.Warnf("Failed to cache %s: %v", key, err)
	}
}
