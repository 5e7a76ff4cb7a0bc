package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/jstittsworth/league-analytics/internal/cache"
	"github.com/jstittsworth/league-analytics/internal/ffa"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func intPtr(v int) *int { return &v }

// testSession is a four-manager FAAB league week.
func testSession(week int, playoff bool) *weekSession {
	return &weekSession{
		Year: 2024,
		Week: week,
		Rosters: map[int]string{
			1: "alice",
			2: "bob",
			3: "carol",
			4: "dan",
		},
		Names: map[string]string{
			"alice": "Alice",
			"bob":   "Bob",
			"carol": "Carol",
			"dan":   "Dan",
		},
		UsesFAAB:         true,
		PlayoffStartWeek: 15,
		Playoff:          playoff,
	}
}

func mustManagers(t *testing.T, store cache.Store) *cache.ManagersDoc {
	t.Helper()
	doc, err := cache.Managers(store)
	require.NoError(t, err)
	return doc
}

func mustTransactions(t *testing.T, store cache.Store) *cache.TransactionsDoc {
	t.Helper()
	doc, err := cache.Transactions(store)
	require.NoError(t, err)
	return doc
}

func mustReplacement(t *testing.T, store cache.Store) *cache.ReplacementDoc {
	t.Helper()
	doc, err := cache.Replacement(store)
	require.NoError(t, err)
	return doc
}

func mustPlayers(t *testing.T, store cache.Store) *cache.PlayersDoc {
	t.Helper()
	doc, err := cache.Players(store)
	require.NoError(t, err)
	return doc
}

func mustProgress(t *testing.T, store cache.Store) *cache.ProgressDoc {
	t.Helper()
	doc, err := cache.Progress(store)
	require.NoError(t, err)
	return doc
}

func snapshot(t *testing.T, v interface{}) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

// fakeProvider serves canned responses to the services under test and
// counts stat fetches so tests can verify which weeks were processed.
type fakeProvider struct {
	leagues      map[string]*ffa.League
	rosters      map[string][]ffa.Roster
	users        map[string][]ffa.LeagueUser
	matchups     map[string]map[int][]ffa.Matchup
	transactions map[string]map[int][]ffa.RawTransaction
	brackets     map[string][]ffa.BracketMatchup
	stats        map[string]map[int]map[string]ffa.StatLine
	players      map[string]ffa.PlayerInfo
	state        *ffa.SportState

	statsCalls   map[string]int
	weekStatsErr func(season string, week int) error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		leagues:      make(map[string]*ffa.League),
		rosters:      make(map[string][]ffa.Roster),
		users:        make(map[string][]ffa.LeagueUser),
		matchups:     make(map[string]map[int][]ffa.Matchup),
		transactions: make(map[string]map[int][]ffa.RawTransaction),
		brackets:     make(map[string][]ffa.BracketMatchup),
		stats:        make(map[string]map[int]map[string]ffa.StatLine),
		players:      make(map[string]ffa.PlayerInfo),
		state:        &ffa.SportState{},
		statsCalls:   make(map[string]int),
	}
}

func (f *fakeProvider) League(ctx context.Context, leagueID string) (*ffa.League, error) {
	league, ok := f.leagues[leagueID]
	if !ok {
		return nil, fmt.Errorf("no league %s", leagueID)
	}
	return league, nil
}

func (f *fakeProvider) Rosters(ctx context.Context, leagueID string) ([]ffa.Roster, error) {
	return f.rosters[leagueID], nil
}

func (f *fakeProvider) Users(ctx context.Context, leagueID string) ([]ffa.LeagueUser, error) {
	return f.users[leagueID], nil
}

func (f *fakeProvider) Matchups(ctx context.Context, leagueID string, week int) ([]ffa.Matchup, error) {
	return f.matchups[leagueID][week], nil
}

func (f *fakeProvider) Transactions(ctx context.Context, leagueID string, week int) ([]ffa.RawTransaction, error) {
	return f.transactions[leagueID][week], nil
}

func (f *fakeProvider) WinnersBracket(ctx context.Context, leagueID string) ([]ffa.BracketMatchup, error) {
	return f.brackets[leagueID], nil
}

func (f *fakeProvider) WeekStats(ctx context.Context, season string, week int) (map[string]ffa.StatLine, error) {
	f.statsCalls[fmt.Sprintf("%s/%d", season, week)]++
	if f.weekStatsErr != nil {
		if err := f.weekStatsErr(season, week); err != nil {
			return nil, err
		}
	}
	lines := f.stats[season][week]
	if lines == nil {
		lines = map[string]ffa.StatLine{}
	}
	return lines, nil
}

func (f *fakeProvider) Players(ctx context.Context) (map[string]ffa.PlayerInfo, error) {
	return f.players, nil
}

func (f *fakeProvider) State(ctx context.Context) (*ffa.SportState, error) {
	return f.state, nil
}

func (f *fakeProvider) setMatchups(leagueID string, week int, matchups []ffa.Matchup) {
	if f.matchups[leagueID] == nil {
		f.matchups[leagueID] = make(map[int][]ffa.Matchup)
	}
	f.matchups[leagueID][week] = matchups
}

func (f *fakeProvider) setTransactions(leagueID string, week int, txs []ffa.RawTransaction) {
	if f.transactions[leagueID] == nil {
		f.transactions[leagueID] = make(map[int][]ffa.RawTransaction)
	}
	f.transactions[leagueID][week] = txs
}

func (f *fakeProvider) setStats(season string, week int, lines map[string]ffa.StatLine) {
	if f.stats[season] == nil {
		f.stats[season] = make(map[int]map[string]ffa.StatLine)
	}
	f.stats[season][week] = lines
}

// captureAlert records alert messages for assertions.
type captureAlert struct {
	mu       sync.Mutex
	messages []string
}

func (c *captureAlert) Send(ctx context.Context, message string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, message)
	return nil
}

func (c *captureAlert) sent() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.messages...)
}
