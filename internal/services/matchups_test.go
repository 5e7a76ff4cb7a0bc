package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jstittsworth/league-analytics/internal/cache"
	"github.com/jstittsworth/league-analytics/internal/ffa"
)

func assertScopeConsistent(t *testing.T, scope *cache.MatchupRecord) {
	t.Helper()
	assert.Equal(t, scope.Matchups.Total,
		scope.Wins.Total+scope.Losses.Total+scope.Ties.Total,
		"wins, losses and ties must sum to the matchup count")
}

func TestScrubMatchupsRecordsBothSides(t *testing.T) {
	store := cache.NewMemory()
	svc := NewMatchupService(store, testLogger())
	svc.SetSession(testSession(3, false))

	matchups := []ffa.Matchup{
		{RosterID: 1, MatchupID: intPtr(1), Points: 110.5},
		{RosterID: 2, MatchupID: intPtr(1), Points: 95.25},
		{RosterID: 3, MatchupID: intPtr(2), Points: 88},
		{RosterID: 4, MatchupID: intPtr(2), Points: 88},
	}
	require.NoError(t, svc.ScrubMatchups(matchups))

	doc := mustManagers(t, store)
	alice := doc.Manager("alice")
	season := alice.Seasons[2024].Matchups

	assert.Equal(t, 1, season.Overall.Matchups.Total)
	assert.Equal(t, 1, season.Overall.Wins.Total)
	assert.Equal(t, 110.5, season.Overall.PointsFor.Total)
	assert.Equal(t, 95.25, season.Overall.PointsAgainst.Total)
	assert.Equal(t, map[string]int{"bob": 1}, season.Overall.Wins.ByOpponent)
	assert.Equal(t, map[string]float64{"bob": 110.5}, season.Overall.PointsFor.ByOpponent)

	assert.Equal(t, 1, season.Regular.Matchups.Total, "regular week lands in the regular-season view")
	assert.Equal(t, 0, season.Playoff.Matchups.Total)

	career := alice.Career.Matchups
	assert.Equal(t, 1, career.Overall.Wins.Total)
	assert.Equal(t, 1, career.Regular.Wins.Total)

	bob := doc.Manager("bob")
	assert.Equal(t, 1, bob.Seasons[2024].Matchups.Overall.Losses.Total)
	assert.Equal(t, 95.25, bob.Seasons[2024].Matchups.Overall.PointsFor.Total)

	carol := doc.Manager("carol")
	dan := doc.Manager("dan")
	assert.Equal(t, 1, carol.Seasons[2024].Matchups.Overall.Ties.Total)
	assert.Equal(t, 1, dan.Seasons[2024].Matchups.Overall.Ties.Total)

	for _, rec := range doc.Managers {
		assertScopeConsistent(t, rec.Seasons[2024].Matchups.Overall)
		assertScopeConsistent(t, rec.Career.Matchups.Overall)
		assertScopeConsistent(t, rec.Career.Matchups.Regular)
	}
}

func TestScrubMatchupsSkipsUnpairedRosters(t *testing.T) {
	store := cache.NewMemory()
	svc := NewMatchupService(store, testLogger())
	svc.SetSession(testSession(3, false))

	matchups := []ffa.Matchup{
		{RosterID: 1, MatchupID: intPtr(1), Points: 100},
		{RosterID: 2, MatchupID: intPtr(1), Points: 90},
		{RosterID: 3, MatchupID: nil, Points: 80},
	}
	require.NoError(t, svc.ScrubMatchups(matchups))

	doc := mustManagers(t, store)
	assert.NotContains(t, doc.Managers, "carol")
	assert.Equal(t, 1, doc.Manager("alice").Seasons[2024].Matchups.Overall.Wins.Total)
}

func TestScrubMatchupsPlayoffWeek(t *testing.T) {
	store := cache.NewMemory()
	svc := NewMatchupService(store, testLogger())
	sess := testSession(15, true)
	sess.EligibleRosters = map[int]bool{1: true, 2: true}
	svc.SetSession(sess)

	// Rosters 3 and 4 play a consolation game that must not count.
	matchups := []ffa.Matchup{
		{RosterID: 1, MatchupID: intPtr(1), Points: 130},
		{RosterID: 2, MatchupID: intPtr(1), Points: 120},
		{RosterID: 3, MatchupID: intPtr(2), Points: 100},
		{RosterID: 4, MatchupID: intPtr(2), Points: 90},
	}
	require.NoError(t, svc.ScrubMatchups(matchups))

	doc := mustManagers(t, store)
	alice := doc.Manager("alice").Seasons[2024].Matchups
	assert.Equal(t, 1, alice.Playoff.Wins.Total)
	assert.Equal(t, 0, alice.Regular.Matchups.Total)
	assert.Equal(t, 1, alice.Overall.Matchups.Total)
	assert.NotContains(t, doc.Managers, "carol")
	assert.NotContains(t, doc.Managers, "dan")
}

func TestTagPlayoffAppearancesIsIdempotent(t *testing.T) {
	store := cache.NewMemory()
	svc := NewMatchupService(store, testLogger())
	sess := testSession(15, true)
	sess.EligibleRosters = map[int]bool{1: true, 2: true}
	svc.SetSession(sess)

	require.NoError(t, svc.TagPlayoffAppearances())
	require.NoError(t, svc.TagPlayoffAppearances())

	doc := mustManagers(t, store)
	alice := doc.Manager("alice")
	assert.True(t, alice.Seasons[2024].MadePlayoffs)
	assert.Equal(t, []int{2024}, alice.Career.PlayoffAppearances)
	assert.NotContains(t, doc.Managers, "carol")
}

func TestBracketRoundRosters(t *testing.T) {
	bracket := []ffa.BracketMatchup{
		{Round: 1, MatchupID: 1, Team1: intPtr(1), Team2: intPtr(4), Winner: intPtr(1), Loser: intPtr(4)},
		{Round: 1, MatchupID: 2, Team1: intPtr(2), Team2: intPtr(3), Winner: intPtr(3), Loser: intPtr(2)},
		{Round: 2, MatchupID: 3, Team1: intPtr(1), Team2: intPtr(3), Winner: intPtr(3), Loser: intPtr(1), Place: intPtr(1)},
	}

	round1 := bracketRoundRosters(bracket, 1)
	assert.Equal(t, map[int]bool{1: true, 2: true, 3: true, 4: true}, round1)

	round2 := bracketRoundRosters(bracket, 2)
	assert.Equal(t, map[int]bool{1: true, 3: true}, round2)

	assert.Empty(t, bracketRoundRosters(bracket, 3))
	assert.Equal(t, 2, bracketMaxRound(bracket))
}

func TestBracketPlacements(t *testing.T) {
	bracket := []ffa.BracketMatchup{
		{Round: 2, MatchupID: 3, Team1: intPtr(1), Team2: intPtr(3), Winner: intPtr(3), Loser: intPtr(1), Place: intPtr(1)},
		{Round: 2, MatchupID: 4, Team1: intPtr(2), Team2: intPtr(4), Winner: intPtr(2), Loser: intPtr(4), Place: intPtr(3)},
	}
	first, second, third, ok := bracketPlacements(bracket)
	require.True(t, ok)
	assert.Equal(t, 3, first)
	assert.Equal(t, 1, second)
	assert.Equal(t, 2, third)

	// An undecided or place-less bracket yields no podium.
	_, _, _, ok = bracketPlacements([]ffa.BracketMatchup{
		{Round: 1, MatchupID: 1, Team1: intPtr(1), Team2: intPtr(2)},
	})
	assert.False(t, ok)
}
