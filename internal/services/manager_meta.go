package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/league-analytics/internal/cache"
	"github.com/jstittsworth/league-analytics/internal/ffa"
)

// ManagerMetaService coordinates one week of manager bookkeeping: it
// validates the week's roster assignment, installs the shared session on
// the transaction and matchup processors, and runs them in order.
type ManagerMetaService struct {
	provider     ffa.StatsProvider
	store        cache.Store
	transactions *TransactionService
	matchups     *MatchupService
	logger       *logrus.Logger

	// season-level settings, loaded lazily on the first processed week of
	// each season
	seasons map[int]*seasonSettings
}

type seasonSettings struct {
	usesFAAB     bool
	playoffStart int
}

// NewManagerMetaService creates the per-week manager orchestrator.
func NewManagerMetaService(provider ffa.StatsProvider, store cache.Store, txs *TransactionService, matchups *MatchupService, logger *logrus.Logger) *ManagerMetaService {
	return &ManagerMetaService{
		provider:     provider,
		store:        store,
		transactions: txs,
		matchups:     matchups,
		logger:       logger,
		seasons:      make(map[int]*seasonSettings),
	}
}

// ResetSeasonMemo drops the lazily loaded season settings so the next run
// re-reads them once per season.
func (s *ManagerMetaService) ResetSeasonMemo() {
	s.seasons = make(map[int]*seasonSettings)
}

// CacheWeekData processes one week of manager metadata: transaction
// ingestion, reversal sweep, matchup recording and playoff tagging. All
// fetches and precondition checks happen before the first mutation, and
// session state on both sub-processors is cleared on every exit path.
func (s *ManagerMetaService) CacheWeekData(ctx context.Context, league *ffa.League, week int) error {
	year := league.Year()

	rosters, err := s.provider.Rosters(ctx, league.LeagueID)
	if err != nil {
		return err
	}
	users, err := s.provider.Users(ctx, league.LeagueID)
	if err != nil {
		return err
	}

	if len(rosters) == 0 {
		return &ffa.PreconditionError{Season: year, Week: week, Reason: "no roster assignment"}
	}
	if len(rosters)%2 != 0 {
		return &ffa.PreconditionError{Season: year, Week: week, Reason: "odd team count"}
	}

	usersByID := make(map[string]*ffa.LeagueUser, len(users))
	for i := range users {
		usersByID[users[i].UserID] = &users[i]
	}

	rosterMap := make(map[int]string, len(rosters))
	names := make(map[string]string, len(rosters))
	for i := range rosters {
		r := &rosters[i]
		if r.OwnerID == "" {
			return &ffa.PreconditionError{Season: year, Week: week, Reason: "roster without owner"}
		}
		user, ok := usersByID[r.OwnerID]
		if !ok {
			return &ffa.PreconditionError{Season: year, Week: week, Reason: "roster owner has no user record"}
		}
		rosterMap[r.RosterID] = r.OwnerID
		names[r.OwnerID] = user.DisplayName
	}

	settings := s.settingsFor(league)
	playoff := settings.playoffStart > 0 && week >= settings.playoffStart

	var eligible map[int]bool
	if playoff {
		bracket, err := s.provider.WinnersBracket(ctx, league.LeagueID)
		if err != nil {
			return err
		}
		round := week - settings.playoffStart + 1
		eligible = bracketRoundRosters(bracket, round)
	}

	rawTxs, err := s.provider.Transactions(ctx, league.LeagueID, week)
	if err != nil {
		return err
	}
	weekMatchups, err := s.provider.Matchups(ctx, league.LeagueID, week)
	if err != nil {
		return err
	}

	managersDoc, err := cache.Managers(s.store)
	if err != nil {
		return err
	}

	// First mutation: refresh identity fields so later lookups and draft
	// pick names use current display names.
	for i := range rosters {
		r := &rosters[i]
		user := usersByID[r.OwnerID]
		rec := managersDoc.Manager(r.OwnerID)
		rec.DisplayName = user.DisplayName
		rec.TeamName = user.TeamName()
		rec.Season(year).RosterID = r.RosterID
	}

	sess := &weekSession{
		Year:             year,
		Week:             week,
		Rosters:          rosterMap,
		Names:            names,
		UsesFAAB:         settings.usesFAAB,
		PlayoffStartWeek: settings.playoffStart,
		Playoff:          playoff,
		EligibleRosters:  eligible,
	}
	s.transactions.SetSession(sess)
	s.matchups.SetSession(sess)
	defer func() {
		s.transactions.ClearSession()
		s.matchups.ClearSession()
	}()

	if err := s.transactions.IngestWeek(rawTxs); err != nil {
		return err
	}
	if err := s.transactions.SweepReversals(); err != nil {
		return err
	}
	if err := s.matchups.ScrubMatchups(weekMatchups); err != nil {
		return err
	}
	if playoff {
		if err := s.matchups.TagPlayoffAppearances(); err != nil {
			return err
		}
	}
	return nil
}

// settingsFor memoizes the per-season settings the processors need.
func (s *ManagerMetaService) settingsFor(league *ffa.League) *seasonSettings {
	year := league.Year()
	if settings, ok := s.seasons[year]; ok {
		return settings
	}
	settings := &seasonSettings{
		usesFAAB:     league.UsesFAAB(),
		playoffStart: league.Settings.PlayoffWeekStart,
	}
	s.seasons[year] = settings
	s.logger.WithFields(logrus.Fields{
		"season":        year,
		"faab":          settings.usesFAAB,
		"playoff_start": settings.playoffStart,
	}).Info("Loaded season settings")
	return settings
}
