package services

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/league-analytics/internal/cache"
	"github.com/jstittsworth/league-analytics/internal/ffa"
)

// MatchupService folds a week's head-to-head results into the four
// aggregation scopes on each manager record: season overall, season by
// phase, career overall, and career by phase.
type MatchupService struct {
	store   cache.Store
	logger  *logrus.Logger
	session *weekSession
}

// NewMatchupService creates a matchup processor.
func NewMatchupService(store cache.Store, logger *logrus.Logger) *MatchupService {
	return &MatchupService{
		store:  store,
		logger: logger,
	}
}

// SetSession installs the shared week state before processing.
func (s *MatchupService) SetSession(sess *weekSession) {
	s.session = sess
}

// ClearSession removes the shared week state.
func (s *MatchupService) ClearSession() {
	s.session = nil
}

// ScrubMatchups records the week's pairings. During playoff weeks, rosters
// absent from the live bracket are skipped silently; they have no matchup
// that counts.
func (s *MatchupService) ScrubMatchups(matchups []ffa.Matchup) error {
	if s.session == nil {
		return fmt.Errorf("matchup session not set")
	}

	managersDoc, err := cache.Managers(s.store)
	if err != nil {
		return err
	}

	pairs := make(map[int][]*ffa.Matchup)
	for i := range matchups {
		m := &matchups[i]
		if m.MatchupID == nil {
			s.logger.WithFields(logrus.Fields{
				"roster": m.RosterID,
				"week":   s.session.Week,
			}).Debug("Roster has no pairing this week")
			continue
		}
		if !s.session.eligible(m.RosterID) {
			continue
		}
		pairs[*m.MatchupID] = append(pairs[*m.MatchupID], m)
	}

	// Deterministic processing order.
	ids := make([]int, 0, len(pairs))
	for id := range pairs {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	recorded := 0
	for _, id := range ids {
		pair := pairs[id]
		if len(pair) != 2 {
			s.logger.Warnf("Skipping matchup %d in week %d: %d rosters instead of 2", id, s.session.Week, len(pair))
			continue
		}
		if err := s.recordPair(managersDoc, pair[0], pair[1]); err != nil {
			s.logger.Warnf("Skipping matchup %d in week %d: %v", id, s.session.Week, err)
			continue
		}
		recorded++
	}

	if recorded > 0 {
		s.logger.WithFields(logrus.Fields{
			"season":   s.session.Year,
			"week":     s.session.Week,
			"matchups": recorded,
			"playoff":  s.session.Playoff,
		}).Info("Recorded matchups")
	}
	return nil
}

// recordPair applies one pairing to both sides. Each side touches four
// scopes; the result is derived from the points, so A's win is always B's
// loss and a tie lands on both.
func (s *MatchupService) recordPair(doc *cache.ManagersDoc, a, b *ffa.Matchup) error {
	userA, ok := s.session.managerFor(a.RosterID)
	if !ok {
		return fmt.Errorf("no manager for roster %d", a.RosterID)
	}
	userB, ok := s.session.managerFor(b.RosterID)
	if !ok {
		return fmt.Errorf("no manager for roster %d", b.RosterID)
	}

	s.recordSide(doc, userA, userB, a.Points, b.Points)
	s.recordSide(doc, userB, userA, b.Points, a.Points)
	return nil
}

func (s *MatchupService) recordSide(doc *cache.ManagersDoc, userID, opponent string, pointsFor, pointsAgainst float64) {
	rec := doc.Manager(userID)
	season := rec.Season(s.session.Year)

	scopes := []*cache.MatchupRecord{
		season.Matchups.Overall,
		season.Matchups.Phase(s.session.Playoff),
		rec.Career.Matchups.Overall,
		rec.Career.Matchups.Phase(s.session.Playoff),
	}
	for _, scope := range scopes {
		scope.Record(opponent, pointsFor, pointsAgainst)
	}
}

// TagPlayoffAppearances marks every roster alive in this week's bracket as
// a playoff participant for the season. Repeated calls are no-ops.
func (s *MatchupService) TagPlayoffAppearances() error {
	if s.session == nil {
		return fmt.Errorf("matchup session not set")
	}
	if s.session.EligibleRosters == nil {
		return nil
	}

	managersDoc, err := cache.Managers(s.store)
	if err != nil {
		return err
	}

	for rosterID := range s.session.EligibleRosters {
		userID, ok := s.session.managerFor(rosterID)
		if !ok {
			s.logger.Warnf("Skipping playoff tag for roster %d: no manager", rosterID)
			continue
		}
		rec := managersDoc.Manager(userID)
		rec.Season(s.session.Year).MadePlayoffs = true
		if rec.Career.AddPlayoffAppearance(s.session.Year) {
			s.logger.WithFields(logrus.Fields{
				"manager": userID,
				"season":  s.session.Year,
			}).Debug("Tagged playoff appearance")
		}
	}
	return nil
}

// bracketRoundRosters returns the rosters with a resolved slot in the
// given bracket round, including any placement games played that round.
func bracketRoundRosters(bracket []ffa.BracketMatchup, round int) map[int]bool {
	alive := make(map[int]bool)
	for i := range bracket {
		m := &bracket[i]
		if m.Round != round {
			continue
		}
		if m.Team1 != nil {
			alive[*m.Team1] = true
		}
		if m.Team2 != nil {
			alive[*m.Team2] = true
		}
	}
	return alive
}

// bracketMaxRound returns the deepest round in the bracket, which fixes the
// final played week of a season: playoff start week + rounds - 1.
func bracketMaxRound(bracket []ffa.BracketMatchup) int {
	max := 0
	for i := range bracket {
		if bracket[i].Round > max {
			max = bracket[i].Round
		}
	}
	return max
}

// bracketPlacements resolves the podium from a completed winners bracket:
// the championship game decides first and second, the place-3 game decides
// third. The boolean reports whether a decided championship was found.
func bracketPlacements(bracket []ffa.BracketMatchup) (first, second, third int, ok bool) {
	third = -1
	for i := range bracket {
		m := &bracket[i]
		if m.Place == nil || m.Winner == nil || m.Loser == nil {
			continue
		}
		switch *m.Place {
		case 1:
			first = *m.Winner
			second = *m.Loser
			ok = true
		case 3:
			third = *m.Winner
		}
	}
	return first, second, third, ok
}
