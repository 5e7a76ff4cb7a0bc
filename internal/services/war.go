package services

import (
	"context"
	"math"
	"sort"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/league-analytics/internal/cache"
	"github.com/jstittsworth/league-analytics/internal/ffa"
)

// WarService computes each player's simulated wins above replacement for a
// week: across every ordered pair of managers who fielded the player's
// position, how often did the player's actual score win a matchup that the
// positional replacement baseline would have lost, net of the reverse.
type WarService struct {
	provider ffa.StatsProvider
	store    cache.Store
	logger   *logrus.Logger
}

// NewWarService creates the WAR simulator.
func NewWarService(provider ffa.StatsProvider, store cache.Store, logger *logrus.Logger) *WarService {
	return &WarService{
		provider: provider,
		store:    store,
		logger:   logger,
	}
}

// managerLineup is one manager's started lineup for the simulated week.
type managerLineup struct {
	userID string
	total  float64
	byPos  map[ffa.Position][]string
	posSum map[ffa.Position]float64
}

func (l *managerLineup) posAvg(pos ffa.Position) float64 {
	n := len(l.byPos[pos])
	if n == 0 {
		return 0
	}
	return l.posSum[pos] / float64(n)
}

// warCandidate is one player considered by the simulation.
type warCandidate struct {
	playerID    string
	position    ffa.Position
	score       float64
	startedBy   string
	started     bool
	displayOnly bool
}

// UpdateWeek simulates the week and persists the outcomes. Results flagged
// display-only (a starter with no recorded stat line, simulated at 0.0) are
// returned for presentation but never written to the player document.
func (s *WarService) UpdateWeek(ctx context.Context, league *ffa.League, week int) ([]ffa.WarResult, error) {
	year := league.Year()
	scoring := league.ScoringSettings

	stats, err := s.provider.WeekStats(ctx, strconv.Itoa(year), week)
	if err != nil {
		return nil, err
	}
	catalog, err := s.provider.Players(ctx)
	if err != nil {
		return nil, err
	}
	matchups, err := s.provider.Matchups(ctx, league.LeagueID, week)
	if err != nil {
		return nil, err
	}
	rosters, err := s.provider.Rosters(ctx, league.LeagueID)
	if err != nil {
		return nil, err
	}

	rosterOwners := make(map[int]string, len(rosters))
	for i := range rosters {
		rosterOwners[rosters[i].RosterID] = rosters[i].OwnerID
	}

	playoffStart := league.Settings.PlayoffWeekStart
	playoff := playoffStart > 0 && week >= playoffStart
	var eligible map[int]bool
	if playoff {
		bracket, err := s.provider.WinnersBracket(ctx, league.LeagueID)
		if err != nil {
			return nil, err
		}
		eligible = bracketRoundRosters(bracket, week-playoffStart+1)
	}

	lineups, startedBy, startedNoStats := s.buildLineups(matchups, rosterOwners, eligible, stats, catalog, scoring)

	// League-wide positional averages and who fielded each position.
	fielded := make(map[ffa.Position][]*managerLineup)
	leagueAvg := make(map[ffa.Position]float64)
	for pos := range ffa.ReplacementRanks {
		sum, count := 0.0, 0
		for _, lineup := range lineups {
			n := len(lineup.byPos[pos])
			if n == 0 {
				continue
			}
			fielded[pos] = append(fielded[pos], lineup)
			sum += lineup.posSum[pos]
			count += n
		}
		if count > 0 {
			leagueAvg[pos] = sum / float64(count)
		}
	}

	baselines, err := s.weekBaselines(year, week)
	if err != nil {
		return nil, err
	}

	candidates := s.collectCandidates(stats, catalog, scoring, startedBy, startedNoStats)

	results := make([]ffa.WarResult, 0, len(candidates))
	for _, cand := range candidates {
		war := s.simulate(cand, fielded[cand.position], leagueAvg[cand.position], baselines, playoff)
		results = append(results, ffa.WarResult{
			PlayerID:    cand.playerID,
			Name:        catalogName(catalog, cand.playerID),
			Position:    string(cand.position),
			War:         war,
			Points:      round2(cand.score),
			StartedBy:   cand.startedBy,
			Started:     cand.started,
			DisplayOnly: cand.displayOnly,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].War != results[j].War {
			return results[i].War > results[j].War
		}
		return results[i].PlayerID < results[j].PlayerID
	})

	playersDoc, err := cache.Players(s.store)
	if err != nil {
		return nil, err
	}
	persisted := 0
	for i := range results {
		r := &results[i]
		if r.DisplayOnly {
			continue
		}
		p := playersDoc.Player(r.PlayerID)
		p.Name = r.Name
		p.Position = r.Position
		p.SetWar(year, week, &cache.WarScore{
			War:       r.War,
			Points:    r.Points,
			StartedBy: r.StartedBy,
			Started:   r.Started,
		})
		persisted++
	}

	s.logger.WithFields(logrus.Fields{
		"season":    year,
		"week":      week,
		"players":   persisted,
		"playoff":   playoff,
		"simulated": len(results),
	}).Info("Updated player WAR")
	return results, nil
}

// buildLineups resolves each participating roster's started lineup. It
// returns the lineups, who started each player, and the started players
// with no stat line (simulated at 0.0, display-only).
func (s *WarService) buildLineups(matchups []ffa.Matchup, rosterOwners map[int]string, eligible map[int]bool, stats map[string]ffa.StatLine, catalog map[string]ffa.PlayerInfo, scoring map[string]float64) ([]*managerLineup, map[string]string, map[string]bool) {
	var lineups []*managerLineup
	startedBy := make(map[string]string)
	startedNoStats := make(map[string]bool)

	for i := range matchups {
		m := &matchups[i]
		if m.MatchupID == nil {
			continue
		}
		if eligible != nil && !eligible[m.RosterID] {
			continue
		}
		userID, ok := rosterOwners[m.RosterID]
		if !ok || userID == "" {
			s.logger.Warnf("Skipping lineup for roster %d: no owner", m.RosterID)
			continue
		}

		lineup := &managerLineup{
			userID: userID,
			byPos:  make(map[ffa.Position][]string),
			posSum: make(map[ffa.Position]float64),
		}
		seen := make(map[string]bool)
		for _, playerID := range m.Starters {
			if playerID == "" || playerID == "0" {
				continue
			}
			if seen[playerID] {
				s.logger.Warnf("Duplicate starter %s in roster %d lineup, counting once", playerID, m.RosterID)
				continue
			}
			seen[playerID] = true

			info, ok := catalog[playerID]
			if !ok {
				s.logger.Warnf("Skipping unknown starter %s in roster %d lineup", playerID, m.RosterID)
				continue
			}
			pos := info.CatalogPosition()

			line, hasStats := stats[playerID]
			score := 0.0
			if hasStats {
				score = line.FantasyScore(scoring)
			} else {
				startedNoStats[playerID] = true
			}

			startedBy[playerID] = userID
			lineup.total += score
			if ffa.EligiblePosition(pos) {
				lineup.byPos[pos] = append(lineup.byPos[pos], playerID)
				lineup.posSum[pos] += score
			}
		}
		lineups = append(lineups, lineup)
	}
	return lineups, startedBy, startedNoStats
}

// collectCandidates gathers every player the simulation scores: everyone
// with a stat line at a tracked position, rostered or not, plus starters
// with no stat line.
func (s *WarService) collectCandidates(stats map[string]ffa.StatLine, catalog map[string]ffa.PlayerInfo, scoring map[string]float64, startedBy map[string]string, startedNoStats map[string]bool) []*warCandidate {
	candidates := make(map[string]*warCandidate)
	for playerID, line := range stats {
		info, ok := catalog[playerID]
		if !ok {
			continue
		}
		pos := info.CatalogPosition()
		if !ffa.EligiblePosition(pos) {
			continue
		}
		starter := startedBy[playerID]
		candidates[playerID] = &warCandidate{
			playerID:  playerID,
			position:  pos,
			score:     line.FantasyScore(scoring),
			startedBy: starter,
			started:   starter != "",
		}
	}
	for playerID := range startedNoStats {
		if _, ok := candidates[playerID]; ok {
			continue
		}
		info, ok := catalog[playerID]
		if !ok {
			continue
		}
		pos := info.CatalogPosition()
		if !ffa.EligiblePosition(pos) {
			continue
		}
		candidates[playerID] = &warCandidate{
			playerID:    playerID,
			position:    pos,
			startedBy:   startedBy[playerID],
			started:     true,
			displayOnly: true,
		}
	}

	ids := make([]string, 0, len(candidates))
	for id := range candidates {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	ordered := make([]*warCandidate, 0, len(ids))
	for _, id := range ids {
		ordered = append(ordered, candidates[id])
	}
	return ordered
}

// weekBaselines resolves the replacement baseline per position for the
// week: the three-year average for the week's bye count when available,
// otherwise the week's own baseline under the current scoring era.
func (s *WarService) weekBaselines(year, week int) (map[ffa.Position]float64, error) {
	doc, err := cache.Replacement(s.store)
	if err != nil {
		return nil, err
	}
	wk, ok := doc.Lookup(year, week)
	if !ok {
		s.logger.Warnf("No replacement record for %d week %d, WAR will be zero", year, week)
		return map[ffa.Position]float64{}, nil
	}

	baselines := make(map[ffa.Position]float64)
	for pos := range ffa.ReplacementRanks {
		if avg, ok := wk.ThreeYearAvg(pos, wk.ByeTeams); ok {
			baselines[pos] = avg
			continue
		}
		if baseline, ok := wk.Baseline(year, pos); ok {
			baselines[pos] = baseline
		}
	}
	return baselines, nil
}

// simulate runs every ordered pairing of managers who fielded the
// candidate's position. The playing side swaps its entire position group
// for the candidate and, separately, for the replacement baseline; the
// opposing side is normalized toward the league-wide positional average.
// The pairing scores +1 when the candidate wins a matchup the baseline
// loses, -1 for the reverse, 0 otherwise; ties are not wins.
func (s *WarService) simulate(cand *warCandidate, fielded []*managerLineup, leagueAvg float64, baselines map[ffa.Position]float64, playoff bool) float64 {
	baseline, hasBaseline := baselines[cand.position]
	if !hasBaseline || len(fielded) < 2 {
		return 0.0
	}

	net := 0
	pairings := 0
	for _, playing := range fielded {
		base := playing.total - playing.posSum[cand.position]
		for _, opposing := range fielded {
			if opposing == playing {
				continue
			}
			opposingTotal := opposing.total - opposing.posAvg(cand.position) + leagueAvg

			actualWins := base+cand.score > opposingTotal
			replacementWins := base+baseline > opposingTotal
			switch {
			case actualWins && !replacementWins:
				net++
			case !actualWins && replacementWins:
				net--
			}
			pairings++
		}
	}
	if pairings == 0 {
		return 0.0
	}

	war := round3(float64(net) / float64(pairings))
	if playoff {
		war = round3(war / 3)
	}
	return war
}

// catalogName prefers the catalog full name, falling back to the id (team
// defenses are keyed by their abbreviation and carry no full name).
func catalogName(catalog map[string]ffa.PlayerInfo, playerID string) string {
	if info, ok := catalog[playerID]; ok && info.FullName != "" {
		return info.FullName
	}
	return playerID
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
