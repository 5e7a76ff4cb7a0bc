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

// ReplacementService maintains the positional replacement-score record for
// each processed week: the week's bye count, fixed-rank baselines under
// every scoring era that will ever reference the week, and once three prior
// seasons exist, a bye-count-keyed three-year rolling average.
type ReplacementService struct {
	provider ffa.StatsProvider
	store    cache.Store
	seasons  ffa.SeasonList
	logger   *logrus.Logger
	scoring  map[int]map[string]float64 // scoring era -> scoring settings
}

// NewReplacementService creates the replacement-score engine.
func NewReplacementService(provider ffa.StatsProvider, store cache.Store, seasons ffa.SeasonList, logger *logrus.Logger) *ReplacementService {
	return &ReplacementService{
		provider: provider,
		store:    store,
		seasons:  seasons,
		logger:   logger,
		scoring:  make(map[int]map[string]float64),
	}
}

// UpdateWeek recomputes the replacement record for one week. It is safe to
// call again for an already-processed week; the record is rebuilt from the
// same inputs.
func (s *ReplacementService) UpdateWeek(ctx context.Context, year, week int) error {
	stats, err := s.provider.WeekStats(ctx, strconv.Itoa(year), week)
	if err != nil {
		return err
	}
	catalog, err := s.provider.Players(ctx)
	if err != nil {
		return err
	}

	doc, err := cache.Replacement(s.store)
	if err != nil {
		return err
	}
	wk := doc.Week(year, week)

	// Stat rows keyed by a team abbreviation are team defenses: they rank
	// as DEF performances, and their count fixes the week's bye count.
	lines := make(map[ffa.Position][]ffa.StatLine)
	teamRows := 0
	unknown := 0
	for key, line := range stats {
		info, ok := catalog[key]
		if !ok {
			unknown++
			continue
		}
		pos := info.CatalogPosition()
		if pos == ffa.PositionDEF {
			teamRows++
		}
		if !ffa.EligiblePosition(pos) {
			continue
		}
		lines[pos] = append(lines[pos], line)
	}
	if unknown > 0 {
		s.logger.Warnf("Skipped %d stat rows with unknown ids for %d week %d", unknown, year, week)
	}

	byes := ffa.NFLTeamCount - teamRows
	if byes < 0 {
		byes = 0
	}
	wk.ByeTeams = byes

	// Score the week under every era that can reference it: a week in
	// season Y feeds the rolling averages of seasons Y through Y+3.
	eras := 0
	for era := year; era <= year+3; era++ {
		if !s.seasons.Contains(era) {
			continue
		}
		scoring, err := s.scoringFor(ctx, era)
		if err != nil {
			return err
		}
		for pos, rank := range ffa.ReplacementRanks {
			scores := make([]float64, 0, len(lines[pos]))
			for _, line := range lines[pos] {
				scores = append(scores, line.FantasyScore(scoring))
			}
			baseline, ok := replacementBaseline(scores, rank)
			if !ok {
				continue
			}
			wk.SetBaseline(era, pos, round2(baseline))
		}
		eras++
	}

	threeYear := s.computeThreeYear(doc, year, week)
	if threeYear != nil {
		wk.ThreeYear = threeYear
	}

	s.logger.WithFields(logrus.Fields{
		"season":     year,
		"week":       week,
		"byes":       byes,
		"eras":       eras,
		"three_year": threeYear != nil,
	}).Info("Updated replacement scores")
	return nil
}

// scoringFor loads a season's scoring settings once.
func (s *ReplacementService) scoringFor(ctx context.Context, era int) (map[string]float64, error) {
	if scoring, ok := s.scoring[era]; ok {
		return scoring, nil
	}
	league, err := s.provider.League(ctx, s.seasons.LeagueID(era))
	if err != nil {
		return nil, err
	}
	s.scoring[era] = league.ScoringSettings
	return league.ScoringSettings, nil
}

// computeThreeYear builds the bye-count-keyed positional averages for a
// week once the three prior seasons have data. The sample window is the
// current season up to and including the week, both middle seasons in
// full, and the oldest season from the week after the mirrored week
// onward, so the combined newest and oldest slices weigh like one full
// season. All samples are read under the current season's scoring era.
func (s *ReplacementService) computeThreeYear(doc *cache.ReplacementDoc, year, week int) map[string]map[int]float64 {
	for back := 1; back <= 3; back++ {
		if !doc.HasSeason(year - back) {
			return nil
		}
	}

	var samples []*cache.ReplacementWeek
	for w := 1; w <= week; w++ {
		if sample, ok := doc.Lookup(year, w); ok {
			samples = append(samples, sample)
		}
	}
	for _, y := range []int{year - 1, year - 2} {
		for w := range doc.Seasons[y].Weeks {
			samples = append(samples, doc.Seasons[y].Weeks[w])
		}
	}
	for w := range doc.Seasons[year-3].Weeks {
		if w > week {
			samples = append(samples, doc.Seasons[year-3].Weeks[w])
		}
	}

	sums := make(map[ffa.Position]map[int]float64)
	counts := make(map[ffa.Position]map[int]int)
	for _, sample := range samples {
		for pos := range ffa.ReplacementRanks {
			baseline, ok := sample.Baseline(year, pos)
			if !ok {
				continue
			}
			if sums[pos] == nil {
				sums[pos] = make(map[int]float64)
				counts[pos] = make(map[int]int)
			}
			sums[pos][sample.ByeTeams] += baseline
			counts[pos][sample.ByeTeams]++
		}
	}
	if len(sums) == 0 {
		return nil
	}

	result := make(map[string]map[int]float64, len(sums))
	for pos, byeSums := range sums {
		table := make(map[int]float64, len(byeSums))
		for byes, sum := range byeSums {
			table[byes] = round2(sum / float64(counts[pos][byes]))
		}
		monotonicCorrect(table)
		result[string(pos)] = table
	}
	return result
}

// monotonicCorrect enforces that a smaller bye count never carries a lower
// average than a larger one. Working from the largest bye count down, any
// smaller bye count whose average falls below its larger neighbor is raised
// to match.
func monotonicCorrect(table map[int]float64) {
	byes := make([]int, 0, len(table))
	for b := range table {
		byes = append(byes, b)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(byes)))

	for i := 0; i+1 < len(byes); i++ {
		larger, smaller := byes[i], byes[i+1]
		if table[larger] > table[smaller] {
			table[smaller] = table[larger]
		}
	}
}

// replacementBaseline picks the fixed-rank score from an unordered list.
// When fewer players than the rank posted a score, the last-ranked score
// stands in.
func replacementBaseline(scores []float64, rank int) (float64, bool) {
	if len(scores) == 0 {
		return 0, false
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(scores)))
	idx := rank - 1
	if idx >= len(scores) {
		idx = len(scores) - 1
	}
	return scores[idx], true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
