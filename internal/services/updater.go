package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/jstittsworth/league-analytics/internal/cache"
	"github.com/jstittsworth/league-analytics/internal/ffa"
	"github.com/jstittsworth/league-analytics/internal/models"
)

// ErrRunInProgress reports that another update is holding the single-writer
// slot.
var ErrRunInProgress = errors.New("update run already in progress")

// ErrSeasonNotConfigured reports a targeted backfill for a season outside
// the configured league map.
var ErrSeasonNotConfigured = errors.New("season not configured")

// UpdaterService walks every configured season in ascending order and
// processes each week the progress marker has not covered yet: manager
// metadata, then replacement scores, then player WAR, then the marker
// advance. One week's mutations and its marker persist in a single save, so
// an aborted run resumes exactly where it stopped.
type UpdaterService struct {
	provider    ffa.StatsProvider
	store       cache.Store
	db          *gorm.DB
	meta        *ManagerMetaService
	replacement *ReplacementService
	war         *WarService
	seasons     ffa.SeasonList
	logger      *logrus.Logger
	running     atomic.Bool

	// Optional collaborators, wired by the entry points.
	Alerts   AlertSender
	Hub      *Hub
	APICache *CacheService
}

// NewUpdaterService creates the weekly update orchestrator. db may be nil;
// run auditing is then skipped.
func NewUpdaterService(provider ffa.StatsProvider, store cache.Store, db *gorm.DB, meta *ManagerMetaService, replacement *ReplacementService, war *WarService, seasons ffa.SeasonList, logger *logrus.Logger) *UpdaterService {
	return &UpdaterService{
		provider:    provider,
		store:       store,
		db:          db,
		meta:        meta,
		replacement: replacement,
		war:         war,
		seasons:     seasons,
		logger:      logger,
	}
}

// Running reports whether an update currently holds the writer slot.
func (s *UpdaterService) Running() bool {
	return s.running.Load()
}

// RunAll runs the full pipeline end to end. Any upstream fetch or shape
// error aborts the whole run; unsaved in-memory state is discarded so the
// next invocation resumes from the persisted marker.
func (s *UpdaterService) RunAll(ctx context.Context, trigger string) (err error) {
	if !s.running.CompareAndSwap(false, true) {
		return ErrRunInProgress
	}
	defer s.running.Store(false)

	start := time.Now()
	run := s.beginRun(trigger)
	s.meta.ResetSeasonMemo()
	s.publish(EventRunStarted, 0, 0, "")

	defer func() {
		if err != nil {
			s.store.Reset()
			s.finishRun(run, models.RunStatusFailed, err)
			s.sendAlert(fmt.Sprintf("League analytics update failed: %v", err))
			s.publish(EventRunFailed, 0, 0, err.Error())
			return
		}
		s.finishRun(run, models.RunStatusCompleted, nil)
		s.invalidateAPICache()
		s.publish(EventRunCompleted, 0, 0, "")
	}()

	progress, err := cache.Progress(s.store)
	if err != nil {
		return err
	}
	state, err := s.provider.State(ctx)
	if err != nil {
		return err
	}

	for _, season := range s.seasons {
		if err = s.processSeason(ctx, run, progress, state, season); err != nil {
			return err
		}
	}

	s.logger.WithFields(logrus.Fields{
		"run_id":   run.ID.String(),
		"trigger":  trigger,
		"duration": time.Since(start).String(),
		"marker":   fmt.Sprintf("%d/%d", progress.Marker.Season, progress.Marker.Week),
	}).Info("Update run completed")
	return nil
}

func (s *UpdaterService) processSeason(ctx context.Context, run *models.PipelineRun, progress *cache.ProgressDoc, state *ffa.SportState, season ffa.SeasonLeague) error {
	league, err := s.provider.League(ctx, season.LeagueID)
	if err != nil {
		return err
	}

	// A completed prior season gets its podium recorded before this
	// season's first week touches the documents.
	if prevID := s.seasons.LeagueID(season.Year - 1); prevID != "" {
		if err := s.ensurePlacements(ctx, season.Year-1, prevID); err != nil {
			return err
		}
	}

	lastScored, err := s.lastScoredWeek(ctx, league, state)
	if err != nil {
		return err
	}

	weeks := weeksNeeding(progress.Marker, season.Year, lastScored)
	if len(weeks) == 0 {
		s.logger.WithFields(logrus.Fields{
			"season": season.Year,
			"scored": lastScored,
		}).Debug("Season already up to date")
	} else {
		s.logger.WithFields(logrus.Fields{
			"season": season.Year,
			"weeks":  len(weeks),
			"from":   weeks[0],
			"to":     weeks[len(weeks)-1],
		}).Info("Processing season")

		for _, week := range weeks {
			if err := s.processWeek(ctx, run, progress, league, week); err != nil {
				return err
			}
		}
	}

	if league.Status == "complete" {
		if err := s.ensurePlacements(ctx, season.Year, season.LeagueID); err != nil {
			return err
		}
	}
	return nil
}

func (s *UpdaterService) processWeek(ctx context.Context, run *models.PipelineRun, progress *cache.ProgressDoc, league *ffa.League, week int) error {
	year := league.Year()
	weekStart := time.Now()
	s.publish(EventWeekStarted, year, week, "")

	if err := s.meta.CacheWeekData(ctx, league, week); err != nil {
		return fmt.Errorf("manager data for %d week %d: %w", year, week, err)
	}
	if err := s.replacement.UpdateWeek(ctx, year, week); err != nil {
		return fmt.Errorf("replacement scores for %d week %d: %w", year, week, err)
	}
	if _, err := s.war.UpdateWeek(ctx, league, week); err != nil {
		return fmt.Errorf("player analytics for %d week %d: %w", year, week, err)
	}

	// The marker advances only after every processor finished the week,
	// and it persists in the same save as the week's mutations.
	progress.Marker = ffa.ProgressMarker{Season: year, Week: week}
	if err := s.store.SaveAll(ctx); err != nil {
		return err
	}

	s.recordWeek(run, year, week)
	s.publish(EventWeekCompleted, year, week, "")
	s.logger.WithFields(logrus.Fields{
		"season":   year,
		"week":     week,
		"duration": time.Since(weekStart).String(),
	}).Info("Processed week")
	return nil
}

// UpdateReplacementWeek recomputes one week's replacement record, for
// targeted backfills. It takes the writer slot but does not move the
// progress marker.
func (s *UpdaterService) UpdateReplacementWeek(ctx context.Context, season, week int) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrRunInProgress
	}
	defer s.running.Store(false)

	if !s.seasons.Contains(season) {
		return fmt.Errorf("season %d: %w", season, ErrSeasonNotConfigured)
	}
	if err := s.replacement.UpdateWeek(ctx, season, week); err != nil {
		s.store.Reset()
		return err
	}
	return s.store.SaveAll(ctx)
}

// UpdatePlayerAnalyticsWeek recomputes one week's WAR outcomes, for
// targeted backfills. It takes the writer slot but does not move the
// progress marker.
func (s *UpdaterService) UpdatePlayerAnalyticsWeek(ctx context.Context, season, week int) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrRunInProgress
	}
	defer s.running.Store(false)

	leagueID := s.seasons.LeagueID(season)
	if leagueID == "" {
		return fmt.Errorf("season %d: %w", season, ErrSeasonNotConfigured)
	}
	league, err := s.provider.League(ctx, leagueID)
	if err != nil {
		return err
	}
	if _, err := s.war.UpdateWeek(ctx, league, week); err != nil {
		s.store.Reset()
		return err
	}
	return s.store.SaveAll(ctx)
}

// ensurePlacements records a completed season's podium once: championship
// winner and loser take first and second, the place-3 winner takes third.
func (s *UpdaterService) ensurePlacements(ctx context.Context, year int, leagueID string) error {
	managersDoc, err := cache.Managers(s.store)
	if err != nil {
		return err
	}
	for _, rec := range managersDoc.Managers {
		if season, ok := rec.Seasons[year]; ok && season.Placement != 0 {
			return nil
		}
	}

	league, err := s.provider.League(ctx, leagueID)
	if err != nil {
		return err
	}
	if league.Status != "complete" {
		return nil
	}

	bracket, err := s.provider.WinnersBracket(ctx, leagueID)
	if err != nil {
		return err
	}
	first, second, third, ok := bracketPlacements(bracket)
	if !ok {
		s.logger.Warnf("Season %d is complete but its bracket has no decided championship", year)
		return nil
	}

	rosters, err := s.provider.Rosters(ctx, leagueID)
	if err != nil {
		return err
	}
	owners := make(map[int]string, len(rosters))
	for i := range rosters {
		owners[rosters[i].RosterID] = rosters[i].OwnerID
	}

	assign := func(rosterID, place int) {
		userID, ok := owners[rosterID]
		if !ok || userID == "" {
			s.logger.Warnf("No owner for roster %d while assigning season %d place %d", rosterID, year, place)
			return
		}
		rec := managersDoc.Manager(userID)
		rec.Career.Placements.Add(place, year)
		rec.Season(year).Placement = place
	}
	assign(first, 1)
	assign(second, 2)
	if third >= 0 {
		assign(third, 3)
	}

	s.logger.WithFields(logrus.Fields{"season": year}).Info("Assigned season placements")
	return s.store.SaveAll(ctx)
}

// lastScoredWeek determines how deep into a season the provider has scored
// results. Completed leagues derive it from the bracket depth; live ones
// report it directly.
func (s *UpdaterService) lastScoredWeek(ctx context.Context, league *ffa.League, state *ffa.SportState) (int, error) {
	if league.Status == "complete" {
		bracket, err := s.provider.WinnersBracket(ctx, league.LeagueID)
		if err != nil {
			return 0, err
		}
		rounds := bracketMaxRound(bracket)
		if rounds > 0 && league.Settings.PlayoffWeekStart > 0 {
			return league.Settings.PlayoffWeekStart + rounds - 1, nil
		}
		return league.Settings.LastScoredLeg, nil
	}

	if league.Settings.LastScoredLeg > 0 {
		return league.Settings.LastScoredLeg, nil
	}
	// Early-season league that has not filled last_scored_leg yet.
	if league.Season == state.Season && state.SeasonType == "regular" && state.Leg > 0 {
		return state.Leg - 1, nil
	}
	return 0, nil
}

// weeksNeeding lists the weeks of a season the marker has not covered, in
// ascending order.
func weeksNeeding(marker ffa.ProgressMarker, year, lastScored int) []int {
	var weeks []int
	for w := 1; w <= lastScored; w++ {
		if !marker.Covers(year, w) {
			weeks = append(weeks, w)
		}
	}
	return weeks
}

func (s *UpdaterService) beginRun(trigger string) *models.PipelineRun {
	run := &models.PipelineRun{
		ID:        uuid.New(),
		Trigger:   trigger,
		Status:    models.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if s.db != nil {
		if err := s.db.Create(run).Error; err != nil {
			s.logger.Warnf("Failed to record pipeline run: %v", err)
		}
	}
	return run
}

func (s *UpdaterService) recordWeek(run *models.PipelineRun, year, week int) {
	run.WeeksProcessed = append(run.WeeksProcessed, fmt.Sprintf("%d/%d", year, week))
	found := false
	for _, y := range run.SeasonsProcessed {
		if y == int64(year) {
			found = true
			break
		}
	}
	if !found {
		run.SeasonsProcessed = append(run.SeasonsProcessed, int64(year))
	}
	if s.db != nil {
		err := s.db.Model(run).Updates(map[string]interface{}{
			"weeks_processed":   run.WeeksProcessed,
			"seasons_processed": run.SeasonsProcessed,
		}).Error
		if err != nil {
			s.logger.Warnf("Failed to update pipeline run progress: %v", err)
		}
	}
}

func (s *UpdaterService) finishRun(run *models.PipelineRun, status string, runErr error) {
	now := time.Now().UTC()
	run.Status = status
	run.FinishedAt = &now
	if runErr != nil {
		run.Error = runErr.Error()
	}
	if s.db != nil {
		if err := s.db.Save(run).Error; err != nil {
			s.logger.Warnf("Failed to finalize pipeline run: %v", err)
		}
	}
}

func (s *UpdaterService) sendAlert(message string) {
	if s.Alerts == nil {
		return
	}
	if err := s.Alerts.Send(context.Background(), message); err != nil {
		s.logger.Warnf("Failed to send alert: %v", err)
	}
}

func (s *UpdaterService) invalidateAPICache() {
	if s.APICache == nil {
		return
	}
	if err := s.APICache.Delete(context.Background(), APICacheKeys()...); err != nil {
		s.logger.Warnf("Failed to invalidate API cache: %v", err)
	}
}

func (s *UpdaterService) publish(eventType string, season, week int, message string) {
	if s.Hub == nil {
		return
	}
	s.Hub.Broadcast(UpdateEvent{
		Type:    eventType,
		Season:  season,
		Week:    week,
		Message: message,
		Time:    time.Now().UTC(),
	})
}
