package ffa

import (
	"strconv"
)

// Position is a fantasy-relevant NFL position.
type Position string

const (
	PositionQB  Position = "QB"
	PositionRB  Position = "RB"
	PositionWR  Position = "WR"
	PositionTE  Position = "TE"
	PositionK   Position = "K"
	PositionDEF Position = "DEF"
)

// NFLTeamCount is the number of franchises; teams absent from a week's stat
// sheet are on bye.
const NFLTeamCount = 32

// ReplacementRanks maps each position to the depth-chart rank used as its
// replacement baseline: the Nth-best score at the position for a week.
var ReplacementRanks = map[Position]int{
	PositionQB:  13,
	PositionTE:  13,
	PositionK:   13,
	PositionDEF: 13,
	PositionRB:  31,
	PositionWR:  31,
}

// Positions lists every position tracked by the analytics pipeline.
var Positions = []Position{PositionQB, PositionRB, PositionWR, PositionTE, PositionK, PositionDEF}

// EligiblePosition reports whether a catalog position participates in
// replacement ranking and WAR simulation.
func EligiblePosition(p Position) bool {
	_, ok := ReplacementRanks[p]
	return ok
}

// SeasonLeague binds a season year to the Sleeper league id that hosted it.
type SeasonLeague struct {
	Year     int    `json:"year"`
	LeagueID string `json:"league_id"`
}

// SeasonList is an ascending-by-year list of configured seasons.
type SeasonList []SeasonLeague

// LeagueID returns the league id configured for a year, or "" when the year
// is not configured.
func (s SeasonList) LeagueID(year int) string {
	for _, sl := range s {
		if sl.Year == year {
			return sl.LeagueID
		}
	}
	return ""
}

// Contains reports whether a year is configured.
func (s SeasonList) Contains(year int) bool {
	return s.LeagueID(year) != ""
}

// League is the Sleeper league document for one season.
type League struct {
	LeagueID         string             `json:"league_id"`
	Name             string             `json:"name"`
	Season           string             `json:"season"`
	Status           string             `json:"status"` // "pre_draft", "drafting", "in_season", "complete"
	PreviousLeagueID string             `json:"previous_league_id"`
	Settings         LeagueSettings     `json:"settings"`
	ScoringSettings  map[string]float64 `json:"scoring_settings"`
	RosterPositions  []string           `json:"roster_positions"`
}

// LeagueSettings carries the subset of Sleeper league settings the pipeline
// reads.
type LeagueSettings struct {
	NumTeams         int `json:"num_teams"`
	PlayoffWeekStart int `json:"playoff_week_start"`
	WaiverType       int `json:"waiver_type"` // 2 = FAAB auction
	WaiverBudget     int `json:"waiver_budget"`
	Leg              int `json:"leg"`
	LastScoredLeg    int `json:"last_scored_leg"`
}

// UsesFAAB reports whether the season runs a free-agent auction budget.
func (l *League) UsesFAAB() bool {
	return l.Settings.WaiverType == 2
}

// Year parses the league's season string.
func (l *League) Year() int {
	y, _ := strconv.Atoi(l.Season)
	return y
}

// Roster maps a league roster slot to its owning user for a season.
type Roster struct {
	RosterID int      `json:"roster_id"`
	OwnerID  string   `json:"owner_id"`
	Players  []string `json:"players"`
	Starters []string `json:"starters"`
}

// LeagueUser is a league member.
type LeagueUser struct {
	UserID      string            `json:"user_id"`
	DisplayName string            `json:"display_name"`
	Metadata    map[string]string `json:"metadata"`
}

// TeamName prefers the user's custom team name over their display name.
func (u *LeagueUser) TeamName() string {
	if name, ok := u.Metadata["team_name"]; ok && name != "" {
		return name
	}
	return u.DisplayName
}

// Matchup is one roster's side of a head-to-head pairing for a week. Two
// rosters sharing a MatchupID form the pairing.
type Matchup struct {
	RosterID      int                `json:"roster_id"`
	MatchupID     *int               `json:"matchup_id"`
	Points        float64            `json:"points"`
	Players       []string           `json:"players"`
	Starters      []string           `json:"starters"`
	PlayersPoints map[string]float64 `json:"players_points"`
}

// RawTransaction is the Sleeper wire form of a league transaction before
// classification.
type RawTransaction struct {
	TransactionID string           `json:"transaction_id"`
	Type          string           `json:"type"` // "trade", "waiver", "free_agent", "commissioner"
	Status        string           `json:"status"`
	Leg           int              `json:"leg"`
	Creator       string           `json:"creator"`
	RosterIDs     []int            `json:"roster_ids"`
	Adds          map[string]int   `json:"adds"`  // player id -> receiving roster id
	Drops         map[string]int   `json:"drops"` // player id -> releasing roster id
	DraftPicks    []DraftPick      `json:"draft_picks"`
	WaiverBudget  []BudgetTransfer `json:"waiver_budget"`
	Settings      *TxSettings      `json:"settings"`
}

// TxSettings holds per-transaction settings; only the winning FAAB bid is
// used.
type TxSettings struct {
	WaiverBid int `json:"waiver_bid"`
}

// DraftPick is a traded future draft pick. RosterID identifies the original
// owner of the pick, PreviousOwnerID the sender and OwnerID the receiver in
// this transaction.
type DraftPick struct {
	Season          string `json:"season"`
	Round           int    `json:"round"`
	RosterID        int    `json:"roster_id"`
	PreviousOwnerID int    `json:"previous_owner_id"`
	OwnerID         int    `json:"owner_id"`
}

// BudgetTransfer moves FAAB between rosters as part of a trade.
type BudgetTransfer struct {
	Sender   int `json:"sender"`
	Receiver int `json:"receiver"`
	Amount   int `json:"amount"`
}

// BracketRef points at an earlier bracket matchup whose winner or loser
// feeds this slot.
type BracketRef struct {
	Winner int `json:"w"`
	Loser  int `json:"l"`
}

// BracketMatchup is one game of the postseason winners bracket.
type BracketMatchup struct {
	Round     int         `json:"r"`
	MatchupID int         `json:"m"`
	Team1     *int        `json:"t1"`
	Team2     *int        `json:"t2"`
	Winner    *int        `json:"w"`
	Loser     *int        `json:"l"`
	Team1From *BracketRef `json:"t1_from"`
	Team2From *BracketRef `json:"t2_from"`
	Place     *int        `json:"p"` // 1 = championship, 3 = third-place game
}

// SportState is the provider's view of where the NFL season currently
// stands.
type SportState struct {
	Week           int    `json:"week"`
	Leg            int    `json:"leg"`
	Season         string `json:"season"`
	SeasonType     string `json:"season_type"`
	PreviousSeason string `json:"previous_season"`
}

// StatLine is a raw per-entity stat map for one week (stat name -> value).
type StatLine map[string]float64

// FantasyScore converts a stat line to points under a season's scoring
// settings. Stats without a configured weight contribute nothing.
func (s StatLine) FantasyScore(scoring map[string]float64) float64 {
	total := 0.0
	for stat, weight := range scoring {
		if v, ok := s[stat]; ok {
			total += v * weight
		}
	}
	return total
}

// PlayerInfo is a player catalog entry.
type PlayerInfo struct {
	PlayerID         string   `json:"player_id"`
	FullName         string   `json:"full_name"`
	Position         string   `json:"position"`
	FantasyPositions []string `json:"fantasy_positions"`
	Team             string   `json:"team"`
}

// CatalogPosition resolves the position used for ranking and simulation.
func (p *PlayerInfo) CatalogPosition() Position {
	if p.Position != "" {
		return Position(p.Position)
	}
	if len(p.FantasyPositions) > 0 {
		return Position(p.FantasyPositions[0])
	}
	return ""
}

// WarResult is one player's simulated wins-above-replacement outcome for a
// week. DisplayOnly marks results computed for presentation (a starter with
// no recorded stat line scores 0.0) that must not be persisted against the
// player.
type WarResult struct {
	PlayerID    string  `json:"player_id"`
	Name        string  `json:"name"`
	Position    string  `json:"position"`
	War         float64 `json:"war"`
	Points      float64 `json:"points"`
	StartedBy   string  `json:"started_by,omitempty"`
	Started     bool    `json:"started"`
	DisplayOnly bool    `json:"display_only,omitempty"`
}

// ProgressMarker records the last fully processed (season, week). The zero
// value means nothing has been processed.
type ProgressMarker struct {
	Season int `json:"season"`
	Week   int `json:"week"`
}

// Covers reports whether the marker already covers the given week.
func (m ProgressMarker) Covers(season, week int) bool {
	if season != m.Season {
		return season < m.Season
	}
	return week <= m.Week
}
