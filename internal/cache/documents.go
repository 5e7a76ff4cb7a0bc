package cache

import (
	"fmt"

	"github.com/jstittsworth/league-analytics/internal/ffa"
)

// Document names understood by the store.
const (
	DocManagers     = "managers"
	DocTransactions = "transactions"
	DocReplacement  = "replacement_scores"
	DocPlayers      = "player_analytics"
	DocProgress     = "update_progress"
)

// builders maps each document name to its empty-document constructor. The
// store uses it both to create missing documents and to pick the type to
// unmarshal a stored row into.
var builders = map[string]func() any{
	DocManagers:     func() any { return NewManagersDoc() },
	DocTransactions: func() any { return NewTransactionsDoc() },
	DocReplacement:  func() any { return NewReplacementDoc() },
	DocPlayers:      func() any { return NewPlayersDoc() },
	DocProgress:     func() any { return &ProgressDoc{} },
}

// DocumentNames returns every document name the store manages.
func DocumentNames() []string {
	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}
	return names
}

// NewDocument returns an empty document of the named type.
func NewDocument(name string) (any, error) {
	build, ok := builders[name]
	if !ok {
		return nil, fmt.Errorf("unknown cache document %q", name)
	}
	return build(), nil
}

// TransactionsDoc keeps the per-week processed-transaction ledger. The
// ordered id list drives idempotency checks and reversal scanning; the
// stored records carry everything needed to undo a transaction.
type TransactionsDoc struct {
	Seasons map[int]*TransactionSeason `json:"seasons"`
}

// NewTransactionsDoc returns an empty transactions document.
func NewTransactionsDoc() *TransactionsDoc {
	return &TransactionsDoc{Seasons: make(map[int]*TransactionSeason)}
}

// Week returns the ledger for a season week, creating it on first sight.
func (d *TransactionsDoc) Week(year, week int) *WeekTransactions {
	if d.Seasons == nil {
		d.Seasons = make(map[int]*TransactionSeason)
	}
	season, ok := d.Seasons[year]
	if !ok {
		season = &TransactionSeason{Weeks: make(map[int]*WeekTransactions)}
		d.Seasons[year] = season
	}
	if season.Weeks == nil {
		season.Weeks = make(map[int]*WeekTransactions)
	}
	wk, ok := season.Weeks[week]
	if !ok {
		wk = &WeekTransactions{ByID: make(map[string]*StoredTransaction)}
		season.Weeks[week] = wk
	}
	return wk
}

// TransactionSeason groups a season's weekly transaction ledgers.
type TransactionSeason struct {
	Weeks map[int]*WeekTransactions `json:"weeks"`
}

// WeekTransactions is one week's ledger: the ordered list of ingested
// transaction ids and the stored record for each.
type WeekTransactions struct {
	Processed []string                      `json:"processed"`
	ByID      map[string]*StoredTransaction `json:"records"`
}

// Seen reports whether a transaction id was already ingested this week.
func (w *WeekTransactions) Seen(id string) bool {
	_, ok := w.ByID[id]
	return ok
}

// Put appends a transaction to the week's ledger.
func (w *WeekTransactions) Put(st *StoredTransaction) {
	if w.ByID == nil {
		w.ByID = make(map[string]*StoredTransaction)
	}
	w.Processed = append(w.Processed, st.ID)
	w.ByID[st.ID] = st
}

// Remove deletes a transaction record and its processed-list entry.
func (w *WeekTransactions) Remove(id string) {
	delete(w.ByID, id)
	for i, pid := range w.Processed {
		if pid == id {
			w.Processed = append(w.Processed[:i], w.Processed[i+1:]...)
			return
		}
	}
}

// StoredTransaction is the persisted form of a classified transaction,
// sufficient to replay or revert every aggregate it touched. Gained and
// Lost are keyed by manager user id; each asset in one manager's gained set
// appears in exactly one other manager's lost set for trades.
type StoredTransaction struct {
	ID           string              `json:"id"`
	Kind         ffa.TransactionKind `json:"kind"`
	Year         int                 `json:"year"`
	Week         int                 `json:"week"`
	Commissioner bool                `json:"commissioner,omitempty"`
	Managers     []string            `json:"managers"`
	Gained       map[string][]string `json:"gained,omitempty"`
	Lost         map[string][]string `json:"lost,omitempty"`
	FAABDelta    map[string]int      `json:"faab_delta,omitempty"`
	Bids         map[string]int      `json:"bids,omitempty"`
}

// CounterpartyFor returns the manager whose lost set contains the asset,
// skipping the receiving manager. Empty for pool moves.
func (st *StoredTransaction) CounterpartyFor(asset, receiver string) string {
	for manager, lost := range st.Lost {
		if manager == receiver {
			continue
		}
		for _, a := range lost {
			if a == asset {
				return manager
			}
		}
	}
	return ""
}

// RecipientFor returns the manager whose gained set contains the asset,
// skipping the sending manager. Empty for drops to the pool.
func (st *StoredTransaction) RecipientFor(asset, sender string) string {
	for manager, gained := range st.Gained {
		if manager == sender {
			continue
		}
		for _, a := range gained {
			if a == asset {
				return manager
			}
		}
	}
	return ""
}

// ReplacementDoc stores one record per processed (season, week): the bye
// count, the positional baselines under each relevant scoring era, and the
// bye-count-keyed three-year averages once enough history exists.
type ReplacementDoc struct {
	Seasons map[int]*ReplacementSeason `json:"seasons"`
}

// NewReplacementDoc returns an empty replacement-score document.
func NewReplacementDoc() *ReplacementDoc {
	return &ReplacementDoc{Seasons: make(map[int]*ReplacementSeason)}
}

// ReplacementSeason groups a season's weekly replacement records.
type ReplacementSeason struct {
	Weeks map[int]*ReplacementWeek `json:"weeks"`
}

// Week returns the record for a season week, creating it on first sight.
func (d *ReplacementDoc) Week(year, week int) *ReplacementWeek {
	if d.Seasons == nil {
		d.Seasons = make(map[int]*ReplacementSeason)
	}
	season, ok := d.Seasons[year]
	if !ok {
		season = &ReplacementSeason{Weeks: make(map[int]*ReplacementWeek)}
		d.Seasons[year] = season
	}
	if season.Weeks == nil {
		season.Weeks = make(map[int]*ReplacementWeek)
	}
	wk, ok := season.Weeks[week]
	if !ok {
		wk = &ReplacementWeek{}
		season.Weeks[week] = wk
	}
	return wk
}

// Lookup returns the record for a season week without creating it.
func (d *ReplacementDoc) Lookup(year, week int) (*ReplacementWeek, bool) {
	season, ok := d.Seasons[year]
	if !ok || season.Weeks == nil {
		return nil, false
	}
	wk, ok := season.Weeks[week]
	return wk, ok
}

// HasSeason reports whether any week of a season has been recorded.
func (d *ReplacementDoc) HasSeason(year int) bool {
	season, ok := d.Seasons[year]
	return ok && len(season.Weeks) > 0
}

// ReplacementWeek is the replacement-score record for one week. Baselines
// is keyed by scoring-era season then position; ThreeYear by position then
// bye count.
type ReplacementWeek struct {
	ByeTeams  int                        `json:"bye_teams"`
	Baselines map[int]map[string]float64 `json:"baselines,omitempty"`
	ThreeYear map[string]map[int]float64 `json:"three_year_avg,omitempty"`
}

// SetBaseline stores a position's baseline under a scoring era.
func (w *ReplacementWeek) SetBaseline(era int, pos ffa.Position, score float64) {
	if w.Baselines == nil {
		w.Baselines = make(map[int]map[string]float64)
	}
	if w.Baselines[era] == nil {
		w.Baselines[era] = make(map[string]float64)
	}
	w.Baselines[era][string(pos)] = score
}

// Baseline returns a position's baseline under a scoring era.
func (w *ReplacementWeek) Baseline(era int, pos ffa.Position) (float64, bool) {
	if w == nil || w.Baselines == nil {
		return 0, false
	}
	scores, ok := w.Baselines[era]
	if !ok {
		return 0, false
	}
	v, ok := scores[string(pos)]
	return v, ok
}

// ThreeYearAvg returns a position's three-year average for a bye count.
func (w *ReplacementWeek) ThreeYearAvg(pos ffa.Position, byes int) (float64, bool) {
	if w == nil || w.ThreeYear == nil {
		return 0, false
	}
	table, ok := w.ThreeYear[string(pos)]
	if !ok {
		return 0, false
	}
	v, ok := table[byes]
	return v, ok
}

// PlayersDoc stores per-player analytics keyed by provider player id.
type PlayersDoc struct {
	Players map[string]*PlayerAnalytics `json:"players"`
}

// NewPlayersDoc returns an empty player-analytics document.
func NewPlayersDoc() *PlayersDoc {
	return &PlayersDoc{Players: make(map[string]*PlayerAnalytics)}
}

// Player returns the analytics record for a player id, creating it on
// first sight.
func (d *PlayersDoc) Player(id string) *PlayerAnalytics {
	if d.Players == nil {
		d.Players = make(map[string]*PlayerAnalytics)
	}
	p, ok := d.Players[id]
	if !ok {
		p = &PlayerAnalytics{PlayerID: id}
		d.Players[id] = p
	}
	return p
}

// PlayerAnalytics is one player's simulated-WAR history. Name and Position
// are refreshed from the catalog on every write.
type PlayerAnalytics struct {
	PlayerID string                    `json:"player_id"`
	Name     string                    `json:"name"`
	Position string                    `json:"position"`
	War      map[int]map[int]*WarScore `json:"war,omitempty"`
}

// SetWar stores a week's WAR outcome for the player.
func (p *PlayerAnalytics) SetWar(year, week int, score *WarScore) {
	if p.War == nil {
		p.War = make(map[int]map[int]*WarScore)
	}
	if p.War[year] == nil {
		p.War[year] = make(map[int]*WarScore)
	}
	p.War[year][week] = score
}

// WarScore is one persisted player-week WAR outcome.
type WarScore struct {
	War       float64 `json:"war"`
	Points    float64 `json:"points"`
	StartedBy string  `json:"started_by,omitempty"`
	Started   bool    `json:"started"`
}

// ProgressDoc persists the pipeline's resume point.
type ProgressDoc struct {
	Marker ffa.ProgressMarker `json:"marker"`
}
