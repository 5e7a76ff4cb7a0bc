package cache

// ManagersDoc aggregates every manager's head-to-head and transaction
// history across all configured seasons. It is keyed by the provider user id
// so records survive display-name changes.
type ManagersDoc struct {
	Managers map[string]*ManagerRecord `json:"managers"`
}

// NewManagersDoc returns an empty managers document.
func NewManagersDoc() *ManagersDoc {
	return &ManagersDoc{Managers: make(map[string]*ManagerRecord)}
}

// Manager returns the record for a user id, creating it on first sight.
func (d *ManagersDoc) Manager(userID string) *ManagerRecord {
	if d.Managers == nil {
		d.Managers = make(map[string]*ManagerRecord)
	}
	rec, ok := d.Managers[userID]
	if !ok {
		rec = &ManagerRecord{
			UserID:  userID,
			Career:  NewCareerRecord(),
			Seasons: make(map[int]*SeasonRecord),
		}
		d.Managers[userID] = rec
	}
	return rec
}

// ManagerRecord is one manager's full history. DisplayName and TeamName are
// refreshed on every run; everything else accumulates.
type ManagerRecord struct {
	UserID      string                `json:"user_id"`
	DisplayName string                `json:"display_name"`
	TeamName    string                `json:"team_name,omitempty"`
	Career      *CareerRecord         `json:"career"`
	Seasons     map[int]*SeasonRecord `json:"seasons"`
}

// Season returns the manager's record for a year, creating it on first
// sight.
func (r *ManagerRecord) Season(year int) *SeasonRecord {
	if r.Seasons == nil {
		r.Seasons = make(map[int]*SeasonRecord)
	}
	s, ok := r.Seasons[year]
	if !ok {
		s = &SeasonRecord{
			Matchups:     NewMatchupLevels(),
			Transactions: &TransactionTotals{},
		}
		r.Seasons[year] = s
	}
	return s
}

// CareerRecord aggregates across every season the manager appeared in.
type CareerRecord struct {
	Matchups           *MatchupLevels     `json:"matchups"`
	Transactions       *TransactionTotals `json:"transactions"`
	PlayoffAppearances []int              `json:"playoff_appearances,omitempty"`
	Placements         PlacementTally     `json:"placements"`
}

// NewCareerRecord returns a zeroed career record with all scopes
// initialized.
func NewCareerRecord() *CareerRecord {
	return &CareerRecord{
		Matchups:     NewMatchupLevels(),
		Transactions: &TransactionTotals{},
	}
}

// AddPlayoffAppearance appends a season to the appearance list once.
// Repeated calls for the same season are no-ops.
func (c *CareerRecord) AddPlayoffAppearance(season int) bool {
	for _, s := range c.PlayoffAppearances {
		if s == season {
			return false
		}
	}
	c.PlayoffAppearances = append(c.PlayoffAppearances, season)
	return true
}

// PlacementTally lists the seasons a manager finished first, second and
// third.
type PlacementTally struct {
	First  []int `json:"first,omitempty"`
	Second []int `json:"second,omitempty"`
	Third  []int `json:"third,omitempty"`
}

// Add records a podium finish for a season once.
func (p *PlacementTally) Add(place, season int) bool {
	var list *[]int
	switch place {
	case 1:
		list = &p.First
	case 2:
		list = &p.Second
	case 3:
		list = &p.Third
	default:
		return false
	}
	for _, s := range *list {
		if s == season {
			return false
		}
	}
	*list = append(*list, season)
	return true
}

// SeasonRecord is one manager's record for a single season.
type SeasonRecord struct {
	RosterID     int                        `json:"roster_id"`
	Matchups     *MatchupLevels             `json:"matchups"`
	Transactions *TransactionTotals         `json:"transactions"`
	Weekly       map[int]*TransactionTotals `json:"weekly_transactions,omitempty"`
	MadePlayoffs bool                       `json:"made_playoffs,omitempty"`
	Placement    int                        `json:"placement,omitempty"`
}

// Week returns the season's transaction tally for a week, creating it on
// first sight.
func (s *SeasonRecord) Week(week int) *TransactionTotals {
	if s.Weekly == nil {
		s.Weekly = make(map[int]*TransactionTotals)
	}
	t, ok := s.Weekly[week]
	if !ok {
		t = &TransactionTotals{}
		s.Weekly[week] = t
	}
	return t
}

// PruneWeek drops a week's tally once a reversal has emptied it, so the
// document looks as if the week's transactions never happened.
func (s *SeasonRecord) PruneWeek(week int) {
	if t, ok := s.Weekly[week]; ok && t.IsZero() {
		delete(s.Weekly, week)
	}
}

// MatchupLevels splits one aggregation scope into overall, regular-season
// and playoff views.
type MatchupLevels struct {
	Overall *MatchupRecord `json:"overall"`
	Regular *MatchupRecord `json:"regular_season"`
	Playoff *MatchupRecord `json:"playoffs"`
}

// NewMatchupLevels returns levels with every view initialized.
func NewMatchupLevels() *MatchupLevels {
	return &MatchupLevels{
		Overall: &MatchupRecord{},
		Regular: &MatchupRecord{},
		Playoff: &MatchupRecord{},
	}
}

// Phase returns the regular-season or playoff view.
func (l *MatchupLevels) Phase(playoff bool) *MatchupRecord {
	if playoff {
		return l.Playoff
	}
	return l.Regular
}

// MatchupRecord tallies head-to-head results for one scope. Wins, losses
// and ties always sum to the matchup count.
type MatchupRecord struct {
	Matchups      CountTally `json:"matchups"`
	Wins          CountTally `json:"wins"`
	Losses        CountTally `json:"losses"`
	Ties          CountTally `json:"ties"`
	PointsFor     PointTally `json:"points_for"`
	PointsAgainst PointTally `json:"points_against"`
}

// Record applies one head-to-head result against an opponent. The outcome
// is derived from the points so the win/loss/tie split can never drift from
// the matchup count.
func (m *MatchupRecord) Record(opponent string, pointsFor, pointsAgainst float64) {
	m.Matchups.Add(opponent, 1)
	m.PointsFor.Add(opponent, pointsFor)
	m.PointsAgainst.Add(opponent, pointsAgainst)
	switch {
	case pointsFor > pointsAgainst:
		m.Wins.Add(opponent, 1)
	case pointsFor < pointsAgainst:
		m.Losses.Add(opponent, 1)
	default:
		m.Ties.Add(opponent, 1)
	}
}

// CountTally is an integer total with a per-opponent breakdown.
type CountTally struct {
	Total      int            `json:"total"`
	ByOpponent map[string]int `json:"by_opponent,omitempty"`
}

// Add bumps the total and the opponent breakdown, pruning opponents that
// return to zero.
func (t *CountTally) Add(opponent string, delta int) {
	t.Total += delta
	if opponent == "" {
		return
	}
	if t.ByOpponent == nil {
		t.ByOpponent = make(map[string]int)
	}
	t.ByOpponent[opponent] += delta
	if t.ByOpponent[opponent] == 0 {
		delete(t.ByOpponent, opponent)
	}
}

// PointTally is a float total with a per-opponent breakdown.
type PointTally struct {
	Total      float64            `json:"total"`
	ByOpponent map[string]float64 `json:"by_opponent,omitempty"`
}

// Add bumps the total and the opponent breakdown.
func (t *PointTally) Add(opponent string, delta float64) {
	t.Total += delta
	if opponent == "" {
		return
	}
	if t.ByOpponent == nil {
		t.ByOpponent = make(map[string]float64)
	}
	t.ByOpponent[opponent] += delta
}

// TransactionTotals tallies a manager's transaction activity for one scope
// (week, season or career). All fields reverse cleanly: applying a
// transaction with inverted sign restores the previous state.
type TransactionTotals struct {
	Trades         int                   `json:"trades,omitempty"`
	Adds           int                   `json:"adds,omitempty"`
	Drops          int                   `json:"drops,omitempty"`
	TradePartners  map[string]int        `json:"trade_partners,omitempty"`
	AssetsAcquired map[string]*AssetFlow `json:"assets_acquired,omitempty"`
	AssetsSent     map[string]*AssetFlow `json:"assets_sent,omitempty"`
	FAABSpent      int                   `json:"faab_spent,omitempty"`
	FAABTraded     int                   `json:"faab_traded,omitempty"`
}

// AssetFlow counts how often one asset moved, with the managers on the
// other side of each move.
type AssetFlow struct {
	Count          int            `json:"count"`
	Counterparties map[string]int `json:"counterparties,omitempty"`
}

// AddTradePartner bumps the trade count against a partner, pruning partners
// that return to zero.
func (t *TransactionTotals) AddTradePartner(partner string, delta int) {
	if t.TradePartners == nil {
		t.TradePartners = make(map[string]int)
	}
	t.TradePartners[partner] += delta
	if t.TradePartners[partner] == 0 {
		delete(t.TradePartners, partner)
	}
}

// Acquire records an asset gained. The counterparty is empty for waiver and
// free-agent pickups.
func (t *TransactionTotals) Acquire(asset, from string, delta int) {
	t.AssetsAcquired = bumpFlow(t.AssetsAcquired, asset, from, delta)
}

// Send records an asset given up. The counterparty is empty for drops to
// the free-agent pool.
func (t *TransactionTotals) Send(asset, to string, delta int) {
	t.AssetsSent = bumpFlow(t.AssetsSent, asset, to, delta)
}

func bumpFlow(flows map[string]*AssetFlow, asset, counterparty string, delta int) map[string]*AssetFlow {
	if flows == nil {
		flows = make(map[string]*AssetFlow)
	}
	f, ok := flows[asset]
	if !ok {
		if delta <= 0 {
			return flows
		}
		f = &AssetFlow{}
		flows[asset] = f
	}
	f.Count += delta
	if counterparty != "" {
		if f.Counterparties == nil {
			f.Counterparties = make(map[string]int)
		}
		f.Counterparties[counterparty] += delta
		if f.Counterparties[counterparty] == 0 {
			delete(f.Counterparties, counterparty)
		}
	}
	if f.Count <= 0 {
		delete(flows, asset)
	}
	return flows
}

// IsZero reports whether every counter and map in the tally is empty.
func (t *TransactionTotals) IsZero() bool {
	return t.Trades == 0 && t.Adds == 0 && t.Drops == 0 &&
		len(t.TradePartners) == 0 && len(t.AssetsAcquired) == 0 && len(t.AssetsSent) == 0 &&
		t.FAABSpent == 0 && t.FAABTraded == 0
}
