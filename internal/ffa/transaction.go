package ffa

// TransactionKind classifies a processed league transaction.
type TransactionKind string

const (
	KindTrade      TransactionKind = "trade"
	KindAdd        TransactionKind = "add"
	KindDrop       TransactionKind = "drop"
	KindAddAndDrop TransactionKind = "add_and_drop"
)

// Transaction is a classified league transaction. Each variant carries only
// the fields that apply to it; the shared surface exposes what the
// aggregation and reversal passes need.
type Transaction interface {
	TransactionID() string
	Kind() TransactionKind
	// Commissioner reports whether the transaction was forced by the
	// commissioner rather than agreed by the managers.
	Commissioner() bool
	// AssetsGained and AssetsLost map each involved manager to the asset
	// names (players and synthetic draft-pick assets) they received or gave
	// up.
	AssetsGained() map[string][]string
	AssetsLost() map[string][]string
}

// TradeDetail is a completed trade between two or more managers, or a
// commissioner action touching multiple players.
type TradeDetail struct {
	ID        string
	Managers  []string            // user ids of every involved manager
	Gained    map[string][]string // manager -> assets received
	Lost      map[string][]string // manager -> assets sent
	FAABDelta map[string]int      // manager -> net budget received (negative when sent)
	Forced    bool
}

func (t *TradeDetail) TransactionID() string             { return t.ID }
func (t *TradeDetail) Kind() TransactionKind             { return KindTrade }
func (t *TradeDetail) Commissioner() bool                { return t.Forced }
func (t *TradeDetail) AssetsGained() map[string][]string { return t.Gained }
func (t *TradeDetail) AssetsLost() map[string][]string   { return t.Lost }

// AddDetail is a waiver claim or free-agent pickup with no matching drop.
type AddDetail struct {
	ID      string
	Manager string
	Added   []string
	Bid     int // winning FAAB bid, 0 for non-auction claims
}

func (a *AddDetail) TransactionID() string { return a.ID }
func (a *AddDetail) Kind() TransactionKind { return KindAdd }
func (a *AddDetail) Commissioner() bool    { return false }
func (a *AddDetail) AssetsGained() map[string][]string {
	return map[string][]string{a.Manager: a.Added}
}
func (a *AddDetail) AssetsLost() map[string][]string { return map[string][]string{} }

// DropDetail releases players to the pool with no matching add.
type DropDetail struct {
	ID      string
	Manager string
	Dropped []string
}

func (d *DropDetail) TransactionID() string             { return d.ID }
func (d *DropDetail) Kind() TransactionKind             { return KindDrop }
func (d *DropDetail) Commissioner() bool                { return false }
func (d *DropDetail) AssetsGained() map[string][]string { return map[string][]string{} }
func (d *DropDetail) AssetsLost() map[string][]string {
	return map[string][]string{d.Manager: d.Dropped}
}

// AddDropDetail is a combined pickup-and-release by one manager. A
// commissioner-forced single add or drop is also modeled here, with the
// unused side empty.
type AddDropDetail struct {
	ID      string
	Manager string
	Added   []string
	Dropped []string
	Bid     int
	Forced  bool
}

func (a *AddDropDetail) TransactionID() string { return a.ID }
func (a *AddDropDetail) Kind() TransactionKind { return KindAddAndDrop }
func (a *AddDropDetail) Commissioner() bool    { return a.Forced }
func (a *AddDropDetail) AssetsGained() map[string][]string {
	if len(a.Added) == 0 {
		return map[string][]string{}
	}
	return map[string][]string{a.Manager: a.Added}
}
func (a *AddDropDetail) AssetsLost() map[string][]string {
	if len(a.Dropped) == 0 {
		return map[string][]string{}
	}
	return map[string][]string{a.Manager: a.Dropped}
}
