package services

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/league-analytics/internal/cache"
	"github.com/jstittsworth/league-analytics/internal/ffa"
)

// TransactionService classifies raw league transactions and folds them into
// the per-week, per-season and career tallies on the managers document. The
// stored per-week ledger keeps enough detail to replay every update with an
// inverted sign, which is how reversal works.
type TransactionService struct {
	store   cache.Store
	logger  *logrus.Logger
	session *weekSession
}

// NewTransactionService creates a transaction processor.
func NewTransactionService(store cache.Store, logger *logrus.Logger) *TransactionService {
	return &TransactionService{
		store:  store,
		logger: logger,
	}
}

// SetSession installs the shared week state before ingestion.
func (s *TransactionService) SetSession(sess *weekSession) {
	s.session = sess
}

// ClearSession removes the shared week state.
func (s *TransactionService) ClearSession() {
	s.session = nil
}

// IngestWeek classifies and applies the week's raw transactions. A
// transaction id already present in the week's processed list is skipped, so
// re-ingestion is a no-op.
func (s *TransactionService) IngestWeek(raw []ffa.RawTransaction) error {
	if s.session == nil {
		return fmt.Errorf("transaction session not set")
	}

	managersDoc, err := cache.Managers(s.store)
	if err != nil {
		return err
	}
	txDoc, err := cache.Transactions(s.store)
	if err != nil {
		return err
	}
	ledger := txDoc.Week(s.session.Year, s.session.Week)

	ingested := 0
	for i := range raw {
		tx, ok := s.classify(&raw[i])
		if !ok {
			continue
		}
		if ledger.Seen(tx.TransactionID()) {
			s.logger.WithFields(logrus.Fields{
				"transaction": tx.TransactionID(),
				"week":        s.session.Week,
			}).Debug("Transaction already processed, skipping")
			continue
		}

		st := s.buildStored(tx)
		s.apply(managersDoc, st, 1)
		ledger.Put(st)
		ingested++
	}

	if ingested > 0 {
		s.logger.WithFields(logrus.Fields{
			"season":       s.session.Year,
			"week":         s.session.Week,
			"transactions": ingested,
		}).Info("Ingested transactions")
	}
	return nil
}

// classify turns a raw provider transaction into its typed variant. Records
// that are not actionable (pending, failed, or missing required fields) are
// skipped; required-field anomalies are logged.
func (s *TransactionService) classify(raw *ffa.RawTransaction) (ffa.Transaction, bool) {
	if raw.Status != "complete" {
		return nil, false
	}
	if raw.TransactionID == "" {
		s.logger.Warnf("Skipping transaction with no id (type %s, week %d)", raw.Type, s.session.Week)
		return nil, false
	}

	switch raw.Type {
	case "trade":
		return s.classifyTrade(raw, false)
	case "commissioner":
		// A commissioner action touching one player is a forced add/drop;
		// touching more than one is a forced trade.
		if len(raw.Adds)+len(raw.Drops)+len(raw.DraftPicks) > 1 {
			return s.classifyTrade(raw, true)
		}
		return s.classifyMove(raw, true)
	case "waiver", "free_agent":
		return s.classifyMove(raw, false)
	default:
		s.logger.Warnf("Skipping transaction %s with unknown type %q", raw.TransactionID, raw.Type)
		return nil, false
	}
}

func (s *TransactionService) classifyTrade(raw *ffa.RawTransaction, forced bool) (ffa.Transaction, bool) {
	trade := &ffa.TradeDetail{
		ID:     raw.TransactionID,
		Gained: make(map[string][]string),
		Lost:   make(map[string][]string),
		Forced: forced,
	}

	for _, rosterID := range raw.RosterIDs {
		userID, ok := s.session.managerFor(rosterID)
		if !ok {
			s.logger.Warnf("Skipping transaction %s: no manager for roster %d", raw.TransactionID, rosterID)
			return nil, false
		}
		trade.Managers = append(trade.Managers, userID)
	}

	for playerID, rosterID := range raw.Adds {
		userID, ok := s.session.managerFor(rosterID)
		if !ok {
			s.logger.Warnf("Skipping transaction %s: no manager for roster %d", raw.TransactionID, rosterID)
			return nil, false
		}
		trade.Gained[userID] = append(trade.Gained[userID], playerID)
	}
	for playerID, rosterID := range raw.Drops {
		userID, ok := s.session.managerFor(rosterID)
		if !ok {
			s.logger.Warnf("Skipping transaction %s: no manager for roster %d", raw.TransactionID, rosterID)
			return nil, false
		}
		trade.Lost[userID] = append(trade.Lost[userID], playerID)
	}

	for i := range raw.DraftPicks {
		pick := &raw.DraftPicks[i]
		receiver, okR := s.session.managerFor(pick.OwnerID)
		sender, okS := s.session.managerFor(pick.PreviousOwnerID)
		if !okR || !okS {
			s.logger.Warnf("Skipping transaction %s: draft pick with unknown roster", raw.TransactionID)
			return nil, false
		}
		asset := s.draftPickAsset(pick)
		trade.Gained[receiver] = append(trade.Gained[receiver], asset)
		trade.Lost[sender] = append(trade.Lost[sender], asset)
	}

	if s.session.UsesFAAB && len(raw.WaiverBudget) > 0 {
		trade.FAABDelta = make(map[string]int)
		for _, transfer := range raw.WaiverBudget {
			receiver, okR := s.session.managerFor(transfer.Receiver)
			sender, okS := s.session.managerFor(transfer.Sender)
			if !okR || !okS {
				s.logger.Warnf("Skipping transaction %s: budget transfer with unknown roster", raw.TransactionID)
				return nil, false
			}
			trade.FAABDelta[receiver] += transfer.Amount
			trade.FAABDelta[sender] -= transfer.Amount
		}
	}

	if len(trade.Managers) == 0 {
		s.logger.Warnf("Skipping trade %s with no managers", raw.TransactionID)
		return nil, false
	}
	for userID := range trade.Gained {
		sort.Strings(trade.Gained[userID])
	}
	for userID := range trade.Lost {
		sort.Strings(trade.Lost[userID])
	}
	return trade, true
}

// classifyMove handles single-manager moves: waiver claims, free-agent
// pickups, drops, and commissioner-forced single adds or drops.
func (s *TransactionService) classifyMove(raw *ffa.RawTransaction, forced bool) (ffa.Transaction, bool) {
	if len(raw.Adds) == 0 && len(raw.Drops) == 0 {
		s.logger.Warnf("Skipping transaction %s with no adds or drops", raw.TransactionID)
		return nil, false
	}

	var userID string
	var added, dropped []string
	for playerID, rosterID := range raw.Adds {
		owner, ok := s.session.managerFor(rosterID)
		if !ok {
			s.logger.Warnf("Skipping transaction %s: no manager for roster %d", raw.TransactionID, rosterID)
			return nil, false
		}
		userID = owner
		added = append(added, playerID)
	}
	for playerID, rosterID := range raw.Drops {
		owner, ok := s.session.managerFor(rosterID)
		if !ok {
			s.logger.Warnf("Skipping transaction %s: no manager for roster %d", raw.TransactionID, rosterID)
			return nil, false
		}
		userID = owner
		dropped = append(dropped, playerID)
	}
	sort.Strings(added)
	sort.Strings(dropped)

	bid := 0
	if s.session.UsesFAAB && raw.Type == "waiver" && raw.Settings != nil {
		bid = raw.Settings.WaiverBid
	}

	switch {
	case forced:
		return &ffa.AddDropDetail{
			ID:      raw.TransactionID,
			Manager: userID,
			Added:   added,
			Dropped: dropped,
			Forced:  true,
		}, true
	case len(added) > 0 && len(dropped) > 0:
		return &ffa.AddDropDetail{
			ID:      raw.TransactionID,
			Manager: userID,
			Added:   added,
			Dropped: dropped,
			Bid:     bid,
		}, true
	case len(added) > 0:
		return &ffa.AddDetail{
			ID:      raw.TransactionID,
			Manager: userID,
			Added:   added,
			Bid:     bid,
		}, true
	default:
		return &ffa.DropDetail{
			ID:      raw.TransactionID,
			Manager: userID,
			Dropped: dropped,
		}, true
	}
}

// draftPickAsset names a traded pick after the manager whose draft slot it
// is, so picks flow through the same accounting as players.
func (s *TransactionService) draftPickAsset(pick *ffa.DraftPick) string {
	owner := fmt.Sprintf("Roster %d", pick.RosterID)
	if userID, ok := s.session.managerFor(pick.RosterID); ok {
		owner = s.session.nameFor(userID)
	}
	return fmt.Sprintf("%s's %s Round %d Draft Pick", owner, pick.Season, pick.Round)
}

// buildStored converts a classified transaction into its ledger form.
func (s *TransactionService) buildStored(tx ffa.Transaction) *cache.StoredTransaction {
	st := &cache.StoredTransaction{
		ID:           tx.TransactionID(),
		Kind:         tx.Kind(),
		Year:         s.session.Year,
		Week:         s.session.Week,
		Commissioner: tx.Commissioner(),
		Gained:       tx.AssetsGained(),
		Lost:         tx.AssetsLost(),
	}

	switch v := tx.(type) {
	case *ffa.TradeDetail:
		st.Managers = v.Managers
		if len(v.FAABDelta) > 0 {
			st.FAABDelta = v.FAABDelta
		}
	case *ffa.AddDetail:
		st.Managers = []string{v.Manager}
		if v.Bid > 0 {
			st.Bids = map[string]int{v.Manager: v.Bid}
		}
	case *ffa.DropDetail:
		st.Managers = []string{v.Manager}
	case *ffa.AddDropDetail:
		st.Managers = []string{v.Manager}
		if v.Bid > 0 {
			st.Bids = map[string]int{v.Manager: v.Bid}
		}
	}
	return st
}

// apply folds a stored transaction into every aggregation level for every
// involved manager. sign is +1 on ingest and -1 on reversal; both paths run
// the same code so a reversal restores exactly the pre-ingest state.
func (s *TransactionService) apply(doc *cache.ManagersDoc, st *cache.StoredTransaction, sign int) {
	for _, userID := range st.Managers {
		rec := doc.Manager(userID)
		season := rec.Season(st.Year)
		scopes := []*cache.TransactionTotals{
			rec.Career.Transactions,
			season.Transactions,
			season.Week(st.Week),
		}
		for _, scope := range scopes {
			s.applyScope(scope, st, userID, sign)
		}
		season.PruneWeek(st.Week)
	}
}

func (s *TransactionService) applyScope(t *cache.TransactionTotals, st *cache.StoredTransaction, userID string, sign int) {
	switch st.Kind {
	case ffa.KindTrade:
		t.Trades += sign
		for _, partner := range st.Managers {
			if partner != userID {
				t.AddTradePartner(partner, sign)
			}
		}
	case ffa.KindAdd:
		t.Adds += sign
	case ffa.KindDrop:
		t.Drops += sign
	case ffa.KindAddAndDrop:
		if len(st.Gained[userID]) > 0 {
			t.Adds += sign
		}
		if len(st.Lost[userID]) > 0 {
			t.Drops += sign
		}
	}

	for _, asset := range st.Gained[userID] {
		t.Acquire(asset, st.CounterpartyFor(asset, userID), sign)
	}
	for _, asset := range st.Lost[userID] {
		t.Send(asset, st.RecipientFor(asset, userID), sign)
	}

	if bid := st.Bids[userID]; bid != 0 {
		t.FAABSpent += sign * bid
	}
	if delta := st.FAABDelta[userID]; delta != 0 {
		t.FAABTraded += sign * delta
	}
}
