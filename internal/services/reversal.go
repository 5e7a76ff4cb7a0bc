package services

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/league-analytics/internal/cache"
	"github.com/jstittsworth/league-analytics/internal/ffa"
)

// SweepReversals scans the week's processed transactions for pairs whose
// asset movements mirror each other and removes both: the tallies are
// re-applied with an inverted sign, the stored records are deleted, and the
// ids leave the processed list. A consumed set guarantees no transaction is
// ever matched twice. The scan is quadratic on one week's transaction
// count, which is bounded by a single league's weekly volume.
func (s *TransactionService) SweepReversals() error {
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

	worklist := append([]string(nil), ledger.Processed...)
	consumed := make(map[string]bool)

	for i := 0; i < len(worklist); i++ {
		if consumed[worklist[i]] {
			continue
		}
		candidate := ledger.ByID[worklist[i]]
		if candidate == nil {
			continue
		}

		for j := i + 1; j < len(worklist); j++ {
			if consumed[worklist[j]] {
				continue
			}
			partner := ledger.ByID[worklist[j]]
			if partner == nil || !reversalPair(candidate, partner) {
				continue
			}

			s.apply(managersDoc, candidate, -1)
			s.apply(managersDoc, partner, -1)
			ledger.Remove(candidate.ID)
			ledger.Remove(partner.ID)
			consumed[candidate.ID] = true
			consumed[partner.ID] = true

			s.logger.WithFields(logrus.Fields{
				"season":      s.session.Year,
				"week":        s.session.Week,
				"transaction": candidate.ID,
				"reversed_by": partner.ID,
			}).Info("Removed reversed transaction pair")
			break
		}
	}
	return nil
}

// reversalPair reports whether two transactions cancel each other: the
// first's gained assets are exactly the second's lost assets and vice
// versa, and either one is a commissioner action or both are trades.
func reversalPair(a, b *cache.StoredTransaction) bool {
	if !a.Commissioner && !b.Commissioner &&
		!(a.Kind == ffa.KindTrade && b.Kind == ffa.KindTrade) {
		return false
	}
	return assetMapsEqual(a.Gained, b.Lost) && assetMapsEqual(a.Lost, b.Gained)
}

// assetMapsEqual compares two manager->assets maps as sets, ignoring order
// and treating missing and empty entries alike.
func assetMapsEqual(a, b map[string][]string) bool {
	for manager, assets := range a {
		if len(assets) > 0 && !sameAssets(assets, b[manager]) {
			return false
		}
	}
	for manager, assets := range b {
		if len(assets) > 0 && !sameAssets(assets, a[manager]) {
			return false
		}
	}
	return true
}

func sameAssets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
