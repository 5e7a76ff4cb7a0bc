package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jstittsworth/league-analytics/internal/cache"
	"github.com/jstittsworth/league-analytics/internal/ffa"
)

func TestIngestWeekClassifiesMoves(t *testing.T) {
	store := cache.NewMemory()
	svc := NewTransactionService(store, testLogger())
	svc.SetSession(testSession(3, false))

	raw := []ffa.RawTransaction{
		{
			TransactionID: "t1",
			Type:          "waiver",
			Status:        "complete",
			Adds:          map[string]int{"p1": 1},
			Settings:      &ffa.TxSettings{WaiverBid: 17},
		},
		{
			TransactionID: "t2",
			Type:          "free_agent",
			Status:        "complete",
			Adds:          map[string]int{"p2": 2},
			Drops:         map[string]int{"p3": 2},
		},
		{
			TransactionID: "t3",
			Type:          "free_agent",
			Status:        "complete",
			Drops:         map[string]int{"p4": 1},
		},
		{
			TransactionID: "t4",
			Type:          "waiver",
			Status:        "failed",
			Adds:          map[string]int{"p9": 1},
		},
	}
	require.NoError(t, svc.IngestWeek(raw))

	doc := mustManagers(t, store)
	alice := doc.Manager("alice")
	assert.Equal(t, 1, alice.Career.Transactions.Adds)
	assert.Equal(t, 1, alice.Career.Transactions.Drops)
	assert.Equal(t, 17, alice.Career.Transactions.FAABSpent)
	assert.Equal(t, 1, alice.Seasons[2024].Transactions.Adds)
	assert.Equal(t, 1, alice.Seasons[2024].Weekly[3].Adds)
	require.Contains(t, alice.Career.Transactions.AssetsAcquired, "p1")
	assert.Equal(t, 1, alice.Career.Transactions.AssetsAcquired["p1"].Count)
	assert.Empty(t, alice.Career.Transactions.AssetsAcquired["p1"].Counterparties)

	bob := doc.Manager("bob")
	assert.Equal(t, 1, bob.Career.Transactions.Adds)
	assert.Equal(t, 1, bob.Career.Transactions.Drops)
	assert.Equal(t, 0, bob.Career.Transactions.FAABSpent, "free agent pickups carry no bid")

	ledger := mustTransactions(t, store).Week(2024, 3)
	assert.ElementsMatch(t, []string{"t1", "t2", "t3"}, ledger.Processed)
	assert.False(t, ledger.Seen("t4"), "failed transactions are never recorded")
}

func TestIngestWeekClassifiesTrade(t *testing.T) {
	store := cache.NewMemory()
	svc := NewTransactionService(store, testLogger())
	svc.SetSession(testSession(5, false))

	raw := []ffa.RawTransaction{{
		TransactionID: "trade1",
		Type:          "trade",
		Status:        "complete",
		RosterIDs:     []int{1, 2},
		Adds:          map[string]int{"p10": 1, "p20": 2},
		Drops:         map[string]int{"p10": 2, "p20": 1},
		WaiverBudget:  []ffa.BudgetTransfer{{Sender: 1, Receiver: 2, Amount: 30}},
	}}
	require.NoError(t, svc.IngestWeek(raw))

	doc := mustManagers(t, store)
	alice := doc.Manager("alice").Career.Transactions
	bob := doc.Manager("bob").Career.Transactions

	assert.Equal(t, 1, alice.Trades)
	assert.Equal(t, 1, bob.Trades)
	assert.Equal(t, map[string]int{"bob": 1}, alice.TradePartners)
	assert.Equal(t, map[string]int{"alice": 1}, bob.TradePartners)

	require.Contains(t, alice.AssetsAcquired, "p10")
	assert.Equal(t, map[string]int{"bob": 1}, alice.AssetsAcquired["p10"].Counterparties)
	require.Contains(t, alice.AssetsSent, "p20")
	assert.Equal(t, map[string]int{"bob": 1}, alice.AssetsSent["p20"].Counterparties)

	assert.Equal(t, -30, alice.FAABTraded)
	assert.Equal(t, 30, bob.FAABTraded)
	assert.Equal(t, 0, alice.FAABSpent, "traded budget is not spent budget")
}

func TestIngestWeekNamesDraftPickAssets(t *testing.T) {
	store := cache.NewMemory()
	svc := NewTransactionService(store, testLogger())
	svc.SetSession(testSession(5, false))

	raw := []ffa.RawTransaction{{
		TransactionID: "trade2",
		Type:          "trade",
		Status:        "complete",
		RosterIDs:     []int{1, 2},
		DraftPicks: []ffa.DraftPick{{
			Season:          "2025",
			Round:           1,
			RosterID:        3,
			PreviousOwnerID: 1,
			OwnerID:         2,
		}},
	}}
	require.NoError(t, svc.IngestWeek(raw))

	asset := "Carol's 2025 Round 1 Draft Pick"
	doc := mustManagers(t, store)
	assert.Contains(t, doc.Manager("bob").Career.Transactions.AssetsAcquired, asset)
	assert.Contains(t, doc.Manager("alice").Career.Transactions.AssetsSent, asset)
}

func TestIngestWeekIsIdempotent(t *testing.T) {
	store := cache.NewMemory()
	svc := NewTransactionService(store, testLogger())
	svc.SetSession(testSession(3, false))

	raw := []ffa.RawTransaction{{
		TransactionID: "t1",
		Type:          "waiver",
		Status:        "complete",
		Adds:          map[string]int{"p1": 1},
		Settings:      &ffa.TxSettings{WaiverBid: 12},
	}}
	require.NoError(t, svc.IngestWeek(raw))

	doc := mustManagers(t, store)
	before := snapshot(t, doc.Manager("alice"))

	require.NoError(t, svc.IngestWeek(raw))
	assert.JSONEq(t, before, snapshot(t, doc.Manager("alice")))
	assert.Len(t, mustTransactions(t, store).Week(2024, 3).Processed, 1)
}

func TestClassifyCommissionerActions(t *testing.T) {
	store := cache.NewMemory()
	svc := NewTransactionService(store, testLogger())
	svc.SetSession(testSession(4, false))

	raw := []ffa.RawTransaction{
		{
			// Single-player correction: a forced add.
			TransactionID: "c1",
			Type:          "commissioner",
			Status:        "complete",
			RosterIDs:     []int{1},
			Adds:          map[string]int{"p1": 1},
		},
		{
			// Multi-asset correction: a forced trade.
			TransactionID: "c2",
			Type:          "commissioner",
			Status:        "complete",
			RosterIDs:     []int{1, 2},
			Adds:          map[string]int{"p2": 1},
			Drops:         map[string]int{"p2": 2},
		},
	}
	require.NoError(t, svc.IngestWeek(raw))

	ledger := mustTransactions(t, store).Week(2024, 4)
	c1 := ledger.ByID["c1"]
	require.NotNil(t, c1)
	assert.Equal(t, ffa.KindAddAndDrop, c1.Kind)
	assert.True(t, c1.Commissioner)

	c2 := ledger.ByID["c2"]
	require.NotNil(t, c2)
	assert.Equal(t, ffa.KindTrade, c2.Kind)
	assert.True(t, c2.Commissioner)

	doc := mustManagers(t, store)
	alice := doc.Manager("alice").Career.Transactions
	assert.Equal(t, 1, alice.Adds, "forced single add counts as an add, not a drop")
	assert.Equal(t, 1, alice.Trades)
}

func TestApplyThenReverseRestoresState(t *testing.T) {
	store := cache.NewMemory()
	svc := NewTransactionService(store, testLogger())
	svc.SetSession(testSession(6, false))

	doc := mustManagers(t, store)
	for _, userID := range []string{"alice", "bob"} {
		doc.Manager(userID).Season(2024)
	}
	before := snapshot(t, doc)

	st := &cache.StoredTransaction{
		ID:       "trade9",
		Kind:     ffa.KindTrade,
		Year:     2024,
		Week:     6,
		Managers: []string{"alice", "bob"},
		Gained:   map[string][]string{"alice": {"p1"}, "bob": {"p2"}},
		Lost:     map[string][]string{"alice": {"p2"}, "bob": {"p1"}},
	}
	svc.apply(doc, st, 1)
	assert.Equal(t, 1, doc.Manager("alice").Career.Transactions.Trades)
	assert.NotEqual(t, before, snapshot(t, doc))

	svc.apply(doc, st, -1)
	assert.JSONEq(t, before, snapshot(t, doc))
}

func TestIngestWeekSkipsUnknownRosters(t *testing.T) {
	store := cache.NewMemory()
	svc := NewTransactionService(store, testLogger())
	svc.SetSession(testSession(3, false))

	raw := []ffa.RawTransaction{{
		TransactionID: "t1",
		Type:          "trade",
		Status:        "complete",
		RosterIDs:     []int{1, 99},
		Adds:          map[string]int{"p1": 1},
		Drops:         map[string]int{"p1": 99},
	}}
	require.NoError(t, svc.IngestWeek(raw))

	doc := mustManagers(t, store)
	if rec, ok := doc.Managers["alice"]; ok {
		assert.Equal(t, 0, rec.Career.Transactions.Trades)
	}
	assert.Empty(t, mustTransactions(t, store).Week(2024, 3).Processed)
}
