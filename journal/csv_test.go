package journal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/link-light/apexquant/exchtypes"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVJournalRecordTradeAndSnapshot(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	tradesPath := filepath.Join(dir, "trades.csv")
	snapshotsPath := filepath.Join(dir, "snapshots.csv")

	j, err := NewCSV(tradesPath, snapshotsPath)
	require.NoError(t, err)

	err = j.RecordTrade(exchtypes.TradeRecord{
		TradeID: "TRADE_1_1", OrderID: "ORDER_1_600000_1", Symbol: "600000",
		Side: exchtypes.Buy, Price: decimal.RequireFromString("10.00"), Volume: 100,
		Commission: decimal.RequireFromString("5.00"), TradeTimeMs: 1,
		RealizedPL: decimal.Zero,
	})
	require.NoError(t, err)

	err = j.RecordSnapshot(exchtypes.Account{
		AccountID: "acct-1", AvailableCash: decimal.RequireFromString("98995.00"),
		WithdrawableCash: decimal.RequireFromString("100000.00"),
		Positions:        map[string]*exchtypes.Position{},
	})
	require.NoError(t, err)

	require.NoError(t, j.Close())

	tradesBytes, err := os.ReadFile(tradesPath)
	require.NoError(t, err)
	assert.Contains(t, string(tradesBytes), "TRADE_1_1")
	assert.Contains(t, string(tradesBytes), "600000")

	snapshotsBytes, err := os.ReadFile(snapshotsPath)
	require.NoError(t, err)
	assert.Contains(t, string(snapshotsBytes), "acct-1")
}
