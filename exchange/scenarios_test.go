package exchange

import (
	"testing"

	"github.com/link-light/apexquant/exchtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenarioS1T1Basic mirrors the walkthrough: a market buy fills
// T+1-locked, a same-day sell is rejected, and the position unlocks
// after daily_settlement.
func TestScenarioS1T1Basic(t *testing.T) {
	ex := New("acct-1", dec("100000.00"))

	buyID := ex.SubmitOrder(exchtypes.Order{
		Symbol: "600000", Side: exchtypes.Buy, Type: exchtypes.Market,
		Volume: 1000, CommissionRate: dec("0.00025"),
	})

	ex.OnTick(exchtypes.TickSnapshot{
		Symbol: "600000", TimestampMs: 1770000000000,
		LastPrice: dec("10.00"), AskPrice: dec("10.00"), BidPrice: dec("9.99"),
		Volume: 1_000_000, LastClose: dec("10.00"),
	})

	buyOrder, ok := ex.GetOrder(buyID)
	require.True(t, ok)
	require.Equal(t, exchtypes.Filled, buyOrder.Status)

	trades := ex.GetTradeHistory()
	require.Len(t, trades, 1)
	assert.Equal(t, exchtypes.Buy, trades[0].Side)
	assert.True(t, trades[0].Commission.GreaterThanOrEqual(dec("5.00")))

	pos, ok := ex.GetPosition("600000")
	require.True(t, ok)
	assert.EqualValues(t, 1000, pos.Volume)
	assert.EqualValues(t, 0, pos.AvailableVolume)
	assert.Equal(t, 20260202, pos.BuyDate)

	sellID := ex.SubmitOrder(exchtypes.Order{
		Symbol: "600000", Side: exchtypes.Sell, Type: exchtypes.Market, Volume: 1000,
	})
	sellOrder, ok := ex.GetOrder(sellID)
	require.True(t, ok)
	assert.Equal(t, exchtypes.Rejected, sellOrder.Status)
	assert.Contains(t, sellOrder.RejectReason, "T+1")

	ex.DailySettlement(20260207)

	sellID2 := ex.SubmitOrder(exchtypes.Order{
		Symbol: "600000", Side: exchtypes.Sell, Type: exchtypes.Market,
		Volume: 1000, CommissionRate: dec("0.00025"),
	})
	sell2, ok := ex.GetOrder(sellID2)
	require.True(t, ok)
	require.Equal(t, exchtypes.Pending, sell2.Status)

	ex.OnTick(exchtypes.TickSnapshot{
		Symbol: "600000", TimestampMs: 1770086400000,
		LastPrice: dec("10.10"), AskPrice: dec("10.11"), BidPrice: dec("10.10"),
		Volume: 1_000_000, LastClose: dec("10.00"),
	})
	sell2, _ = ex.GetOrder(sellID2)
	assert.Equal(t, exchtypes.Filled, sell2.Status)
}

// TestScenarioS2LotRule checks the 100-share lot multiple on buys only.
func TestScenarioS2LotRule(t *testing.T) {
	ex := New("acct-1", dec("100000.00"))

	badBuy := ex.SubmitOrder(exchtypes.Order{
		Symbol: "600000", Side: exchtypes.Buy, Type: exchtypes.Limit,
		Price: dec("10.00"), Volume: 150,
	})
	ex.OnTick(exchtypes.TickSnapshot{
		Symbol: "600000", TimestampMs: 1,
		LastPrice: dec("10.00"), AskPrice: dec("10.00"), BidPrice: dec("9.99"),
		Volume: 1_000_000, LastClose: dec("10.00"),
	})
	o, _ := ex.GetOrder(badBuy)
	assert.Equal(t, exchtypes.Rejected, o.Status)

	// Seed an odd-lot position directly via a round-lot buy then a
	// partial sell, leaving 150 shares — simpler: just buy 150 via two
	// fills isn't supported here, so seed ledger's position through a
	// round-lot buy of 200 then a sell of 50 to leave 150.
	buyID := ex.SubmitOrder(exchtypes.Order{
		Symbol: "600000", Side: exchtypes.Buy, Type: exchtypes.Market,
		Volume: 200, CommissionRate: dec("0.00025"),
	})
	ex.OnTick(exchtypes.TickSnapshot{
		Symbol: "600000", TimestampMs: 2,
		LastPrice: dec("10.00"), AskPrice: dec("10.00"), BidPrice: dec("9.99"),
		Volume: 1_000_000, LastClose: dec("10.00"),
	})
	buyOrder, _ := ex.GetOrder(buyID)
	require.Equal(t, exchtypes.Filled, buyOrder.Status)

	ex.DailySettlement(20260207)

	sellID := ex.SubmitOrder(exchtypes.Order{
		Symbol: "600000", Side: exchtypes.Sell, Type: exchtypes.Market,
		Volume: 50, CommissionRate: dec("0.00025"),
	})
	ex.OnTick(exchtypes.TickSnapshot{
		Symbol: "600000", TimestampMs: 3,
		LastPrice: dec("10.00"), AskPrice: dec("10.00"), BidPrice: dec("9.99"),
		Volume: 1_000_000, LastClose: dec("10.00"),
	})
	sellOrder, _ := ex.GetOrder(sellID)
	require.Equal(t, exchtypes.Filled, sellOrder.Status)

	pos, ok := ex.GetPosition("600000")
	require.True(t, ok)
	require.EqualValues(t, 150, pos.Volume)

	// Odd lot sell of the remaining 150 shares is accepted.
	oddSell := ex.SubmitOrder(exchtypes.Order{
		Symbol: "600000", Side: exchtypes.Sell, Type: exchtypes.Limit,
		Price: dec("10.00"), Volume: 150,
	})
	oddSellOrder, _ := ex.GetOrder(oddSell)
	assert.Equal(t, exchtypes.Pending, oddSellOrder.Status)
}

// TestScenarioS3FeeFloorAndTransfer checks the Shanghai transfer fee and
// broker commission floor on both sides of a round-trip.
func TestScenarioS3FeeFloorAndTransfer(t *testing.T) {
	ex := New("acct-1", dec("100000.00"))

	buyID := ex.SubmitOrder(exchtypes.Order{
		Symbol: "600000", Side: exchtypes.Buy, Type: exchtypes.Market,
		Volume: 100, CommissionRate: dec("0.00025"),
	})
	ex.OnTick(exchtypes.TickSnapshot{
		Symbol: "600000", TimestampMs: 1,
		LastPrice: dec("10.00"), AskPrice: dec("10.00"), BidPrice: dec("9.99"),
		Volume: 1_000_000, LastClose: dec("10.00"),
	})
	buyOrder, _ := ex.GetOrder(buyID)
	require.Equal(t, exchtypes.Filled, buyOrder.Status)

	trades := ex.GetTradeHistory()
	require.Len(t, trades, 1)
	assert.True(t, trades[0].Commission.Equal(dec("5.00")), "got %s", trades[0].Commission)

	ex.DailySettlement(20260207)

	ex.SubmitOrder(exchtypes.Order{
		Symbol: "600000", Side: exchtypes.Sell, Type: exchtypes.Market,
		Volume: 100, CommissionRate: dec("0.00025"),
	})
	ex.OnTick(exchtypes.TickSnapshot{
		Symbol: "600000", TimestampMs: 2,
		LastPrice: dec("10.00"), AskPrice: dec("10.00"), BidPrice: dec("9.99"),
		Volume: 1_000_000, LastClose: dec("10.00"),
	})

	trades = ex.GetTradeHistory()
	require.Len(t, trades, 2)
	assert.True(t, trades[1].Commission.GreaterThanOrEqual(dec("6.00")), "got %s", trades[1].Commission)
}

// TestScenarioS4PriceLimitQueueDrain walks through the exact sequence
// the walkthrough describes: two buys pinned at the limit, a partial
// drain while still pinned, then a full drain once the price opens.
func TestScenarioS4PriceLimitQueueDrain(t *testing.T) {
	ex := New("acct-1", dec("1000000.00"))

	id1 := ex.SubmitOrder(exchtypes.Order{
		Symbol: "600000", Side: exchtypes.Buy, Type: exchtypes.Limit,
		Price: dec("11.00"), Volume: 100, CommissionRate: dec("0.00025"),
	})
	id2 := ex.SubmitOrder(exchtypes.Order{
		Symbol: "600000", Side: exchtypes.Buy, Type: exchtypes.Limit,
		Price: dec("11.00"), Volume: 200, CommissionRate: dec("0.00025"),
	})

	ex.OnTick(exchtypes.TickSnapshot{
		Symbol: "600000", TimestampMs: 1,
		LastPrice: dec("11.00"), AskPrice: dec("11.00"), BidPrice: dec("10.99"),
		Volume: 1_000_000, LastClose: dec("10.00"),
	})
	o1, _ := ex.GetOrder(id1)
	o2, _ := ex.GetOrder(id2)
	assert.Equal(t, exchtypes.Pending, o1.Status)
	assert.Equal(t, exchtypes.Pending, o2.Status)
	assert.True(t, ex.queue.Contains(id1))
	assert.True(t, ex.queue.Contains(id2))

	// Still pinned: max(1, 2/10) == 1 releases, FIFO order (id1 first).
	// try_match at last=11.00 still fails the price-limit check (equal
	// to the upper band), so the released order re-enqueues at the tail
	// rather than filling — it is still "at the limit".
	ex.OnTick(exchtypes.TickSnapshot{
		Symbol: "600000", TimestampMs: 2,
		LastPrice: dec("11.00"), AskPrice: dec("11.00"), BidPrice: dec("10.99"),
		Volume: 1_000_000, LastClose: dec("10.00"),
	})
	o1, _ = ex.GetOrder(id1)
	o2, _ = ex.GetOrder(id2)
	assert.Equal(t, exchtypes.Pending, o1.Status)
	assert.Equal(t, exchtypes.Pending, o2.Status)

	// Opened: the remaining queue drains and fills via the matcher.
	ex.OnTick(exchtypes.TickSnapshot{
		Symbol: "600000", TimestampMs: 3,
		LastPrice: dec("10.50"), AskPrice: dec("10.50"), BidPrice: dec("10.49"),
		Volume: 1_000_000, LastClose: dec("10.00"),
	})
	o1, _ = ex.GetOrder(id1)
	o2, _ = ex.GetOrder(id2)
	assert.Equal(t, exchtypes.Filled, o1.Status)
	assert.Equal(t, exchtypes.Filled, o2.Status)
}

// TestScenarioS5WithdrawableLag checks that withdrawable cash lags the
// available bucket until the next day's settlement.
func TestScenarioS5WithdrawableLag(t *testing.T) {
	ex := New("acct-1", dec("100000.00"))
	require.Equal(t, dec("100000.00").String(), ex.GetAvailableCash().String())
	require.Equal(t, dec("100000.00").String(), ex.GetWithdrawableCash().String())

	buyID := ex.SubmitOrder(exchtypes.Order{
		Symbol: "600000", Side: exchtypes.Buy, Type: exchtypes.Market,
		Volume: 100, CommissionRate: dec("0.00025"),
	})
	ex.OnTick(exchtypes.TickSnapshot{
		Symbol: "600000", TimestampMs: 1,
		LastPrice: dec("10.00"), AskPrice: dec("10.00"), BidPrice: dec("9.99"),
		Volume: 1_000_000, LastClose: dec("10.00"),
	})
	buyOrder, _ := ex.GetOrder(buyID)
	require.Equal(t, exchtypes.Filled, buyOrder.Status)

	assert.True(t, ex.GetAvailableCash().LessThan(dec("98995.00")) == false)
	assert.True(t, ex.GetAvailableCash().LessThan(dec("100000.00")))
	assert.Equal(t, dec("100000.00").String(), ex.GetWithdrawableCash().String(), "unchanged during the day")

	ex.DailySettlement(20260207)
	assert.Equal(t, ex.GetAvailableCash().String(), ex.GetWithdrawableCash().String())
}

// TestScenarioS6CancelParkedOrder reuses S4's setup and cancels the
// order still sitting in the limit queue.
func TestScenarioS6CancelParkedOrder(t *testing.T) {
	ex := New("acct-1", dec("1000000.00"))

	id1 := ex.SubmitOrder(exchtypes.Order{
		Symbol: "600000", Side: exchtypes.Buy, Type: exchtypes.Limit,
		Price: dec("11.00"), Volume: 100, CommissionRate: dec("0.00025"),
	})
	id2 := ex.SubmitOrder(exchtypes.Order{
		Symbol: "600000", Side: exchtypes.Buy, Type: exchtypes.Limit,
		Price: dec("11.00"), Volume: 200, CommissionRate: dec("0.00025"),
	})

	ex.OnTick(exchtypes.TickSnapshot{
		Symbol: "600000", TimestampMs: 1,
		LastPrice: dec("11.00"), AskPrice: dec("11.00"), BidPrice: dec("10.99"),
		Volume: 1_000_000, LastClose: dec("10.00"),
	})
	require.True(t, ex.queue.Contains(id1))
	require.True(t, ex.queue.Contains(id2))

	availableBeforeCancel := ex.GetAvailableCash()
	ok := ex.CancelOrder(id2)
	assert.True(t, ok)

	o2, _ := ex.GetOrder(id2)
	assert.Equal(t, exchtypes.Cancelled, o2.Status)
	assert.False(t, ex.queue.Contains(id2))
	assert.True(t, ex.GetAvailableCash().GreaterThan(availableBeforeCancel), "cash estimate unfrozen")

	ex.OnTick(exchtypes.TickSnapshot{
		Symbol: "600000", TimestampMs: 2,
		LastPrice: dec("10.50"), AskPrice: dec("10.50"), BidPrice: dec("10.49"),
		Volume: 1_000_000, LastClose: dec("10.00"),
	})
	o2, _ = ex.GetOrder(id2)
	assert.Equal(t, exchtypes.Cancelled, o2.Status, "a cancelled order never fills on a later tick")
}
