// Package money provides cent-rounding and monotonic ID generation for
// the exchange core. All monetary results the core exposes are rounded
// half-away-from-zero to two decimals; intermediate sums stay at full
// decimal precision until they are stored into a Position/Account field
// or emitted in a TradeRecord.
package money

import (
	"strconv"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
)

// RoundCent rounds x half-away-from-zero to two decimal places.
func RoundCent(x decimal.Decimal) decimal.Decimal {
	return x.Round(2)
}

// RoundCentFloat is a convenience wrapper for callers still carrying a
// plain float64 (e.g. a tick's last_price read from the market feed).
func RoundCentFloat(x float64) float64 {
	v, _ := RoundCent(decimal.NewFromFloat(x)).Float64()
	return v
}

// IDGenerator produces order/trade IDs in the exchange's literal
// formats:
//
//	ORDER_<epoch_ms>_<symbol>_<monotonic_counter>
//	TRADE_<epoch_ms>_<monotonic_counter>
//
// Both counters are per-exchange and strictly increasing, using
// sync/atomic rather than a mutex since the two sequences never
// interact.
type IDGenerator struct {
	orderSeq uint64
	tradeSeq uint64
}

// NewIDGenerator constructs a fresh, zeroed generator.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

// NextOrderID returns the next order ID for symbol, stamped with the
// given wall-clock time in epoch milliseconds.
func (g *IDGenerator) NextOrderID(nowMs int64, symbol string) string {
	n := atomic.AddUint64(&g.orderSeq, 1)
	return "ORDER_" + strconv.FormatInt(nowMs, 10) + "_" + symbol + "_" + strconv.FormatUint(n, 10)
}

// NextTradeID returns the next trade ID, stamped with the given
// wall-clock time in epoch milliseconds.
func (g *IDGenerator) NextTradeID(nowMs int64) string {
	n := atomic.AddUint64(&g.tradeSeq, 1)
	return "TRADE_" + strconv.FormatInt(nowMs, 10) + "_" + strconv.FormatUint(n, 10)
}

// NowMs is the canonical "current time" source used across the core so
// that every component stamps timestamps the same way.
func NowMs() int64 {
	return time.Now().UnixMilli()
}
