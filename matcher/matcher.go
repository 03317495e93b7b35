// Package matcher implements the per-order pricing decision: market
// vs limit reference pricing, slippage, the daily price-limit check,
// the liquidity cap, and fee computation. TryMatch is a pure function
// of (order, tick) — it never mutates shared state, so it needs no
// lock of its own; the exchange orchestrator commits whatever it
// decides.
package matcher

import (
	"math/rand"
	"strings"

	"github.com/link-light/apexquant/exchtypes"
	"github.com/link-light/apexquant/money"
	"github.com/shopspring/decimal"
)

const (
	maxVolume         = 1_000_000
	maxVolumeOverflow = 1_000_000_000
	lotSize           = 100
	largeOrderVolume  = 10_000
)

// MatchResult is TryMatch's verdict. Success means the order should
// fill for FilledVolume lots at FilledPrice. A non-success result
// carries a Reason the caller dispatches on by substring.
type MatchResult struct {
	Success      bool
	FilledPrice  decimal.Decimal
	FilledVolume int64
	Reason       string
}

// Reason prefixes the exchange switches on.
const (
	ReasonPriceAtLimit = "Price at limit"
	ReasonLimitPrice   = "limit price"
)

// TryMatch decides, without mutating state, whether order fills
// against tick and at what price/volume. checkPriceLimit disables the
// daily price-limit check for callers (e.g. the limit queue's drain
// path) that have already established the price has opened.
func TryMatch(order *exchtypes.Order, tick exchtypes.TickSnapshot, checkPriceLimit bool) MatchResult {
	// 1. Volume validation.
	if order.Volume <= 0 {
		return fail("invalid volume")
	}
	if order.Volume > maxVolumeOverflow {
		return fail("volume overflow")
	}
	if order.Volume > maxVolume {
		return fail("volume exceeds cap")
	}
	if order.Side == exchtypes.Buy && order.Volume%lotSize != 0 {
		return fail("buy volume not a lot multiple")
	}

	// 2. Tick sanity.
	if tick.LastPrice.LessThanOrEqual(decimal.Zero) {
		return fail("invalid tick price")
	}
	if order.Type == exchtypes.Limit && order.Price.LessThanOrEqual(decimal.Zero) {
		return fail("invalid limit price")
	}

	// 3. Reference price.
	var ref decimal.Decimal
	switch order.Type {
	case exchtypes.Market:
		if order.Side == exchtypes.Buy {
			ref = tick.AskPrice
		} else {
			ref = tick.BidPrice
		}
	case exchtypes.Limit:
		if order.Side == exchtypes.Buy {
			if tick.AskPrice.GreaterThan(order.Price) {
				return fail(ReasonLimitPrice + " - buy limit price too low")
			}
			ref = order.Price
		} else {
			if tick.BidPrice.LessThan(order.Price) {
				return fail(ReasonLimitPrice + " - sell limit price too high")
			}
			ref = order.Price
		}
	}

	// 4. Price-limit check. A reference price AT the band edge is
	// treated the same as one beyond it: real tape at the daily limit
	// has no opposing liquidity left, so the order parks in the limit
	// queue rather than crossing.
	if checkPriceLimit && tick.LastClose.GreaterThan(decimal.Zero) {
		limitPct := LimitPercent(order.Symbol, IsST(order.Symbol))
		one := decimal.NewFromInt(1)
		limitUp := tick.LastClose.Mul(one.Add(limitPct))
		limitDown := tick.LastClose.Mul(one.Sub(limitPct))
		if ref.LessThanOrEqual(limitDown) || ref.GreaterThanOrEqual(limitUp) {
			return fail(ReasonPriceAtLimit)
		}
	}

	// 5. Liquidity cap.
	if tick.Volume > 0 {
		if order.Volume > tick.Volume/10 {
			return fail("Insufficient liquidity")
		}
	}

	// 6. Slippage.
	u := rand.Float64()*2 - 1 // uniform in [-1, +1]
	slippageRate := order.SlippageRate
	if order.Volume > largeOrderVolume {
		slippageRate = slippageRate.Mul(decimal.NewFromFloat(1.5))
	}
	s := slippageRate.Mul(decimal.NewFromFloat(abs(u)))

	var filled decimal.Decimal
	one := decimal.NewFromInt(1)
	if order.Side == exchtypes.Buy {
		filled = ref.Mul(one.Add(s))
	} else {
		filled = ref.Mul(one.Sub(s))
	}
	filled = money.RoundCent(filled)

	// 7. Result.
	return MatchResult{
		Success:      true,
		FilledPrice:  filled,
		FilledVolume: order.Volume,
	}
}

func fail(reason string) MatchResult {
	return MatchResult{Success: false, Reason: reason}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// IsST is a stand-in classifier for "special treatment" symbols; the
// real classification is a host-side reference-data lookup the core
// does not perform. Symbols the caller tags with an "ST" prefix (a
// convention the backtest harness uses for fixture data) are treated
// as ST for price-limit purposes.
func IsST(symbol string) bool {
	return strings.HasPrefix(symbol, "ST")
}

// LimitPercent computes the daily price-limit percentage for symbol
// by its class: ST names, the ChiNext/STAR boards (prefixes 300/688),
// NEEQ names (prefixes 8/4), and everything else. Exported so the
// exchange's limit-queue drain logic classifies a symbol the same way
// the matcher does.
func LimitPercent(symbol string, st bool) decimal.Decimal {
	switch {
	case st:
		return decimal.NewFromFloat(0.05)
	case strings.HasPrefix(symbol, "688"), strings.HasPrefix(symbol, "300"):
		return decimal.NewFromFloat(0.20)
	case strings.HasPrefix(symbol, "8"), strings.HasPrefix(symbol, "4"):
		return decimal.NewFromFloat(0.30)
	default:
		return decimal.NewFromFloat(0.10)
	}
}

// TotalCommission computes the broker commission + stamp duty
// (sell-only) + Shanghai transfer fee (both sides), rounded to cents.
func TotalCommission(side exchtypes.OrderSide, symbol string, price decimal.Decimal, volume int64, commissionRate decimal.Decimal) decimal.Decimal {
	amount := price.Mul(decimal.NewFromInt(volume))

	broker := amount.Mul(commissionRate)
	floor := decimal.NewFromFloat(5.00)
	if broker.LessThan(floor) {
		broker = floor
	}

	fee := broker

	if side == exchtypes.Sell {
		stampDuty := amount.Mul(decimal.NewFromFloat(0.001))
		fee = fee.Add(stampDuty)
	}

	if isShanghai(symbol) {
		transferFee := decimal.NewFromInt(volume).Mul(decimal.NewFromFloat(0.00002))
		fee = fee.Add(transferFee)
	}

	return money.RoundCent(fee)
}

func isShanghai(symbol string) bool {
	return strings.HasPrefix(symbol, "6") || strings.HasPrefix(symbol, "sh.6")
}
