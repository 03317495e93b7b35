// Package ledger implements the account ledger: cash buckets,
// positions, freeze/unfreeze, T+1 unlock, and realized/unrealized P&L.
// Every exported method takes the Ledger's single mutex for the
// duration of its critical section.
//
// The Ledger's mutex is held only by Ledger methods themselves; it is
// never reentered. The exchange orchestrator (package exchange) holds
// its own higher-level mutex for the duration of a public call and
// only ever calls Ledger's exported, locking methods — it never needs
// to re-enter the Ledger while already inside one of its methods.
package ledger

import (
	"errors"
	"sync"

	"github.com/link-light/apexquant/exchtypes"
	"github.com/link-light/apexquant/money"
	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientCash     = errors.New("ledger: insufficient available cash")
	ErrInsufficientPosition = errors.New("ledger: insufficient sellable position")
	ErrNoPosition           = errors.New("ledger: no such position")
	ErrInvalidAmount        = errors.New("ledger: invalid amount")
)

// Ledger is the single-account bookkeeper.
type Ledger struct {
	mu      sync.Mutex
	account *exchtypes.Account
}

// New creates a Ledger seeded with initialCapital as both the account's
// starting available and withdrawable cash.
func New(accountID string, initialCapital decimal.Decimal) *Ledger {
	return &Ledger{
		account: &exchtypes.Account{
			AccountID:        accountID,
			InitialCapital:   initialCapital,
			AvailableCash:    initialCapital,
			WithdrawableCash: initialCapital,
			FrozenCash:       decimal.Zero,
			TodaySellAmount:  decimal.Zero,
			RealizedPL:       decimal.Zero,
			Positions:        make(map[string]*exchtypes.Position),
		},
	}
}

// FreezeCash moves amount from available to frozen cash. Fails if
// amount is negative or exceeds available cash.
func (l *Ledger) FreezeCash(amount decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if amount.IsNegative() {
		return ErrInvalidAmount
	}
	if amount.GreaterThan(l.account.AvailableCash) {
		return ErrInsufficientCash
	}
	l.account.AvailableCash = l.account.AvailableCash.Sub(amount)
	l.account.FrozenCash = l.account.FrozenCash.Add(amount)
	return nil
}

// UnfreezeCash moves amount back from frozen to available cash,
// clamping to the frozen balance so it never underflows.
func (l *Ledger) UnfreezeCash(amount decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if amount.IsNegative() {
		return
	}
	if amount.GreaterThan(l.account.FrozenCash) {
		amount = l.account.FrozenCash
	}
	l.account.FrozenCash = l.account.FrozenCash.Sub(amount)
	l.account.AvailableCash = l.account.AvailableCash.Add(amount)
}

// DebitAvailableCash directly reduces available cash, used by the
// exchange to apply the actual fill cost/commission once a trade
// is known (the pessimistic freeze estimate is unfrozen separately).
func (l *Ledger) DebitAvailableCash(amount decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.account.AvailableCash = l.account.AvailableCash.Sub(amount)
}

// FreezePosition reserves volume lots of symbol against an open sell
// order. Fails if volume <= 0 or exceeds the unfrozen portion of the
// position.
func (l *Ledger) FreezePosition(symbol string, volume int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if volume <= 0 {
		return ErrInvalidAmount
	}
	p, ok := l.account.Positions[symbol]
	if !ok {
		return ErrNoPosition
	}
	if volume > p.Volume-p.FrozenVolume {
		return ErrInsufficientPosition
	}
	p.FrozenVolume += volume
	return nil
}

// UnfreezePosition releases volume lots back from frozen, clamped to
// the frozen balance.
func (l *Ledger) UnfreezePosition(symbol string, volume int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.account.Positions[symbol]
	if !ok || volume <= 0 {
		return
	}
	if volume > p.FrozenVolume {
		volume = p.FrozenVolume
	}
	p.FrozenVolume -= volume
}

// AddPosition records a buy fill: volume lots of symbol at price,
// dated buyDate (YYYYMMDD). A fresh position starts with
// AvailableVolume == 0 (T+1 lock); merging into an existing position
// weight-averages the cost basis and keeps the earliest BuyDate.
func (l *Ledger) AddPosition(symbol string, volume int64, price decimal.Decimal, buyDate int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if symbol == "" || volume <= 0 || volume > 1_000_000_000 || price.LessThanOrEqual(decimal.Zero) || price.GreaterThan(decimal.NewFromInt(1_000_000)) {
		return ErrInvalidAmount
	}

	p, ok := l.account.Positions[symbol]
	if !ok {
		l.account.Positions[symbol] = &exchtypes.Position{
			Symbol:          symbol,
			Volume:          volume,
			AvailableVolume: 0,
			FrozenVolume:    0,
			AvgCost:         money.RoundCent(price),
			CurrentPrice:    price,
			BuyDate:         buyDate,
		}
		return nil
	}

	oldVolume := decimal.NewFromInt(p.Volume)
	newVolume := p.Volume + volume
	weighted := oldVolume.Mul(p.AvgCost).Add(decimal.NewFromInt(volume).Mul(price))
	p.AvgCost = money.RoundCent(weighted.Div(decimal.NewFromInt(newVolume)))
	p.Volume = newVolume
	if buyDate < p.BuyDate {
		p.BuyDate = buyDate
	}
	return nil
}

// ReducePosition records a sell fill: volume lots of symbol sold at
// sellPrice. Returns the realized P&L for the fill. Increases available
// cash and today's sell amount by the gross proceeds (fees are
// deducted separately by the exchange). Deletes the position once
// its volume reaches zero.
func (l *Ledger) ReducePosition(symbol string, volume int64, sellPrice decimal.Decimal) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.account.Positions[symbol]
	if !ok {
		return decimal.Zero, ErrNoPosition
	}
	if volume > p.Volume {
		return decimal.Zero, ErrInsufficientPosition
	}

	realized := money.RoundCent(decimal.NewFromInt(volume).Mul(sellPrice.Sub(p.AvgCost)))
	gross := decimal.NewFromInt(volume).Mul(sellPrice)

	l.account.AvailableCash = l.account.AvailableCash.Add(gross)
	l.account.TodaySellAmount = l.account.TodaySellAmount.Add(gross)
	l.account.RealizedPL = l.account.RealizedPL.Add(realized)

	p.Volume -= volume
	p.AvailableVolume -= volume
	if p.AvailableVolume < 0 {
		p.AvailableVolume = 0
	}
	if p.Volume <= 0 {
		delete(l.account.Positions, symbol)
	}

	return realized, nil
}

// CanSell reports whether volume lots of symbol may be sold on
// currentDate under the T+1 rule: shares bought strictly before
// currentDate are sellable up to the unfrozen balance; shares bought
// on currentDate are sellable only up to AvailableVolume (which is 0
// until the next day's settlement unlocks them).
func (l *Ledger) CanSell(symbol string, volume int64, currentDate int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.account.Positions[symbol]
	if !ok {
		return false
	}
	if p.BuyDate < currentDate {
		return volume <= p.Volume-p.FrozenVolume
	}
	if p.BuyDate == currentDate {
		return volume <= p.AvailableVolume
	}
	return false
}

// DailySettlement moves available cash into the withdrawable bucket,
// clears today's sell amount, and unlocks T+1 positions bought before
// currentDate.
func (l *Ledger) DailySettlement(currentDate int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.account.WithdrawableCash = l.account.AvailableCash
	l.account.TodaySellAmount = decimal.Zero

	for _, p := range l.account.Positions {
		if p.BuyDate < currentDate {
			avail := p.Volume - p.FrozenVolume
			if avail < 0 {
				avail = 0
			}
			p.AvailableVolume = avail
		}
	}
}

// UpdatePositionPrice refreshes a position's mark price, market value
// and unrealized P&L. A no-op if the position does not exist.
func (l *Ledger) UpdatePositionPrice(symbol string, price decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.account.Positions[symbol]
	if !ok {
		return
	}
	p.CurrentPrice = price
	p.MarketValue = money.RoundCent(decimal.NewFromInt(p.Volume).Mul(price))
	p.UnrealizedPL = money.RoundCent(p.MarketValue.Sub(decimal.NewFromInt(p.Volume).Mul(p.AvgCost)))
}

// --- read-only accessors; each takes the mutex and returns by value ---

// GetPosition returns a copy of symbol's position, if any.
func (l *Ledger) GetPosition(symbol string) (exchtypes.Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.account.Positions[symbol]
	if !ok {
		return exchtypes.Position{}, false
	}
	return *p, true
}

// GetAllPositions returns a copy of every open position.
func (l *Ledger) GetAllPositions() map[string]exchtypes.Position {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]exchtypes.Position, len(l.account.Positions))
	for sym, p := range l.account.Positions {
		out[sym] = *p
	}
	return out
}

// GetTotalAssets returns available + frozen cash plus every position's
// market value.
func (l *Ledger) GetTotalAssets() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.account.TotalAssets()
}

// GetAvailableCash returns the spendable-for-new-buys cash bucket.
func (l *Ledger) GetAvailableCash() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.account.AvailableCash
}

// GetWithdrawableCash returns the transferable-out cash bucket.
func (l *Ledger) GetWithdrawableCash() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.account.WithdrawableCash
}

// GetFrozenCash returns cash reserved by open buy orders.
func (l *Ledger) GetFrozenCash() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.account.FrozenCash
}

// Snapshot returns a deep-ish copy of the whole account, for host-side
// persistence (journal package) or reporting.
func (l *Ledger) Snapshot() exchtypes.Account {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := *l.account
	out.Positions = make(map[string]*exchtypes.Position, len(l.account.Positions))
	for sym, p := range l.account.Positions {
		cp := *p
		out.Positions[sym] = &cp
	}
	return out
}
