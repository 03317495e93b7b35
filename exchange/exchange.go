// Package exchange implements the exchange orchestrator: submit_order,
// on_tick, cancel_order, daily_settlement and read-only accessors. Every
// state transition and every read of the order registry is serialized
// behind a single top-level mutex so it sees a consistent book; the
// ledger-backed accessors rely on the Ledger's own mutex instead.
package exchange

import (
	"container/list"
	"sync"
	"time"

	"github.com/link-light/apexquant/exchtypes"
	"github.com/link-light/apexquant/ledger"
	"github.com/link-light/apexquant/limitqueue"
	"github.com/link-light/apexquant/matcher"
	"github.com/link-light/apexquant/money"
	"github.com/shopspring/decimal"
)

const pessimisticCeiling = "1000000" // 10^6, used as ref price before any tick has been seen
const buyReserveFactor = "1.003"

// Exchange is the single entry point a strategy/market-data/scheduler
// thread drives. Every mutating method and every accessor of orders or
// trades takes mu for its full duration; the position and cash accessors
// delegate straight to the Ledger, which takes its own mutex.
type Exchange struct {
	mu sync.Mutex

	ledger *ledger.Ledger
	queue  *limitqueue.Queue
	ids    *money.IDGenerator

	orders map[string]*exchtypes.Order
	trades []exchtypes.TradeRecord

	// pending holds, per symbol, the FIFO of order IDs that are PENDING
	// and NOT currently parked in the limit queue — i.e. orders the
	// next on_tick's main matching loop should attempt, in submission
	// order.
	pending      map[string]*list.List
	pendingIndex map[string]*list.Element

	// estimates remembers each BUY order's pessimistic cash reservation
	// so it can be unfrozen exactly, whatever the eventual fill price.
	estimates map[string]decimal.Decimal

	// priceHints is the last tick price observed per symbol, used as
	// ref_price for estimating a pending BUY's worst-case cash cost.
	priceHints map[string]decimal.Decimal

	// currentDate is the simulated "today" (YYYYMMDD), derived from the
	// most recent tick's timestamp in OnTick. It is 0 until the first
	// tick arrives, which makes every position unsellable until then —
	// the exchange has no notion of "today" without a tick to derive it
	// from. T+1 checks use this instead of wall-clock time so a replayed
	// historical feed enforces T+1 against simulated dates, not the
	// real date the backtest happens to run on.
	currentDate int
}

// New creates an Exchange backed by a freshly-seeded Ledger.
func New(accountID string, initialCapital decimal.Decimal) *Exchange {
	return &Exchange{
		ledger:       ledger.New(accountID, initialCapital),
		queue:        limitqueue.New(),
		ids:          money.NewIDGenerator(),
		orders:       make(map[string]*exchtypes.Order),
		pending:      make(map[string]*list.List),
		pendingIndex: make(map[string]*list.Element),
		estimates:    make(map[string]decimal.Decimal),
		priceHints:   make(map[string]decimal.Decimal),
	}
}

// SubmitOrder validates req, reserves ledger resources, and parks the
// order PENDING (or REJECTED on validation/resource failure). It
// always returns the assigned order_id; callers check the order's
// Status to learn whether it was accepted.
func (e *Exchange) SubmitOrder(req exchtypes.Order) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := money.NowMs()
	order := req
	order.OrderID = e.ids.NextOrderID(now, order.Symbol)
	order.Status = exchtypes.Pending
	order.FilledVolume = 0
	order.SubmitTimeMs = now

	e.orders[order.OrderID] = &order

	if order.Volume <= 0 || (order.Type == exchtypes.Limit && order.Price.LessThanOrEqual(decimal.Zero)) {
		order.Status = exchtypes.Rejected
		order.RejectReason = "invalid volume or price"
		return order.OrderID
	}

	switch order.Side {
	case exchtypes.Buy:
		estimate := e.buyCashEstimate(&order)
		if err := e.ledger.FreezeCash(estimate); err != nil {
			order.Status = exchtypes.Rejected
			order.RejectReason = err.Error()
			return order.OrderID
		}
		e.estimates[order.OrderID] = estimate

	case exchtypes.Sell:
		if !e.ledger.CanSell(order.Symbol, order.Volume, e.currentDate) {
			order.Status = exchtypes.Rejected
			order.RejectReason = "T+1 lock or insufficient sellable position"
			return order.OrderID
		}
		if err := e.ledger.FreezePosition(order.Symbol, order.Volume); err != nil {
			order.Status = exchtypes.Rejected
			order.RejectReason = err.Error()
			return order.OrderID
		}
	}

	e.addPending(&order)
	return order.OrderID
}

// buyCashEstimate reserves cash against the last observed tick price
// for the symbol, falling back to the pessimistic 10^6 ceiling only
// when no tick has been seen yet. A LIMIT order reserves against its
// own limit price instead, since that bounds its worst-case fill.
func (e *Exchange) buyCashEstimate(order *exchtypes.Order) decimal.Decimal {
	var ref decimal.Decimal
	switch {
	case order.Type == exchtypes.Limit:
		ref = order.Price
	default:
		if hint, ok := e.priceHints[order.Symbol]; ok {
			ref = hint
		} else {
			ref = decimal.RequireFromString(pessimisticCeiling)
		}
	}
	factor := decimal.RequireFromString(buyReserveFactor)
	return ref.Mul(decimal.NewFromInt(order.Volume)).Mul(factor)
}

// OnTick is called by the market-data feeder with the latest snapshot
// for one symbol. It drains that symbol's limit queues, then attempts
// to match every still-active PENDING order for the symbol.
func (e *Exchange) OnTick(tick exchtypes.TickSnapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()

	currentDate := deriveDate(tick.TimestampMs)
	e.currentDate = currentDate

	e.ledger.UpdatePositionPrice(tick.Symbol, tick.LastPrice)
	e.priceHints[tick.Symbol] = tick.LastPrice

	e.drainQueues(tick, currentDate)
	e.matchPending(tick, currentDate)
}

func (e *Exchange) drainQueues(tick exchtypes.TickSnapshot, currentDate int) {
	atUpper, atLower := false, false
	if tick.LastClose.GreaterThan(decimal.Zero) {
		limitPct := matcher.LimitPercent(tick.Symbol, matcher.IsST(tick.Symbol))
		one := decimal.NewFromInt(1)
		limitUp := tick.LastClose.Mul(one.Add(limitPct))
		limitDown := tick.LastClose.Mul(one.Sub(limitPct))
		atUpper = decAbsDiff(tick.LastPrice, limitUp).LessThan(decimal.NewFromFloat(0.01))
		atLower = decAbsDiff(tick.LastPrice, limitDown).LessThan(decimal.NewFromFloat(0.01))
	}

	upper := e.queue.DrainUpper(tick.Symbol, !atUpper)
	for _, o := range upper.Released {
		e.handleReleasedOrder(o, tick, currentDate, upper.Opened)
	}

	lower := e.queue.DrainLower(tick.Symbol, !atLower)
	for _, o := range lower.Released {
		e.handleReleasedOrder(o, tick, currentDate, lower.Opened)
	}
}

// handleReleasedOrder revalidates an order just released from a limit
// queue. opened tells us the queue itself already confirmed the tape
// left the daily band, so the redundant price-limit re-check is
// skipped — only a still-pinned partial release re-runs it, which is
// what lets a released-but-still-at-the-limit order re-enqueue at the
// tail per the canonical "still at limit" behavior.
func (e *Exchange) handleReleasedOrder(order *exchtypes.Order, tick exchtypes.TickSnapshot, currentDate int, opened bool) {
	match := matcher.TryMatch(order, tick, !opened)
	switch {
	case match.Success:
		e.processFill(order, match, currentDate)
	case hasPrefix(match.Reason, matcher.ReasonPriceAtLimit):
		e.enqueue(order)
	case hasPrefix(match.Reason, matcher.ReasonLimitPrice):
		e.addPending(order)
	default:
		e.processReject(order, match.Reason)
	}
}

func (e *Exchange) matchPending(tick exchtypes.TickSnapshot, currentDate int) {
	fifo, ok := e.pending[tick.Symbol]
	if !ok {
		return
	}

	// Snapshot the current order list before iterating: handlers below
	// mutate fifo (remove on fill/reject/enqueue), which would otherwise
	// invalidate list.Element traversal mid-loop.
	batch := make([]*exchtypes.Order, 0, fifo.Len())
	for el := fifo.Front(); el != nil; el = el.Next() {
		batch = append(batch, el.Value.(*exchtypes.Order))
	}

	for _, order := range batch {
		if order.Status != exchtypes.Pending {
			continue
		}
		match := matcher.TryMatch(order, tick, true)
		switch {
		case match.Success:
			e.removePending(order.OrderID)
			e.processFill(order, match, currentDate)
		case hasPrefix(match.Reason, matcher.ReasonPriceAtLimit):
			e.removePending(order.OrderID)
			e.enqueue(order)
		case hasPrefix(match.Reason, matcher.ReasonLimitPrice):
			// Defer: stays PENDING, no state change.
		default:
			e.removePending(order.OrderID)
			e.processReject(order, match.Reason)
		}
	}
}

func (e *Exchange) enqueue(order *exchtypes.Order) {
	if order.Side == exchtypes.Buy {
		e.queue.PushUpper(order)
	} else {
		e.queue.PushLower(order)
	}
}

func (e *Exchange) processFill(order *exchtypes.Order, match matcher.MatchResult, currentDate int) {
	now := money.NowMs()
	commission := matcher.TotalCommission(order.Side, order.Symbol, match.FilledPrice, match.FilledVolume, order.CommissionRate)

	var realizedPL decimal.Decimal
	switch order.Side {
	case exchtypes.Buy:
		if estimate, ok := e.estimates[order.OrderID]; ok {
			e.ledger.UnfreezeCash(estimate)
			delete(e.estimates, order.OrderID)
		}
		total := match.FilledPrice.Mul(decimal.NewFromInt(match.FilledVolume)).Add(commission)
		e.ledger.DebitAvailableCash(total)
		if err := e.ledger.AddPosition(order.Symbol, match.FilledVolume, match.FilledPrice, currentDate); err != nil {
			// Reverse: refund the debit, re-freeze nothing since estimate
			// is already gone; downgrade to REJECTED.
			e.ledger.DebitAvailableCash(total.Neg())
			e.processReject(order, "add_position failed: "+err.Error())
			return
		}

	case exchtypes.Sell:
		pnl, err := e.ledger.ReducePosition(order.Symbol, match.FilledVolume, match.FilledPrice)
		if err != nil {
			e.ledger.UnfreezePosition(order.Symbol, order.Volume)
			e.processReject(order, "reduce_position failed: "+err.Error())
			return
		}
		realizedPL = pnl
		e.ledger.DebitAvailableCash(commission)
		e.ledger.UnfreezePosition(order.Symbol, match.FilledVolume)
	}

	order.Status = exchtypes.Filled
	order.FilledVolume = match.FilledVolume
	order.FilledTimeMs = now

	e.trades = append(e.trades, exchtypes.TradeRecord{
		TradeID:     e.ids.NextTradeID(now),
		OrderID:     order.OrderID,
		Symbol:      order.Symbol,
		Side:        order.Side,
		Price:       match.FilledPrice,
		Volume:      match.FilledVolume,
		Commission:  commission,
		TradeTimeMs: now,
		RealizedPL:  realizedPL,
	})
}

func (e *Exchange) processReject(order *exchtypes.Order, reason string) {
	switch order.Side {
	case exchtypes.Buy:
		if estimate, ok := e.estimates[order.OrderID]; ok {
			e.ledger.UnfreezeCash(estimate)
			delete(e.estimates, order.OrderID)
		}
	case exchtypes.Sell:
		e.ledger.UnfreezePosition(order.Symbol, order.Volume)
	}
	order.Status = exchtypes.Rejected
	order.RejectReason = reason
}

// CancelOrder cancels a PENDING order, wherever it currently lives
// (the active pending index or a limit queue), unfreezing whatever
// resources submit_order reserved. Returns false if the order is
// unknown or already left the PENDING state.
func (e *Exchange) CancelOrder(orderID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	order, ok := e.orders[orderID]
	if !ok || order.Status != exchtypes.Pending {
		return false
	}

	e.removePending(orderID)
	e.queue.RemoveFromQueue(orderID)

	switch order.Side {
	case exchtypes.Buy:
		if estimate, ok := e.estimates[orderID]; ok {
			e.ledger.UnfreezeCash(estimate)
			delete(e.estimates, orderID)
		}
	case exchtypes.Sell:
		e.ledger.UnfreezePosition(order.Symbol, order.Volume)
	}

	order.Status = exchtypes.Cancelled
	order.CancelTimeMs = money.NowMs()
	return true
}

// DailySettlement delegates to the Ledger's daily settlement.
func (e *Exchange) DailySettlement(currentDate int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ledger.DailySettlement(currentDate)
}

// --- order-registry bookkeeping ---

func (e *Exchange) addPending(order *exchtypes.Order) {
	fifo, ok := e.pending[order.Symbol]
	if !ok {
		fifo = list.New()
		e.pending[order.Symbol] = fifo
	}
	el := fifo.PushBack(order)
	e.pendingIndex[order.OrderID] = el
}

func (e *Exchange) removePending(orderID string) {
	el, ok := e.pendingIndex[orderID]
	if !ok {
		return
	}
	order := el.Value.(*exchtypes.Order)
	if fifo, ok := e.pending[order.Symbol]; ok {
		fifo.Remove(el)
	}
	delete(e.pendingIndex, orderID)
}

// --- read-only accessors ---

// GetOrder returns a copy of an order by ID.
func (e *Exchange) GetOrder(orderID string) (exchtypes.Order, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	o, ok := e.orders[orderID]
	if !ok {
		return exchtypes.Order{}, false
	}
	return *o, true
}

// GetPendingOrders returns every PENDING order (including ones parked
// in a limit queue), across all symbols.
func (e *Exchange) GetPendingOrders() []exchtypes.Order {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []exchtypes.Order
	for _, o := range e.orders {
		if o.Status == exchtypes.Pending {
			out = append(out, *o)
		}
	}
	return out
}

// GetPendingOrdersForSymbol returns PENDING orders restricted to one
// symbol.
func (e *Exchange) GetPendingOrdersForSymbol(symbol string) []exchtypes.Order {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []exchtypes.Order
	for _, o := range e.orders {
		if o.Status == exchtypes.Pending && o.Symbol == symbol {
			out = append(out, *o)
		}
	}
	return out
}

// GetTradeHistory returns every trade recorded so far, oldest first.
func (e *Exchange) GetTradeHistory() []exchtypes.TradeRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]exchtypes.TradeRecord, len(e.trades))
	copy(out, e.trades)
	return out
}

// GetPosition delegates to the Ledger.
func (e *Exchange) GetPosition(symbol string) (exchtypes.Position, bool) {
	return e.ledger.GetPosition(symbol)
}

// GetAllPositions delegates to the Ledger.
func (e *Exchange) GetAllPositions() map[string]exchtypes.Position {
	return e.ledger.GetAllPositions()
}

// GetTotalAssets delegates to the Ledger.
func (e *Exchange) GetTotalAssets() decimal.Decimal {
	return e.ledger.GetTotalAssets()
}

// GetAvailableCash delegates to the Ledger.
func (e *Exchange) GetAvailableCash() decimal.Decimal {
	return e.ledger.GetAvailableCash()
}

// GetWithdrawableCash delegates to the Ledger.
func (e *Exchange) GetWithdrawableCash() decimal.Decimal {
	return e.ledger.GetWithdrawableCash()
}

// GetFrozenCash delegates to the Ledger.
func (e *Exchange) GetFrozenCash() decimal.Decimal {
	return e.ledger.GetFrozenCash()
}

// AccountSnapshot returns a copy of the whole account for host-side
// reporting/persistence.
func (e *Exchange) AccountSnapshot() exchtypes.Account {
	return e.ledger.Snapshot()
}

func deriveDate(epochMs int64) int {
	t := time.UnixMilli(epochMs).UTC()
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

func decAbsDiff(a, b decimal.Decimal) decimal.Decimal {
	d := a.Sub(b)
	if d.IsNegative() {
		return d.Neg()
	}
	return d
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
