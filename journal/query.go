package journal

import (
	"database/sql"
	"fmt"

	"github.com/link-light/apexquant/exchtypes"
	"github.com/shopspring/decimal"
)

// GetTrade returns a single trade record by ID.
func (j *SQLiteJournal) GetTrade(tradeID string) (exchtypes.TradeRecord, error) {
	row := j.db.QueryRow(`
		SELECT trade_id, order_id, symbol, side, price, volume, commission, trade_time_ms, realized_pl
		FROM trades
		WHERE trade_id = ?`, tradeID)

	rec, err := scanTrade(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return exchtypes.TradeRecord{}, fmt.Errorf("trade %q not found", tradeID)
		}
		return exchtypes.TradeRecord{}, err
	}
	return rec, nil
}

// ListTradesBetween returns trades whose trade_time_ms falls within
// [startMs, endMs), ordered oldest first.
func (j *SQLiteJournal) ListTradesBetween(startMs, endMs int64) ([]exchtypes.TradeRecord, error) {
	rows, err := j.db.Query(`
		SELECT trade_id, order_id, symbol, side, price, volume, commission, trade_time_ms, realized_pl
		FROM trades
		WHERE trade_time_ms >= ? AND trade_time_ms < ?
		ORDER BY trade_time_ms ASC`, startMs, endMs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []exchtypes.TradeRecord
	for rows.Next() {
		rec, err := scanTradeRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListTradesForSymbol returns every trade recorded for symbol, oldest
// first.
func (j *SQLiteJournal) ListTradesForSymbol(symbol string) ([]exchtypes.TradeRecord, error) {
	rows, err := j.db.Query(`
		SELECT trade_id, order_id, symbol, side, price, volume, commission, trade_time_ms, realized_pl
		FROM trades
		WHERE symbol = ?
		ORDER BY trade_time_ms ASC`, symbol)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []exchtypes.TradeRecord
	for rows.Next() {
		rec, err := scanTradeRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrade(row *sql.Row) (exchtypes.TradeRecord, error) {
	return scanTradeRow(row)
}

func scanTradeRow(s rowScanner) (exchtypes.TradeRecord, error) {
	var rec exchtypes.TradeRecord
	var side, price, commission, realizedPL string

	if err := s.Scan(
		&rec.TradeID, &rec.OrderID, &rec.Symbol, &side,
		&price, &rec.Volume, &commission, &rec.TradeTimeMs, &realizedPL,
	); err != nil {
		return exchtypes.TradeRecord{}, err
	}

	rec.Side = parseSide(side)
	rec.Price = decimal.RequireFromString(price)
	rec.Commission = decimal.RequireFromString(commission)
	rec.RealizedPL = decimal.RequireFromString(realizedPL)
	return rec, nil
}

func parseSide(s string) exchtypes.OrderSide {
	if s == "BUY" {
		return exchtypes.Buy
	}
	return exchtypes.Sell
}
