package journal

import (
	"database/sql"
	"time"

	"github.com/link-light/apexquant/exchtypes"
	_ "github.com/mattn/go-sqlite3"
)

type SQLiteJournal struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		return nil, err
	}

	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) RecordTrade(t exchtypes.TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(trade_id, order_id, symbol, side, price, volume, commission, trade_time_ms, realized_pl)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TradeID, t.OrderID, t.Symbol, t.Side.String(), t.Price.String(),
		t.Volume, t.Commission.String(), t.TradeTimeMs, t.RealizedPL.String(),
	)
	return err
}

func (j *SQLiteJournal) RecordSnapshot(a exchtypes.Account) error {
	_, err := j.db.Exec(`
		INSERT INTO snapshots
		(taken_at_ms, account_id, available_cash, withdrawable_cash, frozen_cash, total_assets, realized_pl)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		time.Now().UnixMilli(), a.AccountID, a.AvailableCash.String(),
		a.WithdrawableCash.String(), a.FrozenCash.String(), a.TotalAssets().String(), a.RealizedPL.String(),
	)
	return err
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
