package journal

const Schema = `
CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	order_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	price TEXT NOT NULL,
	volume INTEGER NOT NULL,
	commission TEXT NOT NULL,
	trade_time_ms INTEGER NOT NULL,
	realized_pl TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);
CREATE INDEX IF NOT EXISTS idx_trades_time ON trades(trade_time_ms);

CREATE TABLE IF NOT EXISTS snapshots (
	taken_at_ms INTEGER NOT NULL,
	account_id TEXT NOT NULL,
	available_cash TEXT NOT NULL,
	withdrawable_cash TEXT NOT NULL,
	frozen_cash TEXT NOT NULL,
	total_assets TEXT NOT NULL,
	realized_pl TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_time ON snapshots(taken_at_ms);
`
