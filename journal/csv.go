package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"github.com/link-light/apexquant/exchtypes"
)

type CSVJournal struct {
	trades    *csv.Writer
	snapshots *csv.Writer
	tf, sf    *os.File
}

func NewCSV(tradesPath, snapshotsPath string) (*CSVJournal, error) {
	tf, err := os.Create(tradesPath)
	if err != nil {
		return nil, err
	}
	sf, err := os.Create(snapshotsPath)
	if err != nil {
		return nil, err
	}

	tw := csv.NewWriter(tf)
	sw := csv.NewWriter(sf)

	if err := tw.Write([]string{"trade_id", "order_id", "symbol", "side", "price", "volume", "commission", "trade_time_ms", "realized_pl"}); err != nil {
		return nil, err
	}
	if err := sw.Write([]string{"taken_at_ms", "account_id", "available_cash", "withdrawable_cash", "frozen_cash", "total_assets", "realized_pl"}); err != nil {
		return nil, err
	}

	tw.Flush()
	if err := tw.Error(); err != nil {
		return nil, err
	}
	sw.Flush()
	if err := sw.Error(); err != nil {
		return nil, err
	}

	return &CSVJournal{trades: tw, snapshots: sw, tf: tf, sf: sf}, nil
}

func (j *CSVJournal) RecordTrade(t exchtypes.TradeRecord) error {
	if err := j.trades.Write([]string{
		t.TradeID,
		t.OrderID,
		t.Symbol,
		t.Side.String(),
		t.Price.String(),
		strconv.FormatInt(t.Volume, 10),
		t.Commission.String(),
		strconv.FormatInt(t.TradeTimeMs, 10),
		t.RealizedPL.String(),
	}); err != nil {
		return err
	}
	j.trades.Flush()
	return j.trades.Error()
}

func (j *CSVJournal) RecordSnapshot(a exchtypes.Account) error {
	if err := j.snapshots.Write([]string{
		strconv.FormatInt(time.Now().UnixMilli(), 10),
		a.AccountID,
		a.AvailableCash.String(),
		a.WithdrawableCash.String(),
		a.FrozenCash.String(),
		a.TotalAssets().String(),
		a.RealizedPL.String(),
	}); err != nil {
		return err
	}
	j.snapshots.Flush()
	return j.snapshots.Error()
}

func (j *CSVJournal) Close() error {
	j.trades.Flush()
	if err := j.trades.Error(); err != nil {
		return err
	}
	j.snapshots.Flush()
	if err := j.snapshots.Error(); err != nil {
		return err
	}

	if err := j.tf.Close(); err != nil {
		return err
	}
	return j.sf.Close()
}
