// Package replay drives an Exchange from a CSV tick feed, the host
// application's substitute for a live market-data connection. It is
// used only by cmd/exchangesim; the core packages never import it.
package replay

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/link-light/apexquant/exchange"
	"github.com/link-light/apexquant/exchtypes"
	"github.com/shopspring/decimal"
)

// CSV replays tick rows from csvPath through ex.OnTick, in file order.
//
// Expected columns: symbol,timestamp_ms,last,bid,ask,volume,last_close
// A header row (first column literally "symbol") is skipped if
// present.
func CSV(csvPath string, ex *exchange.Exchange) error {
	f, err := os.Open(csvPath)
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	firstRow, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}

	hasHeader := len(firstRow) > 0 && strings.EqualFold(strings.TrimSpace(firstRow[0]), "symbol")
	if !hasHeader {
		if err := replayRow(ex, firstRow); err != nil {
			return err
		}
	}

	for {
		row, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if len(row) == 0 {
			continue
		}
		if err := replayRow(ex, row); err != nil {
			return err
		}
	}
}

func replayRow(ex *exchange.Exchange, row []string) error {
	if len(row) < 7 {
		return fmt.Errorf("bad row (need symbol,timestamp_ms,last,bid,ask,volume,last_close): %v", row)
	}

	symbol := strings.TrimSpace(row[0])

	ts, err := strconv.ParseInt(strings.TrimSpace(row[1]), 10, 64)
	if err != nil {
		return fmt.Errorf("bad timestamp_ms %q: %w", row[1], err)
	}

	last, err := decimal.NewFromString(strings.TrimSpace(row[2]))
	if err != nil {
		return fmt.Errorf("bad last %q: %w", row[2], err)
	}
	bid, err := decimal.NewFromString(strings.TrimSpace(row[3]))
	if err != nil {
		return fmt.Errorf("bad bid %q: %w", row[3], err)
	}
	ask, err := decimal.NewFromString(strings.TrimSpace(row[4]))
	if err != nil {
		return fmt.Errorf("bad ask %q: %w", row[4], err)
	}
	volume, err := strconv.ParseInt(strings.TrimSpace(row[5]), 10, 64)
	if err != nil {
		return fmt.Errorf("bad volume %q: %w", row[5], err)
	}
	lastClose, err := decimal.NewFromString(strings.TrimSpace(row[6]))
	if err != nil {
		return fmt.Errorf("bad last_close %q: %w", row[6], err)
	}

	ex.OnTick(exchtypes.TickSnapshot{
		Symbol:      symbol,
		TimestampMs: ts,
		LastPrice:   last,
		BidPrice:    bid,
		AskPrice:    ask,
		Volume:      volume,
		LastClose:   lastClose,
	})
	return nil
}
