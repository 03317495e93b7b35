package cmd

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/link-light/apexquant/calendar"
	"github.com/link-light/apexquant/config"
	"github.com/link-light/apexquant/exchange"
	"github.com/link-light/apexquant/exchtypes"
	"github.com/link-light/apexquant/internal/replay"
	"github.com/link-light/apexquant/journal"
	"github.com/link-light/apexquant/pkg/id"
	"github.com/link-light/apexquant/symbolstatus"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	runConfigPath string
	runTicksPath  string
	runOrdersPath string
	runSettle     bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Replay a tick feed through the exchange core and journal the results",
	Long: `run loads a config file (or the built-in defaults), submits any
orders named in --orders, replays --ticks through the exchange, and
writes every trade and a final account snapshot to the configured
journal.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runConfigPath, "config", "", "path to a YAML/JSON config file (defaults to config.Default())")
	runCmd.Flags().StringVar(&runTicksPath, "ticks", "", "path to a CSV tick feed (required)")
	runCmd.Flags().StringVar(&runOrdersPath, "orders", "", "path to a CSV of orders to submit before replay")
	runCmd.Flags().BoolVar(&runSettle, "settle", true, "run end-of-day settlement for today if the calendar says it's a trading day")
	_ = runCmd.MarkFlagRequired("ticks")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	runID := id.New()

	cfg := config.Default()
	if runConfigPath != "" {
		loaded, err := config.LoadFromFile(runConfigPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	capital, err := decimal.NewFromString(cfg.Account.InitialCapital)
	if err != nil {
		return fmt.Errorf("parse initial capital: %w", err)
	}
	ex := exchange.New(cfg.Account.ID, capital)

	j, err := openJournal(cfg.Journal)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	halted := symbolstatus.NewStaticOracle(cfg.Simulation.Halted)

	if runOrdersPath != "" {
		if err := submitOrdersFromCSV(ex, runOrdersPath, cfg, halted); err != nil {
			return fmt.Errorf("submit orders: %w", err)
		}
	}

	if err := replay.CSV(runTicksPath, ex); err != nil {
		return fmt.Errorf("replay ticks: %w", err)
	}

	if runSettle {
		cal := calendar.NewStaticCalendar(cfg.Simulation.Holidays)
		today := todayDate()
		if cal.IsTradingDay(today) {
			ex.DailySettlement(today)
		}
	}

	for _, trade := range ex.GetTradeHistory() {
		if err := j.RecordTrade(trade); err != nil {
			return fmt.Errorf("journal trade %s: %w", trade.TradeID, err)
		}
	}
	snapshot := ex.AccountSnapshot()
	if err := j.RecordSnapshot(snapshot); err != nil {
		return fmt.Errorf("journal snapshot: %w", err)
	}

	fmt.Printf("run %s complete\n", runID)
	fmt.Printf("  account:          %s\n", snapshot.AccountID)
	fmt.Printf("  available cash:   %s\n", snapshot.AvailableCash.StringFixed(2))
	fmt.Printf("  withdrawable:     %s\n", ex.GetWithdrawableCash().StringFixed(2))
	fmt.Printf("  total assets:     %s\n", ex.GetTotalAssets().StringFixed(2))
	fmt.Printf("  trades recorded:  %d\n", len(ex.GetTradeHistory()))
	return nil
}

func todayDate() int {
	now := time.Now()
	return now.Year()*10000 + int(now.Month())*100 + now.Day()
}

func openJournal(cfg config.JournalConfig) (journal.Journal, error) {
	switch cfg.Type {
	case "sqlite":
		return journal.NewSQLite(cfg.DBPath)
	default:
		return journal.NewCSV(cfg.TradesFile, cfg.SnapshotsFile)
	}
}

// submitOrdersFromCSV reads symbol,side,type,volume,price rows and
// submits each as an order on ex before the tick feed replays. price
// is ignored for MARKET orders but still expected as a column so the
// file format stays fixed-width.
func submitOrdersFromCSV(ex *exchange.Exchange, path string, cfg *config.Config, halted *symbolstatus.StaticOracle) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	commissionRate, err := decimal.NewFromString(cfg.Fees.CommissionRate)
	if err != nil {
		return fmt.Errorf("bad fees.commission_rate: %w", err)
	}

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	first, err := r.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return err
	}
	if !(len(first) > 0 && strings.EqualFold(strings.TrimSpace(first[0]), "symbol")) {
		if err := submitOrderRow(ex, first, commissionRate, halted); err != nil {
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
		if err := submitOrderRow(ex, row, commissionRate, halted); err != nil {
			return err
		}
	}
}

func submitOrderRow(ex *exchange.Exchange, row []string, commissionRate decimal.Decimal, halted *symbolstatus.StaticOracle) error {
	if len(row) < 5 {
		return fmt.Errorf("bad order row (need symbol,side,type,volume,price): %v", row)
	}

	symbol := strings.TrimSpace(row[0])
	if halted.IsHalted(symbol) {
		return fmt.Errorf("symbol %s is halted, refusing to submit order", symbol)
	}

	side, err := parseSide(row[1])
	if err != nil {
		return err
	}
	orderType, err := parseType(row[2])
	if err != nil {
		return err
	}
	volume, err := strconv.ParseInt(strings.TrimSpace(row[3]), 10, 64)
	if err != nil {
		return fmt.Errorf("bad volume %q: %w", row[3], err)
	}

	var price decimal.Decimal
	if orderType == exchtypes.Limit {
		price, err = decimal.NewFromString(strings.TrimSpace(row[4]))
		if err != nil {
			return fmt.Errorf("bad price %q: %w", row[4], err)
		}
	}

	ex.SubmitOrder(exchtypes.Order{
		Symbol:         symbol,
		Side:           side,
		Type:           orderType,
		Volume:         volume,
		Price:          price,
		CommissionRate: commissionRate,
	})
	return nil
}

func parseSide(s string) (exchtypes.OrderSide, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY":
		return exchtypes.Buy, nil
	case "SELL":
		return exchtypes.Sell, nil
	default:
		return 0, fmt.Errorf("bad side %q (want BUY or SELL)", s)
	}
}

func parseType(s string) (exchtypes.OrderType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "MARKET":
		return exchtypes.Market, nil
	case "LIMIT":
		return exchtypes.Limit, nil
	default:
		return 0, fmt.Errorf("bad order type %q (want MARKET or LIMIT)", s)
	}
}
