// Package config loads and validates the YAML run configuration
// cmd/exchangesim uses to construct an Exchange: initial capital, fee
// schedule, the symbol universe, and which journal backend to record
// trades with.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config is the complete run configuration.
type Config struct {
	Account    AccountConfig    `json:"account" yaml:"account"`
	Fees       FeeConfig        `json:"fees" yaml:"fees"`
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`
	Journal    JournalConfig    `json:"journal" yaml:"journal"`
}

// AccountConfig seeds the Ledger.
type AccountConfig struct {
	ID             string `json:"id" yaml:"id"`
	InitialCapital string `json:"initial_capital" yaml:"initial_capital"`
}

// FeeConfig holds the commission and slippage rates. cmd/exchangesim
// stamps CommissionRate onto every order it submits from an orders
// file; SlippageRate is validated but not applied to submitted orders.
type FeeConfig struct {
	CommissionRate string `json:"commission_rate" yaml:"commission_rate"`
	SlippageRate   string `json:"slippage_rate" yaml:"slippage_rate"`
}

// SimulationConfig names the symbols the replay feed drives and the
// holidays the calendar observes.
type SimulationConfig struct {
	Symbols  []string `json:"symbols" yaml:"symbols"`
	Holidays []int    `json:"holidays,omitempty" yaml:"holidays,omitempty"`
	Halted   []string `json:"halted,omitempty" yaml:"halted,omitempty"`
}

// JournalConfig selects and configures the persistence backend.
type JournalConfig struct {
	Type          string `json:"type" yaml:"type"` // "csv" or "sqlite"
	TradesFile    string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	SnapshotsFile string `json:"snapshots_file,omitempty" yaml:"snapshots_file,omitempty"`
	DBPath        string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// LoadFromFile loads configuration from a file (YAML, falling back to
// JSON for files that don't parse as YAML).
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	decision := cfg.Validate()
	if !decision.Allowed {
		return nil, fmt.Errorf("invalid config: %s", decision.Violations[0].Msg)
	}
	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on
// extension).
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if hasSuffix(path, ".yaml") || hasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}

// Violation names one failed configuration constraint.
type Violation struct {
	Code string
	Msg  string
}

// Decision is the typed validation result: Allowed is false iff
// Violations is non-empty.
type Decision struct {
	Allowed    bool
	Violations []Violation
}

func (d *Decision) add(code, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, Msg: msg})
	d.Allowed = false
}

// Validate checks every constraint the Exchange's construction
// depends on and collects every violation rather than stopping at the
// first, so a CLI preflight can report everything wrong at once.
func (c *Config) Validate() Decision {
	d := Decision{Allowed: true}

	if c.Account.ID == "" {
		d.add("NO_ACCOUNT_ID", "account.id is required")
	}
	capital, err := decimal.NewFromString(c.Account.InitialCapital)
	if err != nil {
		d.add("BAD_INITIAL_CAPITAL", "account.initial_capital must be a decimal string")
	} else if capital.LessThanOrEqual(decimal.Zero) {
		d.add("NON_POSITIVE_CAPITAL", "account.initial_capital must be positive")
	}

	if _, err := decimal.NewFromString(c.Fees.CommissionRate); err != nil {
		d.add("BAD_COMMISSION_RATE", "fees.commission_rate must be a decimal string")
	}
	if _, err := decimal.NewFromString(c.Fees.SlippageRate); err != nil {
		d.add("BAD_SLIPPAGE_RATE", "fees.slippage_rate must be a decimal string")
	}

	if len(c.Simulation.Symbols) == 0 {
		d.add("NO_SYMBOLS", "simulation.symbols must name at least one symbol")
	}

	switch c.Journal.Type {
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.SnapshotsFile == "" {
			d.add("MISSING_CSV_PATHS", "journal.trades_file and journal.snapshots_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			d.add("MISSING_DB_PATH", "journal.db_path required for SQLite type")
		}
	default:
		d.add("BAD_JOURNAL_TYPE", "journal.type must be 'csv' or 'sqlite'")
	}

	return d
}

// Default returns a configuration with sensible defaults for a quick
// local run trading symbol 600000.
func Default() *Config {
	return &Config{
		Account: AccountConfig{ID: "SIM-001", InitialCapital: "1000000.00"},
		Fees:    FeeConfig{CommissionRate: "0.00025", SlippageRate: "0.001"},
		Simulation: SimulationConfig{
			Symbols: []string{"600000"},
		},
		Journal: JournalConfig{
			Type:          "csv",
			TradesFile:    "./trades.csv",
			SnapshotsFile: "./snapshots.csv",
		},
	}
}
