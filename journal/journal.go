// Package journal persists TradeRecords and account snapshots emitted
// by the exchange core. It is a host-side concern: the core packages
// (exchange, ledger, matcher, limitqueue) never import it — cmd/exchangesim
// wires a Journal implementation in and, once the tick replay and the
// daily settlement are done, records every trade and one final account
// snapshot.
package journal

import "github.com/link-light/apexquant/exchtypes"

// Journal is the persistence sink a host application drives.
type Journal interface {
	RecordTrade(exchtypes.TradeRecord) error
	RecordSnapshot(exchtypes.Account) error
	Close() error
}
