package activity

import "github.com/xuri/excelize/v2"

// LedgerQueryPort is the read side of the ledger. Writes go through
// LedgerService.Record directly so they can share the caller's transaction.
type LedgerQueryPort interface {
	Query(filter LogFilter) ([]LogRow, error)
	ExportXLSX(filter LogFilter) (*excelize.File, error)
}

var _ LedgerQueryPort = (*LedgerService)(nil)
