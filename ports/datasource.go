package ports

import (
	"context"

	"gogrowth/domain/plate"
)

// DataSource produces an observation table from a named external input
// (plate-reader workbook, CSV export, ...). Parsing details stay behind the
// adapter; the core only sees validated observations.
type DataSource interface {
	Read(ctx context.Context, name string) (*plate.Table, error)
}
