// Package sinks writes finished feature rows to the supported output
// formats. Every sink shares the historical feature-table schema so
// downstream tooling keeps working regardless of format.
package sinks

import (
	"context"
	"fmt"
	"strings"

	"github.com/Phlares/arenaflow/internal/model"
)

// Sink receives finished feature rows. Implementations are not safe
// for concurrent use; the batch driver serializes writes.
type Sink interface {
	// WriteRow appends one feature row.
	WriteRow(ctx context.Context, row *model.FeatureRow) error

	// Close flushes and releases the sink.
	Close() error
}

// Feature-table column names, in output order. The schema predates
// this implementation and is kept verbatim.
var columns = []string{
	"filename",
	"match_start_time",
	"cast_success_own",
	"interrupt_success_own",
	"times_interrupted",
	"precog_gained_own",
	"precog_gained_enemy",
	"purges_own",
	"damage_done",
	"healing_done",
	"deaths_caused",
	"times_died",
	"spells_cast",
	"spells_purged",
}

// listSeparator joins the spell-name lists into one cell.
const listSeparator = "; "

func joinList(names []string) string {
	return strings.Join(names, listSeparator)
}

// Config selects and parameterizes a sink.
type Config struct {
	Format      string // csv | parquet | duckdb
	Path        string
	Compression string // parquet only
}

// Open creates the sink named by cfg.Format.
func Open(cfg Config) (Sink, error) {
	switch cfg.Format {
	case "csv", "":
		return NewCSVSink(cfg.Path)
	case "parquet":
		return NewParquetSink(cfg.Path, cfg.Compression)
	case "duckdb":
		return NewDuckDBSink(cfg.Path)
	default:
		return nil, fmt.Errorf("unsupported sink format %q", cfg.Format)
	}
}
