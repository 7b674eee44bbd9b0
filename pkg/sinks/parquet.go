package sinks

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet"
	"github.com/apache/arrow/go/v14/parquet/compress"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"

	"github.com/Phlares/arenaflow/internal/model"
)

const parquetFlushRows = 1024

// ParquetSink writes feature rows to a Parquet file using Apache
// Arrow.
type ParquetSink struct {
	f      *os.File
	writer *pqarrow.FileWriter
	schema *arrow.Schema

	mu       sync.Mutex
	builder  *array.RecordBuilder
	buffered int
	closed   bool
}

// featureSchema returns the Arrow schema for the feature table.
func featureSchema() *arrow.Schema {
	fields := make([]arrow.Field, 0, len(columns))
	for _, name := range columns {
		switch name {
		case "filename", "match_start_time", "spells_cast", "spells_purged":
			fields = append(fields, arrow.Field{Name: name, Type: arrow.BinaryTypes.String, Nullable: false})
		default:
			fields = append(fields, arrow.Field{Name: name, Type: arrow.PrimitiveTypes.Int64, Nullable: false})
		}
	}
	return arrow.NewSchema(fields, nil)
}

// NewParquetSink creates a Parquet feature sink at path.
func NewParquetSink(path, compression string) (*ParquetSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	var codec compress.Compression
	switch compression {
	case "snappy", "":
		codec = compress.Codecs.Snappy
	case "gzip":
		codec = compress.Codecs.Gzip
	case "zstd":
		codec = compress.Codecs.Zstd
	case "none":
		codec = compress.Codecs.Uncompressed
	default:
		f.Close()
		return nil, fmt.Errorf("unsupported parquet compression %q", compression)
	}

	writerProps := parquet.NewWriterProperties(
		parquet.WithCompression(codec),
		parquet.WithDictionaryDefault(true),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

	schema := featureSchema()
	writer, err := pqarrow.NewFileWriter(schema, f, writerProps, arrowProps)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}

	return &ParquetSink{
		f:       f,
		writer:  writer,
		schema:  schema,
		builder: array.NewRecordBuilder(memory.NewGoAllocator(), schema),
	}, nil
}

// WriteRow implements Sink.
func (s *ParquetSink) WriteRow(_ context.Context, row *model.FeatureRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("parquet sink is closed")
	}

	c := &row.Counters
	cells := []interface{}{
		row.Filename,
		row.Interval.Start.UTC().Format("2006-01-02T15:04:05Z07:00"),
		c.CastSuccess,
		c.InterruptsDone,
		c.TimesInterrupted,
		c.BuffGainedSelf,
		c.BuffGainedOpponent,
		c.Purges,
		c.DamageDone,
		c.HealingDone,
		c.DeathsCaused,
		c.TimesDied,
		joinList(c.SpellsCast),
		joinList(c.SpellsPurged),
	}

	for i, cell := range cells {
		switch b := s.builder.Field(i).(type) {
		case *array.StringBuilder:
			b.Append(cell.(string))
		case *array.Int64Builder:
			b.Append(int64(cell.(int)))
		}
	}

	s.buffered++
	if s.buffered >= parquetFlushRows {
		return s.flushLocked()
	}
	return nil
}

func (s *ParquetSink) flushLocked() error {
	if s.buffered == 0 {
		return nil
	}
	rec := s.builder.NewRecord()
	defer rec.Release()
	if err := s.writer.Write(rec); err != nil {
		return fmt.Errorf("failed to write parquet batch: %w", err)
	}
	s.buffered = 0
	return nil
}

// Close implements Sink.
func (s *ParquetSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.flushLocked(); err != nil {
		s.writer.Close()
		s.f.Close()
		return err
	}
	s.builder.Release()
	if err := s.writer.Close(); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}
