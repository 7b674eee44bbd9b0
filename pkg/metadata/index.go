package metadata

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Phlares/arenaflow/internal/model"
	"github.com/Phlares/arenaflow/pkg/errors"
)

// Index column names. The XLSX and CSV forms share one header set.
const (
	colFilename    = "filename"
	colStart       = "precise_start_time"
	colDuration    = "duration_s"
	colReliability = "matching_reliability"
	colZoneID      = "zone_id"
)

// startLayouts are the accepted index timestamp formats, most specific
// first.
var startLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// Index holds the loaded metadata records in declared-start order.
type Index struct {
	records    []*model.MetadataRecord
	byFilename map[string]*model.MetadataRecord
}

// LoadCSV reads a metadata index from a CSV file.
func LoadCSV(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeIndexUnreadable, "open metadata index")
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeIndexUnreadable, "read index header")
	}
	cols := columnMap(header)

	idx := newIndex()
	line := 1
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeIndexUnreadable, "read index row")
		}
		line++
		rec, rerr := recordFromRow(cols, row)
		if rerr != nil {
			return nil, errors.Wrapf(rerr, errors.CodeIndexUnreadable, "index row %d", line)
		}
		idx.add(rec)
	}

	idx.sortByStart()
	return idx, nil
}

// LoadXLSX reads a metadata index from the first sheet of an XLSX
// workbook, streaming rows rather than loading the sheet whole.
func LoadXLSX(path string) (*Index, error) {
	xl, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeIndexUnreadable, "open metadata workbook")
	}
	defer xl.Close()

	sheet := xl.GetSheetName(0)
	if sheet == "" {
		list := xl.GetSheetList()
		if len(list) == 0 {
			return nil, errors.New(errors.CodeIndexUnreadable, "workbook has no sheets")
		}
		sheet = list[0]
	}

	rows, err := xl.Rows(sheet)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeIndexUnreadable, "read workbook rows")
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, errors.New(errors.CodeIndexUnreadable, "workbook is empty")
	}
	header, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeIndexUnreadable, "read workbook header")
	}
	cols := columnMap(header)

	idx := newIndex()
	line := 1
	for rows.Next() {
		row, err := rows.Columns()
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeIndexUnreadable, "read workbook row")
		}
		line++
		if emptyRow(row) {
			continue
		}
		rec, rerr := recordFromRow(cols, row)
		if rerr != nil {
			return nil, errors.Wrapf(rerr, errors.CodeIndexUnreadable, "workbook row %d", line)
		}
		idx.add(rec)
	}

	idx.sortByStart()
	return idx, nil
}

// Load dispatches on the file extension.
func Load(path string) (*Index, error) {
	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return LoadXLSX(path)
	}
	return LoadCSV(path)
}

func newIndex() *Index {
	return &Index{byFilename: make(map[string]*model.MetadataRecord)}
}

func (x *Index) add(rec *model.MetadataRecord) {
	x.records = append(x.records, rec)
	x.byFilename[rec.Filename] = rec
}

func (x *Index) sortByStart() {
	sort.SliceStable(x.records, func(i, j int) bool {
		return x.records[i].DeclaredStart.Before(x.records[j].DeclaredStart)
	})
}

// Records returns all records in declared-start order. The slice is
// shared; callers must not mutate it.
func (x *Index) Records() []*model.MetadataRecord {
	return x.records
}

// Get returns the record for a recording filename.
func (x *Index) Get(filename string) (*model.MetadataRecord, bool) {
	rec, ok := x.byFilename[filename]
	return rec, ok
}

// Len returns the record count.
func (x *Index) Len() int {
	return len(x.records)
}

// AttachSidecars loads the ground-truth sidecar for every record from
// dir, where present. Returns the number of records enriched.
func (x *Index) AttachSidecars(dir string) (int, error) {
	n := 0
	for _, rec := range x.records {
		before := len(rec.GroundTruth)
		if err := LoadSidecar(SidecarPath(dir, rec.Filename), rec); err != nil {
			return n, err
		}
		if len(rec.GroundTruth) > before || rec.ZoneID != 0 {
			n++
		}
	}
	return n, nil
}

func columnMap(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, col := range header {
		m[strings.TrimSpace(strings.ToLower(col))] = i
	}
	return m
}

func emptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func cell(cols map[string]int, row []string, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// recordFromRow builds a MetadataRecord from one index row. The
// filename column is authoritative for player, bracket and arena; the
// start column overrides the filename timestamp when present, since
// the index carries the corrected start times.
func recordFromRow(cols map[string]int, row []string) (*model.MetadataRecord, error) {
	filename := cell(cols, row, colFilename)
	if filename == "" {
		return nil, fmt.Errorf("missing %s column", colFilename)
	}

	rec := &model.MetadataRecord{Filename: filename, Reliability: "medium"}

	if info, ok := ParseFilename(filename); ok {
		rec.DeclaredStart = info.Start
		rec.PrimaryActor = info.Player
		rec.Category = info.Category
		rec.Location = info.Location
	}

	if s := cell(cols, row, colStart); s != "" {
		ts, err := parseStart(s)
		if err != nil {
			return nil, err
		}
		rec.DeclaredStart = ts
	}
	if rec.DeclaredStart.IsZero() {
		return nil, fmt.Errorf("record %s has no start time", filename)
	}

	if s := cell(cols, row, colDuration); s != "" {
		secs, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("record %s: bad %s: %w", filename, colDuration, err)
		}
		rec.DeclaredDuration = time.Duration(secs * float64(time.Second))
	}

	if s := cell(cols, row, colReliability); s != "" {
		rec.Reliability = strings.ToLower(s)
	}

	if s := cell(cols, row, colZoneID); s != "" {
		id, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("record %s: bad %s: %w", filename, colZoneID, err)
		}
		rec.ZoneID = id
	}

	return rec, nil
}

func parseStart(s string) (time.Time, error) {
	for _, layout := range startLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized start time %q", s)
}
