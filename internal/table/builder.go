package table

import (
	"cmp"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/Dicklesworthstone/procmon/internal/model"
)

// Options selects, orders and bounds the rows of a View.
type Options struct {
	SortKey    model.Field
	Descending bool
	Columns    []model.Field
	Limit      int            // 0 keeps every row
	Filter     *regexp.Regexp // matched against the process name, nil keeps all
}

// Validate rejects options that cannot produce a view.
func (o Options) Validate() error {
	if _, found := comparators[o.SortKey]; !found {
		return errors.WithMessagef(model.ErrUnknownField, "sort key %d", int(o.SortKey))
	}
	for _, column := range o.Columns {
		if column == model.FieldPID {
			return model.ErrRowKeyColumn
		}
		if !column.Valid() {
			return errors.WithMessagef(model.ErrUnknownField, "column %d", int(column))
		}
	}
	if o.Limit < 0 {
		return errors.Errorf("negative row limit %d", o.Limit)
	}
	return nil
}

// Row is one displayed process, keyed by pid.
type Row struct {
	PID   int32
	Cells []string
}

// View is the ordered, formatted and truncated form of a Snapshot.
type View struct {
	Taken   time.Time
	Columns []model.Field
	Rows    []Row
	Total   int           // rows before truncation
	System  *model.System // host figures, if sampled
}

// Headers returns the column titles, pid first.
func (v View) Headers() []string {
	headers := make([]string, 0, len(v.Columns)+1)
	headers = append(headers, model.FieldPID.String())
	for _, c := range v.Columns {
		headers = append(headers, c.String())
	}
	return headers
}

// Index maps each pid to its row position.
func (v View) Index() map[int32]int {
	index := make(map[int32]int, len(v.Rows))
	for i, row := range v.Rows {
		index[row.PID] = i
	}
	return index
}

var comparators = map[model.Field]func(a, b *model.ProcessRecord) int{
	model.FieldPID:         func(a, b *model.ProcessRecord) int { return cmp.Compare(a.PID, b.PID) },
	model.FieldName:        func(a, b *model.ProcessRecord) int { return strings.Compare(a.Name, b.Name) },
	model.FieldPath:        func(a, b *model.ProcessRecord) int { return strings.Compare(a.Path, b.Path) },
	model.FieldCreateTime:  func(a, b *model.ProcessRecord) int { return a.CreateTime.Compare(b.CreateTime) },
	model.FieldCores:       func(a, b *model.ProcessRecord) int { return cmp.Compare(a.Cores, b.Cores) },
	model.FieldCPUUsage:    func(a, b *model.ProcessRecord) int { return cmp.Compare(a.CPUUsage, b.CPUUsage) },
	model.FieldStatus:      func(a, b *model.ProcessRecord) int { return strings.Compare(a.Status, b.Status) },
	model.FieldNice:        func(a, b *model.ProcessRecord) int { return cmp.Compare(a.Nice, b.Nice) },
	model.FieldMemoryUsage: func(a, b *model.ProcessRecord) int { return cmp.Compare(a.MemoryUsage, b.MemoryUsage) },
	model.FieldReadBytes:   func(a, b *model.ProcessRecord) int { return cmp.Compare(a.ReadBytes, b.ReadBytes) },
	model.FieldWriteBytes:  func(a, b *model.ProcessRecord) int { return cmp.Compare(a.WriteBytes, b.WriteBytes) },
	model.FieldNumThreads:  func(a, b *model.ProcessRecord) int { return cmp.Compare(a.NumThreads, b.NumThreads) },
	model.FieldUsername:    func(a, b *model.ProcessRecord) int { return strings.Compare(a.Username, b.Username) },
}

// Build filters, sorts, truncates and formats a snapshot. It does not modify
// the snapshot, and equal sort keys keep their enumeration order whichever
// the direction.
func Build(snap model.Snapshot, opts Options) (View, error) {
	if err := opts.Validate(); err != nil {
		return View{}, err
	}

	records := make([]*model.ProcessRecord, 0, len(snap.Records))
	for i := range snap.Records {
		r := &snap.Records[i]
		if opts.Filter != nil && !opts.Filter.MatchString(r.Name) {
			continue
		}
		records = append(records, r)
	}

	compare := comparators[opts.SortKey]
	slices.SortStableFunc(records, func(a, b *model.ProcessRecord) int {
		if opts.Descending {
			return compare(b, a)
		}
		return compare(a, b)
	})

	total := len(records)
	if opts.Limit > 0 && opts.Limit < total {
		records = records[:opts.Limit]
	}

	columns := slices.Clone(opts.Columns)
	rows := make([]Row, 0, len(records))
	for _, r := range records {
		cells := make([]string, 0, len(columns))
		for _, c := range columns {
			cells = append(cells, Format(c, r))
		}
		rows = append(rows, Row{PID: r.PID, Cells: cells})
	}

	return View{Taken: snap.Taken, Columns: columns, Rows: rows, Total: total, System: snap.System}, nil
}
