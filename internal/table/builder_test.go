package table

import (
	"math"
	"regexp"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dicklesworthstone/procmon/internal/model"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   uint64
		want string
	}{
		{0, "0.00B"},
		{1, "1.00B"},
		{1023, "1023.00B"},
		{1024, "1.00KB"},
		{1536, "1.50KB"},
		{1048576, "1.00MB"},
		{5 * 1 << 30, "5.00GB"},
		{1 << 40, "1.00TB"},
		{1 << 50, "1.00PB"},
		{1 << 60, "1024.00PB"},
		{math.MaxUint64, "16384.00PB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatBytes(tt.in), "FormatBytes(%d)", tt.in)
	}
}

func TestScaleBytesStaysBelowNextUnit(t *testing.T) {
	for b := uint64(1); b < math.MaxUint64/4; b = b*3 + 7 {
		value, unit := scaleBytes(b)
		if b < 1<<50 {
			assert.Less(t, value, 1024.0, "scaleBytes(%d) = %f%s", b, value, unit)
		} else {
			assert.Equal(t, "PB", unit)
		}
		assert.Equal(t, FormatBytes(b), FormatBytes(b))
	}
}

func TestFormatTime(t *testing.T) {
	ts := time.Date(2026, 3, 4, 5, 6, 7, 0, time.Local)
	assert.Equal(t, "2026-03-04 05:06:07", FormatTime(ts))
}

func snapshot(records ...model.ProcessRecord) model.Snapshot {
	return model.Snapshot{Taken: time.Unix(100, 0), Records: records}
}

func rowPIDs(v View) []int32 {
	pids := make([]int32, 0, len(v.Rows))
	for _, r := range v.Rows {
		pids = append(pids, r.PID)
	}
	return pids
}

func TestBuildSortsByMemory(t *testing.T) {
	snap := snapshot(
		model.ProcessRecord{PID: 10, Name: "a", MemoryUsage: 2048},
		model.ProcessRecord{PID: 20, Name: "b", MemoryUsage: 1024},
	)
	opts := Options{SortKey: model.FieldMemoryUsage, Columns: []model.Field{model.FieldName, model.FieldMemoryUsage}}

	asc, err := Build(snap, opts)
	require.NoError(t, err)
	assert.Equal(t, []int32{20, 10}, rowPIDs(asc))
	assert.Equal(t, []string{"b", "1.00KB"}, asc.Rows[0].Cells)
	assert.Equal(t, []string{"a", "2.00KB"}, asc.Rows[1].Cells)

	opts.Descending = true
	desc, err := Build(snap, opts)
	require.NoError(t, err)
	assert.Equal(t, []int32{10, 20}, rowPIDs(desc))
	assert.Equal(t, []string{"pid", "name", "memory_usage"}, desc.Headers())
}

func TestBuildIsStableInBothDirections(t *testing.T) {
	snap := snapshot(
		model.ProcessRecord{PID: 1, Nice: 0},
		model.ProcessRecord{PID: 2, Nice: 5},
		model.ProcessRecord{PID: 3, Nice: 0},
		model.ProcessRecord{PID: 4, Nice: 5},
		model.ProcessRecord{PID: 5, Nice: 0},
	)

	asc, err := Build(snap, Options{SortKey: model.FieldNice})
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 3, 5, 2, 4}, rowPIDs(asc))

	desc, err := Build(snap, Options{SortKey: model.FieldNice, Descending: true})
	require.NoError(t, err)
	assert.Equal(t, []int32{2, 4, 1, 3, 5}, rowPIDs(desc))
}

func TestBuildLimit(t *testing.T) {
	snap := snapshot(
		model.ProcessRecord{PID: 1, NumThreads: 3},
		model.ProcessRecord{PID: 2, NumThreads: 1},
		model.ProcessRecord{PID: 3, NumThreads: 2},
	)

	tests := []struct {
		limit int
		want  []int32
	}{
		{0, []int32{2, 3, 1}},
		{1, []int32{2}},
		{2, []int32{2, 3}},
		{3, []int32{2, 3, 1}},
		{10, []int32{2, 3, 1}},
	}
	for _, tt := range tests {
		v, err := Build(snap, Options{SortKey: model.FieldNumThreads, Limit: tt.limit})
		require.NoError(t, err)
		assert.Equal(t, tt.want, rowPIDs(v), "limit %d", tt.limit)
		assert.Equal(t, 3, v.Total)
	}
}

func TestBuildFilterByName(t *testing.T) {
	snap := snapshot(
		model.ProcessRecord{PID: 1, Name: "sshd"},
		model.ProcessRecord{PID: 2, Name: "bash"},
		model.ProcessRecord{PID: 3, Name: "sshd-session"},
	)
	v, err := Build(snap, Options{SortKey: model.FieldPID, Descending: true, Filter: regexp.MustCompile("^ssh")})
	require.NoError(t, err)
	assert.Equal(t, []int32{3, 1}, rowPIDs(v))
	assert.Equal(t, 2, v.Total)
}

func TestBuildFormatsEveryColumn(t *testing.T) {
	created := time.Date(2026, 5, 6, 7, 8, 9, 0, time.Local)
	snap := snapshot(model.ProcessRecord{
		PID: 9, Name: "n", Path: "/p", CreateTime: created, Cores: 8, CPUUsage: 3.14159,
		Status: "sleep", Nice: -3, MemoryUsage: 1536, ReadBytes: 0, WriteBytes: 1 << 20,
		NumThreads: 2, Username: "root",
	})
	columns := model.Fields()[1:]
	v, err := Build(snap, Options{SortKey: model.FieldName, Columns: columns})
	require.NoError(t, err)
	require.Len(t, v.Rows, 1)
	assert.Equal(t, []string{
		"n", "/p", "2026-05-06 07:08:09", "8", "3.1", "sleep", "-3",
		"1.50KB", "0.00B", "1.00MB", "2", "root",
	}, v.Rows[0].Cells)
}

func TestBuildDoesNotMutateSnapshot(t *testing.T) {
	snap := snapshot(
		model.ProcessRecord{PID: 1, MemoryUsage: 5},
		model.ProcessRecord{PID: 2, MemoryUsage: 1},
	)
	_, err := Build(snap, Options{SortKey: model.FieldMemoryUsage, Columns: []model.Field{model.FieldMemoryUsage}})
	require.NoError(t, err)
	assert.Equal(t, int32(1), snap.Records[0].PID)
	assert.Equal(t, uint64(5), snap.Records[0].MemoryUsage)
}

func TestBuildIsDeterministic(t *testing.T) {
	snap := snapshot(
		model.ProcessRecord{PID: 1, Username: "b"},
		model.ProcessRecord{PID: 2, Username: "a"},
		model.ProcessRecord{PID: 3, Username: "b"},
	)
	opts := Options{SortKey: model.FieldUsername, Columns: []model.Field{model.FieldUsername}, Limit: 2}
	first, err := Build(snap, opts)
	require.NoError(t, err)
	second, err := Build(snap, opts)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestBuildRejectsBadOptions(t *testing.T) {
	snap := snapshot(model.ProcessRecord{PID: 1})

	_, err := Build(snap, Options{SortKey: model.Field(42)})
	assert.True(t, errors.Is(err, model.ErrUnknownField))

	_, err = Build(snap, Options{SortKey: model.FieldName, Columns: []model.Field{model.FieldPID}})
	assert.True(t, errors.Is(err, model.ErrRowKeyColumn))

	_, err = Build(snap, Options{SortKey: model.FieldName, Columns: []model.Field{model.Field(-1)}})
	assert.True(t, errors.Is(err, model.ErrUnknownField))

	_, err = Build(snap, Options{SortKey: model.FieldName, Limit: -1})
	assert.Error(t, err)
}

func TestViewIndex(t *testing.T) {
	v, err := Build(snapshot(
		model.ProcessRecord{PID: 30, Name: "c"},
		model.ProcessRecord{PID: 10, Name: "a"},
	), Options{SortKey: model.FieldName})
	require.NoError(t, err)
	assert.Equal(t, map[int32]int{10: 0, 30: 1}, v.Index())
}

func TestBuildCarriesSystemFigures(t *testing.T) {
	snap := snapshot(model.ProcessRecord{PID: 1})
	snap.System = &model.System{Load1: 0.5}

	view, err := Build(snap, Options{SortKey: model.FieldPID})
	require.NoError(t, err)
	require.NotNil(t, view.System)
	assert.Equal(t, 0.5, view.System.Load1)
}
