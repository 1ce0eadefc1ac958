package table

import (
	"fmt"
	"strconv"
	"time"

	"github.com/Dicklesworthstone/procmon/internal/model"
)

// TimeLayout is how creation times are displayed, in local time.
const TimeLayout = "2006-01-02 15:04:05"

var byteUnits = []string{"B", "KB", "MB", "GB", "TB", "PB"}

// FormatBytes scales b by powers of 1024 up to PB, e.g. 1536 -> "1.50KB".
func FormatBytes(b uint64) string {
	value, unit := scaleBytes(b)
	return fmt.Sprintf("%.2f%s", value, unit)
}

func scaleBytes(b uint64) (float64, string) {
	value := float64(b)
	unit := 0
	for value >= 1024 && unit < len(byteUnits)-1 {
		value /= 1024
		unit++
	}
	return value, byteUnits[unit]
}

func FormatTime(t time.Time) string {
	return t.Local().Format(TimeLayout)
}

type formatter func(r *model.ProcessRecord) string

var formatters = map[model.Field]formatter{
	model.FieldPID:         func(r *model.ProcessRecord) string { return strconv.FormatInt(int64(r.PID), 10) },
	model.FieldName:        func(r *model.ProcessRecord) string { return r.Name },
	model.FieldPath:        func(r *model.ProcessRecord) string { return r.Path },
	model.FieldCreateTime:  func(r *model.ProcessRecord) string { return FormatTime(r.CreateTime) },
	model.FieldCores:       func(r *model.ProcessRecord) string { return strconv.Itoa(r.Cores) },
	model.FieldCPUUsage:    func(r *model.ProcessRecord) string { return strconv.FormatFloat(r.CPUUsage, 'f', 1, 64) },
	model.FieldStatus:      func(r *model.ProcessRecord) string { return r.Status },
	model.FieldNice:        func(r *model.ProcessRecord) string { return strconv.Itoa(r.Nice) },
	model.FieldMemoryUsage: func(r *model.ProcessRecord) string { return FormatBytes(r.MemoryUsage) },
	model.FieldReadBytes:   func(r *model.ProcessRecord) string { return FormatBytes(r.ReadBytes) },
	model.FieldWriteBytes:  func(r *model.ProcessRecord) string { return FormatBytes(r.WriteBytes) },
	model.FieldNumThreads:  func(r *model.ProcessRecord) string { return strconv.Itoa(r.NumThreads) },
	model.FieldUsername:    func(r *model.ProcessRecord) string { return r.Username },
}

// Format renders one field of r for display.
func Format(f model.Field, r *model.ProcessRecord) string {
	format, found := formatters[f]
	if !found {
		return ""
	}
	return format(r)
}
