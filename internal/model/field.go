package model

import (
	"strings"

	"github.com/pkg/errors"
)

// Field names one column of a ProcessRecord.
type Field int

const (
	FieldPID Field = iota
	FieldName
	FieldPath
	FieldCreateTime
	FieldCores
	FieldCPUUsage
	FieldStatus
	FieldNice
	FieldMemoryUsage
	FieldReadBytes
	FieldWriteBytes
	FieldNumThreads
	FieldUsername
)

var (
	ErrUnknownField = errors.New("unknown field")
	ErrRowKeyColumn = errors.New("pid is the row key and cannot be selected as a column")
)

var fieldNames = map[Field]string{
	FieldPID:         "pid",
	FieldName:        "name",
	FieldPath:        "path",
	FieldCreateTime:  "create_time",
	FieldCores:       "cores",
	FieldCPUUsage:    "cpu_usage",
	FieldStatus:      "status",
	FieldNice:        "nice",
	FieldMemoryUsage: "memory_usage",
	FieldReadBytes:   "read_bytes",
	FieldWriteBytes:  "write_bytes",
	FieldNumThreads:  "n_threads",
	FieldUsername:    "username",
}

var fieldsByName = func() map[string]Field {
	m := make(map[string]Field, len(fieldNames))
	for f, name := range fieldNames {
		m[name] = f
	}
	return m
}()

func (f Field) String() string {
	name, found := fieldNames[f]
	if !found {
		return ""
	}
	return name
}

// Valid reports whether f is one of the known fields.
func (f Field) Valid() bool {
	_, found := fieldNames[f]
	return found
}

// Fields lists every field in declaration order.
func Fields() []Field {
	fields := make([]Field, 0, len(fieldNames))
	for f := FieldPID; f <= FieldUsername; f++ {
		fields = append(fields, f)
	}
	return fields
}

// ParseField resolves a field by its column name.
func ParseField(name string) (Field, error) {
	f, found := fieldsByName[strings.TrimSpace(name)]
	if !found {
		return 0, errors.WithMessagef(ErrUnknownField, "'%s'", name)
	}
	return f, nil
}

// ParseColumns resolves a comma separated column list, keeping its order.
// Empty entries are skipped; pid is refused since it is always shown.
func ParseColumns(list string) ([]Field, error) {
	parts := strings.Split(list, ",")
	columns := make([]Field, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		f, err := ParseField(part)
		if err != nil {
			return nil, err
		}
		if f == FieldPID {
			return nil, ErrRowKeyColumn
		}
		columns = append(columns, f)
	}
	return columns, nil
}
