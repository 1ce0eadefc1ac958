package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"
	"github.com/pkg/errors"

	"github.com/Dicklesworthstone/procmon/internal/model"
	"github.com/Dicklesworthstone/procmon/internal/table"
)

const clearScreen = "\033[H\033[2J"

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("45"))
	cellStyle   = lipgloss.NewStyle().PaddingRight(1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// RenderTable draws a view as a bordered table, pid first. Cells longer
// than maxCell runes are shortened; maxCell <= 0 keeps them whole.
func RenderTable(view table.View, maxCell int) string {
	rows := make([][]string, 0, len(view.Rows))
	for _, r := range view.Rows {
		row := make([]string, 0, len(r.Cells)+1)
		row = append(row, fmt.Sprintf("%d", r.PID))
		for _, cell := range r.Cells {
			if maxCell > 0 {
				cell = truncate(cell, maxCell)
			}
			row = append(row, cell)
		}
		rows = append(rows, row)
	}

	t := ltable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(view.Headers()...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == ltable.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	return t.Render()
}

// Summary is the one-line footer under a table.
func Summary(view table.View) string {
	return fmt.Sprintf("%d of %d processes, %s",
		len(view.Rows), view.Total, view.Taken.Local().Format(time.DateTime))
}

// SystemLine condenses host figures into one line.
func SystemLine(sys model.System) string {
	return fmt.Sprintf("cpu %5.1f%%  load %.2f %.2f %.2f  mem %s/%s  swap %s/%s",
		sys.CPU, sys.Load1, sys.Load5, sys.Load15,
		table.FormatBytes(sys.MemUsed), table.FormatBytes(sys.MemTotal),
		table.FormatBytes(sys.SwapUsed), table.FormatBytes(sys.SwapTotal))
}

// Printer writes each view as a table to w.
type Printer struct {
	w io.Writer
	// Clear wipes the terminal before each table so live updates redraw in
	// place.
	Clear bool
}

func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

func (p *Printer) Render(view table.View) error {
	var b strings.Builder
	if p.Clear {
		b.WriteString(clearScreen)
	}
	if view.System != nil {
		b.WriteString(labelStyle.Render(SystemLine(*view.System)))
		b.WriteString("\n")
	}
	b.WriteString(RenderTable(view, 0))
	b.WriteString("\n")
	b.WriteString(subtleStyle.Render(Summary(view)))
	b.WriteString("\n")

	_, err := io.WriteString(p.w, b.String())
	return errors.WithMessage(err, "write table")
}

type jsonRow struct {
	PID     int32             `json:"pid"`
	Columns map[string]string `json:"columns"`
}

type jsonSystem struct {
	CPU       float64 `json:"cpu_percent"`
	Load1     float64 `json:"load1"`
	Load5     float64 `json:"load5"`
	Load15    float64 `json:"load15"`
	MemUsed   uint64  `json:"mem_used"`
	MemTotal  uint64  `json:"mem_total"`
	SwapUsed  uint64  `json:"swap_used"`
	SwapTotal uint64  `json:"swap_total"`
}

type jsonView struct {
	Taken  time.Time   `json:"taken"`
	Total  int         `json:"total"`
	System *jsonSystem `json:"system,omitempty"`
	Rows   []jsonRow   `json:"rows"`
}

// JSONPrinter writes one JSON object per view, newline delimited.
type JSONPrinter struct {
	enc *json.Encoder
}

func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{enc: json.NewEncoder(w)}
}

func (p *JSONPrinter) Render(view table.View) error {
	out := jsonView{
		Taken: view.Taken,
		Total: view.Total,
		Rows:  make([]jsonRow, 0, len(view.Rows)),
	}
	if sys := view.System; sys != nil {
		out.System = &jsonSystem{
			CPU:       sys.CPU,
			Load1:     sys.Load1,
			Load5:     sys.Load5,
			Load15:    sys.Load15,
			MemUsed:   sys.MemUsed,
			MemTotal:  sys.MemTotal,
			SwapUsed:  sys.SwapUsed,
			SwapTotal: sys.SwapTotal,
		}
	}
	for _, r := range view.Rows {
		columns := make(map[string]string, len(view.Columns))
		for i, c := range view.Columns {
			columns[c.String()] = r.Cells[i]
		}
		out.Rows = append(out.Rows, jsonRow{PID: r.PID, Columns: columns})
	}
	return errors.WithMessage(p.enc.Encode(out), "encode view")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
