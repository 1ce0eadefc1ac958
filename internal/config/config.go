package config

import (
	"regexp"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Dicklesworthstone/procmon/internal/model"
	"github.com/Dicklesworthstone/procmon/internal/table"
)

// EnvPrefix prefixes environment overrides, e.g. PROCMON_SORT_BY.
const EnvPrefix = "PROCMON"

// Config carries runtime options for procmon.
type Config struct {
	Columns    string
	SortBy     string
	Descending bool
	Limit      int
	LiveUpdate bool
	Interval   time.Duration
	Filter     string
	JSON       bool
	TUI        bool

	Kill    int32
	Suspend int32
	Resume  int32

	Debug   bool
	LogFile string
}

func Default() Config {
	return Config{
		Columns:  "name,path",
		SortBy:   model.FieldMemoryUsage.String(),
		Limit:    25,
		Interval: 700 * time.Millisecond,
	}
}

// BindFlags registers every option on fs, using cfg's current values as
// defaults.
func BindFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVarP(&cfg.Columns, "columns", "c", cfg.Columns,
		"comma separated columns to show; pid is always shown. Available: "+columnNames())
	fs.StringVarP(&cfg.SortBy, "sort-by", "s", cfg.SortBy, "column to sort by")
	fs.BoolVar(&cfg.Descending, "descending", cfg.Descending, "sort in descending order")
	fs.IntVarP(&cfg.Limit, "n", "n", cfg.Limit, "number of processes to show, 0 shows all")
	fs.BoolVarP(&cfg.LiveUpdate, "live-update", "u", cfg.LiveUpdate, "keep refreshing until interrupted")
	fs.DurationVar(&cfg.Interval, "interval", cfg.Interval, "refresh interval for --live-update and --tui")
	fs.StringVar(&cfg.Filter, "filter", cfg.Filter, "regex filter for process names")
	fs.BoolVar(&cfg.JSON, "json", cfg.JSON, "print one JSON object per refresh instead of a table")
	fs.BoolVar(&cfg.TUI, "tui", cfg.TUI, "full screen interactive view")
	fs.Int32Var(&cfg.Kill, "kill", cfg.Kill, "pid of a process to terminate")
	fs.Int32Var(&cfg.Suspend, "suspend", cfg.Suspend, "pid of a process to suspend")
	fs.Int32Var(&cfg.Resume, "resume", cfg.Resume, "pid of a process to resume")
	fs.BoolVarP(&cfg.Debug, "debug", "d", cfg.Debug, "debug logging")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "write logs to this file instead of stderr")
}

// ApplyEnv fills every flag left unset on the command line from its
// PROCMON_* environment variable (dashes become underscores).
func ApplyEnv(fs *pflag.FlagSet) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var errs error
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Changed || !v.IsSet(f.Name) {
			return
		}
		if err := fs.Set(f.Name, v.GetString(f.Name)); err != nil {
			errs = multierror.Append(errs, errors.WithMessagef(err, "environment override for '%s'", f.Name))
		}
	})
	return errs
}

// Validate resolves the display options. Unknown columns or sort keys are
// rejected here, before any process is inspected.
func (c Config) Validate() (table.Options, error) {
	sortKey, err := model.ParseField(c.SortBy)
	if err != nil {
		return table.Options{}, errors.WithMessage(err, "sort key")
	}

	columns, err := model.ParseColumns(c.Columns)
	if err != nil {
		return table.Options{}, errors.WithMessage(err, "columns")
	}

	if c.Limit < 0 {
		return table.Options{}, errors.Errorf("row limit must not be negative, got %d", c.Limit)
	}
	if (c.LiveUpdate || c.TUI) && c.Interval <= 0 {
		return table.Options{}, errors.Errorf("refresh interval must be positive, got '%s'", c.Interval)
	}
	if c.JSON && c.TUI {
		return table.Options{}, errors.New("--json and --tui are mutually exclusive")
	}

	opts := table.Options{
		SortKey:    sortKey,
		Descending: c.Descending,
		Columns:    columns,
		Limit:      c.Limit,
	}
	if c.Filter != "" {
		if opts.Filter, err = regexp.Compile(c.Filter); err != nil {
			return table.Options{}, errors.WithMessage(err, "filter")
		}
	}
	return opts, nil
}

func columnNames() string {
	names := make([]string, 0, len(model.Fields()))
	for _, f := range model.Fields() {
		if f == model.FieldPID {
			continue
		}
		names = append(names, f.String())
	}
	return strings.Join(names, ",")
}
