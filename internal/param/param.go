// Package param implements the scheduler's parameter registry and CLI:
// every tunable named in SPEC_FULL.md §6 bound to a typed Config field,
// wired to flags via cobra/pflag, with an "@file" pre-pass and an
// optional YAML overlay. Grounded on the teacher's cobra root-command
// pattern, generalized from a single-purpose CLI into an explicit,
// struct-tag-free registry (mhlib's own mh_param.C discovers parameters
// through static-init registration; Go has no equivalent, so
// registration here happens explicitly in Config.BindFlags).
package param

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config holds every scheduler tunable, defaulted to the values the
// parameter table specifies.
type Config struct {
	// Termination criteria.
	TIter  int     `yaml:"titer"`  // max iterations, -1 disables
	TCIter int     `yaml:"tciter"` // max iterations since improvement, -1 disables
	TObj   float64 `yaml:"tobj"`   // target objective
	HasTObj bool   `yaml:"-"`
	TTime  float64 `yaml:"ttime"` // max seconds, 0 disables
	WCTime bool    `yaml:"wctime"`

	// Algorithm shape.
	Maxi     bool `yaml:"maxi"`     // should the objective be maximized?
	PopSize  int  `yaml:"popsize"`  // population size (PBIG)
	DupElim  int  `yaml:"dupelim"`  // 0 none, 1 children, 2 all
	SchThreads int `yaml:"schthreads"`
	SchSync  bool `yaml:"schsync"`
	SchPMig  float64 `yaml:"schpmig"`
	SchLISel int  `yaml:"schlisel"` // 0..5, selector.Strategy
	SchShaSel int `yaml:"schshasel"`
	SchLIRep bool `yaml:"schlirep"`

	Seed int64 `yaml:"seed"`

	// Logging.
	LFreq   int    `yaml:"lfreq"`
	LChOnly int    `yaml:"lchonly"`
	LBuffer int64  `yaml:"lbuffer"`
	LTime   bool   `yaml:"ltime"`
	OName   string `yaml:"oname"`
	ODir    string `yaml:"odir"`
	OutExt  string `yaml:"outext"`
	LogExt  string `yaml:"logext"`
	LogFormat string `yaml:"log_format"`

	// Ambient surfaces (SPEC_FULL.md additions).
	StatusAddr  string `yaml:"status_addr"`
	StatusToken string `yaml:"status_token"`
	ResultDSN   string `yaml:"result_dsn"`
	DupElimDSN  string `yaml:"dupelim_dsn"`
	ConfigFile  string `yaml:"-"`
}

// Default returns a Config populated with the parameter table's defaults.
func Default() *Config {
	return &Config{
		TIter: -1, TCIter: -1, TTime: 0, WCTime: false,
		Maxi: true, PopSize: 100, DupElim: 0,
		SchThreads: 1, SchSync: false, SchPMig: 0.1,
		SchLISel: 0, SchShaSel: 0, SchLIRep: true,
		Seed:    0,
		LFreq:   1, LChOnly: 1, LBuffer: 10, LTime: false,
		OName:   "@", ODir: "", OutExt: ".out", LogExt: ".log",
		LogFormat: "json",
	}
}

// BindFlags registers every Config field as a pflag, matching the names
// in SPEC_FULL.md §6 exactly ("--name value").
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.IntVar(&c.TIter, "titer", c.TIter, "terminate after this many iterations (-1: disabled)")
	fs.IntVar(&c.TCIter, "tciter", c.TCIter, "terminate after this many iterations without improvement (-1: disabled)")
	fs.Float64Var(&c.TObj, "tobj", c.TObj, "terminate once this objective value is reached")
	fs.Float64Var(&c.TTime, "ttime", c.TTime, "terminate after this many seconds (0: disabled)")
	fs.BoolVar(&c.WCTime, "wctime", c.WCTime, "wall-clock vs CPU time switch; accepted but not consulted: all times are measured by wall clock")

	fs.BoolVar(&c.Maxi, "maxi", c.Maxi, "should be maximized?")
	fs.IntVar(&c.PopSize, "popsize", c.PopSize, "population size")
	fs.IntVar(&c.DupElim, "dupelim", c.DupElim, "duplicate elimination: 0 none, 1 children, 2 all")
	fs.IntVar(&c.SchThreads, "schthreads", c.SchThreads, "number of parallel worker threads")
	fs.BoolVar(&c.SchSync, "schsync", c.SchSync, "synchronize worker threads for determinism")
	fs.Float64Var(&c.SchPMig, "schpmig", c.SchPMig, "probability of migrating the global best to a worker")
	fs.IntVar(&c.SchLISel, "schlisel", c.SchLISel, "local-improvement method selection strategy (0-5)")
	fs.IntVar(&c.SchShaSel, "schshasel", c.SchShaSel, "shaking method selection strategy (0-5)")
	fs.BoolVar(&c.SchLIRep, "schlirep", c.SchLIRep, "restart VND from the first local-improvement method on acceptance")

	fs.Int64Var(&c.Seed, "seed", c.Seed, "random seed (0: derive from current time)")

	fs.IntVar(&c.LFreq, "lfreq", c.LFreq, "log entry frequency (-1: geometric, 0: disabled, n: every n iterations)")
	fs.IntVar(&c.LChOnly, "lchonly", c.LChOnly, "log only on change (0 always, 1 on-change, 2 on-change-or-first)")
	fs.Int64Var(&c.LBuffer, "lbuffer", c.LBuffer, "number of log entries buffered before flush")
	fs.BoolVar(&c.LTime, "ltime", c.LTime, "include elapsed time column in the log")
	fs.StringVar(&c.OName, "oname", c.OName, "base name for output files ('@': stdout, 'NULL': discard)")
	fs.StringVar(&c.ODir, "odir", c.ODir, "directory for output files")
	fs.StringVar(&c.OutExt, "outext", c.OutExt, "extension for the solution output file")
	fs.StringVar(&c.LogExt, "logext", c.LogExt, "extension for the iteration log file")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "ops log format: json or text")

	fs.StringVar(&c.StatusAddr, "status-addr", c.StatusAddr, "address for the optional status/control HTTP surface (empty: disabled)")
	fs.StringVar(&c.StatusToken, "status-token", c.StatusToken, "bearer token secret for the status surface (empty: unauthenticated)")
	fs.StringVar(&c.ResultDSN, "result-dsn", c.ResultDSN, "Postgres DSN for persisting run summaries (empty: disabled)")
	fs.StringVar(&c.DupElimDSN, "dupelim-dsn", c.DupElimDSN, "Redis DSN for a shared duplicate-elimination index (empty: in-memory)")
	fs.StringVar(&c.ConfigFile, "config", c.ConfigFile, "YAML file overlaying these defaults before flags are applied")
}

// NoteTObjProvided must be called after flag parsing with whether --tobj
// was explicitly set, since a target objective of 0 is a valid target
// and cannot be distinguished from "unset" by its zero value alone.
func (c *Config) NoteTObjProvided(provided bool) { c.HasTObj = provided }

// ExpandArgFiles rewrites argv, replacing any "@path" token with the
// whitespace-split contents of the file at path (§6 "@file" convention).
// Lines whose first non-blank character is '#' are skipped as comments.
// Nested @file tokens are expanded recursively.
func ExpandArgFiles(argv []string) ([]string, error) {
	out := make([]string, 0, len(argv))
	for _, a := range argv {
		if strings.HasPrefix(a, "@") && len(a) > 1 {
			data, err := os.ReadFile(a[1:])
			if err != nil {
				return nil, fmt.Errorf("param: reading arg file %s: %w", a[1:], err)
			}
			var fields []string
			for _, line := range strings.Split(string(data), "\n") {
				if strings.HasPrefix(strings.TrimSpace(line), "#") {
					continue
				}
				fields = append(fields, strings.Fields(line)...)
			}
			expanded, err := ExpandArgFiles(fields)
			if err != nil {
				return nil, err
			}
			out = append(out, expanded...)
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// LoadYAML overlays cfg's fields with values from the YAML file at path.
// Only fields present in the file are overwritten.
func LoadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("param: reading config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("param: parsing config file %s: %w", path, err)
	}
	return nil
}

// NewRootFlags attaches Config's flags to cmd's persistent flag set and
// returns cfg, ready for parsing.
func NewRootFlags(cmd *cobra.Command) *Config {
	cfg := Default()
	cfg.BindFlags(cmd.PersistentFlags())
	return cfg
}
