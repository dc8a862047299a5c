package config

import (
	"os"
	"strings"

	"codeberg.org/mutker/wearsim/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultIterations = 1000
	DefaultTimeUnits  = "hours"
	DefaultMechanisms = "all"
	DefaultDelimiter  = ","
	DefaultLogLevel   = "info"
)

// TimeUnits lists the accepted values for the time-units setting, smallest
// first. Conversion itself lives in the results package.
var TimeUnits = []string{"seconds", "minutes", "hours", "days", "weeks", "months", "years"}

type Config struct {
	Platform       string `mapstructure:"platform"`
	Iterations     int    `mapstructure:"iterations"`
	Mechanisms     string `mapstructure:"mechanisms"`
	TimeUnits      string `mapstructure:"time_units"`
	TraceDelimiter string `mapstructure:"trace_delimiter"`
	TechnologyFile string `mapstructure:"technology_file"`
	NBTIParams     string `mapstructure:"nbti_parameters"`
	EMParams       string `mapstructure:"em_parameters"`
	HCIParams      string `mapstructure:"hci_parameters"`
	TDDBParams     string `mapstructure:"tddb_parameters"`
	UnitRates      string `mapstructure:"unit_rates"`
	MechanismRates string `mapstructure:"mechanism_rates"`
	DumpTTFs       string `mapstructure:"dump_ttfs"`
	ResultsDB      string `mapstructure:"results_db"`
	Seed           int64  `mapstructure:"seed"`
	LogLevel       string `mapstructure:"log_level"`
	Debug          bool   `mapstructure:"debug"`
	Verbose        bool   `mapstructure:"verbose"`
}

// Load reads configuration from flags, environment and an optional
// wearsim.toml file, in that order of precedence.
func Load() (*Config, error) {
	return load(os.Args[1:])
}

func load(args []string) (*Config, error) {
	errFactory := errors.New()

	flags := pflag.NewFlagSet("wearsim", pflag.ContinueOnError)
	flags.String("platform", "", "Platform description file (YAML)")
	flags.Int("iterations", DefaultIterations, "Number of Monte-Carlo iterations to perform")
	flags.String("mechanisms", DefaultMechanisms, "Comma-separated list of aging mechanisms or \"all\"")
	flags.String("time-units", DefaultTimeUnits, "Units for displaying time to failure")
	flags.String("trace-delimiter", DefaultDelimiter, "One-character delimiter for trace files")
	flags.String("technology-file", "", "Technology constants shared by all aging mechanisms (YAML)")
	flags.String("nbti-parameters", "", "NBTI model parameter overrides (YAML)")
	flags.String("em-parameters", "", "Electromigration model parameter overrides (YAML)")
	flags.String("hci-parameters", "", "HCI model parameter overrides (YAML)")
	flags.String("tddb-parameters", "", "TDDB model parameter overrides (YAML)")
	flags.String("unit-rates", "", "Write per-unit aging rates, MTTFs and failure counts to CSV file")
	flags.String("mechanism-rates", "", "Write per-mechanism aging rates for each unit to CSV file")
	flags.String("dump-ttfs", "", "Dump raw time-to-failure samples to file")
	flags.String("results-db", "", "Store TTF samples in a SQLite database at this path")
	flags.Int64("seed", 0, "Random seed (0 seeds from the clock)")
	flags.String("log-level", DefaultLogLevel, "Log level (debug, info, warning, error)")
	flags.Bool("debug", false, "Enable debugging output")
	flags.Bool("verbose", false, "Enable verbose output")

	if err := flags.Parse(args); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	v := viper.New()
	v.SetDefault("iterations", DefaultIterations)
	v.SetDefault("mechanisms", DefaultMechanisms)
	v.SetDefault("time_units", DefaultTimeUnits)
	v.SetDefault("trace_delimiter", DefaultDelimiter)
	v.SetDefault("log_level", DefaultLogLevel)

	v.SetEnvPrefix("WEARSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if path := os.Getenv("WEARSIM_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	} else {
		v.SetConfigName("wearsim")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errFactory.Wrap(errors.ErrReadConfig, err)
			}
		}
	}

	// Flags override env and file values
	flags.Visit(func(f *pflag.Flag) {
		v.Set(strings.ReplaceAll(f.Name, "-", "_"), f.Value.String())
	})

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrReadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values that have no meaningful fallback.
func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.Iterations <= 0 {
		return errFactory.WithData(errors.ErrInvalidIterations, c.Iterations)
	}
	if !validTimeUnit(c.TimeUnits) {
		return errFactory.WithData(errors.ErrInvalidTimeUnit, c.TimeUnits)
	}
	if len([]rune(c.TraceDelimiter)) != 1 {
		return errFactory.WithData(errors.ErrInvalidConfig, "trace delimiter must be a single character")
	}
	switch c.LogLevel {
	case "debug", "info", "warning", "error":
	default:
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}

	return nil
}

// Delimiter returns the trace delimiter as a rune.
func (c *Config) Delimiter() rune {
	return []rune(c.TraceDelimiter)[0]
}

func validTimeUnit(u string) bool {
	for _, unit := range TimeUnits {
		if u == unit {
			return true
		}
	}
	return false
}
