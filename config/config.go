// Package config loads pvcbench settings from defaults, an optional config
// file, the environment and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/weiihann/pvcbench/harness"
	"github.com/weiihann/pvcbench/workload"
)

// EnvPrefix prefixes every environment override, e.g. PVCBENCH_SIZES_MAX.
const EnvPrefix = "PVCBENCH"

// Keys.
const (
	KeySizesMin     = "sizes.min"
	KeySizesMax     = "sizes.max"
	KeyWorkersMin   = "workers.min"
	KeyWorkersMax   = "workers.max"
	KeySequential   = "sequential"
	KeyParallel     = "parallel"
	KeyLauncher     = "launcher"
	KeyLauncherFlag = "launcher_flag"
	KeyLauncherArgs = "launcher_args"
	KeyTimingLabel  = "timing_label"
	KeyWorkDir      = "work_dir"
	KeyRuns         = "runs"
	KeyReport       = "report"
	KeySourceDir    = "source_dir"
	KeyTimeout      = "timeout"
)

// Config is the resolved configuration of both utilities.
type Config struct {
	Sizes        workload.Range
	Workers      workload.Range
	Sequential   string
	Parallel     string
	Launcher     harness.Launcher
	TimingLabel  string
	WorkDir      string
	RunsPath     string
	ReportPath   string
	SourceDir    string
	Timeout      time.Duration
	ConfigSource string
}

// New returns a viper instance carrying every default.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault(KeySizesMin, workload.DefaultSizes.Min)
	v.SetDefault(KeySizesMax, workload.DefaultSizes.Max)
	v.SetDefault(KeyWorkersMin, workload.DefaultWorkers.Min)
	v.SetDefault(KeyWorkersMax, workload.DefaultWorkers.Max)
	v.SetDefault(KeySequential, "../"+harness.SequentialBinary)
	v.SetDefault(KeyParallel, "../"+harness.ParallelBinary)
	v.SetDefault(KeyLauncher, "mpirun")
	v.SetDefault(KeyLauncherFlag, "-np")
	v.SetDefault(KeyLauncherArgs, []string{})
	v.SetDefault(KeyTimingLabel, harness.DefaultTimingLabel)
	v.SetDefault(KeyWorkDir, ".")
	v.SetDefault(KeyRuns, "runs.json")
	v.SetDefault(KeyReport, "data.json")
	v.SetDefault(KeySourceDir, "..")
	v.SetDefault(KeyTimeout, time.Duration(0))

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Options tells Load where to look for files.
type Options struct {
	// ConfigFile is an explicit config path. When empty, pvcbench.{yaml,
	// json,toml} is looked up in SearchDir.
	ConfigFile string
	SearchDir  string
	// EnvFile is loaded into the process environment when present, so
	// variables reach the solvers and the launcher too.
	EnvFile string
	Flags   *pflag.FlagSet
}

// Load resolves the configuration.
func Load(v *viper.Viper, opts Options) (Config, error) {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil &&
			opts.EnvFile != DefaultEnvFile {
			return Config{}, fmt.Errorf("load env file %s: %w", opts.EnvFile, err)
		}
	}

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		dir := opts.SearchDir
		if dir == "" {
			dir = "."
		}

		v.SetConfigName("pvcbench")
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.ConfigFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	if opts.Flags != nil {
		if err := bindFlags(v, opts.Flags); err != nil {
			return Config{}, err
		}
	}

	cfg := Config{
		Sizes: workload.Range{
			Min: v.GetInt(KeySizesMin),
			Max: v.GetInt(KeySizesMax),
		},
		Workers: workload.Range{
			Min: v.GetInt(KeyWorkersMin),
			Max: v.GetInt(KeyWorkersMax),
		},
		Sequential: v.GetString(KeySequential),
		Parallel:   v.GetString(KeyParallel),
		Launcher: harness.Launcher{
			Path:        v.GetString(KeyLauncher),
			WorkersFlag: v.GetString(KeyLauncherFlag),
			ExtraArgs:   v.GetStringSlice(KeyLauncherArgs),
		},
		TimingLabel:  v.GetString(KeyTimingLabel),
		WorkDir:      v.GetString(KeyWorkDir),
		RunsPath:     v.GetString(KeyRuns),
		ReportPath:   v.GetString(KeyReport),
		SourceDir:    v.GetString(KeySourceDir),
		Timeout:      v.GetDuration(KeyTimeout),
		ConfigSource: v.ConfigFileUsed(),
	}

	return cfg, nil
}

// DefaultEnvFile is read when present and silently skipped otherwise.
const DefaultEnvFile = ".env"

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"min-size":    KeySizesMin,
	"max-size":    KeySizesMax,
	"min-workers": KeyWorkersMin,
	"max-workers": KeyWorkersMax,
	"seq":         KeySequential,
	"par":         KeyParallel,
	"launcher":    KeyLauncher,
	"work-dir":    KeyWorkDir,
	"runs":        KeyRuns,
	"report":      KeyReport,
	"source-dir":  KeySourceDir,
	"timeout":     KeyTimeout,
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}

		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}

	return nil
}

// Validate checks the parts of the configuration a run depends on.
func (c Config) Validate() error {
	if err := c.Plan().Validate(); err != nil {
		return err
	}

	switch {
	case c.Sequential == "":
		return errors.New("sequential solver path is empty")
	case c.Parallel == "":
		return errors.New("parallel solver path is empty")
	case c.Launcher.Path == "":
		return errors.New("launcher is empty")
	case c.Launcher.WorkersFlag == "":
		return errors.New("launcher worker flag is empty")
	case c.TimingLabel == "":
		return errors.New("timing label is empty")
	case c.RunsPath == "":
		return errors.New("runs path is empty")
	case c.Timeout < 0:
		return fmt.Errorf("timeout %s is negative", c.Timeout)
	}

	return nil
}

// Plan returns the workload configuration.
func (c Config) Plan() workload.Config {
	return workload.Config{Sizes: c.Sizes, Workers: c.Workers}
}
