package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiihann/pvcbench/harness"
	"github.com/weiihann/pvcbench/workload"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(New(), Options{SearchDir: t.TempDir()})
	require.NoError(t, err)

	assert.Equal(t, workload.DefaultSizes, cfg.Sizes)
	assert.Equal(t, workload.DefaultWorkers, cfg.Workers)
	assert.Equal(t, "../pvcSeq", cfg.Sequential)
	assert.Equal(t, "../pvcPar", cfg.Parallel)
	assert.Equal(t, "mpirun", cfg.Launcher.Path)
	assert.Equal(t, "-np", cfg.Launcher.WorkersFlag)
	assert.Empty(t, cfg.Launcher.ExtraArgs)
	assert.Equal(t, harness.DefaultTimingLabel, cfg.TimingLabel)
	assert.Equal(t, "runs.json", cfg.RunsPath)
	assert.Equal(t, "data.json", cfg.ReportPath)
	assert.Equal(t, time.Duration(0), cfg.Timeout)
	assert.Empty(t, cfg.ConfigSource)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pvcbench.yaml"), []byte(`
sizes:
  min: 4
  max: 6
workers:
  max: 8
launcher: srun
launcher_flag: -n
launcher_args: ["--mpi=pmix"]
timing_label: "response time excluding I/O, in seconds: "
timeout: 90s
`), 0o644))

	cfg, err := Load(New(), Options{SearchDir: dir})
	require.NoError(t, err)

	assert.Equal(t, workload.Range{Min: 4, Max: 6}, cfg.Sizes)
	assert.Equal(t, workload.Range{Min: 2, Max: 8}, cfg.Workers)
	assert.Equal(t, harness.Launcher{
		Path:        "srun",
		WorkersFlag: "-n",
		ExtraArgs:   []string{"--mpi=pmix"},
	}, cfg.Launcher)
	assert.Equal(t, "response time excluding I/O, in seconds: ", cfg.TimingLabel)
	assert.Equal(t, 90*time.Second, cfg.Timeout)
	assert.Equal(t, filepath.Join(dir, "pvcbench.yaml"), cfg.ConfigSource)
}

func TestLoadExplicitConfigMissing(t *testing.T) {
	_, err := Load(New(), Options{
		ConfigFile: filepath.Join(t.TempDir(), "nope.json"),
	})
	require.Error(t, err)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pvcbench.json"),
		[]byte(`{"sizes": {"max": 6}}`), 0o644))

	t.Setenv("PVCBENCH_SIZES_MAX", "9")

	cfg, err := Load(New(), Options{SearchDir: dir})
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Sizes.Max)
}

func TestLoadFlagsOverrideEnv(t *testing.T) {
	t.Setenv("PVCBENCH_SIZES_MAX", "9")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("max-size", workload.DefaultSizes.Max, "")
	flags.String("seq", "", "")
	require.NoError(t, flags.Parse([]string{"--max-size", "5", "--seq", "./bin/pvcSeq"}))

	cfg, err := Load(New(), Options{SearchDir: t.TempDir(), Flags: flags})
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Sizes.Max)
	assert.Equal(t, "./bin/pvcSeq", cfg.Sequential)
}

func TestLoadUnchangedFlagKeepsDefault(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("runs", "other.json", "")
	require.NoError(t, flags.Parse(nil))

	cfg, err := Load(New(), Options{SearchDir: t.TempDir(), Flags: flags})
	require.NoError(t, err)
	assert.Equal(t, "runs.json", cfg.RunsPath)
}

func TestLoadEnvFile(t *testing.T) {
	const key = "PVCBENCH_LAUNCHER_FLAG"

	t.Cleanup(func() { os.Unsetenv(key) })

	envFile := filepath.Join(t.TempDir(), "bench.env")
	require.NoError(t, os.WriteFile(envFile, []byte(key+"=-n\n"), 0o644))

	cfg, err := Load(New(), Options{SearchDir: t.TempDir(), EnvFile: envFile})
	require.NoError(t, err)
	assert.Equal(t, "-n", cfg.Launcher.WorkersFlag)
}

func TestLoadEnvFileMissing(t *testing.T) {
	_, err := Load(New(), Options{
		SearchDir: t.TempDir(),
		EnvFile:   filepath.Join(t.TempDir(), "missing.env"),
	})
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	base, err := Load(New(), Options{SearchDir: t.TempDir()})
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"one worker", func(c *Config) { c.Workers.Min = 1 }},
		{"inverted sizes", func(c *Config) { c.Sizes = workload.Range{Min: 5, Max: 3} }},
		{"no sequential", func(c *Config) { c.Sequential = "" }},
		{"no parallel", func(c *Config) { c.Parallel = "" }},
		{"no launcher", func(c *Config) { c.Launcher.Path = "" }},
		{"no worker flag", func(c *Config) { c.Launcher.WorkersFlag = "" }},
		{"no label", func(c *Config) { c.TimingLabel = "" }},
		{"no runs", func(c *Config) { c.RunsPath = "" }},
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
