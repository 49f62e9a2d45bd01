package cmd

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/karasz/gtscale/timescale"
)

// fileConfig is the gtscale configuration file.
type fileConfig struct {
	LeapFiles   []string           `yaml:"leapfiles"`
	LogLevel    string             `yaml:"log_level"`
	LeapSeconds []leapSecondConfig `yaml:"leap_seconds"`
}

// leapSecondConfig announces a leap second not yet in any table.
type leapSecondConfig struct {
	Date       string `yaml:"date"`
	Adjustment int    `yaml:"adjustment"`
}

func loadConfig(path string) (*fileConfig, error) {
	cfg := &fileConfig{}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func newLogger(level string, verbose bool) (*zap.Logger, error) {
	lvl := zapcore.WarnLevel
	if level != "" {
		var err error
		if lvl, err = zapcore.ParseLevel(level); err != nil {
			return nil, err
		}
	}
	if verbose {
		lvl = zapcore.DebugLevel
	}
	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

// parseDay reads YYYY-MM-DD as a Modified Julian Day.
func parseDay(s string) (int64, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return 0, err
	}
	return timescale.MJD(int64(t.Year()), int(t.Month()), t.Day())
}

func formatDay(day int64) string {
	y, m, d := timescale.Date(day)
	return fmt.Sprintf("%04d-%02d-%02d", y, m, d)
}

// buildRegistry loads the configured tables, falling back to the built-in
// one, and applies the configured leap seconds.
func buildRegistry(leapfiles []string, extra []leapSecondConfig, log *zap.Logger) (*timescale.Registry, error) {
	srcs := make([]timescale.Source, 0, len(leapfiles)+1)
	for _, f := range leapfiles {
		srcs = append(srcs, timescale.FileSource(f))
	}
	srcs = append(srcs, timescale.Builtin())

	reg, err := timescale.LoadRegistry(srcs, timescale.WithLogger(log))
	if err != nil {
		return nil, err
	}
	for _, ls := range extra {
		day, err := parseDay(ls.Date)
		if err != nil {
			return nil, fmt.Errorf("leap second %q: %w", ls.Date, err)
		}
		if err := reg.Register(day, ls.Adjustment); err != nil {
			return nil, fmt.Errorf("leap second %s: %w", ls.Date, err)
		}
	}
	return reg, nil
}
