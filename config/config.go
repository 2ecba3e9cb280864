// Package config loads server configuration from command line and an optional YAML file.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// defaults
const (
	DefaultListen     = "127.0.0.1:7878"
	DefaultDir        = "."
	DefaultBufferSize = 1024
)

// ErrUsage returned when the worker count argument is missing
var ErrUsage = errors.New("need only one argument 'num_of_threads'")

// Config is the server configuration
type Config struct {
	Workers    int     `yaml:"-"` // from command line only
	Listen     string  `yaml:"listen"`
	Dir        string  `yaml:"dir"`
	BufferSize int     `yaml:"buffer_size"`
	RateLimit  float64 `yaml:"rate_limit"` // jobs per second, 0 for no limit
	Debug      bool    `yaml:"debug"`
}

// Default returns configuration with default values
func Default() Config {
	return Config{Listen: DefaultListen, Dir: DefaultDir, BufferSize: DefaultBufferSize}
}

// LoadFile reads YAML config file, values missing in the file are taken from base
func LoadFile(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is provided by the operator
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	res := base
	if err := yaml.Unmarshal(data, &res); err != nil {
		return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return res, nil
}

// ParseWorkers parses the worker count argument, a base-10 non-negative integer.
// Zero is accepted here and rejected by the pool.
func ParseWorkers(s string) (int, error) {
	n, err := strconv.ParseUint(s, 10, 31)
	if err != nil {
		return 0, fmt.Errorf("please enter numbers only: %w", err)
	}
	return int(n), nil
}

// Parse builds configuration from command line arguments (without the program name).
// Exactly one positional argument, the number of workers, is required. Flags override
// values from the config file.
func Parse(args []string, stderr io.Writer) (Config, error) {
	fs := flag.NewFlagSet("webpool", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: webpool [flags] num_of_threads\n") //nolint:errcheck
		fs.PrintDefaults()
	}
	cfgFile := fs.String("config", "", "YAML config file")
	listen := fs.String("listen", "", "listen address (default "+DefaultListen+")")
	dir := fs.String("dir", "", "directory with hello.html and 404.html (default "+DefaultDir+")")
	rateLimit := fs.Float64("rate", 0, "max jobs started per second, 0 for no limit")
	dbg := fs.Bool("dbg", false, "debug mode")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if fs.NArg() != 1 {
		return Config{}, ErrUsage
	}
	workers, err := ParseWorkers(fs.Arg(0))
	if err != nil {
		return Config{}, err
	}

	res := Default()
	if *cfgFile != "" {
		if res, err = LoadFile(*cfgFile, res); err != nil {
			return Config{}, err
		}
	}

	res.Workers = workers
	if *listen != "" {
		res.Listen = *listen
	}
	if *dir != "" {
		res.Dir = *dir
	}
	if *rateLimit > 0 {
		res.RateLimit = *rateLimit
	}
	if *dbg {
		res.Debug = true
	}
	return res, res.Validate()
}

// Validate checks configuration values, worker count is validated by the pool
func (c Config) Validate() error {
	if c.Listen == "" {
		return errors.New("empty listen address")
	}
	if c.BufferSize < 1 {
		return fmt.Errorf("invalid buffer size %d", c.BufferSize)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("invalid rate limit %v", c.RateLimit)
	}
	return nil
}
