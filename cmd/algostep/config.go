package main

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	yaml "go.yaml.in/yaml/v2"

	"github.com/dshills/algostep-go/viz"
)

// Config is the YAML run description.
//
//	algorithm: bfs
//	interval: 250ms
//	values: [10, 30, 20, 5, 40]
//	graph:
//	  nodes: [A, B, C, D]
//	  edges:
//	    - {from: A, to: B}
//	    - {from: A, to: C}
//	    - {from: B, to: D}
//	  start: A
type Config struct {
	Algorithm string          `yaml:"algorithm"`
	Interval  string          `yaml:"interval"`
	Values    []float64       `yaml:"values"`
	Graph     *viz.GraphInput `yaml:"graph"`
	Stream    bool            `yaml:"stream"`
	Archive   string          `yaml:"archive"`
}

// loadConfig reads and parses a YAML config file.
func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return parseConfig(data)
}

func parseConfig(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if _, err := config.interval(); err != nil {
		return nil, err
	}
	return &config, nil
}

// interval parses the configured interval; empty means unset.
func (c *Config) interval() (time.Duration, error) {
	if c.Interval == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Interval)
	if err != nil {
		return 0, fmt.Errorf("invalid interval %q: %w", c.Interval, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid interval %q: must be positive", c.Interval)
	}
	return d, nil
}

// parseValues splits a comma- or space-separated list of numbers. Entries
// that are not finite numbers are skipped, as the dataset input does.
func parseValues(s string) []float64 {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, v)
	}
	return out
}
