// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package app wires pkg/tsb and pkg/cdai into a small runnable harness: a
// writer goroutine appends fragments and ad signals, an injector goroutine
// walks a Reader across them, and a chi mux exposes the resulting state.
package app

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/providers/structs"
	"github.com/spf13/pflag"

	"github.com/rdkcentral/meta-middleware-generic-support-sub009/pkg/logging"
)

// Config holds everything needed to start the simulation and its
// diagnostic server.
type Config struct {
	LogFormat string `json:"logformat"`
	LogLevel  string `json:"loglevel"`
	Port      int    `json:"port"`

	// FragmentDurationMS is the size of each simulated fragment.
	FragmentDurationMS int `json:"fragmentdurationms"`
	// PeriodFragmentCount is how many fragments make up one source period
	// before the simulated writer rolls over to the next period id.
	PeriodFragmentCount int `json:"periodfragmentcount"`
	// AdBreakAfterPeriods inserts a simulated adbreak at the start of every
	// Nth source period (never period 0); 0 disables ad simulation entirely.
	AdBreakAfterPeriods int `json:"adbreakafterperiods"`
}

var DefaultConfig = Config{
	LogFormat:            logging.LogText,
	LogLevel:             "INFO",
	Port:                 8889,
	FragmentDurationMS:   2000,
	PeriodFragmentCount:  5,
	AdBreakAfterPeriods:  2,
}

// LoadConfig loads defaults, then a --cfg file if given, then CLI flags, then
// TSBSIM_-prefixed environment overrides, matching the order used by the
// teacher's server config loader.
func LoadConfig(args []string) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(DefaultConfig, "json"), nil); err != nil {
		return nil, err
	}

	f := pflag.NewFlagSet("tsbsim", pflag.ContinueOnError)
	f.Usage = func() {
		parts := strings.Split(args[0], "/")
		name := parts[len(parts)-1]
		fmt.Printf("Run as %s [options]:\n", name)
		f.PrintDefaults()
	}
	cfgFile := f.String("cfg", "", "path to a JSON config file")
	f.Int("port", k.Int("port"), "diagnostic HTTP port")
	lf := strings.Join(logging.LogFormats, ", ")
	f.String("logformat", k.String("logformat"), fmt.Sprintf("log format [%s]", lf))
	ll := strings.Join(logging.LogLevels, ", ")
	f.String("loglevel", k.String("loglevel"), fmt.Sprintf("log level [%s]", ll))
	f.Int("fragmentdurationms", k.Int("fragmentdurationms"), "duration of each simulated fragment in ms")
	f.Int("periodfragmentcount", k.Int("periodfragmentcount"), "fragments per simulated source period")
	f.Int("adbreakafterperiods", k.Int("adbreakafterperiods"), "insert a simulated adbreak every N periods (0 disables)")
	if err := f.Parse(args[1:]); err != nil {
		return nil, fmt.Errorf("command line parse: %w", err)
	}

	if *cfgFile != "" {
		if err := k.Load(file.Provider(*cfgFile), json.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
		return nil, fmt.Errorf("parsing cli: %w", err)
	}

	err := k.Load(env.Provider("TSBSIM_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "TSBSIM_")), "_", ".")
	}), nil)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
