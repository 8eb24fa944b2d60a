// Package config loads kalman.Options from an INI file: a single
// section read through MustInt/MustString-style defaulted accessors.
package config

import (
	"fmt"

	"gopkg.in/ini.v1"

	"github.com/dcweber/gokalman/kalman"
)

// Load reads the "[filter]" section of path into an Options, leaving
// any key it doesn't find at kalman.DefaultOptions()'s value.
func Load(path string) (kalman.Options, error) {
	opts := kalman.DefaultOptions()

	cfg, err := ini.Load(path)
	if err != nil {
		return opts, fmt.Errorf("config: %w", err)
	}

	section := cfg.Section("filter")

	opts.Method = kalman.Method(section.Key("method").MustUint(uint(opts.Method)))
	opts.Inversion = kalman.Inversion(section.Key("inversion").MustUint(uint(opts.Inversion)))
	opts.Stability = kalman.Stability(section.Key("stability").MustUint(uint(opts.Stability)))
	opts.Conserve = kalman.Conserve(section.Key("conserve").MustUint(uint(opts.Conserve)))
	opts.Tolerance = section.Key("tolerance").MustFloat64(opts.Tolerance)
	opts.LoglikelihoodBurn = section.Key("loglikelihood_burn").MustInt(opts.LoglikelihoodBurn)

	return opts, nil
}
