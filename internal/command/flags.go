// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"time"

	altsrc "github.com/urfave/cli-altsrc/v3"
	yaml "github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"

	"github.com/entazis/facebook-ads-bing-spell-check/internal/spellcheck"
)

// configSources builds a value chain of env vars followed by the namespaced
// and then the global key of the config file at path.
func configSources(ns, path, name string, envs ...string) cli.ValueSourceChain {
	var srcs []cli.ValueSource
	for _, e := range envs {
		srcs = append(srcs, cli.EnvVar(e))
	}
	srcs = append(srcs,
		yaml.YAML(ns+"."+name, altsrc.StringSourcer(path)),
		yaml.YAML(name, altsrc.StringSourcer(path)),
	)
	return cli.NewValueSourceChain(srcs...)
}

// NewStoreFlags are the flags locating the persistent cache.
func NewStoreFlags(ns, path string) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "store",
			Usage:   "cache store: a directory, file://, mem://, s3://bucket/prefix, sqlite:///file.db or redis://host/db",
			Sources: configSources(ns, path, "store", "SPELLCHECK_STORE"),
		},
		&cli.StringFlag{
			Name:    "cache-name",
			Usage:   "name of the cache blob inside the store",
			Sources: configSources(ns, path, "cache-name"),
			Value:   spellcheck.DefaultCacheName,
			Validator: func(value string) error {
				return FlagValidators(value, NotEmptyValidator)
			},
		},
	}
}

// NewClientFlags are the flags configuring the spellcheck client.
func NewClientFlags(ns, path string) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "key",
			Aliases: []string{"k"},
			Usage:   "Bing Spell Check subscription key",
			Sources: configSources(ns, path, "key", "SPELLCHECK_KEY", "BING_SPELLCHECK_KEY"),
			Validator: func(value string) error {
				return FlagValidators(value, JammedFlagValidator)
			},
		},
		&cli.StringSliceFlag{
			Name:    "ignore",
			Aliases: []string{"i"},
			Usage:   "word to strip before checking, case-insensitive (repeatable)",
			Sources: cli.EnvVars("SPELLCHECK_IGNORE"),
		},
		&cli.DurationFlag{
			Name:    "delay",
			Usage:   "minimum time between calls to the service",
			Sources: configSources(ns, path, "delay", "SPELLCHECK_DELAY"),
			Value:   spellcheck.DefaultMinDelay,
			Validator: func(value time.Duration) error {
				return FlagValidators(value, NotNegativeValidator)
			},
		},
		&cli.DurationFlag{
			Name:    "timeout",
			Usage:   "timeout of a single call to the service",
			Sources: configSources(ns, path, "timeout"),
			Value:   spellcheck.DefaultTimeout,
		},
		&cli.BoolWithInverseFlag{
			Name:    "cache",
			Usage:   "remember misspelled words across runs",
			Sources: configSources(ns, path, "cache", "SPELLCHECK_CACHE"),
			Value:   true,
		},
		&cli.StringFlag{
			Name:    "endpoint",
			Usage:   "spellcheck endpoint URL",
			Sources: configSources(ns, path, "endpoint", "SPELLCHECK_ENDPOINT"),
			Value:   spellcheck.DefaultEndpoint,
		},
		&cli.StringFlag{
			Name:    "mode",
			Aliases: []string{"m"},
			Usage:   "checking mode, proof or spell",
			Sources: configSources(ns, path, "mode"),
			Value:   string(spellcheck.ModeProof),
			Validator: func(value string) error {
				return FlagValidators(value, ModeValidator)
			},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format",
			Sources: configSources(ns, path, "output"),
			Value:   "text",
			Validator: func(value string) error {
				return FlagValidators(value, OutputValidator)
			},
		},
	}
}
