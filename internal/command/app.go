// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT
package command

import (
	"context"
	"os"
	"sort"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/entazis/facebook-ads-bing-spell-check/internal/config"
)

// Version is stamped at build time with -ldflags "-X ...command.Version=".
var Version = "dev"

// InitApp builds the root command. The config file, when one is found, is
// loaded here and feeds flag defaults through the yaml value sources.
func InitApp(ctx context.Context, args []string) (*cli.Command, error) {
	cfg, err := config.Load()
	if err != nil {
		log.Debugf("no config: %v", err)
	}
	meta := Meta{
		Args:    args,
		Config:  cfg,
		Context: ctx,
	}

	app := &cli.Command{
		Name:                  "spellcheck",
		Usage:                 "Spell check ad copy with the Bing Spell Check API",
		Version:               Version,
		EnableShellCompletion: true,
		Reader:                os.Stdin,
		Writer:                os.Stdout,
		ErrWriter:             os.Stderr,
	}

	app.Commands = append(app.Commands,
		CheckCommandBuilder(meta),
		CacheCommandBuilder(meta),
	)

	// Make sure flags are sorted for the --help text.
	for _, cmd := range app.Commands {
		sortFlags(cmd)
	}

	return app, nil
}

func sortFlags(cmd *cli.Command) {
	sort.Slice(cmd.Flags, func(i, j int) bool {
		return cmd.Flags[i].Names()[0] < cmd.Flags[j].Names()[0]
	})
	for _, sub := range cmd.Commands {
		sortFlags(sub)
	}
}

// Meta are the meta-options that are available on all commands.
type Meta struct {
	Args    []string
	Config  config.Type
	Context context.Context
}

// GetMeta returns the Meta stored in the command's Metadata. If missing or
// of an unexpected type, it returns the zero value.
func GetMeta(cmd *cli.Command) Meta {
	if cmd == nil || cmd.Metadata == nil {
		return Meta{}
	}
	if m, ok := cmd.Metadata["meta"].(Meta); ok {
		return m
	}
	return Meta{}
}
