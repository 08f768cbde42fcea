// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"

	"github.com/apex/log"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/entazis/facebook-ads-bing-spell-check/internal/config"
	"github.com/entazis/facebook-ads-bing-spell-check/internal/spellcheck"
	"github.com/entazis/facebook-ads-bing-spell-check/internal/store"
)

// withCache opens the store named by the flags, loads the cache and hands
// both to fn.
func withCache(ctx context.Context, cmd *cli.Command, fn func(*spellcheck.Cache, store.Store, string) error) error {
	config.Config.Namespace = "cache"

	st, err := store.Open(ctx, cmd.String("store"))
	if err != nil {
		return err
	}
	defer st.Close()

	name := cmd.String("cache-name")
	cache, err := spellcheck.LoadCache(ctx, st, name)
	if err != nil {
		return err
	}
	log.Debugf("loaded %s cached words from %s", humanize.Comma(int64(cache.Len())), name)

	return fn(cache, st, name)
}

// CacheListAction prints the cached misspelled words, one per line.
func CacheListAction(ctx context.Context, cmd *cli.Command) error {
	return withCache(ctx, cmd, func(c *spellcheck.Cache, _ store.Store, _ string) error {
		w := cmd.Root().Writer
		for _, word := range c.Words() {
			fmt.Fprintln(w, word)
		}
		return nil
	})
}

// CacheForgetAction drops the given words from the stored cache.
func CacheForgetAction(ctx context.Context, cmd *cli.Command) error {
	words := cmd.Args().Slice()
	if len(words) == 0 {
		return fmt.Errorf("no words given")
	}
	return withCache(ctx, cmd, func(c *spellcheck.Cache, st store.Store, name string) error {
		removed := 0
		for _, word := range words {
			if c.Forget(word) {
				removed++
			}
		}
		if err := c.Save(ctx, st, name); err != nil {
			return err
		}
		fmt.Fprintf(cmd.Root().Writer, "forgot %d of %d words\n", removed, len(words))
		return nil
	})
}

// CacheClearAction replaces the stored cache with an empty one.
func CacheClearAction(ctx context.Context, cmd *cli.Command) error {
	return withCache(ctx, cmd, func(c *spellcheck.Cache, st store.Store, name string) error {
		n := c.Len()
		if err := spellcheck.NewCache().Save(ctx, st, name); err != nil {
			return err
		}
		fmt.Fprintf(cmd.Root().Writer, "cleared %s words\n", humanize.Comma(int64(n)))
		return nil
	})
}

// CacheCommandBuilder constructs the "cache" command and its subcommands.
func CacheCommandBuilder(meta Meta) *cli.Command {
	sub := func(name, usage, usageText string, action cli.ActionFunc) *cli.Command {
		return &cli.Command{
			Name:      name,
			Usage:     usage,
			UsageText: usageText,
			Metadata:  map[string]any{"meta": meta},
			Flags:     NewStoreFlags("cache", meta.Config.Source),
			Action:    action,
		}
	}

	return &cli.Command{
		Name:  "cache",
		Usage: "inspect or reset the misspelled-word cache",
		Metadata: map[string]any{
			"meta": meta,
		},
		Commands: []*cli.Command{
			sub("list", "list cached misspelled words", "spellcheck cache list [options]", CacheListAction),
			sub("forget", "remove words from the cache", "spellcheck cache forget [options] WORD...", CacheForgetAction),
			sub("clear", "empty the cache", "spellcheck cache clear [options]", CacheClearAction),
		},
	}
}
