// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/entazis/facebook-ads-bing-spell-check/internal/attrs"
	"github.com/entazis/facebook-ads-bing-spell-check/internal/config"
	"github.com/entazis/facebook-ads-bing-spell-check/internal/filters"
	"github.com/entazis/facebook-ads-bing-spell-check/internal/output"
	"github.com/entazis/facebook-ads-bing-spell-check/internal/spellcheck"
	"github.com/entazis/facebook-ads-bing-spell-check/internal/store"
)

var ErrNoText = errors.New("no text to check: pass it as arguments or pipe it on stdin")

// CheckCommandAction is the action handler for the "check" subcommand. Every
// argument, or every non-blank stdin line, is checked as its own text. The
// cache is saved before returning, even when a check failed.
func CheckCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args)

	config.Config.Namespace = "check"

	texts, err := readTexts(cmd)
	if err != nil {
		return err
	}
	if len(texts) == 0 {
		return ErrNoText
	}

	mode, err := spellcheck.ParseMode(cmd.String("mode"))
	if err != nil {
		return err
	}

	cols := attrs.Defaults()
	if err := cols.Set(cmd.String("attrs")); err != nil {
		return err
	}

	client, st, err := NewClient(ctx, cmd)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
	}

	results := make([]output.Result, 0, len(texts))
	var runErr error
	for _, text := range texts {
		var issues []spellcheck.Issue
		if mode == spellcheck.ModeProof {
			issues, runErr = client.Issues(ctx, text)
		} else {
			issues, runErr = client.Check(ctx, text, mode)
		}
		if runErr != nil {
			log.WithError(runErr).Debugf("check failed: %s", text)
			break
		}
		results = append(results, output.Result{Text: text, Issues: filters.FilterIssues(issues, cmd.String("filter"))})
	}

	if err := client.SaveCache(ctx); err != nil {
		log.WithError(err).Error("failed to save cache")
		runErr = errors.Join(runErr, err)
	}

	if client.QuotaHit() {
		fmt.Fprintln(cmd.Root().ErrWriter, "quota exhausted: the service rejected the subscription key or it is out of calls")
	}

	if err := output.RenderWith(cmd.Root().Writer, results, cmd.String("output"), cols); err != nil {
		return errors.Join(runErr, err)
	}

	return runErr
}

// CheckCommandBuilder constructs the cli.Command definition for the "check"
// command.
func CheckCommandBuilder(meta Meta) *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "spell check texts",
		UsageText: `spellcheck check [options] [TEXT...]`,
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags: append(append(NewClientFlags("check", meta.Config.Source), NewStoreFlags("check", meta.Config.Source)...),
			&cli.StringFlag{
				Name:    "attrs",
				Aliases: []string{"a"},
				Usage:   "text columns as key[:title[:transform]], '!key' hides one, '*::U' applies to all",
				Sources: configSources("check", meta.Config.Source, "attrs"),
			},
			&cli.StringFlag{
				Name:    "filter",
				Aliases: []string{"f"},
				Usage:   "keep only issues matching comma-separated filters, e.g. type=UnknownToken,offset>10",
				Sources: configSources("check", meta.Config.Source, "filter"),
			},
		),
		Action: CheckCommandAction,
	}
}

// NewClient builds a spellcheck client from the command flags. When caching
// is on it also opens the store, which the caller must close.
func NewClient(ctx context.Context, cmd *cli.Command) (*spellcheck.Client, store.Store, error) {
	ignore := cmd.StringSlice("ignore")
	if fromCfg, err := config.GetStringSlice("ignore"); err == nil {
		ignore = append(ignore, fromCfg...)
	}

	cfg := spellcheck.Config{
		APIKey:       cmd.String("key"),
		IgnoreWords:  ignore,
		MinDelay:     cmd.Duration("delay"),
		CacheEnabled: cmd.Bool("cache"),
		Endpoint:     cmd.String("endpoint"),
		CacheName:    cmd.String("cache-name"),
		Timeout:      cmd.Duration("timeout"),
	}
	log.WithFields(log.Fields{
		"ignore":   len(cfg.IgnoreWords),
		"delay":    cfg.MinDelay,
		"cache":    cfg.CacheEnabled,
		"endpoint": cfg.Endpoint,
	}).Debug("client config")

	var opts []spellcheck.Option
	var st store.Store
	if cfg.CacheEnabled {
		var err error
		st, err = store.Open(ctx, cmd.String("store"))
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, spellcheck.WithStore(st))
	}

	client, err := spellcheck.New(ctx, cfg, opts...)
	if err != nil {
		if st != nil {
			_ = st.Close()
		}
		if errors.Is(err, spellcheck.ErrMissingAPIKey) {
			return nil, nil, fmt.Errorf("%w: use --key or SPELLCHECK_KEY", err)
		}
		return nil, nil, err
	}

	return client, st, nil
}

// readTexts returns the positional args, or the non-blank lines of stdin
// when there are none and stdin is not a terminal.
func readTexts(cmd *cli.Command) ([]string, error) {
	if args := cmd.Args().Slice(); len(args) > 0 {
		return args, nil
	}

	r := cmd.Root().Reader
	if r == nil {
		return nil, nil
	}
	if f, ok := r.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return nil, nil
	}

	return scanLines(r)
}

func scanLines(r io.Reader) ([]string, error) {
	var texts []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024) //nolint:mnd
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			texts = append(texts, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read stdin: %w", err)
	}
	return texts, nil
}
