// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	md2man "github.com/cpuguy83/go-md2man/v2/md2man"
	"github.com/urfave/cli/v3"

	"github.com/entazis/facebook-ads-bing-spell-check/internal/command"
)

// Minimal doc generator:
// - Walks the command tree built by command.InitApp
// - Generates:
//   - docs/commands/spellcheck-<cmd>.md from names, usage and flags
//   - docs/man/share/man1/spellcheck-<cmd>.1 via md2man

func main() {
	var (
		repoRoot           string
		writeOnlyIfChanged bool
	)

	flag.StringVar(&repoRoot, "root", ".", "repo root (default current dir)")
	flag.BoolVar(&writeOnlyIfChanged, "only-if-changed", true, "only write files if content changed")
	flag.Parse()

	mdOutDir := filepath.Join(repoRoot, "docs", "commands")
	manOutDir := filepath.Join(repoRoot, "docs", "man", "share", "man1")

	for _, d := range []string{mdOutDir, manOutDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			fatalf("creating output dir %s: %v", d, err)
		}
	}

	app, err := command.InitApp(context.Background(), []string{"spellcheck"})
	if err != nil {
		fatalf("building command tree: %v", err)
	}

	var processed int
	walk(app, nil, func(path []string, cmd *cli.Command) {
		name := strings.Join(path, "-")
		md := buildMarkdown(path, cmd)

		mdPath := filepath.Join(mdOutDir, fmt.Sprintf("spellcheck-%s.md", name))
		if err := writeFileIfChanged(mdPath, []byte(md), writeOnlyIfChanged); err != nil {
			fatalf("writing markdown for %s: %v", name, err)
		}

		manPath := filepath.Join(manOutDir, fmt.Sprintf("spellcheck-%s.1", name))
		if err := writeFileIfChanged(manPath, md2man.Render([]byte(md)), writeOnlyIfChanged); err != nil {
			fatalf("writing man page for %s: %v", name, err)
		}
		processed++
	})

	if processed == 0 {
		fatalf("no commands found")
	}
}

// walk calls fn for every command below root that has an action.
func walk(cmd *cli.Command, path []string, fn func([]string, *cli.Command)) {
	for _, sub := range cmd.Commands {
		if sub.Hidden || sub.Name == "help" {
			continue
		}
		p := append(append([]string(nil), path...), sub.Name)
		if sub.Action != nil {
			fn(p, sub)
		}
		walk(sub, p, fn)
	}
}

func buildMarkdown(path []string, cmd *cli.Command) string {
	var b strings.Builder
	title := "spellcheck-" + strings.Join(path, "-")

	fmt.Fprintf(&b, "%s 1 \"\" \"spellcheck\" \"User Commands\"\n", strings.ToUpper(title))
	b.WriteString("==========\n\n")

	b.WriteString("# NAME\n\n")
	fmt.Fprintf(&b, "%s - %s\n\n", title, cmd.Usage)

	b.WriteString("# SYNOPSIS\n\n")
	usage := cmd.UsageText
	if usage == "" {
		usage = "spellcheck " + strings.Join(path, " ") + " [options]"
	}
	fmt.Fprintf(&b, "`%s`\n\n", usage)

	if len(cmd.Flags) > 0 {
		b.WriteString("# OPTIONS\n\n")
		for _, f := range cmd.Flags {
			b.WriteString(flagLine(f))
		}
		b.WriteString("\n")
	}

	b.WriteString("# SEE ALSO\n\n")
	b.WriteString("spellcheck(1)\n")
	return b.String()
}

func flagLine(f cli.Flag) string {
	var names []string
	for _, n := range f.Names() {
		if len(n) == 1 {
			names = append(names, "-"+n)
		} else {
			names = append(names, "--"+n)
		}
	}

	usage := ""
	if d, ok := f.(cli.DocGenerationFlag); ok {
		usage = d.GetUsage()
		if v := d.GetValue(); v != "" && d.TakesValue() {
			usage += fmt.Sprintf(" (default: %s)", v)
		}
		if envs := d.GetEnvVars(); len(envs) > 0 {
			usage += fmt.Sprintf(" [$%s]", strings.Join(envs, ", $"))
		}
	}
	return fmt.Sprintf("**%s**\n: %s\n\n", strings.Join(names, "**, **"), usage)
}

func fatalf(f string, a ...any) {
	fmt.Fprintf(os.Stderr, f+"\n", a...)
	os.Exit(1)
}

func writeFileIfChanged(path string, new []byte, onlyIfChanged bool) error {
	if !onlyIfChanged {
		return os.WriteFile(path, new, 0o644)
	}
	old, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return os.WriteFile(path, new, 0o644)
		}
		return err
	}
	if bytes.Equal(bytes.TrimSpace(old), bytes.TrimSpace(new)) {
		return nil
	}
	return os.WriteFile(path, new, 0o644)
}
