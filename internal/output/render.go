// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/lipgloss/v2/table"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v2"

	"github.com/entazis/facebook-ads-bing-spell-check/internal/attrs"
	"github.com/entazis/facebook-ads-bing-spell-check/internal/spellcheck"
)

// Correct is what a text without issues summarizes to.
const Correct = "correct!"

// Formats lists the values accepted by Render.
var Formats = []string{"text", "json", "yaml", "summary"}

// Result pairs a checked text with its issues.
type Result struct {
	Text   string             `json:"text" yaml:"text"`
	Issues []spellcheck.Issue `json:"issues" yaml:"issues"`
}

// Render writes results to w in the given format, using the default columns
// for text.
func Render(w io.Writer, results []Result, format string) error {
	return RenderWith(w, results, format, attrs.Defaults())
}

// RenderWith is Render with the text table columns taken from cols.
func RenderWith(w io.Writer, results []Result, format string, cols attrs.AttrList) error {
	switch format {
	case "", "text":
		return renderTable(w, results, cols)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
		return nil
	case "yaml":
		b, err := yaml.Marshal(results)
		if err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		_, err = w.Write(b)
		return err
	case "summary":
		blocks := make([]string, 0, len(results))
		for _, r := range results {
			blocks = append(blocks, Summary(r.Issues))
		}
		_, err := fmt.Fprintln(w, strings.Join(blocks, "\n\n"))
		return err
	}
	return fmt.Errorf("unknown output format %q, must be one of %v", format, Formats)
}

// Summary renders issues one per line as "token :: first suggestion", or
// Correct when there are none. Cache hits carry no suggestion and render as
// "token :: ".
func Summary(issues []spellcheck.Issue) string {
	if len(issues) == 0 {
		return Correct
	}
	lines := make([]string, 0, len(issues))
	for _, i := range issues {
		s, _ := i.FirstSuggestion()
		lines = append(lines, i.Token+" :: "+s)
	}
	return strings.Join(lines, "\n")
}

// row is the flattened JSON shape the table columns are picked from.
type row struct {
	Text string `json:"text"`
	spellcheck.Issue
}

func renderTable(w io.Writer, results []Result, cols attrs.AttrList) error {
	cols = append(attrs.AttrList(nil), cols...)
	if err := cols.SetGlobalTransformSpec(); err != nil {
		return err
	}
	cols = cols.Included()
	if len(cols) == 0 {
		return fmt.Errorf("no columns to output")
	}

	headers := make([]string, 0, len(cols))
	for _, c := range cols {
		headers = append(headers, c.OutputKey)
	}

	var rows [][]string
	for _, r := range results {
		issues := r.Issues
		if len(issues) == 0 {
			issues = []spellcheck.Issue{{Type: Correct}}
		}
		for _, i := range issues {
			raw, err := json.Marshal(row{Text: r.Text, Issue: i})
			if err != nil {
				return fmt.Errorf("failed to encode row: %w", err)
			}
			cells := make([]string, 0, len(cols))
			for _, c := range cols {
				cells = append(cells, cell(c, gjson.GetBytes(raw, c.Key), len(r.Issues) == 0))
			}
			rows = append(rows, cells)
		}
	}

	t := table.New().
		Border(lipgloss.HiddenBorder()).
		Headers(headers...).
		BorderHeader(false).
		Rows(rows...)

	_, err := fmt.Fprintln(w, t)
	return err
}

// cell renders a single value. A correct text only shows its text and type.
func cell(c attrs.Attr, v gjson.Result, correct bool) string {
	if correct && c.Key != "text" && c.Key != "type" {
		return ""
	}
	if !v.Exists() || v.Type == gjson.Null {
		return ""
	}
	if v.IsArray() {
		var parts []string
		for _, e := range v.Array() {
			parts = append(parts, e.String())
		}
		return fmt.Sprint(c.Transform(strings.Join(parts, ", ")))
	}
	return fmt.Sprint(c.Transform(v.String()))
}
