// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package filters

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/apex/log"
	"github.com/tidwall/gjson"

	"github.com/entazis/facebook-ads-bing-spell-check/internal/spellcheck"
)

// filterRegex is the pattern used to parse filter expressions into key, operator, and target components.
// Operators are one of = ^ ~ < > @ or /, optionally prefixed with '!'.
// This allows forms like '=', '!=', '^', '!^', etc.
var filterRegex = regexp.MustCompile(`^(.*?)(!?[=^~<>@/])(.*)$`)

// Filter represents a single parsed --filter expression including the key,
// operand, optional negation and target value. Key is a gjson path into the
// JSON form of an issue, e.g. token, type, offset or suggestions.0.score.
type Filter struct {
	Key     string
	Negate  bool
	Operand string
	Target  string
}

// BuildFilters parses a filter specification string into a slice of Filter.
// Invalid specs are logged and skipped.
func BuildFilters(spec string) []Filter {
	//nolint:prealloc
	var filters []Filter

	if spec == "" {
		return filters
	}

	// Default delimiter is ",", allow an override.
	delim := ","
	if d, ok := os.LookupEnv("SPELLCHECK_FILTER_DELIM"); ok && d != "" {
		delim = d
	}

	for _, filterSpec := range strings.Split(spec, delim) {
		parts := filterRegex.FindStringSubmatch(filterSpec)
		if parts == nil || parts[1] == "" {
			log.Error("invalid filter: " + filterSpec)
			continue
		}

		negate := strings.HasPrefix(parts[2], "!")
		if negate {
			parts[2] = strings.TrimPrefix(parts[2], "!")
		}

		filters = append(filters, Filter{
			Key:     strings.TrimSpace(parts[1]),
			Negate:  negate,
			Operand: parts[2],
			Target:  parts[3],
		})
	}

	return filters
}

// FilterIssues returns the issues that match every filter in spec. An empty
// spec keeps them all.
func FilterIssues(issues []spellcheck.Issue, spec string) []spellcheck.Issue {
	filters := BuildFilters(spec)
	if len(filters) == 0 {
		return issues
	}

	kept := make([]spellcheck.Issue, 0, len(issues))
	for _, issue := range issues {
		raw, err := json.Marshal(issue)
		if err != nil {
			log.WithError(err).Errorf("failed to encode issue %q", issue.Token)
			continue
		}
		if applyFilters(gjson.ParseBytes(raw), filters) {
			kept = append(kept, issue)
		}
	}
	return kept
}

// applyFilters returns true if the candidate matches all of the provided
// filters.
func applyFilters(candidate gjson.Result, filters []Filter) bool {
	for _, filter := range filters {
		field := candidate.Get(filter.Key)
		if !field.Exists() {
			// A missing key only satisfies a negated filter.
			if filter.Negate {
				continue
			}
			return false
		}

		var result bool
		switch value := field.Value().(type) {
		case string:
			result = checkStringOperand(value, filter)
		case bool:
			result = checkStringOperand(strconv.FormatBool(value), filter)
		case float64:
			if filter.Operand == "@" || filter.Operand == "/" || filter.Operand == "^" || filter.Operand == "~" {
				result = checkStringOperand(field.String(), filter)
			} else {
				result = checkNumericOperand(value, filter)
			}
		default:
			if filter.Operand != "@" {
				log.Error(fmt.Sprintf("unsupported operand %q for %s", filter.Operand, filter.Key))
				return false
			}
			result = checkContainsOperand(value, filter)
		}

		if !result {
			return false
		}
	}

	return true
}

// checkContainsOperand evaluates a membership style filter (operand '@')
// against slice or map values.
func checkContainsOperand(value any, filter Filter) bool {
	switch val := value.(type) {
	case []any:
		for _, item := range val {
			if fmt.Sprint(item) == filter.Target {
				return !filter.Negate
			}
		}
		return filter.Negate
	case map[string]any:
		_, found := val[filter.Target]
		return found == !filter.Negate
	default:
		log.Error(fmt.Sprintf("unsupported type for contains filtering: %T", value))
		return false
	}
}

// checkNumericOperand compares a numeric value against the filter target using
// numeric semantics. Supported operands: =, >, < and their negated forms.
func checkNumericOperand(value float64, filter Filter) bool {
	tgt, err := strconv.ParseFloat(strings.TrimSpace(filter.Target), 64)
	if err != nil {
		log.Error("invalid numeric target: " + filter.Target)
		return false
	}

	switch filter.Operand {
	case "=":
		return (value == tgt) == !filter.Negate
	case ">":
		return (value > tgt) == !filter.Negate
	case "<":
		return (value < tgt) == !filter.Negate
	default:
		log.Error("unsupported numeric operand: " + filter.Operand)
		return false
	}
}

// checkStringOperand evaluates a string comparison style filter against the
// provided value using the operand semantics.
func checkStringOperand(value string, filter Filter) bool {
	switch filter.Operand {
	case "=":
		return value == filter.Target == !filter.Negate
	case "~":
		return strings.EqualFold(value, filter.Target) == !filter.Negate
	case "^":
		return strings.HasPrefix(value, filter.Target) == !filter.Negate
	case ">":
		return value > filter.Target == !filter.Negate
	case "<":
		return value < filter.Target == !filter.Negate
	case "@":
		return strings.Contains(value, filter.Target) == !filter.Negate
	case "/":
		matched, err := regexp.MatchString(filter.Target, value)
		if err != nil {
			log.Error("invalid regex: " + filter.Target)
			return false
		}
		return matched == !filter.Negate
	default:
		log.Error("unsupported filtering operand: " + filter.Operand)
		return false
	}
}
