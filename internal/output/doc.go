// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package output renders spellcheck results as a text table, JSON, YAML or
// the short token :: suggestion summary.
package output
