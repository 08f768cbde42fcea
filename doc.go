// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// spellcheck is the main package for the spellcheck command line tool. It
// wires the CLI, delegates to internal packages, and serves as the entry
// point.
package main
