// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package command defines the CLI command set for spellcheck. It wires flags,
// validators and actions for the check and cache subcommands.
package command
