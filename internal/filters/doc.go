// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package filters narrows spellcheck issues with --filter expressions such
// as "type=UnknownToken,offset>10".
package filters
