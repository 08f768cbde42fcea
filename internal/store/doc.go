// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: MIT

// Package store provides named-blob stores used to persist the spellcheck
// cache: local files, memory, S3, SQLite and Redis.
package store
