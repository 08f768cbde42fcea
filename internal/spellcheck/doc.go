// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package spellcheck is a client for the Bing Spell Check v7 endpoint. It
// normalizes text before sending it, throttles outbound calls to stay under
// the per-minute quota and avoids repeat calls with a last-call memo and a
// persistent cache of words already known to be misspelled.
package spellcheck
