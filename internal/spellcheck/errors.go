// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package spellcheck

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

var (
	ErrMissingAPIKey = errors.New("api key is not set")
	ErrNoStore       = errors.New("cache is enabled but no store was provided")
	ErrInvalidMode   = errors.New("mode must be one of proof, spell")
	ErrInvalidDelay  = errors.New("minimum delay must not be negative")
	// ErrQuotaExceeded matches (errors.Is) a RemoteError for a 403 response.
	ErrQuotaExceeded = errors.New("spellcheck quota exceeded")
)

// RemoteError is returned for any non-2xx response from the spellcheck
// endpoint. Message is the text the service reported.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("spellcheck request failed (%d): %s", e.StatusCode, e.Message)
}

// Quota reports whether the service rejected the call for quota or auth
// reasons.
func (e *RemoteError) Quota() bool {
	return e.StatusCode == http.StatusForbidden
}

func (e *RemoteError) Is(target error) bool {
	return target == ErrQuotaExceeded && e.Quota()
}

// newRemoteError digs the service message out of an error body. Bing has
// used a top level message, an error object and an errors array over time.
func newRemoteError(status int, body []byte) *RemoteError {
	msg := ""
	if gjson.ValidBytes(body) {
		for _, path := range []string{"message", "error.message", "errors.0.message"} {
			if r := gjson.GetBytes(body, path); r.Exists() && r.String() != "" {
				msg = r.String()
				break
			}
		}
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &RemoteError{StatusCode: status, Message: msg}
}

// StoreError wraps a failure of the backing store holding the persistent
// cache.
type StoreError struct {
	Op   string
	Name string
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("failed to %s cache %q: %v", e.Op, e.Name, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
