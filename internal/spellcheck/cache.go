// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package spellcheck

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
)

// DefaultCacheName is the blob name the persistent cache is stored under.
const DefaultCacheName = "spellcheck_cache.json"

// Cache holds words the service has already flagged. It never records
// correct words, so a hit is always a real misspelling.
type Cache struct {
	Incorrect map[string]bool `json:"incorrect"`
}

func NewCache() *Cache {
	return &Cache{Incorrect: map[string]bool{}}
}

// LoadCache reads the cache stored under name. A missing blob yields an
// empty cache.
func LoadCache(ctx context.Context, s Store, name string) (*Cache, error) {
	blob, ok, err := s.Load(ctx, name)
	if err != nil {
		return nil, &StoreError{Op: "load", Name: name, Err: err}
	}
	if !ok {
		return NewCache(), nil
	}
	c := NewCache()
	if err := json.Unmarshal(blob, c); err != nil {
		return nil, &StoreError{Op: "load", Name: name, Err: fmt.Errorf("failed to decode cache: %w", err)}
	}
	if c.Incorrect == nil {
		c.Incorrect = map[string]bool{}
	}
	return c, nil
}

// Save writes the cache under name, replacing what is there.
func (c *Cache) Save(ctx context.Context, s Store, name string) error {
	blob, err := json.Marshal(c)
	if err != nil {
		return &StoreError{Op: "save", Name: name, Err: err}
	}
	if err := s.Save(ctx, name, blob); err != nil {
		return &StoreError{Op: "save", Name: name, Err: err}
	}
	return nil
}

func (c *Cache) Has(word string) bool {
	return c.Incorrect[word]
}

func (c *Cache) Add(word string) {
	c.Incorrect[word] = true
}

// Forget drops word and reports whether it was cached.
func (c *Cache) Forget(word string) bool {
	_, ok := c.Incorrect[word]
	delete(c.Incorrect, word)
	return ok
}

func (c *Cache) Len() int {
	return len(c.Incorrect)
}

// Words returns the cached words in sorted order.
func (c *Cache) Words() []string {
	words := make([]string, 0, len(c.Incorrect))
	for w, ok := range c.Incorrect {
		if ok {
			words = append(words, w)
		}
	}
	sort.Strings(words)
	return words
}
