// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/redis/go-redis/v9"
)

// Redis keeps each blob under Prefix+name.
type Redis struct {
	Client *redis.Client
	Prefix string
}

// OpenRedis connects lazily to the server in uri. A prefix query parameter,
// if present, namespaces the keys and is not passed on to the driver.
func OpenRedis(uri string) (*Redis, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis uri: %w", err)
	}
	q := u.Query()
	prefix := q.Get("prefix")
	q.Del("prefix")
	u.RawQuery = q.Encode()

	opts, err := redis.ParseURL(u.String())
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis uri: %w", err)
	}
	return &Redis{Client: redis.NewClient(opts), Prefix: prefix}, nil
}

func (r *Redis) Load(ctx context.Context, name string) ([]byte, bool, error) {
	b, err := r.Client.Get(ctx, r.Prefix+name).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get %s%s: %w", r.Prefix, name, err)
	}
	return b, true, nil
}

func (r *Redis) Save(ctx context.Context, name string, blob []byte) error {
	if name == "" {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if err := r.Client.Set(ctx, r.Prefix+name, blob, 0).Err(); err != nil {
		return fmt.Errorf("failed to set %s%s: %w", r.Prefix, name, err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.Client.Close()
}
