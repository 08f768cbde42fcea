// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/apex/log"

	awsx "github.com/entazis/facebook-ads-bing-spell-check/internal/aws"
)

// Store keeps named blobs. Load reports false, with no error, when name does
// not exist. Save replaces the whole blob.
type Store interface {
	Load(ctx context.Context, name string) ([]byte, bool, error)
	Save(ctx context.Context, name string, blob []byte) error
	Close() error
}

var (
	ErrUnsupportedScheme = errors.New("unsupported store scheme")
	ErrInvalidName       = errors.New("invalid blob name")
)

// Open builds a Store from a URI:
//
//	/some/dir, file:///some/dir        File
//	mem://                             Memory
//	s3://bucket/prefix?region=&profile=&endpoint=
//	sqlite:///path/to/cache.db         SQLite
//	redis://host:6379/0?prefix=        Redis
//
// An empty URI opens the default File directory.
func Open(ctx context.Context, uri string) (Store, error) {
	if uri == "" {
		dir, ok := Dir()
		if !ok {
			return nil, errors.New("no cache directory could be resolved")
		}
		return NewFile(dir), nil
	}

	if !strings.Contains(uri, "://") {
		return NewFile(uri), nil
	}

	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("failed to parse store uri %q: %w", uri, err)
	}
	log.Debugf("opening %s store", u.Scheme)

	switch u.Scheme {
	case "file":
		return NewFile(u.Path), nil
	case "mem", "memory":
		return NewMemory(), nil
	case "s3":
		return openS3(ctx, u)
	case "sqlite":
		s, err := OpenSQLite(ctx, u.Host+u.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "redis", "rediss":
		r, err := OpenRedis(uri)
		if err != nil {
			return nil, err
		}
		return r, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, u.Scheme)
}

func openS3(ctx context.Context, u *url.URL) (Store, error) {
	if u.Host == "" {
		return nil, errors.New("s3 store needs a bucket: s3://bucket/prefix")
	}
	q := u.Query()

	var opts []awsx.Option
	if p := q.Get("profile"); p != "" {
		opts = append(opts, awsx.WithProfile(p))
	}
	if r := q.Get("region"); r != "" {
		opts = append(opts, awsx.WithRegion(r))
	}
	cfg, err := awsx.LoadAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []awsx.S3Option
	if ep := q.Get("endpoint"); ep != "" {
		s3Opts = append(s3Opts, awsx.WithS3Endpoint(ep))
	}

	return NewS3(awsx.NewS3(cfg, s3Opts...), u.Host, strings.Trim(u.Path, "/")), nil
}

// checkName rejects names that would escape a directory or key prefix.
func checkName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
