package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/blimu-dev/webapi/pkg/apierr"
	"github.com/blimu-dev/webapi/pkg/cache"
	"github.com/blimu-dev/webapi/pkg/metrics"
)

// Method is a callable of an instance's method table. Methods return the
// decoded JSON payload; refresh methods return nil.
type Method func(ctx context.Context, args Args) (any, error)

// accessor returns the raw response body for a call.
type accessor func(ctx context.Context, args Args) ([]byte, error)

// direct always performs a fresh request.
func direct(o *opener) accessor {
	return func(ctx context.Context, args Args) ([]byte, error) {
		resp, err := o.open(ctx, args)
		if err != nil {
			return nil, err
		}
		return resp.Body, nil
	}
}

// cached serves responses of one method from an instance's store.
type cached struct {
	opener  *opener
	store   cache.Store
	logger  zerolog.Logger
	metrics *metrics.Collector
}

func (c *cached) key(args Args) (string, error) {
	if err := c.opener.validate(args); err != nil {
		return "", err
	}
	key, err := cache.Key(c.opener.method.Name, args)
	if err != nil {
		return "", apierr.Argumentf(c.opener.method.Op(), "%v", err)
	}
	return key, nil
}

// getOrFetch returns the cached body for args, fetching it on a miss.
func (c *cached) getOrFetch(ctx context.Context, args Args) ([]byte, error) {
	m := c.opener.method
	key, err := c.key(args)
	if err != nil {
		return nil, err
	}
	body, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		c.metrics.CacheHit(m.Class, m.Name)
		c.logger.Debug().Str("op", m.Op()).Str("key", key).Msg("cache hit")
		return body, nil
	case !cache.IsCacheMiss(err):
		return nil, fmt.Errorf("%s: cache get: %w", m.Op(), err)
	}
	c.metrics.CacheMiss(m.Class, m.Name)
	return c.fetch(ctx, key, args)
}

// refresh fetches args unconditionally and overwrites the entry.
func (c *cached) refresh(ctx context.Context, args Args) ([]byte, error) {
	key, err := c.key(args)
	if err != nil {
		return nil, err
	}
	return c.fetch(ctx, key, args)
}

// forget removes the entry of args.
func (c *cached) forget(ctx context.Context, args Args) error {
	key, err := c.key(args)
	if err != nil {
		return err
	}
	if err := c.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("%s: cache delete: %w", c.opener.method.Op(), err)
	}
	return nil
}

func (c *cached) fetch(ctx context.Context, key string, args Args) ([]byte, error) {
	m := c.opener.method
	resp, err := c.opener.open(ctx, args)
	if err != nil {
		return nil, err
	}
	if err := c.store.Set(ctx, key, resp.Body); err != nil {
		return nil, fmt.Errorf("%s: cache set: %w", m.Op(), err)
	}
	c.metrics.CacheRefresh(m.Class, m.Name)
	c.logger.Debug().Str("op", m.Op()).Str("key", key).Int("bytes", len(resp.Body)).Msg("cache refreshed")
	return resp.Body, nil
}

// decoding wraps an accessor so the body is returned as decoded JSON.
func decoding(op string, get accessor, m *metrics.Collector, class, method string) Method {
	return func(ctx context.Context, args Args) (any, error) {
		body, err := get(ctx, args)
		if err != nil {
			return nil, err
		}
		v, err := Decode(body)
		if err != nil {
			m.DecodeFailed(class, method)
			return nil, apierr.Decode(op, err)
		}
		return v, nil
	}
}

// discarding wraps a refresh accessor; only the side effect matters.
func discarding(refresh accessor) Method {
	return func(ctx context.Context, args Args) (any, error) {
		_, err := refresh(ctx, args)
		return nil, err
	}
}

// Decode parses a UTF-8 JSON body. Numbers are returned as json.Number so
// large integer IDs survive unchanged.
func Decode(body []byte) (any, error) {
	if !utf8.Valid(body) {
		return nil, errors.New("body is not valid UTF-8")
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after JSON value")
	}
	return v, nil
}
