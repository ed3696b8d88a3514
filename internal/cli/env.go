package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/blimu-dev/webapi"
	"github.com/blimu-dev/webapi/pkg/cache"
	"github.com/blimu-dev/webapi/pkg/client"
	"github.com/blimu-dev/webapi/pkg/config"
	"github.com/blimu-dev/webapi/pkg/metrics"
	"github.com/blimu-dev/webapi/pkg/transport"
)

// Env carries what every command needs: settings, logger, metrics and the
// streams to talk to the user.
type Env struct {
	Settings *config.Settings
	Logger   zerolog.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Collector
	In       io.Reader
	Out      io.Writer

	// Transport overrides the HTTP transport built from Settings.
	Transport transport.Transport
}

// NewEnv loads settings from settingsPath (or the default location) and
// builds a console logger on errOut.
func NewEnv(settingsPath string, in io.Reader, out, errOut io.Writer) (*Env, error) {
	s, err := config.LoadSettings(settingsPath)
	if err != nil {
		return nil, err
	}
	logger, err := NewLogger(errOut, s.LogLevel)
	if err != nil {
		return nil, err
	}
	reg := prometheus.NewRegistry()
	return &Env{
		Settings: s,
		Logger:   logger,
		Registry: reg,
		Metrics:  metrics.New(reg),
		In:       in,
		Out:      out,
	}, nil
}

// NewLogger returns a human readable logger at the named level.
func NewLogger(w io.Writer, level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log_level %q: %w", level, err)
	}
	output := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	return zerolog.New(output).Level(lvl).With().Timestamp().Logger(), nil
}

func (e *Env) schemaOptions() []webapi.Option {
	opts := []webapi.Option{webapi.WithLogger(e.Logger)}
	if e.Settings.StrictArguments {
		opts = append(opts, webapi.WithStrictArguments())
	}
	return opts
}

// Open compiles the schema at path into an API wired to the configured
// transport, cache backend and metrics. The returned func releases the cache
// backend.
func (e *Env) Open(ctx context.Context, path string) (*client.API, func(), error) {
	t := e.Transport
	if t == nil {
		t = transport.NewHTTP(transport.HTTPConfig{
			Timeout:      e.Settings.Timeout,
			FailOnStatus: e.Settings.FailOnStatus,
			UserAgent:    "webapi",
			Logger:       &e.Logger,
		})
	}

	stores, closeStores, err := e.stores(ctx)
	if err != nil {
		return nil, nil, err
	}

	opts := append(e.schemaOptions(), webapi.WithClientOptions(
		client.WithTransport(t),
		client.WithCache(stores),
		client.WithMetrics(e.Metrics),
	))
	api, err := webapi.Load(path, opts...)
	if err != nil {
		closeStores()
		return nil, nil, err
	}
	return api, closeStores, nil
}

func (e *Env) stores(ctx context.Context) (cache.Factory, func(), error) {
	if e.Settings.Cache.Backend != "redis" {
		return cache.MemoryFactory(), func() {}, nil
	}
	cfg := cache.DefaultRedisConfig()
	cfg.Addr = e.Settings.Cache.Redis.Addr
	cfg.Password = e.Settings.Cache.Redis.Password
	cfg.DB = e.Settings.Cache.Redis.DB

	rdb, err := cache.NewRedisClient(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	e.Logger.Debug().Str("addr", cfg.Addr).Msg("using redis cache")
	return cache.RedisFactory(rdb, cfg.Prefix), closer(rdb), nil
}

func closer(rdb *redis.Client) func() {
	return func() { _ = rdb.Close() }
}
