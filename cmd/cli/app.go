package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/and161185/stockfolio/internal/config"
	"github.com/and161185/stockfolio/internal/credstore"
	"github.com/and161185/stockfolio/internal/logger"
	"github.com/and161185/stockfolio/internal/portfolio"
	"github.com/and161185/stockfolio/internal/session"
	"github.com/and161185/stockfolio/internal/transport"
)

var errNotLoggedIn = errors.New("not logged in, run 'pf login' first")

const expiredNotice = "session expired, please log in again"

// app holds what one pf invocation needs. The session and its clients are
// built on first use so commands like version never touch the store.
type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	getenv func(string) string

	flags globalFlags
	cfg   config.Config
	log   *zap.Logger

	// store replaces the configured credential store when set.
	store credstore.Store

	rdb     *redis.Client
	account *transport.AccountAPI
	coord   *transport.Coordinator
	client  *transport.Client
	sess    *session.Manager

	expired sync.Once
}

func newApp(in io.Reader, out, errOut io.Writer, getenv func(string) string) *app {
	return &app{in: in, out: out, errOut: errOut, getenv: getenv, log: zap.NewNop()}
}

func (a *app) printf(format string, args ...any)  { _, _ = fmt.Fprintf(a.out, format, args...) }
func (a *app) eprintf(format string, args ...any) { _, _ = fmt.Fprintf(a.errOut, format, args...) }

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// loadConfig layers defaults, file, environment and explicitly set flags.
func (a *app) loadConfig(cmd *cobra.Command) error {
	flags := cmd.Flags()
	cfg, err := config.Load(a.flags.configPath, flags.Changed("config"), a.getenv)
	if err != nil {
		return err
	}
	if flags.Changed("api") {
		cfg.API = a.flags.api
	}
	if flags.Changed("store") {
		cfg.Store = a.flags.store
	}
	if flags.Changed("redis-addr") {
		cfg.RedisAddr = a.flags.redisAddr
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.flags.logLevel
	}
	if flags.Changed("cacert") {
		cfg.CACert = a.flags.cacert
	}
	if flags.Changed("insecure") {
		cfg.Insecure = a.flags.insecure
	}
	if flags.Changed("timeout") {
		d, err := time.ParseDuration(a.flags.timeout)
		if err != nil {
			return fmt.Errorf("--timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, zap.String("cmd", cmd.Name()))
	if err != nil {
		return err
	}
	a.log = log
	return nil
}

func (a *app) openStore() credstore.Store {
	if a.store != nil {
		return a.store
	}
	switch a.cfg.Store {
	case config.StoreMemory:
		a.store = credstore.NewMemoryStore()
	case config.StoreRedis:
		a.rdb = redis.NewClient(&redis.Options{Addr: a.cfg.RedisAddr})
		a.store = credstore.NewRedisStore(a.rdb, a.cfg.Namespace, a.log)
	default:
		dir := a.cfg.StoreDir
		if dir == "" {
			dir = credstore.DefaultDir()
		}
		a.store = credstore.NewFileStore(dir, a.log)
	}
	return a.store
}

func (a *app) transportConfig() transport.Config {
	return transport.Config{
		BaseURL:   a.cfg.API,
		Timeout:   a.cfg.Timeout,
		UserAgent: "pf/" + version,
		RootCA:    a.cfg.CACert,
		Insecure:  a.cfg.Insecure,
	}
}

// session opens the session manager, restoring a stored session. The token
// clock only runs when follow is set; one-shot commands rely on the
// refresh-on-401 path.
func (a *app) session(ctx context.Context, follow bool) (*session.Manager, error) {
	if a.sess != nil {
		return a.sess, nil
	}
	cfg := a.transportConfig()
	a.account = transport.NewAccountAPI(cfg, a.log)
	a.coord = transport.NewCoordinator(a.account, a.log)

	opts := []session.Option{session.WithLogger(a.log)}
	if !follow {
		opts = append(opts, session.WithoutClock())
	}
	m := session.New(a.openStore(), a.account, a.coord, opts...)
	m.Subscribe(func(e session.Event) {
		if e.Kind == session.Expired {
			a.expired.Do(func() { a.eprintf("%s\n", expiredNotice) })
		}
	})
	if err := m.Open(ctx); err != nil {
		return nil, err
	}
	a.sess = m
	a.client = transport.NewClient(cfg, m.AccessToken, a.coord, a.log)
	return m, nil
}

// api returns the authorized API for a logged-in user.
func (a *app) api(ctx context.Context, follow bool) (portfolio.API, error) {
	m, err := a.session(ctx, follow)
	if err != nil {
		return nil, err
	}
	if !m.IsLoggedIn() {
		return nil, errNotLoggedIn
	}
	return a.client, nil
}

func (a *app) close() {
	if a.sess != nil {
		a.sess.Close()
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	_ = a.log.Sync()
}
