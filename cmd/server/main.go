// Command stockfolio-server serves the account and watchlist HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/and161185/stockfolio/internal/limiter"
	"github.com/and161185/stockfolio/internal/logger"
	"github.com/and161185/stockfolio/internal/migrate"
	"github.com/and161185/stockfolio/internal/repository"
	"github.com/and161185/stockfolio/internal/repository/kv"
	"github.com/and161185/stockfolio/internal/repository/memory"
	"github.com/and161185/stockfolio/internal/repository/postgres"
	httpserver "github.com/and161185/stockfolio/internal/server/http"
	"github.com/and161185/stockfolio/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

type flags struct {
	addr       string
	dsn        string
	redisAddr  string
	jwtKey     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	resetTTL   time.Duration
	certFile   string
	keyFile    string
	logLevel   string
	logFormat  string
}

func parseFlags(args []string) (flags, error) {
	var f flags
	fs := flag.NewFlagSet("stockfolio-server", flag.ContinueOnError)
	fs.StringVar(&f.addr, "addr", ":7007", "listen address")
	fs.StringVar(&f.dsn, "dsn", "", "PostgreSQL DSN (empty: in-memory storage)")
	fs.StringVar(&f.redisAddr, "redis-addr", "", "Redis address for reset tokens and login limits")
	fs.StringVar(&f.jwtKey, "jwt-key", os.Getenv("STOCKFOLIO_JWT_KEY"), "HS256 signing key (required)")
	fs.DurationVar(&f.accessTTL, "access-ttl", service.DefaultAccessTTL, "access token TTL")
	fs.DurationVar(&f.refreshTTL, "refresh-ttl", service.DefaultRefreshTTL, "refresh token TTL")
	fs.DurationVar(&f.resetTTL, "reset-ttl", service.DefaultResetTTL, "password reset token TTL")
	fs.StringVar(&f.certFile, "tls-cert", "", "TLS certificate (PEM)")
	fs.StringVar(&f.keyFile, "tls-key", "", "TLS private key (PEM)")
	fs.StringVar(&f.logLevel, "log-level", "info", "log level")
	fs.StringVar(&f.logFormat, "log-format", logger.FormatJSON, "log format (json|console)")
	if err := fs.Parse(args); err != nil {
		return flags{}, err
	}
	if f.jwtKey == "" {
		return flags{}, errors.New("missing jwt signing key (--jwt-key or STOCKFOLIO_JWT_KEY)")
	}
	if (f.certFile == "") != (f.keyFile == "") {
		return flags{}, errors.New("--tls-cert and --tls-key go together")
	}
	return f, nil
}

// stores is the storage chosen by the flags.
type stores struct {
	users   repository.UserRepository
	refresh repository.RefreshTokenRepository
	watch   repository.WatchlistRepository
	resets  repository.ResetTokenStore
	lim     limiter.Limiter
	closers []func()
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func openStores(ctx context.Context, f flags, log *zap.Logger) (*stores, error) {
	st := &stores{}
	if f.dsn == "" {
		log.Warn("no --dsn, accounts live in memory")
		st.users, st.refresh, st.watch = memory.NewUsers(), memory.NewRefreshTokens(), memory.NewWatchlist()
		st.lim = limiter.NewMemory(limiter.DefaultPolicy)
	} else {
		if err := migrate.Up(ctx, f.dsn, log); err != nil {
			return nil, err
		}
		db, err := postgres.New(ctx, f.dsn)
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, db.Close)
		st.users = postgres.NewUserRepo(db)
		st.refresh = postgres.NewRefreshTokenRepo(db)
		st.watch = postgres.NewWatchlistRepo(db)
		st.lim = limiter.NewPG(db.Pool, limiter.DefaultPolicy)
	}

	if f.redisAddr == "" {
		st.resets = kv.NewMemoryResetTokens()
		return st, nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: f.redisAddr})
	st.closers = append(st.closers, func() { _ = rdb.Close() })
	if err := rdb.Ping(ctx).Err(); err != nil {
		st.close()
		return nil, err
	}
	st.resets = kv.NewRedisResetTokens(rdb, "")
	st.lim = limiter.NewRedis(rdb, "", limiter.DefaultPolicy)
	return st, nil
}

func main() {
	f, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}

	log, err := logger.New(f.logLevel, f.logFormat, zap.String("svc", "stockfolio-server"))
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}
	defer func() { _ = log.Sync() }()
	log.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", f.addr),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, f, log)
	if err != nil {
		log.Fatal("open storage", zap.Error(err))
	}
	defer st.close()

	authSvc := service.NewAuthService(st.users, st.refresh, st.resets, st.lim,
		service.LogResetSender{Log: log},
		service.TokenConfig{
			SignKey:    []byte(f.jwtKey),
			AccessTTL:  f.accessTTL,
			RefreshTTL: f.refreshTTL,
			ResetTTL:   f.resetTTL,
		})
	app := httpserver.New(authSvc, service.NewWatchlistService(st.watch), log)

	srv := &http.Server{
		Addr:              f.addr,
		Handler:           app.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if f.certFile != "" {
			log.Info("listening (TLS)", zap.String("addr", f.addr))
			errCh <- srv.ListenAndServeTLS(f.certFile, f.keyFile)
			return
		}
		log.Info("listening", zap.String("addr", f.addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("graceful shutdown timed out", zap.Error(err))
			_ = srv.Close()
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", zap.Error(err))
			st.close()
			os.Exit(1)
		}
	}

	log.Info("shutdown complete")
}
