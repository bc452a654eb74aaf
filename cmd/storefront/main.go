// Command storefront is the storefront client: one subcommand per view action,
// or "serve" for the local view server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fjod/go_cart/storefront/internal/api"
	"github.com/fjod/go_cart/storefront/internal/app"
	"github.com/fjod/go_cart/storefront/internal/config"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/telemetry"
	"github.com/fjod/go_cart/storefront/internal/tokenstore"
)

const usage = `usage: storefront [flags] <command> [args]

commands:
  login     -username U -password P
  signup    -username U -password P
  products  list the catalog
  cart      show the cart
  add       <product_id>
  remove    <product_id>
  checkout  -full-name .. -street .. -city .. -state .. -postal-code .. -phone ..
  logout    forget the stored credential
  status    show the session
  serve     run the view server
`

var errUsage = errors.New("bad usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, "storefront:", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("storefront", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage, "\nflags:\n")
		fs.PrintDefaults()
	}
	fs.StringVar(&cfg.APIURL, "api-url", cfg.APIURL, "storefront API base URL")
	fs.StringVar(&cfg.TokenBackend, "backend", cfg.TokenBackend, "token store: file, memory or redis")
	ephemeral := fs.Bool("ephemeral", false, "keep the credential in memory only")
	fs.StringVar(&cfg.StoragePath, "storage", cfg.StoragePath, "token file for the file backend")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "redis address for the redis backend")
	fs.StringVar(&cfg.HTTPPort, "port", cfg.HTTPPort, "view server port")
	fs.DurationVar(&cfg.RequestTimeout, "timeout", cfg.RequestTimeout, "per-request timeout")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "json or console")
	fs.StringVar(&cfg.Trace, "trace", cfg.Trace, "trace exporter: none or stdout")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *ephemeral {
		cfg.TokenBackend = config.BackendMemory
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errUsage
	}

	cmd, ok := commands[fs.Arg(0)]
	if !ok {
		fs.Usage()
		return fmt.Errorf("unknown command %q", fs.Arg(0))
	}

	e, err := setup(ctx, cfg)
	if err != nil {
		return err
	}
	defer e.close()

	return cmd(ctx, e, fs.Args()[1:], stdout)
}

// env is everything a command runs against.
type env struct {
	cfg     *config.Config
	log     *zap.Logger
	app     *app.App
	closers []func()
}

func (e *env) close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

func setup(ctx context.Context, cfg *config.Config) (*env, error) {
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	e := &env{cfg: cfg, log: log}
	e.closers = append(e.closers, func() { _ = log.Sync() })

	shutdown, err := telemetry.Init(cfg.Trace, os.Stderr)
	if err != nil {
		e.close()
		return nil, err
	}
	e.closers = append(e.closers, func() {
		if err := shutdown(context.Background()); err != nil {
			log.Warn("trace shutdown failed", zap.Error(err))
		}
	})

	tokens, err := e.tokenStore(cfg)
	if err != nil {
		e.close()
		return nil, err
	}

	client := api.New(cfg.APIConfig(), log.Named("api"))
	e.app = app.New(client, tokens, log)
	e.closers = append(e.closers, e.app.Close)

	if err := e.app.Start(ctx); err != nil {
		e.close()
		return nil, err
	}
	return e, nil
}

func (e *env) tokenStore(cfg *config.Config) (tokenstore.Store, error) {
	switch cfg.TokenBackend {
	case config.BackendMemory:
		return tokenstore.NewMemoryStore(), nil

	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		e.closers = append(e.closers, func() { _ = rdb.Close() })
		return tokenstore.NewRedisStore(rdb, cfg.RedisNamespace), nil

	default:
		path := cfg.StoragePath
		if path == "" {
			var err error
			if path, err = tokenstore.DefaultPath(); err != nil {
				return nil, err
			}
		}
		fs := tokenstore.NewFileStore(path)
		e.log.Debug("using token file", zap.String("path", fs.Path()))
		return fs, nil
	}
}
