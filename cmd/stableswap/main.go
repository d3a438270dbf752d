package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/meverselabs/stableswap/cmd/closer"
	"github.com/meverselabs/stableswap/cmd/config"
	"github.com/meverselabs/stableswap/contract/exchange/util"
	"github.com/meverselabs/stableswap/service/apiserver"
	"github.com/meverselabs/stableswap/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := flag.String("cfg", "./pool.toml", "config file path")
	dbPath := flag.String("db", "", "store path, overrides StorePath")
	serve := flag.Bool("serve", false, "keep serving ListenAddr after the replay")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "load .env")
	}

	var cfg Config
	if err := config.LoadFile(*cfgPath, &cfg); err != nil {
		return err
	}
	if lvl := os.Getenv("STABLESWAP_LOG_LEVEL"); len(lvl) > 0 {
		cfg.LogLevel = lvl
	}
	if len(*dbPath) > 0 {
		cfg.StorePath = *dbPath
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return err
	}

	logger, err := util.NewLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	// a signal stops the replay between steps; closers run once it returns
	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT)
	defer stop()

	cm := closer.NewManager(logger)
	defer cm.CloseAll()

	var st *store.Store
	if len(cfg.StorePath) > 0 {
		st, err = store.Open(cfg.StoreDriver, cfg.StorePath, logger)
		if err != nil {
			return errors.Wrap(err, "open store")
		}
		cm.Add("store", st)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r, err := newRunner(&cfg, st, reg, logger, os.Stdout)
	if err != nil {
		return errors.Wrap(err, "build pool")
	}

	var api *apiserver.APIServer
	if len(cfg.ListenAddr) > 0 {
		api = apiserver.NewAPIServer(logger, reg)
		if err := apiserver.RegisterPool(api, "pool", r.pool); err != nil {
			return errors.Wrap(err, "register pool")
		}
		go func() {
			if err := api.Run(cfg.ListenAddr); err != nil && err != http.ErrServerClosed {
				logger.Error("api server", zap.Error(err))
			}
		}()
		cm.Add("api", closer.CloserFunc(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return api.Shutdown(ctx)
		}))
	}

	replayErr := r.replay(ctx)
	r.summary()
	if st != nil {
		if err := r.save(st); err != nil {
			logger.Error("save pool", zap.Error(err))
		}
	}
	if replayErr != nil {
		return errors.Wrap(replayErr, "replay")
	}
	if *serve && api != nil {
		go func() {
			<-ctx.Done()
			cm.CloseAll()
		}()
		cm.Wait()
	}
	return nil
}
