package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"lapiswarps.ai/internal/logging"
	"lapiswarps.ai/internal/sim/catalogs"
	"lapiswarps.ai/internal/sim/multiworld"
	"lapiswarps.ai/internal/sim/tuning"
	"lapiswarps.ai/internal/sim/warps"
	"lapiswarps.ai/internal/transport/ws"
)

func main() {
	envCfg, err := parseEnv()
	if err != nil {
		// Logger is not up yet.
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}

	var (
		addr       = flag.String("addr", envCfg.Addr, "http listen address (LW_ADDR)")
		configDir  = flag.String("configs", envCfg.ConfigDir, "config directory (LW_CONFIG_DIR)")
		dataDir    = flag.String("data", envCfg.DataDir, "runtime data directory (LW_DATA_DIR)")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		worldsPath = flag.String("worlds", "", "path to worlds.yaml (default: <configs>/worlds.yaml)")
		disableDB  = flag.Bool("disable_db", envCfg.DisableDB, "disable the sqlite index (LW_DISABLE_DB)")
		logFile    = flag.String("log_file", envCfg.LogFile, "rotated log file, empty for console only (LW_LOG_FILE)")
		logLevel   = flag.String("log_level", envCfg.LogLevel, "debug|info|warn|error (LW_LOG_LEVEL)")
	)
	flag.Parse()

	logger, closeLog, err := logging.New(logging.Options{Level: *logLevel, File: *logFile})
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}
	defer func() { _ = closeLog() }()
	logger = logger.Named("server")

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatal("load catalogs", zap.Error(err))
	}
	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatal("load tuning", zap.Error(err))
		}
		logger.Warn("tuning not found; using defaults", zap.String("path", tp))
		tune = tuning.Defaults()
	}
	wp := strings.TrimSpace(*worldsPath)
	if wp == "" {
		wp = filepath.Join(*configDir, "worlds.yaml")
		if _, err := os.Stat(wp); err != nil {
			wp = ""
		}
	}
	mcfg, err := multiworld.Load(wp)
	if err != nil {
		logger.Fatal("load worlds config", zap.Error(err))
	}

	regs := warps.NewRegistries()
	runtimes, err := multiworld.BuildWorlds(mcfg, tune, cats, regs, logger)
	if err != nil {
		logger.Fatal("build worlds", zap.Error(err))
	}

	stores := map[string]*worldStore{}
	for _, spec := range mcfg.Worlds {
		st, err := openWorldStore(*dataDir, runtimes[spec.ID].World, *disableDB, logger)
		if err != nil {
			logger.Fatal("open world store", zap.String("world", spec.ID), zap.Error(err))
		}
		defer st.Close()
		if err := st.resume(); err != nil {
			logger.Fatal("resume world", zap.String("world", spec.ID), zap.Error(err))
		}
		st.upsertCatalogs(*configDir, cats, tune)
		stores[spec.ID] = st
	}

	mgr, err := multiworld.NewManager(mcfg, runtimes, regs, logger)
	if err != nil {
		logger.Fatal("multiworld manager", zap.Error(err))
	}

	ctx, cancel := signalContext()
	defer cancel()

	for _, st := range stores {
		go st.runWriter(ctx)
	}
	var worldsWG sync.WaitGroup
	worldsWG.Add(1)
	go func() {
		defer worldsWG.Done()
		if err := mgr.Run(ctx); err != nil {
			logger.Error("worlds stopped", zap.Error(err))
			cancel()
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", metricsHandler(mgr, stores))
	if envCfg.EnableAdmin {
		registerAdmin(mux, mgr, stores)
	} else {
		logger.Info("admin endpoints disabled (LW_ENABLE_ADMIN_HTTP=false)")
	}
	mux.HandleFunc("/v1/ws", ws.NewServer(mgr, logger).Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Info("listening", zap.String("addr", *addr), zap.Strings("worlds", mgr.WorldIDs()))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("ListenAndServe", zap.Error(err))
		cancel()
	}

	worldsWG.Wait()
	for _, st := range stores {
		st.finalSnapshot()
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
