package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"orb-trading-bot/internal/interfaces"
	"orb-trading-bot/internal/live"
	"orb-trading-bot/internal/logger"
	"orb-trading-bot/internal/store"
	"orb-trading-bot/internal/trace"
	"orb-trading-bot/internal/types"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config")
	flag.Parse()

	if err := initializeSystem(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := run(*configPath); err != nil {
		logger.ErrorWithErr(context.Background(), "Bot exited with error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	defer func() {
		if err := trace.Shutdown(context.Background()); err != nil {
			logger.Warn(context.Background(), "Failed to flush traces", "error", err)
		}
	}()

	cfg, err := loadConfig(ctx, configPath)
	if err != nil {
		return err
	}
	compressOldLogs(ctx)

	brk, err := initializeBroker(ctx, cfg)
	if err != nil {
		return err
	}
	rec, err := initializeRecorder(ctx, cfg)
	if err != nil {
		return err
	}
	defer rec.Close()

	session := initializeSession(cfg, brk, rec, initializeAlerter(ctx, cfg))
	sched, err := initializeScheduler(cfg, session)
	if err != nil {
		return err
	}
	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop(context.Background())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           newRouter(cfg, session, rec),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info(ctx, "Serving health, metrics and results", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorWithErr(ctx, "HTTP server failed", err)
		}
	}()

	logger.Info(ctx, "Bot started",
		"mode", cfg.Mode,
		"broker", brk.Name(),
		"symbol", cfg.Symbol,
		"next_job", sched.Next().Format(time.RFC3339),
	)
	runErr := session.Run(ctx)

	shutdownCtx, c := context.WithTimeout(context.Background(), 2*time.Second)
	defer c()
	_ = srv.Shutdown(shutdownCtx)
	logger.Info(context.Background(), "Bot stopped")
	return runErr
}

// newRouter serves results from the result table so earlier days survive a
// restart. Days the table has nothing for fall back to the session's memory,
// which is all there is without configured storage.
func newRouter(cfg *store.Config, s *live.Session, rec interfaces.Recorder) *mux.Router {
	router := mux.NewRouter().StrictSlash(true)
	router.Methods("GET").Path("/healthz").HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok\n"))
	})
	router.Methods("GET").Path("/metrics").Handler(promhttp.Handler())
	router.Methods("GET").Path("/status").HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, s.Status())
	})
	router.Methods("GET").Path("/results").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		date := r.URL.Query().Get("date")
		if date == "" {
			date = time.Now().In(cfg.Location()).Format("2006-01-02")
		}
		out, err := rec.ResultsForDate(date)
		if err != nil {
			logger.ErrorWithErr(r.Context(), "Failed to read results", err, "date", date)
			http.Error(w, "failed to read results", http.StatusInternalServerError)
			return
		}
		if len(out) == 0 {
			out = []types.TradeResult{}
			for _, res := range s.Results() {
				if res.Date == date {
					out = append(out, res)
				}
			}
		}
		writeJSON(w, out)
	})
	return router
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
