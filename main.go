package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fulldump/goconfig"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/stevemurr/question-server/config"
	"github.com/stevemurr/question-server/handler"
	"github.com/stevemurr/question-server/store"
)

var VERSION = "dev"

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "question-server: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	c := config.Default()
	c.ReadEnv(os.Getenv)
	goconfig.Read(&c)

	if c.Version {
		fmt.Println("Version:", VERSION)
		return nil
	}

	if c.ShowConfig {
		e := json.NewEncoder(os.Stdout)
		e.SetIndent("", "    ")
		e.Encode(c)
	}

	level, err := c.Level()
	if err != nil {
		return err
	}
	logger := slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := store.New(c.Backend, c.DataDir)
	if err != nil {
		return fmt.Errorf("failed to create store (backend=%s): %w", c.Backend, err)
	}
	defer s.Close()

	var h http.Handler = handler.NewWithLogger(s, logger)
	h = handler.Recover(h, logger)
	h = handler.AccessLog(h, logger)
	h = handler.CORS(h, c.Origins())

	srv := &http.Server{
		Addr:              c.HttpAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("Questions API listening", "addr", c.HttpAddr, "store", c.Backend, "data", c.DataDir, "version", VERSION)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
