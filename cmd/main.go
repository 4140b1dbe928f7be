package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/JJ-Intelligence/slide-tac-toe/pkg/config"
	"github.com/JJ-Intelligence/slide-tac-toe/pkg/server"
	"go.uber.org/zap"
)

var (
	port         = flag.String("port", os.Getenv("PORT"), "Port to host the server on")
	frontendHost = flag.String("frontendHost", os.Getenv("FRONTEND_HOST"), "The frontend host")
	configPath   = flag.String("config", os.Getenv("CONFIG_PATH"), "Path to a YAML config file")
	debug        = flag.Bool("debug", false, "Enable development logging")
)

// checkOrigin checks a requests origin, returning true if the origin is valid.
// Every origin is allowed when no frontend host is configured.
func checkOrigin(host string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		if host == "" {
			return true
		}
		origin := r.Header.Get("Origin")
		return strings.Contains(origin, host)
	}
}

func newLogger() (*zap.Logger, error) {
	if *debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	flag.Parse()
	log, err := newLogger()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg, err := config.ParseConfig(*configPath)
	if err != nil {
		log.Fatal("Unable to load config", zap.Error(err))
	}
	if *port != "" {
		cfg.Port = *port
	}
	if *frontendHost != "" {
		cfg.FrontendHost = *frontendHost
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid config", zap.Error(err))
	}

	// Start-up the server
	s := server.NewServer(log, cfg, checkOrigin(cfg.FrontendHost))
	errs := make(chan error, 1)
	go func() {
		errs <- s.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errs:
		if err != nil {
			log.Fatal("Server stopped", zap.Error(err))
		}
	case sig := <-stop:
		log.Info("Shutting down", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := s.Shutdown(ctx); err != nil {
			log.Error("Error during shutdown", zap.Error(err))
		}
	}
}
