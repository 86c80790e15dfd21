package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"rjq/internal/api"
	"rjq/internal/config"
	"rjq/internal/store"
	"rjq/internal/worker"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	role := flag.String("role", "all", "process role: api|worker|all")
	flag.Parse()

	cfg := config.Load(*configPath)

	opt, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		log.Fatalf("invalid redis url: %v", err)
	}
	rdb := redis.NewClient(opt)
	st := store.NewRedis(rdb)

	// Set up logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{}))

	rootCtx := context.Background()

	switch *role {
	case "api":
		// API-only: serve the producer surface, no worker.
		s := api.NewServer(cfg, st, logger)
		if err := s.Listen(); err != nil {
			log.Fatalf("server failed: %v", err)
		}
	case "worker":
		// Worker-only: claim and execute jobs, block until the loop ends.
		if err := runWorker(rootCtx, cfg, st, logger); err != nil {
			log.Fatalf("worker failed: %v", err)
		}
	case "all":
		// Default: run both API and worker in one process.
		go func() {
			if err := runWorker(rootCtx, cfg, st, logger); err != nil {
				log.Fatalf("worker failed: %v", err)
			}
		}()
		s := api.NewServer(cfg, st, logger)
		if err := s.Listen(); err != nil {
			log.Fatalf("server failed: %v", err)
		}
	default:
		log.Fatalf("invalid role: %s (expected api|worker|all)", *role)
	}
}

func runWorker(ctx context.Context, cfg *config.Config, st store.Store, logger *slog.Logger) error {
	name := cfg.Queue.Name
	if name == "" {
		name = "rjq"
	}

	w := worker.New(st, name, execHandler, worker.Options{
		Wait:           time.Duration(cfg.Worker.WaitSeconds) * time.Second,
		Timeout:        time.Duration(cfg.Worker.TimeoutSeconds) * time.Second,
		PollsPerSecond: cfg.Worker.PollsPerSecond,
		ResultTTL:      time.Duration(cfg.Worker.ResultTTLSeconds) * time.Second,
		ContinueOnLost: cfg.Worker.ContinueOnLost,
		Logger:         logger,
	})
	return w.Run(ctx)
}

// execHandler runs a job's args as a command line: args[0] is the
// program, the rest its arguments. Trimmed stdout becomes the result.
func execHandler(_ string, args []string) (*string, error) {
	if len(args) == 0 {
		return nil, errors.New("no command in args")
	}
	out, err := exec.Command(args[0], args[1:]...).Output()
	if err != nil {
		return nil, err
	}
	s := strings.TrimSpace(string(out))
	if s == "" {
		return nil, nil
	}
	return &s, nil
}
