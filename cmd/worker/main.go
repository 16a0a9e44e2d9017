package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/devhubhq/devhub/internal/config"
	"github.com/devhubhq/devhub/internal/notifications"
	"github.com/devhubhq/devhub/internal/observability"
	"github.com/devhubhq/devhub/internal/queue"
	"github.com/devhubhq/devhub/internal/queue/redisclient"
	"github.com/devhubhq/devhub/internal/queue/worker"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)

	defer stop()

	rdb := redisclient.New(redisclient.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	defer rdb.Close()

	if err := rdb.Ping(ctx); err != nil {
		log.Error("redis connect failed", "err", err)
		os.Exit(1)
	}

	jobQueue := queue.New(rdb.Raw())

	notifier := notifications.NewLogNotifier(log)

	prom := observability.NewProm(prometheus.DefaultRegisterer)

	host, _ := os.Hostname()
	workerID := host + "-" + strconv.Itoa(os.Getpid())

	w := worker.New(worker.Config{
		WorkerID:    workerID,
		PollTimeout: 2 * time.Second,
	}, jobQueue, notifier, prom, log)

	log.Info("worker has started", "worker_id", workerID)

	if err := w.Run(ctx); err != nil {
		log.Error("worker stopped with error", "err", err)
	}

	log.Info("worker shutdown complete")
}
