// Command jobhub-worker delivers queued notifications. It reads the same
// configuration as the web binary and is only needed with notify_mode=queue.
package main

import (
	"log"

	"github.com/dalemusser/jobhub/internal/app/bootstrap"
	"github.com/dalemusser/jobhub/internal/app/system/mailer"
	"github.com/dalemusser/jobhub/internal/app/system/notify"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// concurrency is the number of notifications delivered in parallel.
const concurrency = 10

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	_, appCfg, err := bootstrap.LoadConfig(logger)
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if appCfg.RedisAddr == "" {
		logger.Fatal("redis_addr is required to run the worker")
	}

	m := mailer.New(bootstrap.MailerConfig(appCfg), logger)
	srv := notify.NewServer(notify.RedisOpt(appCfg.RedisAddr, appCfg.RedisPassword), concurrency, logger)

	mux := asynq.NewServeMux()
	notify.NewHandler(m, logger).RegisterHandlers(mux)

	logger.Info("jobhub worker starting", zap.String("redis", appCfg.RedisAddr))
	if err := srv.Run(mux); err != nil {
		logger.Fatal("worker stopped", zap.Error(err))
	}
}
