package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"runcoach/app/client/llm"
	"runcoach/app/config"
	"runcoach/app/server"
	"runcoach/app/service/conversation"
	"runcoach/app/service/index"
	"runcoach/app/service/session"
	"runcoach/app/util/mylog"

	"github.com/gofiber/fiber/v2/log"
	"github.com/samber/do"
)

func main() {
	di := do.New()
	defer di.Shutdown()
	defer log.Info("Waiting for services to finish...")

	mylog.Preinit()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	do.ProvideValue(di, appCtx)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	do.ProvideValue(di, cfg)

	if err = mylog.Init(cfg); err != nil {
		log.Fatalf("logging init failed: %v", err)
	}

	do.Provide(di, llm.New)
	do.Provide(di, index.New)
	do.Provide(di, session.New)
	do.Provide(di, conversation.New)
	do.Provide(di, server.New)

	idx := do.MustInvoke[*index.Service](di)
	if !idx.Ready() {
		slog.Warn("Vector index not found, run ingest before serving queries",
			"dir", cfg.Index.Dir,
			"telegram", true,
		)
	}

	slog.Info("Service started", "index_entries", idx.Count())

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt)
		<-sigint

		log.Info("Shutting down...")

		cancel()
	}()

	srv := do.MustInvoke[*server.Server](di)

	go func() {
		if err := srv.RunMCP(appCtx); err != nil {
			slog.Error("MCP server failed", "error", err)
		}
	}()

	if err = srv.Run(appCtx); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}
