package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"runcoach/app/client/llm"
	"runcoach/app/config"
	"runcoach/app/service/index"
	"runcoach/app/service/ingest"
	"runcoach/app/util/mylog"

	"github.com/gofiber/fiber/v2/log"
	"github.com/samber/do"
)

// Ingestion is a one-shot run: parse the chat export, chunk, embed and
// atomically rebuild the vector index the server reads at startup.
func main() {
	di := do.New()
	defer di.Shutdown()

	mylog.Preinit()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	do.ProvideValue(di, ctx)

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
	do.Provide(di, ingest.New)

	stats, err := do.MustInvoke[*ingest.Service](di).Run(ctx)
	if err != nil {
		log.Fatalf("ingestion failed: %v", err)
	}

	slog.Info("Vector index ready",
		"messages", stats.Messages,
		"chunks", stats.Chunks,
		"dir", cfg.Index.Dir,
	)
}
