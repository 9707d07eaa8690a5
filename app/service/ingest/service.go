package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"runcoach/app/client/llm"
	"runcoach/app/config"
	"runcoach/app/service/chatlog"
	"runcoach/app/service/index"
	"runcoach/app/util/apperr"

	"github.com/samber/do"
	"golang.org/x/sync/errgroup"
)

const embedWorkers = 4

// Embedder is the slice of the LLM client the pipeline needs.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

type Stats struct {
	Messages int
	Chunks   int
}

// Service runs the offline ingestion path: parse the chat export, chunk it,
// embed every chunk and atomically rebuild the vector index. Any failure
// aborts the whole run and leaves the previously persisted index untouched.
type Service struct {
	cfg      *config.Config
	embedder Embedder
	indexSvc *index.Service
}

func New(di *do.Injector) (*Service, error) {
	return NewService(
		do.MustInvoke[*config.Config](di),
		do.MustInvoke[*llm.Client](di),
		do.MustInvoke[*index.Service](di),
	), nil
}

func NewService(cfg *config.Config, embedder Embedder, indexSvc *index.Service) *Service {
	return &Service{
		cfg:      cfg,
		embedder: embedder,
		indexSvc: indexSvc,
	}
}

func (s *Service) Run(ctx context.Context) (Stats, error) {
	start := time.Now()

	file, err := os.Open(s.cfg.Ingest.ChatFile)
	if err != nil {
		return Stats{}, apperr.Fatal(err, "chat export not found")
	}
	defer file.Close()

	messages, err := chatlog.Parse(file)
	if err != nil {
		return Stats{}, err
	}

	chunks := chatlog.Split(messages, s.cfg.Ingest.ChunkSize)

	slog.Info("Parsed chat export",
		"file", s.cfg.Ingest.ChatFile,
		"messages", len(messages),
		"chunks", len(chunks),
	)

	vectors, err := s.embedChunks(ctx, chunks)
	if err != nil {
		return Stats{}, err
	}

	entries := make([]index.Entry, len(chunks))
	for i, chunk := range chunks {
		entries[i] = index.Entry{
			ID:     chunk.ID,
			Vector: vectors[i],
			Text:   chunk.Text,
			Meta: map[string]string{
				"start_timestamp": chunk.Meta.StartTimestamp,
				"end_timestamp":   chunk.Meta.EndTimestamp,
				"num_messages":    fmt.Sprint(chunk.Meta.NumMessages),
			},
		}
	}

	if err = s.indexSvc.Rebuild(entries); err != nil {
		return Stats{}, err
	}

	slog.Info("Ingestion complete",
		"messages", len(messages),
		"chunks", len(chunks),
		"duration", time.Since(start),
	)

	return Stats{Messages: len(messages), Chunks: len(chunks)}, nil
}

// embedChunks embeds chunk texts in provider-sized batches, a few in
// flight at once. Results land at fixed offsets, so output order always
// matches chunk order regardless of batch completion order.
func (s *Service) embedChunks(ctx context.Context, chunks []chatlog.Chunk) ([][]float32, error) {
	batchSize := s.cfg.OpenAI.Embedding.BatchSize
	vectors := make([][]float32, len(chunks))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(embedWorkers)

	for start := 0; start < len(chunks); start += batchSize {
		end := min(start+batchSize, len(chunks))

		group.Go(func() error {
			texts := make([]string, 0, end-start)
			for _, chunk := range chunks[start:end] {
				texts = append(texts, chunk.Text)
			}

			batch, err := s.embedder.EmbedTexts(groupCtx, texts)
			if err != nil {
				return err
			}

			copy(vectors[start:end], batch)

			slog.Debug("Embedded batch", "from", start, "to", end)

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	return vectors, nil
}
