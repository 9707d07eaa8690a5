package conversation

import (
	"context"
	"log/slog"
	"time"

	"runcoach/app/client/llm"
	"runcoach/app/config"
	"runcoach/app/service/index"
	"runcoach/app/service/session"
	"runcoach/app/util/apperr"

	"github.com/samber/do"
)

const (
	historyWindow = 10
	retryAttempts = 3
	retryBaseWait = 500 * time.Millisecond
)

// Embedder is the slice of the LLM client the query path needs.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Service runs the query-time pipeline: classify intent, retrieve relevant
// chunks, assemble a bounded context block, generate the answer and record
// the exchange in the session.
type Service struct {
	cfg      *config.Config
	embedder Embedder
	indexSvc *index.Service
	sessions *session.Store

	intentAgent *IntentAgent
	replyAgent  *ReplyAgent
}

func New(di *do.Injector) (*Service, error) {
	client := do.MustInvoke[*llm.Client](di)

	return NewService(
		do.MustInvoke[*config.Config](di),
		client,
		NewIntentAgent(client),
		NewReplyAgent(client),
		do.MustInvoke[*index.Service](di),
		do.MustInvoke[*session.Store](di),
	), nil
}

func NewService(
	cfg *config.Config,
	embedder Embedder,
	intentAgent *IntentAgent,
	replyAgent *ReplyAgent,
	indexSvc *index.Service,
	sessions *session.Store,
) *Service {
	return &Service{
		cfg:         cfg,
		embedder:    embedder,
		indexSvc:    indexSvc,
		sessions:    sessions,
		intentAgent: intentAgent,
		replyAgent:  replyAgent,
	}
}

// Answer handles one chat exchange. The session is updated only after a
// successful generation, so failed requests never pollute history.
func (s *Service) Answer(ctx context.Context, sessionID, message string) (Reply, error) {
	id, history := s.sessions.GetOrCreate(sessionID)

	intent, err := s.intentAgent.Call(ctx, message)
	if err != nil {
		// Classification failure routes to the fallback template rather
		// than failing the whole request.
		slog.Warn("Intent classification failed, using fallback", "error", err)
		intent = IntentOther
	}

	var contextBlock string

	if intent != IntentOther {
		contextBlock, err = s.retrieveContext(ctx, message)
		if err != nil {
			return Reply{}, err
		}
	}

	turns := history
	if len(turns) > historyWindow {
		turns = turns[len(turns)-historyWindow:]
	}

	messages := make([]llm.Message, len(turns))
	for i, turn := range turns {
		messages[i] = llm.Message{Role: turn.Role, Text: turn.Text}
	}

	var answer string
	err = apperr.Retry(ctx, retryAttempts, retryBaseWait, func() error {
		var callErr error
		answer, callErr = s.replyAgent.Call(ctx, intent, contextBlock, messages, message)
		return callErr
	})
	if err != nil {
		return Reply{}, err
	}

	s.sessions.Append(id,
		session.Turn{Role: session.RoleUser, Text: message},
		session.Turn{Role: session.RoleAssistant, Text: answer},
	)

	slog.Info("Answered message",
		"session_id", id,
		"intent", intent,
		"history_turns", len(history),
	)

	return Reply{SessionID: id, Text: answer}, nil
}

func (s *Service) retrieveContext(ctx context.Context, message string) (string, error) {
	results, err := s.SearchArchive(ctx, message, s.cfg.Index.TopK)
	if err != nil {
		return "", err
	}

	return assembleContext(results, s.cfg.Context.MaxChars), nil
}

// SearchArchive embeds the query and returns the best-matching chunks. Also
// exposed as an MCP tool by the server.
func (s *Service) SearchArchive(ctx context.Context, query string, k int) ([]index.Result, error) {
	var vector []float32

	err := apperr.Retry(ctx, retryAttempts, retryBaseWait, func() error {
		var callErr error
		vector, callErr = s.embedder.EmbedQuery(ctx, query)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	return s.indexSvc.Search(vector, k)
}
