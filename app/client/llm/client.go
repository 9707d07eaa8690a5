package llm

import (
	"context"
	"net/http"
	"strings"
	"time"

	"runcoach/app/config"
	"runcoach/app/util/apperr"

	"github.com/samber/do"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const requestTimeout = 30 * time.Second

// Message is one prior turn passed to the completion model.
type Message struct {
	Role string
	Text string
}

// Client talks to an OpenAI-compatible provider. Each role (embedding,
// intent, reply) gets its own model configuration so they can point at
// different models or even different providers.
type Client struct {
	embedder  *embeddings.EmbedderImpl
	intentLLM *openai.LLM
	replyLLM  *openai.LLM
}

func New(di *do.Injector) (*Client, error) {
	cfg := do.MustInvoke[*config.Config](di)

	embedLLM, err := newLLM(cfg.OpenAI.Embedding.ModelConfig, true)
	if err != nil {
		return nil, apperr.Fatal(err, "failed to create embedding client")
	}

	embedder, err := embeddings.NewEmbedder(embedLLM,
		embeddings.WithBatchSize(cfg.OpenAI.Embedding.BatchSize),
		embeddings.WithStripNewLines(false),
	)
	if err != nil {
		return nil, apperr.Fatal(err, "failed to create embedder")
	}

	intentLLM, err := newLLM(cfg.OpenAI.Intent, false)
	if err != nil {
		return nil, apperr.Fatal(err, "failed to create intent client")
	}

	replyLLM, err := newLLM(cfg.OpenAI.Reply, false)
	if err != nil {
		return nil, apperr.Fatal(err, "failed to create reply client")
	}

	return &Client{
		embedder:  embedder,
		intentLLM: intentLLM,
		replyLLM:  replyLLM,
	}, nil
}

func newLLM(mc config.ModelConfig, embedding bool) (*openai.LLM, error) {
	opts := []openai.Option{
		openai.WithBaseURL(mc.BaseURL),
		openai.WithToken(mc.Token),
		openai.WithModel(mc.Model),
		openai.WithHTTPClient(&http.Client{
			Timeout: requestTimeout,
		}),
	}

	if embedding {
		opts = append(opts, openai.WithEmbeddingModel(mc.Model))
	}

	return openai.New(opts...)
}

// EmbedTexts embeds texts in input order, one vector per text. A provider
// failure invalidates the whole call; no partial output is ever returned.
func (c *Client) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	vectors, err := c.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, classify(err, "embedding request failed")
	}

	if len(vectors) != len(texts) {
		return nil, apperr.Transient(nil, "provider returned mismatched embedding count")
	}

	for i := 1; i < len(vectors); i++ {
		if len(vectors[i]) != len(vectors[0]) {
			return nil, apperr.Transient(nil, "provider returned mixed embedding dimensions")
		}
	}

	return vectors, nil
}

func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	vector, err := c.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, classify(err, "query embedding failed")
	}

	return vector, nil
}

// CompleteJSON sends a single-prompt completion in JSON mode and returns
// the raw model output.
func (c *Client) CompleteJSON(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := c.intentLLM.GenerateContent(ctx,
		[]llms.MessageContent{
			llms.TextParts(llms.ChatMessageTypeHuman, prompt),
		},
		llms.WithJSONMode(),
		llms.WithTemperature(0),
		llms.WithMaxTokens(256),
	)
	if err != nil {
		return "", classify(err, "intent completion failed")
	}

	if len(resp.Choices) == 0 {
		return "", apperr.Transient(nil, "no completion choices returned")
	}

	return resp.Choices[0].Content, nil
}

// Complete sends system instructions, prior history and the new question to
// the reply model and returns the generated text, whitespace-trimmed.
func (c *Client) Complete(ctx context.Context, system string, history []Message, question string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	messages := make([]llms.MessageContent, 0, len(history)+2)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, system))

	for _, turn := range history {
		role := llms.ChatMessageTypeHuman
		if turn.Role == "assistant" {
			role = llms.ChatMessageTypeAI
		}
		messages = append(messages, llms.TextParts(role, turn.Text))
	}

	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, question))

	resp, err := c.replyLLM.GenerateContent(ctx, messages,
		llms.WithTemperature(0.7),
		llms.WithMaxTokens(800),
	)
	if err != nil {
		return "", classify(err, "reply completion failed")
	}

	if len(resp.Choices) == 0 {
		return "", apperr.Transient(nil, "no completion choices returned")
	}

	return strings.TrimSpace(resp.Choices[0].Content), nil
}

// classify maps provider failures onto the error taxonomy: credential and
// model-configuration problems are fatal, everything else (rate limits,
// timeouts, network) is transient and retryable.
func classify(err error, msg string) error {
	if err == nil {
		return apperr.Transient(nil, msg)
	}

	text := strings.ToLower(err.Error())

	fatalMarkers := []string{
		"401",
		"403",
		"invalid_api_key",
		"incorrect api key",
		"model_not_found",
		"does not exist",
	}
	for _, marker := range fatalMarkers {
		if strings.Contains(text, marker) {
			return apperr.Fatal(err, msg)
		}
	}

	return apperr.Transient(err, msg)
}
