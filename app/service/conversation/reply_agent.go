package conversation

import (
	"context"
	"strings"
	"time"

	"runcoach/app/client/llm"

	_ "embed"
)

//go:embed training_prompt_template.txt
var trainingPromptTemplate string

//go:embed event_prompt_template.txt
var eventPromptTemplate string

//go:embed fallback_prompt_template.txt
var fallbackPromptTemplate string

const maxReplyDuration = 30 * time.Second

type chatCompleter interface {
	Complete(ctx context.Context, system string, history []llm.Message, question string) (string, error)
}

// ReplyAgent generates the answer using the template selected by intent.
type ReplyAgent struct {
	client chatCompleter
}

func NewReplyAgent(client chatCompleter) *ReplyAgent {
	return &ReplyAgent{client: client}
}

func (a *ReplyAgent) Call(
	ctx context.Context,
	intent Intent,
	contextBlock string,
	history []llm.Message,
	question string,
) (string, error) {
	var template string

	switch intent {
	case IntentTraining:
		template = trainingPromptTemplate
	case IntentEvent:
		template = eventPromptTemplate
	default:
		template = fallbackPromptTemplate
	}

	if contextBlock == "" {
		contextBlock = "No relevant context found."
	}

	system := strings.ReplaceAll(template, "{context}", contextBlock)

	ctx, cancel := context.WithTimeout(ctx, maxReplyDuration)
	defer cancel()

	answer, err := a.client.Complete(ctx, system, history, question)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(answer), nil
}
