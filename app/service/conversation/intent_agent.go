package conversation

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"runcoach/app/util/apperr"

	_ "embed"
)

//go:embed intent_prompt_template.txt
var intentPromptTemplate string

const maxIntentDuration = 15 * time.Second

type jsonCompleter interface {
	CompleteJSON(ctx context.Context, prompt string) (string, error)
}

// IntentAgent classifies one user message into an Intent with a single
// completion call.
type IntentAgent struct {
	client jsonCompleter
}

func NewIntentAgent(client jsonCompleter) *IntentAgent {
	return &IntentAgent{client: client}
}

func (a *IntentAgent) Call(ctx context.Context, question string) (Intent, error) {
	prompt := strings.ReplaceAll(intentPromptTemplate, "{question}", question)

	ctx, cancel := context.WithTimeout(ctx, maxIntentDuration)
	defer cancel()

	result, err := a.client.CompleteJSON(ctx, prompt)
	if err != nil {
		return IntentOther, err
	}

	result = strings.Trim(result, "`")
	result = strings.TrimSpace(result)
	result = strings.TrimPrefix(result, "json")
	result = strings.TrimSpace(result)

	var response intentResponse
	if err = json.Unmarshal([]byte(result), &response); err != nil {
		return IntentOther, apperr.Transient(err, "failed to unmarshal intent response")
	}

	return parseIntent(response.Intent), nil
}

// parseIntent maps the model's category string onto the intent tag.
// Unknown categories route to IntentOther, never anywhere undefined.
func parseIntent(value string) Intent {
	switch Intent(strings.ToLower(strings.TrimSpace(value))) {
	case IntentTraining:
		return IntentTraining
	case IntentEvent:
		return IntentEvent
	default:
		return IntentOther
	}
}
