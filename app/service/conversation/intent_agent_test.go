package conversation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"runcoach/app/util/apperr"
)

type fakeJSONCompleter struct {
	response string
	err      error
	prompt   string
}

func (f *fakeJSONCompleter) CompleteJSON(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.response, f.err
}

func TestIntentAgent_Categories(t *testing.T) {
	cases := []struct {
		response string
		want     Intent
	}{
		{`{"intent": "training"}`, IntentTraining},
		{`{"intent": "event"}`, IntentEvent},
		{`{"intent": "other"}`, IntentOther},
		{`{"intent": "Training"}`, IntentTraining},
		{`{"intent": "weather"}`, IntentOther},
		{`{"intent": ""}`, IntentOther},
	}

	for _, tc := range cases {
		agent := NewIntentAgent(&fakeJSONCompleter{response: tc.response})

		got, err := agent.Call(context.Background(), "some question")
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tc.response, err)
			continue
		}
		if got != tc.want {
			t.Errorf("%s: intent = %q, want %q", tc.response, got, tc.want)
		}
	}
}

func TestIntentAgent_StripsCodeFence(t *testing.T) {
	agent := NewIntentAgent(&fakeJSONCompleter{
		response: "```json\n{\"intent\": \"training\"}\n```",
	})

	got, err := agent.Call(context.Background(), "how do I taper?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != IntentTraining {
		t.Errorf("intent = %q, want training", got)
	}
}

func TestIntentAgent_PromptContainsQuestion(t *testing.T) {
	fake := &fakeJSONCompleter{response: `{"intent": "other"}`}
	agent := NewIntentAgent(fake)

	if _, err := agent.Call(context.Background(), "what about the city marathon?"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(fake.prompt, "what about the city marathon?") {
		t.Error("question missing from classification prompt")
	}
}

func TestIntentAgent_GarbageResponse(t *testing.T) {
	agent := NewIntentAgent(&fakeJSONCompleter{response: "not json at all"})

	got, err := agent.Call(context.Background(), "hello")
	if !apperr.IsTransient(err) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if got != IntentOther {
		t.Errorf("intent on garbage = %q, want other", got)
	}
}

func TestIntentAgent_PropagatesCallError(t *testing.T) {
	callErr := apperr.Fatal(errors.New("401"), "bad credentials")
	agent := NewIntentAgent(&fakeJSONCompleter{err: callErr})

	_, err := agent.Call(context.Background(), "hello")
	if !apperr.IsFatal(err) {
		t.Fatalf("expected fatal error, got %v", err)
	}
}
