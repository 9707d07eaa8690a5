package chatlog

import (
	"strings"
	"testing"

	"runcoach/app/util/apperr"
)

const sampleExport = `[12/06/25, 5:43:09 PM] Alice: Morning run done, 10k in 52 minutes
[12/06/25, 5:44:12 PM] Bob: Nice pace! What shoes are you using?
[12/06/25, 5:45:30 PM] Alice: The same pair as last month,
still holding up fine
[12/06/25, 5:50:01 PM] Carol: Messages and calls are end-to-end encrypted. No one outside of this chat can read them.
[12/06/25, 6:01:44 PM] Carol: Anyone up for intervals tomorrow?`

func TestParse_Basic(t *testing.T) {
	msgs, err := Parse(strings.NewReader(sampleExport))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages (encryption notice filtered), got %d", len(msgs))
	}

	if msgs[0].Sender != "Alice" {
		t.Errorf("sender = %q, want Alice", msgs[0].Sender)
	}
	if msgs[0].Timestamp != "12/06/25, 5:43:09 PM" {
		t.Errorf("timestamp = %q", msgs[0].Timestamp)
	}
	if msgs[3].Text != "Anyone up for intervals tomorrow?" {
		t.Errorf("last message = %q", msgs[3].Text)
	}
}

func TestParse_ContinuationLines(t *testing.T) {
	msgs, err := Parse(strings.NewReader(sampleExport))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "The same pair as last month, still holding up fine"
	if msgs[2].Text != want {
		t.Errorf("continuation text = %q, want %q", msgs[2].Text, want)
	}
}

func TestParse_Idempotent(t *testing.T) {
	first, err := Parse(strings.NewReader(sampleExport))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Parse(strings.NewReader(sampleExport))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("message %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestParse_FiltersSystemNotices(t *testing.T) {
	input := `[12/06/25, 5:00:00 PM] Admin: Alice created this group
[12/06/25, 5:01:00 PM] Admin: Bob joined using this group's invite link
[12/06/25, 5:02:00 PM] Alice: First real message`

	msgs, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(msgs) != 1 {
		t.Fatalf("expected 1 message after filtering, got %d", len(msgs))
	}
	if msgs[0].Text != "First real message" {
		t.Errorf("text = %q", msgs[0].Text)
	}
}

func TestParse_Empty(t *testing.T) {
	_, err := Parse(strings.NewReader(""))
	if !apperr.IsParse(err) {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestParse_OnlyGarbage(t *testing.T) {
	_, err := Parse(strings.NewReader("not a message\nstill not a message"))
	if !apperr.IsParse(err) {
		t.Fatalf("expected parse error, got %v", err)
	}
}
