package chatlog

import (
	"bufio"
	"io"
	"regexp"
	"strings"

	"runcoach/app/util/apperr"
)

// Export format: [12/06/25, 5:43:09 PM] Sender Name: Message text
var messageRe = regexp.MustCompile(`^\[([^\]]+)\]\s+([^:]+):\s+(.*)$`)

// Substrings that mark administrative notices rather than chat content.
// The zero-width mark prefixes most system lines in WhatsApp exports.
var systemIndicators = []string{
	"‎",
	"added",
	"removed",
	"left",
	"joined",
	"created this group",
	"changed the group",
	"Messages and calls are end-to-end encrypted",
	"changed this group's icon",
}

// Parse reads an exported chat log and returns its messages in file order.
// Lines that do not match the message shape are treated as continuations of
// the previous message, since exports wrap multi-line messages. System
// notices are filtered out. Returns a parse error if no messages survive.
func Parse(r io.Reader) ([]Message, error) {
	var (
		messages []Message
		current  *Message
	)

	flush := func() {
		if current != nil && !isSystemNotice(current.Text) {
			messages = append(messages, *current)
		}
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		match := messageRe.FindStringSubmatch(line)
		if match == nil {
			// Continuation of a wrapped multi-line message.
			if current != nil {
				current.Text += " " + line
			}
			continue
		}

		flush()

		current = &Message{
			Timestamp: strings.TrimSpace(match[1]),
			Sender:    strings.TrimSpace(match[2]),
			Text:      strings.TrimSpace(match[3]),
		}
	}

	flush()

	if err := scanner.Err(); err != nil {
		return nil, apperr.Parse("failed to read chat export: %w", err)
	}

	if len(messages) == 0 {
		return nil, apperr.Parse("no parseable messages in chat export")
	}

	return messages, nil
}

func isSystemNotice(text string) bool {
	for _, indicator := range systemIndicators {
		if strings.Contains(text, indicator) {
			return true
		}
	}

	return false
}
