package chatlog

import (
	"fmt"
	"strings"

	"github.com/elliotchance/pie/v2"
)

// Split groups messages into consecutive non-overlapping windows of up to
// size messages; the final chunk may be smaller. Deterministic: identical
// input always yields identical boundaries and ids.
func Split(msgs []Message, size int) []Chunk {
	if size <= 0 || len(msgs) == 0 {
		return nil
	}

	chunks := make([]Chunk, 0, (len(msgs)+size-1)/size)

	for start := 0; start < len(msgs); start += size {
		end := min(start+size, len(msgs))
		chunks = append(chunks, buildChunk(msgs[start:end], len(chunks)))
	}

	return chunks
}

func buildChunk(msgs []Message, idx int) Chunk {
	c := Chunk{
		ID:       fmt.Sprintf("chunk_%d", idx),
		Messages: make([]Message, len(msgs)),
		Meta: ChunkMeta{
			StartTimestamp: msgs[0].Timestamp,
			EndTimestamp:   msgs[len(msgs)-1].Timestamp,
			NumMessages:    len(msgs),
			Senders: pie.Unique(pie.Map(msgs, func(m Message) string {
				return m.Sender
			})),
		},
	}
	copy(c.Messages, msgs)

	var sb strings.Builder
	for i, msg := range msgs {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(fmt.Sprintf("[%s] %s: %s", msg.Timestamp, msg.Sender, msg.Text))
	}
	c.Text = sb.String()

	return c
}
