package chatlog

// Message is a single parsed line of the exported chat. The timestamp is
// kept as the raw export string since the date format depends on the
// exporting device's locale.
type Message struct {
	Timestamp string
	Sender    string
	Text      string
}

// Chunk groups consecutive messages into one retrieval unit. Boundaries
// never split a message; ids are positional, so re-ingestion of the same
// export yields identical chunks.
type Chunk struct {
	ID       string
	Messages []Message
	Text     string
	Meta     ChunkMeta
}

type ChunkMeta struct {
	StartTimestamp string
	EndTimestamp   string
	NumMessages    int
	Senders        []string
}
