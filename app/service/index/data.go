package index

// Entry is one indexed chunk. Entries are immutable once added; the whole
// set is replaced on rebuild.
type Entry struct {
	ID     string            `json:"id"`
	Vector []float32         `json:"vector"`
	Text   string            `json:"text"`
	Meta   map[string]string `json:"meta,omitempty"`
}

// Result is a search hit. Score is cosine similarity, higher is better.
type Result struct {
	Entry Entry
	Score float64
}

type meta struct {
	Dimension int    `json:"dimension"`
	Count     int    `json:"count"`
	CreatedAt string `json:"created_at"`
}
