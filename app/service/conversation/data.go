package conversation

// Intent is the classified purpose of a user message. Template selection
// switches over this tag alone; anything unrecognized maps to IntentOther
// during parsing, so routing can never land in an undefined state.
type Intent string

const (
	IntentTraining Intent = "training"
	IntentEvent    Intent = "event"
	IntentOther    Intent = "other"
)

type intentResponse struct {
	Intent string `json:"intent"`
}

// Reply is the outcome of one chat exchange.
type Reply struct {
	SessionID string
	Text      string
}
