package types

// Wire shapes exchanged with the remote inference and usage endpoints.

// ChatRequest is the body POSTed to the inference endpoint. The model field
// always carries the bare model id, never the provider/model compound form.
type ChatRequest struct {
	Model    string      `json:"model"`
	Messages []Message   `json:"messages"`
	Options  ChatOptions `json:"options"`
}

// ChatOptions always includes temperature, maxTokens and an explicit stream flag.
type ChatOptions struct {
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"maxTokens"`
	Stream      bool    `json:"stream"`
}

// ChatResponse is the buffered (non-streaming) response body.
type ChatResponse struct {
	Content  string `json:"content"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Tokens   Tokens `json:"tokens"`
}

// RemoteErrorBody is the error response of the inference endpoint.
type RemoteErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// StreamFrame is the payload of one streaming protocol frame.
type StreamFrame struct {
	Type     string  `json:"type"`
	Content  string  `json:"content,omitempty"`
	Tokens   *Tokens `json:"tokens,omitempty"`
	Model    string  `json:"model,omitempty"`
	Provider string  `json:"provider,omitempty"`
	Error    string  `json:"error,omitempty"`
}

const (
	FrameChunk = "chunk"
	FrameDone  = "done"
	FrameError = "error"
)

// UsageSyncRequest is the aggregate pushed to the usage sync endpoint.
// Submission is idempotent on the remote side.
type UsageSyncRequest struct {
	Tokens    UsageSyncTokens   `json:"tokens"`
	Requests  UsageSyncRequests `json:"requests"`
	Time      UsageSyncMinutes  `json:"time"`
	Timestamp string            `json:"timestamp"`
}

type UsageSyncTokens struct {
	Today int `json:"today"`
	Month int `json:"month"`
}

type UsageSyncRequests struct {
	Today int `json:"today"`
	Month int `json:"month"`
}

type UsageSyncMinutes struct {
	Recording   int `json:"recording"`
	Translation int `json:"translation"`
}

// UsageSyncResponse optionally carries the remote authority's own aggregates
// so the client can reconcile after an offline period.
type UsageSyncResponse struct {
	Tokens   *UsageSyncTokens   `json:"tokens,omitempty"`
	Requests *UsageSyncRequests `json:"requests,omitempty"`
	Tier     Tier               `json:"tier,omitempty"`
	Status   string             `json:"status,omitempty"`
}
