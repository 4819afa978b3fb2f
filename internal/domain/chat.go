package domain

// Input types for a chat turn. Exactly one of Query/InputAudio carries
// content, selected by InputType.
const (
	InputTypeText  = "text"
	InputTypeVoice = "voice"
)

// ChatTurnRequest is the body of POST /chat/{companyId}: one visitor
// utterance plus the complete transcript so far. The server keeps no
// session state between turns, so the history travels on every call.
type ChatTurnRequest struct {
	Query      string    `json:"query"`
	History    []Message `json:"history"`
	InputType  string    `json:"inputType,omitempty"`
	InputAudio string    `json:"inputAudio,omitempty"`
}

// ChatTurnResponse carries the assistant reply. Audio, when present, is
// base64 mp3 and is played best-effort by the widget.
type ChatTurnResponse struct {
	Answer string `json:"answer"`
	Audio  string `json:"audio,omitempty"`
}

// GenerateRequest is the payload forwarded to the AI service's
// /chat/generate endpoint. CompanyID carries the vector namespace, not
// the tenant's database id.
type GenerateRequest struct {
	CompanyID    string    `json:"companyId"`
	Query        string    `json:"query"`
	History      []Message `json:"history"`
	InputType    string    `json:"inputType,omitempty"`
	InputAudio   string    `json:"inputAudio,omitempty"`
	SystemPrompt string    `json:"systemPrompt,omitempty"`
}

// GenerateResponse is the AI service's reply to /chat/generate.
type GenerateResponse struct {
	Answer string `json:"answer"`
	Audio  string `json:"audio,omitempty"`
}

// SummarizeRequest asks the AI service for a summary + qualification
// score of a full transcript.
type SummarizeRequest struct {
	History []Message `json:"history"`
}

// SummarizeResponse is the AI service's reply to /chat/summarize.
type SummarizeResponse struct {
	Summary string   `json:"summary"`
	Score   string   `json:"score"`
	Topics  []string `json:"topics,omitempty"`
}

// IngestRequest sends one document's text to the AI service for
// chunking + embedding under the company's namespace.
type IngestRequest struct {
	CompanyID string         `json:"companyId"`
	Text      string         `json:"text"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// EndSessionRequest is the body of POST /company/end-session.
type EndSessionRequest struct {
	CompanyID string         `json:"companyId"`
	History   []Message      `json:"history"`
	LeadData  VisitorProfile `json:"leadData"`
}

// EndSessionResult is the termination protocol's best-effort success
// shape: returned 200 even when individual steps degraded.
type EndSessionResult struct {
	Message string `json:"message"`
	Summary string `json:"summary"`
	Score   string `json:"score"`
}

// LeadNotification is the tuple handed to the notification sinks at
// session termination.
type LeadNotification struct {
	Profile VisitorProfile
	Summary string
	Score   string
}
