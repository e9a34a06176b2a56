package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// DraftView describes a draft in a transport-friendly format.
type DraftView struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	OwnerID        string `json:"ownerId"`
	ConversationID string `json:"conversationId,omitempty"`
	InputType      string `json:"inputType"`
	RawInput       string `json:"rawInput"`
	Status         string `json:"status"`
	GeneratedText  string `json:"generatedText,omitempty"`
	ErrorMessage   string `json:"errorMessage,omitempty"`
	FailureKind    string `json:"failureKind,omitempty"`
	Provider       string `json:"provider,omitempty"`
	Attempts       int    `json:"attempts"`
	Retryable      bool   `json:"retryable"`
	CreatedAt      string `json:"createdAt,omitempty"`
	UpdatedAt      string `json:"updatedAt,omitempty"`
}

// SectionView is one document section.
type SectionView struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// ScoresView mirrors the document quality scores.
type ScoresView struct {
	Clarity         int `json:"clarity"`
	DEIFriendliness int `json:"deiFriendliness"`
	ReadingLevel    int `json:"readingLevel"`
}

// DocumentView is a structured document extracted from generated text.
type DocumentView struct {
	DraftID      string        `json:"draftId,omitempty"`
	Title        string        `json:"title"`
	Summary      string        `json:"summary"`
	Sections     []SectionView `json:"sections"`
	CategoryTags []string      `json:"categoryTags"`
	SDGTags      []string      `json:"sdgTags"`
	Scores       ScoresView    `json:"scores"`
	Markdown     string        `json:"markdown,omitempty"`
}

// ClassificationView reports how an input was understood.
type ClassificationView struct {
	Mode       string  `json:"mode"`
	Confidence float64 `json:"confidence"`
	URL        string  `json:"url,omitempty"`
	BriefText  string  `json:"briefText,omitempty"`
	Reliable   bool    `json:"reliable"`
}

// AdviceView lists follow-up questions for a brief.
type AdviceView struct {
	Classification  ClassificationView `json:"classification"`
	Clarification   string             `json:"clarification,omitempty"`
	Questions       []string           `json:"questions"`
	Missing         []string           `json:"missing"`
	MissingOptional []string           `json:"missingOptional,omitempty"`
}

// UsageView carries token accounting when the provider reported it.
type UsageView struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// OutcomeView is the result of a submission or generation.
type OutcomeView struct {
	Classification ClassificationView `json:"classification"`
	Clarification  string             `json:"clarification,omitempty"`
	FollowUps      []string           `json:"followUps,omitempty"`
	Missing        []string           `json:"missing,omitempty"`
	NeedsInput     bool               `json:"needsInput"`
	Draft          *DraftView         `json:"draft,omitempty"`
	Document       *DocumentView      `json:"document,omitempty"`
	Provider       string             `json:"provider,omitempty"`
	Usage          *UsageView         `json:"usage,omitempty"`
}

// ProviderView mirrors provider registry diagnostics.
type ProviderView struct {
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	Model      string `json:"model"`
	Priority   int    `json:"priority"`
	Credential string `json:"credential"`
	Valid      bool   `json:"valid"`
	Reason     string `json:"reason,omitempty"`
}

// CooldownView summarizes the shared rate limit state.
type CooldownView struct {
	Active           bool   `json:"active"`
	RemainingSeconds int    `json:"remainingSeconds"`
	ResetAt          string `json:"resetAt,omitempty"`
	LastLimitedAt    string `json:"lastLimitedAt,omitempty"`
}

// StatusView aggregates runtime information for API consumers.
type StatusView struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid,omitempty"`
	DatabasePath string         `json:"databasePath"`
	LockFilePath string         `json:"lockFilePath,omitempty"`
	Providers    []ProviderView `json:"providers"`
	Cooldown     CooldownView   `json:"cooldown"`
	InFlight     []string       `json:"inFlight"`
	DraftStats   map[string]int `json:"draftStats"`
}

// EventView is one event log entry.
type EventView struct {
	ID        string            `json:"id"`
	Kind      string            `json:"kind"`
	Source    string            `json:"source"`
	DraftID   string            `json:"draftId,omitempty"`
	Message   string            `json:"message"`
	Details   map[string]string `json:"details,omitempty"`
	CreatedAt string            `json:"createdAt,omitempty"`
}

// DraftListResponse wraps a collection of drafts.
type DraftListResponse struct {
	Drafts []DraftView `json:"drafts"`
}

// DraftResponse wraps a single draft.
type DraftResponse struct {
	Draft DraftView `json:"draft"`
}

// EventListResponse wraps a collection of events.
type EventListResponse struct {
	Events []EventView `json:"events"`
}
