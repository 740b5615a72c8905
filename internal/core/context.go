package core

// RetrievalPolicy controls vault retrieval during context assembly.
type RetrievalPolicy struct {
	EnableVault   bool
	K             int
	SnippetLength int
}

// ContextPolicy is fixed for the duration of one BuildContext call.
type ContextPolicy struct {
	// MaxInputTokens caps the estimated size of augment plus history. Zero disables the cap.
	MaxInputTokens      int
	SummarizeOverTokens int
	HistoryMaxMessages  int
	Retrieval           RetrievalPolicy
	IncludeMCPOverview  bool
}

type SliceKind string

const (
	SliceMessages    SliceKind = "messages"
	SliceSummary     SliceKind = "summary"
	SliceDoc         SliceKind = "doc"
	SliceMCPOverview SliceKind = "mcp-overview"
)

type DocSlice struct {
	Path    string  `json:"path"`
	Title   string  `json:"title,omitempty"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score,omitempty"`
}

type MCPClientOverview struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Tools     []string `json:"tools"`
	NeedsAuth bool     `json:"needs_auth"`
}

// ContextSlice is one unit of assembled context. Exactly one payload field is set, matching Kind.
type ContextSlice struct {
	Kind     SliceKind
	Messages []Message
	Summary  string
	Doc      *DocSlice
	Clients  []MCPClientOverview
}

// ContextRequest is the input of a context build.
type ContextRequest struct {
	Messages []Message
	// Scope restricts retrieved documents to a vault-relative folder. Empty means unrestricted.
	Scope    string
	Clients  []MCPClientOverview
}

type ContextMetrics struct {
	InputTokensEstimated int
	PrunedTokens         int
	Summarized           bool
	RetrievalCount       int
	Failures             []string
}

type ContextBuildResult struct {
	SystemAugment   string
	TrimmedMessages []Message
	SummaryText     string
	Slices          []ContextSlice
	Metrics         ContextMetrics
}
