package core

// DocChange is a proposed edit or creation returned by a vault tool. It is never applied by the agent.
type DocChange struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

type ToolActivity struct {
	Sources   []string    `json:"sources"`
	Proposals []DocChange `json:"proposals"`
	Creations []DocChange `json:"creations"`
	Thoughts  string      `json:"thoughts"`
}

// StepProgress describes one completed tool step of a turn.
type StepProgress struct {
	Step      int
	ToolCalls []string
	Results   int
}

type TurnResult struct {
	Text      string         `json:"text"`
	Sources   []string       `json:"sources"`
	Proposals []DocChange    `json:"proposals"`
	Creations []DocChange    `json:"creations"`
	Thoughts  string         `json:"thoughts"`
	Context   ContextMetrics `json:"-"`
}
