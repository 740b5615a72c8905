package telegram

import "github.com/sandevgo/quill/internal/service/agent"

// agentCallbacks keeps the chat action alive while the turn streams. The
// answer is sent once complete.
func agentCallbacks(typing func()) agent.Callbacks {
	return agent.Callbacks{
		OnStatus: func(string) { typing() },
		OnDelta:  func(string) { typing() },
	}
}
