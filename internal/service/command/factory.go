package command

import (
	"github.com/sandevgo/quill/internal/core"
	"github.com/sandevgo/quill/internal/storage/session"
)

func NewCommands(
	selection selection,
	state core.GlobalState,
	tools core.ToolRegistry,
	sessions *session.FileStore,
) []core.Command {
	return []core.Command{
		NewModelCommand(selection, state),
		NewModeCommand(state),
		NewMCPCommand(tools, state),
		NewToolsCommand(tools, state),
		NewScopeCommand(state),
		NewScratchpadCommand(sessions),
		NewMemoriesCommand(sessions),
	}
}
