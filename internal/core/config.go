package core

import (
	"context"
	"time"
)

type AppConfig interface {
	GetRuntimePath() string
	GetDatabasePath() string
	GetMCPConfigPath() string
	GetVaultPath() string
	GetSessionsPath() string
	IsTelegramSelected() bool
}

type PromptConfig interface {
	GetSystemPath() string
}

type ProviderConfig interface {
	GetAPIKey(providerID string) string
	GetBaseURL(providerID string) string
}

type TelegramConfig interface {
	GetTelegramToken() string
	GetTelegramOwnerID() int64
}

type VaultConfig interface {
	GetVaultPath() string
	GetReindexInterval() time.Duration
}

type GlobalState interface {
	ChangeModel(ctx context.Context, model string) error
	SetMode(sessionID string, mode Mode) error
	Mode(sessionID string) Mode
	SelectClients(sessionID string, ids []string)
	SelectedClients(sessionID string) []string
	SetScope(sessionID, scope string)
	Scope(sessionID string) string
}
