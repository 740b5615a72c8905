package main

import (
	"context"
	"fmt"

	"github.com/sandevgo/quill/internal/config"
	"github.com/sandevgo/quill/internal/core"
	"github.com/sandevgo/quill/internal/providers/llm"
	"github.com/sandevgo/quill/internal/service/installer"
	"github.com/sandevgo/quill/pkg/log"
	"github.com/spf13/cobra"
)

var initOpts struct {
	provider string
	model    string
	apiKey   string
	vault    string
	force    bool
	wizard   bool
}

// apiKeyVars maps a provider to the variable its key is stored in.
var apiKeyVars = map[string]string{
	config.ProviderOpenAI:     "OPENAI_API_KEY",
	config.ProviderAnthropic:  "ANTHROPIC_API_KEY",
	config.ProviderOpenRouter: "OPENROUTER_API_KEY",
	config.ProviderOllama:     "OLLAMA_API_KEY",
	config.ProviderCustom:     "CUSTOM_OPENAI_API_KEY",
}

var initCmd = &cobra.Command{
	Use:          "init",
	Short:        "Create the runtime directory with a .env template",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flushLog := setupLogger(cmd.Context())
		defer flushLog()

		state := installer.NewInstallState()
		if initOpts.wizard {
			var err error
			if state, err = installer.RunWizard(listModels); err != nil {
				return err
			}
		}
		state.Set("QUILL_PROVIDER", initOpts.provider)
		state.Set("QUILL_MODEL", initOpts.model)
		state.Set("QUILL_VAULT_PATH", initOpts.vault)
		if initOpts.apiKey != "" {
			key, ok := apiKeyVars[initOpts.provider]
			if !ok {
				return fmt.Errorf("--api-key needs --provider (one of openai, anthropic, openrouter, ollama, custom)")
			}
			state.Set(key, initOpts.apiKey)
		}

		runtimePath := config.GetRuntimePath()
		if err := installer.Install(ctx, runtimePath, state, initOpts.force); err != nil {
			return err
		}

		log.FromCtx(ctx).Info().Msgf("initialized runtime directory at: %s", runtimePath)
		fmt.Fprintln(cmd.OutOrStdout(), "Done. Put documents in the vault, then run 'quill index' and 'quill start'.")
		return nil
	},
}

// listModels queries the provider picked in the wizard with the answers
// given so far.
func listModels(ctx context.Context, state *installer.InstallState) ([]core.Model, error) {
	v := state.EnvVars
	cfg := &config.ProvidersConfig{
		OpenAIAPIKey:        v["OPENAI_API_KEY"],
		AnthropicAPIKey:     v["ANTHROPIC_API_KEY"],
		OpenRouterAPIKey:    v["OPENROUTER_API_KEY"],
		OllamaBaseURL:       v["OLLAMA_BASE_URL"],
		OllamaAPIKey:        v["OLLAMA_API_KEY"],
		CustomOpenAIBaseURL: v["CUSTOM_OPENAI_BASE_URL"],
		CustomOpenAIAPIKey:  v["CUSTOM_OPENAI_API_KEY"],
	}
	if cfg.OllamaBaseURL == "" {
		cfg.OllamaBaseURL = "http://localhost:11434"
	}
	return llm.NewResolver(cfg).Models(ctx, v["QUILL_PROVIDER"])
}

func init() {
	initCmd.Flags().StringVar(&initOpts.provider, "provider", "", "default provider")
	initCmd.Flags().StringVar(&initOpts.model, "model", "", "default model")
	initCmd.Flags().StringVar(&initOpts.apiKey, "api-key", "", "API key for --provider")
	initCmd.Flags().StringVar(&initOpts.vault, "vault", "", "vault directory")
	initCmd.Flags().BoolVarP(&initOpts.wizard, "wizard", "w", false, "ask for the values interactively")
	initCmd.Flags().BoolVar(&initOpts.force, "force", false, "overwrite an existing .env")
	rootCmd.AddCommand(initCmd)
}
