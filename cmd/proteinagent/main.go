package main

import (
	"log/slog"
	"os"

	"proteinagent"

	"github.com/joeshaw/envdecode"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

type settings struct {
	model   proteinagent.ModelConfig
	agent   proteinagent.AgentConfig
	storage proteinagent.StorageConfig
	server  proteinagent.ServerConfig
}

var cfg settings

var rootCmd = &cobra.Command{
	Use:   "proteinagent",
	Short: "Estimate the protein in a meal from a photo",
	Long: `Identifies foods in a meal photo with a vision model, matches them against a
built-in nutrition table and suggests portions with a protein total.

The vision backend is chosen with VISION_BACKEND (bedrock, anthropic, ollama, mock).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		for _, target := range []any{&cfg.model, &cfg.agent, &cfg.storage, &cfg.server} {
			if err := envdecode.Decode(target); err != nil {
				return eris.Wrap(err, "failed to decode config")
			}
		}
		if err := cfg.agent.Validate(); err != nil {
			return err
		}
		if err := cfg.storage.Validate(); err != nil {
			return err
		}
		return cfg.server.Validate()
	},
}

func main() {
	rootCmd.AddCommand(serveCmd, analyzeCmd, foodsCmd)
	if err := rootCmd.Execute(); err != nil {
		slog.Error("RESULT: Command failed", "error", err)
		os.Exit(1)
	}
}
