package main

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const defaultServerURL = "http://localhost:8080"

type commandContext struct {
	configFlag *string
	serverFlag *string
	jsonFlag   *bool
}

func (c *commandContext) configPath() string {
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) client() *apiClient {
	base := strings.TrimSpace(*c.serverFlag)
	if base == "" {
		base = os.Getenv("STUDIO_SERVER")
	}
	if base == "" {
		base = defaultServerURL
	}
	return newAPIClient(base)
}

func newRootCommand() *cobra.Command {
	var configFlag, serverFlag string
	var jsonFlag bool
	ctx := &commandContext{configFlag: &configFlag, serverFlag: &serverFlag, jsonFlag: &jsonFlag}

	rootCmd := &cobra.Command{
		Use:           "studio",
		Short:         "AI recipe studio",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// a missing .env is fine
			_ = godotenv.Load()
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&serverFlag, "server", "", "Studio server URL (default $STUDIO_SERVER or "+defaultServerURL+")")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "Print raw JSON")

	rootCmd.AddCommand(newServeCommand(ctx))
	for _, cmd := range newRecipeCommands(ctx) {
		rootCmd.AddCommand(cmd)
	}

	return rootCmd
}
