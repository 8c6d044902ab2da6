package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scaleworks/docquery/internal/cli"
	"github.com/scaleworks/docquery/internal/cli/client"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "docquery",
		Short: "Docquery CLI - Question answering over your documents",
		Long: `Docquery CLI ingests documents and asks questions against them.

Environment variables:
  DOCQUERY_API_KEY   API key for authentication (required)
  DOCQUERY_API_URL   API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.InitCmd())
	rootCmd.AddCommand(client.IngestCmd())
	rootCmd.AddCommand(client.AskCmd())
	rootCmd.AddCommand(client.SessionCmd())
	rootCmd.AddCommand(client.KBCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
