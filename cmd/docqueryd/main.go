package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scaleworks/docquery/internal/cli"
	"github.com/scaleworks/docquery/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "docqueryd",
		Short: "Docquery daemon and CLI",
		Long:  "Docquery daemon for running the API server and managing owners and API keys",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.OwnerCmd())
	rootCmd.AddCommand(admin.APIKeyCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
