package client

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func AskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question against your knowledge base",
		Long:  "Streams an answer grounded in your ingested documents.",
		Args:  cobra.ExactArgs(1),
		RunE:  runAsk,
	}

	addClientFlags(cmd)

	return cmd
}

func runAsk(cmd *cobra.Command, args []string) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	return streamAnswer(api, "/query", map[string]interface{}{"question": args[0]})
}

// streamAnswer prints SUCCESS fragments as they arrive and reports WARNING
// and ERROR frames on stderr. Returns an error only when the stream ended
// with a terminal ERROR.
func streamAnswer(api *APIClient, path string, body interface{}) error {
	var streamErr error

	err := api.PostStream(path, body, func(ev StreamEvent) {
		switch ev.Type {
		case "SUCCESS":
			fmt.Print(ev.Message)
		case "WARNING":
			fmt.Fprintf(os.Stderr, "warning: %s\n", ev.Message)
		case "ERROR":
			streamErr = fmt.Errorf("%s", ev.Message)
		case "END":
			fmt.Println()
		}
	})
	if err != nil {
		return err
	}

	return streamErr
}
