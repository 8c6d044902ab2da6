package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

type attachDocumentsResponse struct {
	SessionID string   `json:"session_id"`
	VectorIDs []string `json:"vector_ids"`
	Failures  []struct {
		FileName string `json:"file_name"`
		Reason   string `json:"reason"`
	} `json:"failures"`
	SkippedChunks int `json:"skipped_chunks"`
}

func SessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "One-shot question answering over ad-hoc documents",
		Long:  "Attaches documents to a throwaway session and asks a question; the documents are discarded once the answer completes.",
	}

	cmd.AddCommand(SessionAskCmd())

	return cmd
}

func SessionAskCmd() *cobra.Command {
	var files []string

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question over ad-hoc documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionAsk(cmd, args[0], files)
		},
	}

	cmd.Flags().StringSliceVarP(&files, "file", "f", nil, "Text file to attach (repeatable, required)")
	cmd.MarkFlagRequired("file")
	addClientFlags(cmd)

	return cmd
}

func runSessionAsk(cmd *cobra.Command, question string, files []string) error {
	docs, err := readDocuments(files)
	if err != nil {
		return err
	}

	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post("/sessions/documents", map[string]interface{}{"documents": docs})
	if err != nil {
		return fmt.Errorf("failed to attach documents: %w", err)
	}

	var attach attachDocumentsResponse
	if err := json.Unmarshal(resp.Data, &attach); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	for _, f := range attach.Failures {
		fmt.Printf("Skipped %s: %s\n", f.FileName, f.Reason)
	}

	return streamAnswer(api, "/sessions/query", map[string]interface{}{
		"session_id": attach.SessionID,
		"question":   question,
		"vector_ids": attach.VectorIDs,
	})
}
