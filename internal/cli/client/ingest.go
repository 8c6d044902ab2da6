package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

type documentPayload struct {
	FileName string `json:"file_name"`
	Text     string `json:"text"`
}

type ingestResponse struct {
	KnowledgeBases []struct {
		ID        string `json:"id"`
		FileName  string `json:"file_name"`
		Vectors   int    `json:"vectors"`
		CreatedAt string `json:"created_at"`
	} `json:"knowledge_bases"`
	Failures []struct {
		FileName string `json:"file_name"`
		Reason   string `json:"reason"`
	} `json:"failures"`
	SkippedChunks int `json:"skipped_chunks"`
}

func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Ingest text files into your knowledge base",
		Long:  "Reads plain-text files and indexes them as persistent knowledge bases.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runIngest,
	}

	cmd.Flags().Bool("json", false, "Output result as JSON")
	addClientFlags(cmd)

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	outputJSON, _ := cmd.Flags().GetBool("json")

	docs, err := readDocuments(args)
	if err != nil {
		return err
	}

	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post("/documents", map[string]interface{}{"documents": docs})
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	var result ingestResponse
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	for _, kb := range result.KnowledgeBases {
		fmt.Printf("Indexed %s: %d vectors (id: %s)\n", kb.FileName, kb.Vectors, kb.ID)
	}
	for _, f := range result.Failures {
		fmt.Printf("Skipped %s: %s\n", f.FileName, f.Reason)
	}
	if result.SkippedChunks > 0 {
		fmt.Printf("Warning: %d chunks could not be embedded\n", result.SkippedChunks)
	}

	return nil
}

func readDocuments(paths []string) ([]documentPayload, error) {
	docs := make([]documentPayload, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		docs = append(docs, documentPayload{
			FileName: filepath.Base(path),
			Text:     string(data),
		})
	}
	return docs, nil
}

func addClientFlags(cmd *cobra.Command) {
	cmd.Flags().String("api-key", "", "API key (overrides config)")
	cmd.Flags().String("api-url", "", "API base URL (overrides config)")
}
