package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

type listKnowledgeBasesResponse struct {
	KnowledgeBases []struct {
		ID        string `json:"id"`
		FileName  string `json:"file_name"`
		Vectors   int    `json:"vectors"`
		CreatedAt string `json:"created_at"`
	} `json:"knowledge_bases"`
	Cursor  string `json:"cursor"`
	HasMore bool   `json:"has_more"`
}

func KBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kb",
		Short: "Manage knowledge bases",
		Long:  "List and delete your persistent knowledge bases",
	}

	cmd.AddCommand(KBListCmd())
	cmd.AddCommand(KBDeleteCmd())

	return cmd
}

func KBListCmd() *cobra.Command {
	var (
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your knowledge bases",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("json")
			return runKBList(cmd, outputJSON, limit, cursor)
		},
	}

	cmd.Flags().Bool("json", false, "Output result as JSON")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of results")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")
	addClientFlags(cmd)

	return cmd
}

func runKBList(cmd *cobra.Command, outputJSON bool, limit int, cursor string) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	path := "/knowledge-bases"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}

	resp, err := api.Get(path)
	if err != nil {
		return fmt.Errorf("failed to list knowledge bases: %w", err)
	}

	var result listKnowledgeBasesResponse
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	if len(result.KnowledgeBases) == 0 {
		fmt.Println("No knowledge bases found")
		return nil
	}

	fmt.Println("Knowledge bases:")
	for _, kb := range result.KnowledgeBases {
		fmt.Printf("  %s: %s (%d vectors, created: %s)\n", kb.ID, kb.FileName, kb.Vectors, kb.CreatedAt)
	}
	if result.HasMore && result.Cursor != "" {
		fmt.Printf("\nMore results available. Use --cursor %s\n", result.Cursor)
	}

	return nil
}

func KBDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a knowledge base",
		Long:  "Deletes a knowledge base's vectors, index entry, and record",
		Args:  cobra.ExactArgs(1),
		RunE:  runKBDelete,
	}

	addClientFlags(cmd)

	return cmd
}

func runKBDelete(cmd *cobra.Command, args []string) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	if _, err := api.Delete("/knowledge-bases/" + args[0]); err != nil {
		return fmt.Errorf("failed to delete knowledge base: %w", err)
	}

	fmt.Printf("Knowledge base %s deleted\n", args[0])
	return nil
}
