package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// --- history ---

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List saved analyses",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), fmt.Sprintf("/v1/analyses?limit=%d", limit))
		if err != nil {
			return err
		}

		var analyses []struct {
			ID         string `json:"id"`
			CreatedAt  string `json:"created_at"`
			Source     string `json:"source"`
			Status     string `json:"status"`
			TotalCalls int    `json:"total_calls"`
		}
		if err := decodeJSON(resp, &analyses); err != nil {
			return err
		}

		if len(analyses) == 0 {
			fmt.Println("No saved analyses.")
			return nil
		}

		for _, a := range analyses {
			status := a.Status
			if status == "aborted" {
				status = colorize(colorRed, status)
			}
			fmt.Printf("%s  %s  %-9s  %4d calls  %s\n",
				colorize(colorCyan, a.ID[:8]),
				a.CreatedAt,
				status,
				a.TotalCalls,
				a.Source,
			)
		}
		return nil
	},
}

// --- show ---

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a saved analysis as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/v1/analyses/"+args[0])
		if err != nil {
			return err
		}

		var analysis any
		if err := decodeJSON(resp, &analysis); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(analysis)
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a saved analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/v1/analyses/"+args[0])
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Deleted analysis %s", args[0])
		return nil
	},
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of analyses to list")
	historyCmd.AddCommand(historyDeleteCmd)
}
