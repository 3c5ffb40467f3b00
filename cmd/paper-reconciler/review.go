// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-reconciler/internal/assemble"
	"github.com/pdiddy/paper-reconciler/internal/review"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Inspect the review store (list, export)",
	Long: `Review reads the SQLite store that every reconciled paper is recorded
in. Papers with an unresolved title or an ambiguous author merge are marked
needs_review; papers that could not be assembled are marked failed.`,
}

// --- list subcommand ---

var reviewListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded papers",
	RunE:  runReviewList,
}

func runReviewList(cmd *cobra.Command, args []string) error {
	status, err := statusFlag(cmd)
	if err != nil {
		return err
	}
	jsonOut, _ := cmd.Flags().GetBool("json")

	ctx := cmd.Context()
	store, err := openReview(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(ctx, status)
	if err != nil {
		return err
	}
	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	printEntries(os.Stdout, entries)

	counts, err := store.Counts(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("\n%d resolved, %d needs review, %d failed\n",
		counts[assemble.StatusResolved], counts[assemble.StatusNeedsReview], counts[assemble.StatusFailed])
	return nil
}

func printEntries(w io.Writer, entries []review.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No papers recorded.")
		return
	}
	fmt.Fprintf(w, "%-24s  %-12s  %-50s  %s\n", "Paper", "Status", "Title", "Issues")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, e := range entries {
		title := e.Title
		if len(title) > 50 {
			title = title[:47] + "..."
		}
		fmt.Fprintf(w, "%-24s  %-12s  %-50s  %d\n", e.ID, e.Status, title, len(e.Issues))
	}
}

// --- export subcommand ---

var reviewExportCmd = &cobra.Command{
	Use:   "export <path>",
	Short: "Export recorded papers to YAML or JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runReviewExport,
}

func runReviewExport(cmd *cobra.Command, args []string) error {
	status, err := statusFlag(cmd)
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")

	ctx := cmd.Context()
	store, err := openReview(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	switch format {
	case "yaml", "":
		err = store.ExportYAML(ctx, args[0], status)
	case "json":
		err = store.ExportJSON(ctx, args[0], status)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
	if err != nil {
		return err
	}
	fmt.Println("Exported to", args[0])
	return nil
}

// --- shared helpers ---

func openReview(cmd *cobra.Command) (*review.Store, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}
	if cfg.Review.DBPath == "" {
		return nil, fmt.Errorf("no review database configured: set review.db_path or --review-db")
	}
	return review.Open(cfg.Review)
}

func statusFlag(cmd *cobra.Command) (assemble.Status, error) {
	s, _ := cmd.Flags().GetString("status")
	switch status := assemble.Status(s); status {
	case "", assemble.StatusResolved, assemble.StatusNeedsReview, assemble.StatusFailed:
		return status, nil
	default:
		return "", fmt.Errorf("unknown status %q: use resolved, needs_review or failed", s)
	}
}

func init() {
	reviewCmd.PersistentFlags().String("status", "", "filter by status: resolved, needs_review or failed")

	reviewListCmd.Flags().Bool("json", false, "output entries as JSON")
	reviewExportCmd.Flags().String("format", "yaml", "export format: yaml or json")

	reviewCmd.AddCommand(reviewListCmd)
	reviewCmd.AddCommand(reviewExportCmd)

	rootCmd.AddCommand(reviewCmd)
}
