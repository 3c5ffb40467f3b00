// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-reconciler/internal/pipeline"
	"github.com/pdiddy/paper-reconciler/internal/server"
)

var paperCmd = &cobra.Command{
	Use:   "paper <volume> <paper-key>",
	Short: "Reconcile the metadata of one paper",
	Long: `Paper fetches the structural and LLM extractions of one paper, queries
DBLP for an authoritative record, and prints the reconciled title and
authors. A bare number as paper key means "paper<n>".

With --project the result is also written to the graph store.`,
	Args: cobra.ExactArgs(2),
	RunE: runPaper,
}

func init() {
	paperCmd.Flags().Bool("project", false, "write the reconciled paper to the graph store")
	paperCmd.Flags().Bool("json", false, "print the result as JSON")

	rootCmd.AddCommand(paperCmd)
}

func runPaper(cmd *cobra.Command, args []string) error {
	vol, err := strconv.Atoi(args[0])
	if err != nil || vol <= 0 {
		return fmt.Errorf("invalid volume %q", args[0])
	}
	project, _ := cmd.Flags().GetBool("project")
	jsonOut, _ := cmd.Flags().GetBool("json")

	ctx := cmd.Context()
	a, err := newApp(ctx, cmd, appOptions{graph: project, review: true})
	if err != nil {
		return err
	}
	defer a.Close(ctx)
	if project {
		if _, err := a.requireGraph(); err != nil {
			return err
		}
	}

	venue, err := a.catalogue.Venue(ctx, vol)
	if err != nil {
		log.Warn("venue unavailable", "volume", vol, "error", err)
	}
	res := a.runner(project).ProcessPaper(ctx, a.catalogue.Ref(vol, server.PaperKey(args[1])), venue)

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(server.Flatten(res)); err != nil {
			return err
		}
	} else {
		printPaper(os.Stdout, res)
	}

	if res.Err != nil {
		return res.Err
	}
	if res.ProjectErr != nil {
		return fmt.Errorf("graph projection: %w", res.ProjectErr)
	}
	return nil
}

func printPaper(w io.Writer, res pipeline.PaperResult) {
	fmt.Fprintf(w, "%s  [%s]\n", res.Ref.ID(), res.Status())
	fmt.Fprintf(w, "  title:      %s\n", res.Paper.Title)
	fmt.Fprintf(w, "  proceeding: %s\n", res.Paper.Proceeding)
	fmt.Fprintf(w, "  event:      %s\n", res.Paper.Event)
	for i, au := range res.Paper.Authors {
		fmt.Fprintf(w, "  author %d:   %s\n", i+1, au.Name)
		if len(au.Affiliations) > 0 {
			fmt.Fprintf(w, "              %s\n", au.AffiliationText())
		}
		if len(au.Emails) > 0 {
			fmt.Fprintf(w, "              %s\n", strings.Join(au.Emails, ", "))
		}
	}
	for _, is := range res.Issues {
		fmt.Fprintf(w, "  issue:      %s %s: %s\n", is.Kind, is.Field, is.Detail)
	}
}
