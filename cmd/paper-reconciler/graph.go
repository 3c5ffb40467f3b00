// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-reconciler/internal/graph"
	"github.com/pdiddy/paper-reconciler/internal/server"
	"github.com/pdiddy/paper-reconciler/pkg/types"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Administer the paper graph (schema, delete, plan)",
	Long: `Graph manages the Neo4j property graph that reconciled papers are
projected into. Use subcommands to create constraints, clear the graph, or
preview the writes for a paper.`,
}

// --- schema subcommand ---

var graphSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Create the uniqueness constraints",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, cmd, appOptions{graph: true})
		if err != nil {
			return err
		}
		defer a.Close(ctx)
		store, err := a.requireGraph()
		if err != nil {
			return err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		fmt.Println("Graph constraints created.")
		return nil
	},
}

// --- delete subcommand ---

var graphDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove every node and relationship",
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			return fmt.Errorf("refusing to delete the graph without --yes")
		}
		ctx := cmd.Context()
		a, err := newApp(ctx, cmd, appOptions{graph: true})
		if err != nil {
			return err
		}
		defer a.Close(ctx)
		store, err := a.requireGraph()
		if err != nil {
			return err
		}
		if err := store.DeleteAll(ctx); err != nil {
			return err
		}
		fmt.Println("Knowledge graph deleted successfully!")
		return nil
	},
}

// --- plan subcommand ---

var graphPlanCmd = &cobra.Command{
	Use:   "plan [paper.json]",
	Short: "Print the graph writes for a canonical paper without applying them",
	Long: `Plan reads a canonical paper as JSON (from a file, or stdin when no
file is given; the output of "paper --json" is accepted) and prints the
upsert operations the projector would run. With --cypher the statements and
parameters are printed instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGraphPlan,
}

func runGraphPlan(cmd *cobra.Command, args []string) error {
	cypher, _ := cmd.Flags().GetBool("cypher")

	var r io.Reader = os.Stdin
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	paper, err := decodePaper(r)
	if err != nil {
		return err
	}
	return printPlan(os.Stdout, graph.Plan(paper), cypher)
}

// decodePaper accepts either a CanonicalPaper or the flattened paper view.
// Flattened affiliations and emails become one entry per author.
func decodePaper(r io.Reader) (types.CanonicalPaper, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return types.CanonicalPaper{}, fmt.Errorf("reading paper: %w", err)
	}

	var flat server.PaperMetadata
	if err := json.Unmarshal(data, &flat); err != nil {
		return types.CanonicalPaper{}, fmt.Errorf("decoding paper: %w", err)
	}
	if flat.PaperTitle != "" || flat.PaperPath != "" {
		p := types.CanonicalPaper{
			Title:      flat.PaperTitle,
			URL:        flat.PaperPath,
			Proceeding: flat.Proceeding,
			Event:      flat.Event,
		}
		for i, name := range flat.Name {
			au := types.Author{Name: name}
			if i < len(flat.Affiliation) && flat.Affiliation[i] != "" {
				au.Affiliations = []string{flat.Affiliation[i]}
			}
			if i < len(flat.Email) && flat.Email[i] != "" {
				au.Emails = []string{flat.Email[i]}
			}
			p.Authors = append(p.Authors, au)
		}
		return p, nil
	}

	var p types.CanonicalPaper
	if err := json.Unmarshal(data, &p); err != nil {
		return types.CanonicalPaper{}, fmt.Errorf("decoding paper: %w", err)
	}
	return p, nil
}

func printPlan(w io.Writer, ops []graph.Op, cypher bool) error {
	if !cypher {
		for _, op := range ops {
			fmt.Fprintln(w, op)
		}
		fmt.Fprintf(w, "\n%d operations\n", len(ops))
		return nil
	}
	enc := json.NewEncoder(w)
	for _, op := range ops {
		stmt, params := graph.Cypher(op)
		fmt.Fprintln(w, stmt)
		if err := enc.Encode(params); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	graphDeleteCmd.Flags().Bool("yes", false, "confirm deletion")
	graphPlanCmd.Flags().Bool("cypher", false, "print Cypher statements and parameters")

	graphCmd.AddCommand(graphSchemaCmd)
	graphCmd.AddCommand(graphDeleteCmd)
	graphCmd.AddCommand(graphPlanCmd)

	rootCmd.AddCommand(graphCmd)
}
