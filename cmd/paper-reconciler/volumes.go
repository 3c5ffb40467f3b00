// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

var volumesCmd = &cobra.Command{
	Use:   "volumes [volume...]",
	Short: "Reconcile every paper of one or more volumes",
	Long: `Volumes lists the papers of each volume from the catalogue and
reconciles them, printing one line per paper followed by a batch summary.
Prefaces, indexes and invited talks are skipped.

Use --all to process every volume in the catalogue index. With --project
each reconciled paper is written to the graph store.`,
	RunE: runVolumes,
}

func init() {
	volumesCmd.Flags().Bool("all", false, "process every volume listed in the catalogue index")
	volumesCmd.Flags().Bool("project", false, "write reconciled papers to the graph store")

	rootCmd.AddCommand(volumesCmd)
}

func runVolumes(cmd *cobra.Command, args []string) error {
	all, _ := cmd.Flags().GetBool("all")
	project, _ := cmd.Flags().GetBool("project")
	if len(args) == 0 && !all {
		return fmt.Errorf("provide one or more volume numbers, or --all")
	}

	var vols []int
	for _, arg := range args {
		v, err := strconv.Atoi(arg)
		if err != nil || v <= 0 {
			return fmt.Errorf("invalid volume %q", arg)
		}
		vols = append(vols, v)
	}

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

	if all {
		vols, err = a.catalogue.Volumes(ctx)
		if err != nil {
			return err
		}
		log.Info("processing catalogue", "volumes", len(vols))
	}

	batch, _, err := a.runner(project).ProcessVolumes(ctx, vols, os.Stdout)
	if err != nil {
		return err
	}
	if batch.HasFailures() {
		return fmt.Errorf("%d paper(s) failed, %d volume(s) unreadable, %d graph write(s) failed",
			batch.Failed, batch.VolumesFailed, batch.ProjectFailed)
	}
	return nil
}
