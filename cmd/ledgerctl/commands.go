package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/Harshitk-cp/epistemic/internal/buildconfig"
	"github.com/Harshitk-cp/epistemic/internal/service"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newMigrateCmd(d deps) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending SQL migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			applied, err := d.migrate(cmd.Context(), dir, newLogger())
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			if rootFlags.jsonOut {
				return printJSON(cmd.OutOrStdout(), map[string]int{"applied": applied})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", applied)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "migrations directory (default $MIGRATIONS_PATH)")
	return cmd
}

func newRecomputeCmd(d deps) *cobra.Command {
	return &cobra.Command{
		Use:   "recompute <factId>",
		Short: "Recompute effective confidence for every argument depending on a fact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			factID, err := parseID(args[0], "fact")
			if err != nil {
				return err
			}
			b, err := d.open(cmd.Context(), newLogger())
			if err != nil {
				return err
			}
			defer b.Close()

			ids, err := b.RecomputeForFact(cmd.Context(), factID)
			if err != nil {
				return fmt.Errorf("recompute %s: %w", factID, err)
			}
			out := cmd.OutOrStdout()
			if rootFlags.jsonOut {
				if ids == nil {
					ids = []uuid.UUID{}
				}
				return printJSON(out, map[string]any{"fact_claim_id": factID, "recomputed": ids})
			}
			fmt.Fprintf(out, "recomputed %d argument(s)\n", len(ids))
			for _, id := range ids {
				fmt.Fprintf(out, "  %s\n", id)
			}
			return nil
		},
	}
}

func newSimilarCmd(d deps) *cobra.Command {
	var opts service.SimilarityOptions
	cmd := &cobra.Command{
		Use:   "similar <argumentId>",
		Short: "List the nearest arguments to a stored argument",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "argument")
			if err != nil {
				return err
			}
			b, err := d.open(cmd.Context(), newLogger())
			if err != nil {
				return err
			}
			defer b.Close()

			matches, err := b.NeighborsOfArgument(cmd.Context(), id, opts)
			if err != nil {
				return fmt.Errorf("similar %s: %w", id, err)
			}
			out := cmd.OutOrStdout()
			if rootFlags.jsonOut {
				return printJSON(out, matches)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSIMILARITY\tCREATED")
			for _, m := range matches {
				fmt.Fprintf(tw, "%s\t%.4f\t%s\n", m.ID, m.Similarity, m.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			return tw.Flush()
		},
	}
	f := cmd.Flags()
	f.IntVar(&opts.Limit, "limit", 10, "maximum number of neighbours")
	f.Float64Var(&opts.MinSimilarity, "min", 0, "minimum cosine similarity")
	return cmd
}

func newEffectivenessCmd(d deps) *cobra.Command {
	return &cobra.Command{
		Use:   "effectiveness <noteId>",
		Short: "Print a community note's effectiveness score",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "note")
			if err != nil {
				return err
			}
			b, err := d.open(cmd.Context(), newLogger())
			if err != nil {
				return err
			}
			defer b.Close()

			score, err := b.Effectiveness(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("effectiveness %s: %w", id, err)
			}
			if rootFlags.jsonOut {
				return printJSON(cmd.OutOrStdout(), map[string]any{"note_id": id, "effectiveness": score})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%.4f\n", score)
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			info := buildconfig.Current()
			fmt.Fprintf(cmd.OutOrStdout(), "ledgerctl %s (%s)\n", info.Version, info.Commit)
		},
	}
}
