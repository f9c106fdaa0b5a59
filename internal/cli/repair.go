package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/cadence/internal/period"
	"github.com/roach88/cadence/internal/repair"
	"github.com/roach88/cadence/internal/review"
)

// NewRepairCommand creates the repair command group.
func NewRepairCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Administrative data repair",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "import <file>",
		Short: "Import a legacy review export",
		Long: `Import reviews from a legacy YAML or JSON export.

Legacy question names are mapped to the current ones and unknown
questions are dropped. Several entries for one owner and period are
reduced to the most recently completed one. A stored review that is
newer than the export is kept. Running the same import twice changes
nothing the second time.

The owner of each review is read from the export, so this command is
for administrators and ignores CADENCE_OWNER.

Exit codes:
  0 - Every entry applied or already up to date
  1 - One or more entries rejected (the rest are applied)
  2 - Command error (unreadable file, store unavailable)

Examples:
  cadence repair import export.yaml
  cadence repair import export.json --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: guard(rootOpts, func(cmd *cobra.Command, args []string) error {
			return runRepairImport(rootOpts, cmd, args[0])
		}),
	})

	return cmd
}

func runRepairImport(opts *RootOptions, cmd *cobra.Command, path string) error {
	f := opts.formatter(cmd)

	file, err := os.Open(path)
	if err != nil {
		return fail(f, "repair import", err)
	}
	defer file.Close()

	doc, err := repair.LoadDocument(file)
	if err != nil {
		return fail(f, "repair import", err)
	}
	f.VerboseLog("loaded %d entries from %s", len(doc.Reviews), path)

	return withApp(cmd, opts, func(a *app) error {
		report, err := repair.NewImporter(a.store, a.validator, opts.logger).Import(a.ctx, doc)
		if err != nil {
			return fail(f, "repair import", review.WrapError(review.CodeStoreUnavailable, "import", err))
		}

		counts, err := a.store.CountReviews(a.ctx)
		if err != nil {
			return fail(f, "repair import", review.WrapError(review.CodeStoreUnavailable, "count reviews", err))
		}

		view := repairView{
			Applied:   report.Count(repair.Applied),
			Unchanged: report.Count(repair.Unchanged),
			Rejected:  report.Count(repair.Rejected),
			Outcomes:  report.Outcomes,
			Stored:    make(map[string]int, len(counts)),
		}
		if view.Outcomes == nil {
			view.Outcomes = []repair.Outcome{}
		}
		for _, c := range period.Cadences() {
			view.Stored[c.String()] = counts[c]
		}

		if err := f.Success(view); err != nil {
			return err
		}
		if view.Rejected > 0 {
			exitErr := NewExitError(ExitFailure, fmt.Sprintf("%d entries rejected", view.Rejected))
			exitErr.Reported = true
			return exitErr
		}
		return nil
	})
}

type repairView struct {
	Applied   int              `json:"applied"`
	Unchanged int              `json:"unchanged"`
	Rejected  int              `json:"rejected"`
	Outcomes  []repair.Outcome `json:"outcomes"`

	// Stored is the number of reviews per cadence after the import.
	Stored map[string]int `json:"stored"`
}

func (v repairView) renderText(w io.Writer) {
	for _, o := range v.Outcomes {
		line := fmt.Sprintf("%-9s %-9s %-8s %s", o.Status, o.Cadence, o.Period, o.Owner)
		if o.Reason != "" {
			line += ": " + o.Reason
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintf(w, "applied %d, unchanged %d, rejected %d\n", v.Applied, v.Unchanged, v.Rejected)
	for _, c := range period.Cadences() {
		fmt.Fprintf(w, "  %-9s %d stored\n", c, v.Stored[c.String()])
	}
}
