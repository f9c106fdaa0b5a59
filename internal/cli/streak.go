package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/cadence/internal/period"
	"github.com/roach88/cadence/internal/streak"
)

// NewStreakCommand creates the streak command.
func NewStreakCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "streak [cadence]",
		Short: "Show review streaks and experience points",
		Long: `Show the current and longest run of consecutive reviewed periods.

A period that is still open does not break the current streak. Each
review earns experience points: 10 weekly, 40 monthly, 120 quarterly,
500 annual. Without a cadence all four are shown.

Examples:
  cadence streak
  cadence streak weekly --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: guard(rootOpts, func(cmd *cobra.Command, args []string) error {
			return runStreak(rootOpts, cmd, args)
		}),
	}
	return cmd
}

func runStreak(opts *RootOptions, cmd *cobra.Command, args []string) error {
	f := opts.formatter(cmd)

	cadences := period.Cadences()
	if len(args) == 1 {
		c, err := parseCadenceArg(args[0])
		if err != nil {
			return fail(f, "streak", err)
		}
		cadences = []period.Cadence{c}
	}

	return withApp(cmd, opts, func(a *app) error {
		view := streakView{Streaks: make([]streakEntry, 0, len(cadences))}
		for _, c := range cadences {
			sum, err := a.service.Streak(a.ctx, c)
			if err != nil {
				return fail(f, "streak", err)
			}
			view.Streaks = append(view.Streaks, newStreakEntry(sum))
			view.XP += sum.XP
		}
		return f.Success(view)
	})
}

type streakEntry struct {
	Cadence string `json:"cadence"`
	streak.Summary
	Last string `json:"last,omitempty"`
}

func newStreakEntry(sum streak.Summary) streakEntry {
	e := streakEntry{Cadence: sum.Cadence.String(), Summary: sum}
	if sum.Last != nil {
		e.Last = sum.Last.String()
	}
	return e
}

type streakView struct {
	Streaks []streakEntry `json:"streaks"`
	XP      int           `json:"xp"`
}

func (v streakView) renderText(w io.Writer) {
	for _, s := range v.Streaks {
		last := "never"
		if s.Last != "" {
			last = s.Last
		}
		fmt.Fprintf(w, "%-9s current %d, longest %d, total %d, %d XP (last %s)\n",
			s.Cadence, s.Current, s.Longest, s.Total, s.Summary.XP, last)
	}
	fmt.Fprintf(w, "total XP: %d\n", v.XP)
}
