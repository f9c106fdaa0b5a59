package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/cadence/internal/period"
)

// PeriodOptions holds flags for the period command.
type PeriodOptions struct {
	*RootOptions
	Date string
}

// NewPeriodCommand creates the period command.
func NewPeriodCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PeriodOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "period [cadence]",
		Short: "Show the period a date belongs to",
		Long: `Resolve a calendar date to its review period.

Weekly periods follow ISO-8601 weeks, so the last days of December can
belong to week 1 of the next year. Without a cadence all four periods
are shown. The date defaults to today in CADENCE_TZ.

Examples:
  cadence period weekly
  cadence period weekly --date 2024-12-30
  cadence period --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: guard(rootOpts, func(cmd *cobra.Command, args []string) error {
			return runPeriod(opts, cmd, args)
		}),
	}

	cmd.Flags().StringVar(&opts.Date, "date", "", "date to resolve (YYYY-MM-DD, default today)")

	return cmd
}

func runPeriod(opts *PeriodOptions, cmd *cobra.Command, args []string) error {
	f := opts.formatter(cmd)

	day, err := opts.resolveDate()
	if err != nil {
		return fail(f, "resolve date", err)
	}

	if len(args) == 1 {
		c, err := parseCadenceArg(args[0])
		if err != nil {
			return fail(f, "resolve period", err)
		}
		return f.Success(newPeriodView(period.Resolve(day, c)))
	}

	views := make(periodList, 0, len(period.Cadences()))
	for _, c := range period.Cadences() {
		views = append(views, newPeriodView(period.Resolve(day, c)))
	}
	return f.Success(views)
}

// resolveDate returns --date as a calendar day in the configured zone, or
// now when the flag is empty.
func (o *PeriodOptions) resolveDate() (time.Time, error) {
	loc, err := o.config.Location()
	if err != nil {
		return time.Time{}, err
	}
	if o.Date == "" {
		now := time.Now
		if o.Now != nil {
			now = o.Now
		}
		return now().In(loc), nil
	}
	day, err := time.ParseInLocation(time.DateOnly, o.Date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q: %w", o.Date, err)
	}
	return day, nil
}

type periodView struct {
	Cadence string `json:"cadence"`
	Year    int    `json:"year"`
	Index   int    `json:"index"`
	Label   string `json:"label"`
	Start   string `json:"start"`
}

func newPeriodView(k period.Key) periodView {
	return periodView{
		Cadence: k.Cadence.String(),
		Year:    k.Year,
		Index:   k.Index,
		Label:   k.String(),
		Start:   k.Start().Format(time.DateOnly),
	}
}

func (v periodView) renderText(w io.Writer) {
	fmt.Fprintf(w, "%-9s %-8s starts %s\n", v.Cadence, v.Label, v.Start)
}

type periodList []periodView

func (l periodList) renderText(w io.Writer) {
	for _, v := range l {
		v.renderText(w)
	}
}
