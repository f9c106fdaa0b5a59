package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/cadence/internal/eventbus"
	"github.com/roach88/cadence/internal/form"
	"github.com/roach88/cadence/internal/period"
	"github.com/roach88/cadence/internal/review"
)

// codeAlreadySubmitted labels a submit for a period that already has a
// review. The form is read-only until edited.
const codeAlreadySubmitted = "ALREADY_SUBMITTED"

// ReviewOptions holds flags shared by show, submit, edit and progress.
type ReviewOptions struct {
	*RootOptions
	Period string
	answerFlags
}

func newReviewOptions(rootOpts *RootOptions) *ReviewOptions {
	return &ReviewOptions{RootOptions: rootOpts}
}

func (o *ReviewOptions) registerPeriod(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.Period, "period", "p", "", "period label, e.g. 2025-W11, 2025-03, 2025-Q1, 2025 (default current)")
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := newReviewOptions(rootOpts)

	cmd := &cobra.Command{
		Use:   "show <cadence>",
		Short: "Show the review of a period",
		Long: `Show the owner's review for a period.

Exit codes:
  0 - Review shown, or the period has none yet
  1 - Invalid cadence or period
  2 - Command error (unauthenticated, store unavailable)

Examples:
  cadence show weekly
  cadence show monthly --period 2025-03 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: guard(rootOpts, func(cmd *cobra.Command, args []string) error {
			return runShow(opts, cmd, args[0])
		}),
	}
	opts.registerPeriod(cmd)
	return cmd
}

func runShow(opts *ReviewOptions, cmd *cobra.Command, cadenceArg string) error {
	f := opts.formatter(cmd)
	c, err := parseCadenceArg(cadenceArg)
	if err != nil {
		return fail(f, "show review", err)
	}

	return withApp(cmd, opts.RootOptions, func(a *app) error {
		key, err := a.resolveKey(c, opts.Period)
		if err != nil {
			return fail(f, "show review", err)
		}
		rec, err := a.service.Find(a.ctx, key)
		if err != nil {
			return fail(f, "show review", err)
		}

		view := showView{Cadence: c.String(), Period: key.String(), key: key}
		if rec != nil {
			view.Found = true
			view.Review = newRecordView(*rec)
		}
		return f.Success(view)
	})
}

// NewSubmitCommand creates the submit command.
func NewSubmitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := newReviewOptions(rootOpts)

	cmd := &cobra.Command{
		Use:   "submit <cadence>",
		Short: "Submit the review of a period",
		Long: `Submit a new review for a period.

Every mandatory question needs an answer. A period that already has a
review is read-only; use edit to change its answers.

Exit codes:
  0 - Review stored
  1 - Validation failed, or the period already has a review
  2 - Command error (unauthenticated, store unavailable, unreadable file)

Examples:
  cadence submit weekly --file week.yaml
  cadence submit monthly --period 2025-03 --file march.json
  cadence submit weekly -a learned="tests first" -a nextWeekFocus=ship`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: guard(rootOpts, func(cmd *cobra.Command, args []string) error {
			return runWrite(opts, cmd, args[0], false)
		}),
	}
	opts.registerPeriod(cmd)
	opts.answerFlags.register(cmd)
	return cmd
}

// NewEditCommand creates the edit command.
func NewEditCommand(rootOpts *RootOptions) *cobra.Command {
	opts := newReviewOptions(rootOpts)

	cmd := &cobra.Command{
		Use:   "edit <cadence>",
		Short: "Change the answers of a submitted review",
		Long: `Edit the existing review of a period and resubmit it.

Only the answers given are changed; the others keep their stored value.
The review keeps its id and creation time.

Exit codes:
  0 - Review updated
  1 - Validation failed
  2 - Command error (no review to edit, unauthenticated, store unavailable)

Examples:
  cadence edit weekly -a learned="write the test first"
  cadence edit annual --period 2025 --file year.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: guard(rootOpts, func(cmd *cobra.Command, args []string) error {
			return runWrite(opts, cmd, args[0], true)
		}),
	}
	opts.registerPeriod(cmd)
	opts.answerFlags.register(cmd)
	return cmd
}

// runWrite drives a form controller through submit (edit false) or
// edit-and-resubmit (edit true).
func runWrite(opts *ReviewOptions, cmd *cobra.Command, cadenceArg string, edit bool) error {
	f := opts.formatter(cmd)
	action := "submit review"
	if edit {
		action = "edit review"
	}

	c, err := parseCadenceArg(cadenceArg)
	if err != nil {
		return fail(f, action, err)
	}
	answers, err := opts.answerFlags.read(cmd.InOrStdin())
	if err != nil {
		return fail(f, action, err)
	}

	return withApp(cmd, opts.RootOptions, func(a *app) error {
		key, err := a.resolveKey(c, opts.Period)
		if err != nil {
			return fail(f, action, err)
		}

		ctrl, err := form.NewController(a.service, key, form.WithObserver(func(from, to form.State) {
			opts.logger.Debug("form state", "period", key.String(), "from", from.String(), "to", to.String())
		}))
		if err != nil {
			return fail(f, action, err)
		}
		if err := checkKnown(ctrl.Template(), answers); err != nil {
			return fail(f, action, err)
		}
		if err := ctrl.Load(a.ctx); err != nil {
			return fail(f, action, err)
		}

		switch {
		case !edit && ctrl.ReadOnly():
			return reject(f, codeAlreadySubmitted,
				fmt.Sprintf("%s review %s already submitted (%s); use edit to change it", c, key, ctrl.RecordID()))
		case edit && !ctrl.ReadOnly():
			return fail(f, action, review.NewError(review.CodeNotFound,
				fmt.Sprintf("no %s review for %s; use submit to create it", c, key)))
		case edit:
			if err := ctrl.Edit(); err != nil {
				return fail(f, action, err)
			}
		}

		for name, value := range answers {
			if err := ctrl.Set(name, value); err != nil {
				return fail(f, action, err)
			}
		}

		res, err := ctrl.Submit(a.ctx)
		if err != nil {
			return fail(f, action, err)
		}
		if ev, ok := a.bus.Last(eventbus.TopicReviewSubmitted); ok {
			f.VerboseLog("published %s #%d", ev.Topic, ev.Seq)
		}

		return f.Success(submitView{
			ID:          res.ID,
			Cadence:     c.String(),
			Period:      key.String(),
			Created:     res.Created,
			CompletedAt: formatTime(res.CompletedAt),
		})
	})
}

// NewProgressCommand creates the progress command.
func NewProgressCommand(rootOpts *RootOptions) *cobra.Command {
	opts := newReviewOptions(rootOpts)

	cmd := &cobra.Command{
		Use:   "progress <cadence>",
		Short: "Show how much of a review is answered",
		Long: `Report the percentage of mandatory questions answered for a period.

Answers given with --file or --answer are laid over the stored review
without saving anything, so a draft can be checked before submitting.

Examples:
  cadence progress weekly
  cadence progress weekly --file draft.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: guard(rootOpts, func(cmd *cobra.Command, args []string) error {
			return runProgress(opts, cmd, args[0])
		}),
	}
	opts.registerPeriod(cmd)
	opts.answerFlags.register(cmd)
	return cmd
}

func runProgress(opts *ReviewOptions, cmd *cobra.Command, cadenceArg string) error {
	f := opts.formatter(cmd)
	c, err := parseCadenceArg(cadenceArg)
	if err != nil {
		return fail(f, "review progress", err)
	}
	draft, err := opts.answerFlags.read(cmd.InOrStdin())
	if err != nil {
		return fail(f, "review progress", err)
	}
	t, _ := review.TemplateFor(c)
	if err := checkKnown(t, draft); err != nil {
		return fail(f, "review progress", err)
	}

	return withApp(cmd, opts.RootOptions, func(a *app) error {
		key, err := a.resolveKey(c, opts.Period)
		if err != nil {
			return fail(f, "review progress", err)
		}
		rec, err := a.service.Find(a.ctx, key)
		if err != nil {
			return fail(f, "review progress", err)
		}
		return f.Success(progressOf(t, key, rec, draft))
	})
}

func progressOf(t review.Template, key period.Key, rec *review.Record, draft review.Responses) progressView {
	values := t.Empty()
	if rec != nil {
		for k, v := range rec.Responses {
			values[k] = v
		}
	}
	for k, v := range draft {
		values[k] = v
	}

	missing := []string{}
	for _, field := range t.RequiredFields() {
		if values[field.Name] == "" {
			missing = append(missing, field.Name)
		}
	}
	return progressView{
		Cadence:   key.Cadence.String(),
		Period:    key.String(),
		Submitted: rec != nil,
		Progress:  review.Progress(t, values),
		Missing:   missing,
	}
}
