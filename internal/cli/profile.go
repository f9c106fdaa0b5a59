package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/cadence/internal/review"
)

// NewProfileCommand creates the profile command group.
func NewProfileCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage the owner profile",
		Long: `The profile holds the owner's north-star goals. Annual reviews
update it with the goals set for the next year, so it must exist before
the first annual review is submitted.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the owner profile if it does not exist",
		Long: `Create an empty profile for the owner. Running it again leaves an
existing profile untouched.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: guard(rootOpts, func(cmd *cobra.Command, args []string) error {
			return runProfileInit(rootOpts, cmd)
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:           "show",
		Short:         "Show the owner profile",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: guard(rootOpts, func(cmd *cobra.Command, args []string) error {
			return runProfileShow(rootOpts, cmd)
		}),
	})

	return cmd
}

type profileInitView struct {
	Owner   string `json:"owner"`
	Created bool   `json:"created"`
}

func (v profileInitView) renderText(w io.Writer) {
	if v.Created {
		fmt.Fprintf(w, "Created profile for %s\n", v.Owner)
		return
	}
	fmt.Fprintf(w, "Profile for %s already exists\n", v.Owner)
}

func runProfileInit(opts *RootOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	return withApp(cmd, opts, func(a *app) error {
		created, err := a.service.InitProfile(a.ctx)
		if err != nil {
			return fail(f, "init profile", err)
		}
		return f.Success(profileInitView{Owner: opts.config.Owner, Created: created})
	})
}

type profileView struct {
	Owner      string            `json:"owner"`
	NorthStars map[string]string `json:"northStars"`
	UpdatedAt  string            `json:"updatedAt"`
}

func (v profileView) renderText(w io.Writer) {
	fmt.Fprintf(w, "Profile %s (updated %s)\n", v.Owner, v.UpdatedAt)
	for _, area := range review.NorthStarAreas {
		goal := v.NorthStars[area]
		if goal == "" {
			goal = "(not set)"
		}
		fmt.Fprintf(w, "  %-9s %s\n", area, goal)
	}
}

func runProfileShow(opts *RootOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	return withApp(cmd, opts, func(a *app) error {
		p, err := a.service.Profile(a.ctx)
		if err != nil {
			return fail(f, "show profile", err)
		}
		return f.Success(profileView{
			Owner:      p.Owner,
			NorthStars: p.NorthStars,
			UpdatedAt:  formatTime(p.UpdatedAt),
		})
	})
}
