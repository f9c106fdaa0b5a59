package cli

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// runFunc is the signature of a command's RunE.
type runFunc func(cmd *cobra.Command, args []string) error

// guard turns a panic inside fn into a reported command error, so one
// broken handler cannot take the process down without an exit code.
func guard(opts *RootOptions, fn runFunc) runFunc {
	return func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			if opts.logger != nil {
				opts.logger.Error("command panicked",
					"command", cmd.CommandPath(),
					"panic", fmt.Sprint(r),
					"stack", string(debug.Stack()),
				)
			}
			err = fail(opts.formatter(cmd), "internal error", fmt.Errorf("panic: %v", r))
		}()
		return fn(cmd, args)
	}
}
