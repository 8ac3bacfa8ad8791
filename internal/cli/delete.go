package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
)

// DeleteResult is the outcome of delete.
type DeleteResult struct {
	Requested int `json:"requested" yaml:"requested"`
	Deleted   int `json:"deleted" yaml:"deleted"`
}

// WriteText implements textWriter.
func (r DeleteResult) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Deleted %d of %d\n", r.Deleted, r.Requested)
	return err
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>...",
		Short: "Remove entries from the history",
		Long: `Remove entries by the ids that list shows, and rewrite the history file.

Ids are assigned per process in file order, so use them while the file is
unchanged.

Example:
  yankhist delete 3 7`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runDelete(opts *RootOptions, args []string, cmd *cobra.Command) error {
	ctx := context.Background()
	out := opts.formatter(cmd)

	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			_ = out.Error(ErrCodeInput, fmt.Sprintf("invalid id %q", a), nil)
			return WrapExitError(ExitCommandError, "invalid id", err)
		}
		ids = append(ids, id)
	}

	s, err := openSession(ctx, opts)
	if err != nil {
		return out.Fail("failed to open history", err)
	}
	s.describe(out)
	n := s.ctrl.Delete(ids)
	out.VerboseLog("Deleting %d of %d requested ids", n, len(ids))
	if err := s.close(ctx); err != nil {
		return out.Fail("failed to write history", err)
	}
	return out.Success(DeleteResult{Requested: len(ids), Deleted: n})
}
