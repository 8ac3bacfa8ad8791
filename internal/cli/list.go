package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/yankhist/internal/candidate"
	"github.com/roach88/yankhist/internal/yank"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Count int
}

// listing is the text form of list output.
type listing struct {
	entries []yank.Entry
	now     time.Time
}

// WriteText implements textWriter.
func (l listing) WriteText(w io.Writer) error {
	if len(l.entries) == 0 {
		_, err := fmt.Fprintln(w, "No yanks recorded")
		return err
	}
	for _, e := range l.entries {
		age := candidate.ToDuration(l.now.Sub(e.CapturedAt()))
		text := yank.ContentsToText(e.Contents)
		if _, err := fmt.Fprintf(w, "%4d  %4s  %s  %-9s  %q\n", e.ID, age, e.Name, e.Type.Kind(), text); err != nil {
			return err
		}
	}
	return nil
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the yank history",
		Long: `Show the yank history, oldest first.

A positive --count shows the oldest entries, a negative one the newest.
Ids are local to this invocation and follow the order of the history file.

Examples:
  yankhist list
  yankhist list --count -5
  yankhist list --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Count, "count", "n", 0, "number of entries; negative counts from the newest (default all)")

	return cmd
}

func runList(opts *ListOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	out := opts.formatter(cmd)

	s, err := openSession(ctx, opts.RootOptions)
	if err != nil {
		return out.Fail("failed to open history", err)
	}
	entries, err := s.ctrl.Get(ctx, opts.Count)
	if cerr := s.close(ctx); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		return out.Fail("failed to read history", err)
	}

	if opts.Format != "text" {
		if entries == nil {
			entries = []yank.Entry{}
		}
		return out.Success(entries)
	}
	return out.Success(listing{entries: entries, now: opts.now()})
}
