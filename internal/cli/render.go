package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/yankhist/internal/candidate"
	"github.com/roach88/yankhist/internal/yank"
)

// CompleteOptions holds flags for the complete command.
type CompleteOptions struct {
	*RootOptions
	Count  int
	Params candidate.CompletionParams
}

// BrowseOptions holds flags for the browse command.
type BrowseOptions struct {
	*RootOptions
	Count  int
	Params candidate.BrowseParams
}

type completionText []candidate.CompletionItem

// WriteText implements textWriter.
func (items completionText) WriteText(w io.Writer) error {
	for _, it := range items {
		abbr := it.Abbr
		if abbr == "" {
			abbr = it.Word
		}
		if _, err := fmt.Fprintf(w, "%-4s %1s  %s\n", it.Menu, it.Kind, abbr); err != nil {
			return err
		}
	}
	return nil
}

type browseText []candidate.BrowseItem

// WriteText implements textWriter.
func (items browseText) WriteText(w io.Writer) error {
	for _, it := range items {
		if _, err := fmt.Fprintf(w, "%q\n", it.Word); err != nil {
			return err
		}
	}
	return nil
}

// NewCompleteCommand creates the complete command.
func NewCompleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompleteOptions{RootOptions: rootOpts, Params: candidate.DefaultCompletionParams()}

	cmd := &cobra.Command{
		Use:   "complete",
		Short: "Render history as completion items",
		Long: `Render the newest history entries as insert-mode completion items.

Control characters in the abbreviation are shown in caret notation and
highlighted; the abbreviation is cut to --max-abbr-width cells.

Example:
  yankhist complete --max-abbr-width 40 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runComplete(opts, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Count, "count", "n", 0, "number of newest entries (default all)")
	cmd.Flags().IntVar(&opts.Params.MaxAbbrWidth, "max-abbr-width", 0, "maximum abbreviation width in cells (0 for no limit)")
	cmd.Flags().IntVar(&opts.Params.Columns, "columns", candidate.DefaultColumns, "editor width in cells")
	cmd.Flags().StringVar(&opts.Params.CtrlCharHLGroup, "hl-group", candidate.DefaultCtrlCharHLGroup, "highlight group for control characters (empty disables)")

	return cmd
}

func runComplete(opts *CompleteOptions, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	entries, err := newestEntries(opts.RootOptions, opts.Count)
	if err != nil {
		return out.Fail("failed to read history", err)
	}
	items := candidate.Completion(entries, opts.now(), opts.Params)
	if opts.Format == "text" {
		return out.Success(completionText(items))
	}
	return out.Success(items)
}

// NewBrowseCommand creates the browse command.
func NewBrowseCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BrowseOptions{RootOptions: rootOpts, Params: candidate.DefaultBrowseParams()}

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Render history as fuzzy-finder items",
		Long: `Render the newest history entries as fuzzy-finder items.

Each item reads "<id>:<age>:<register>: <text>". The JSON form carries the
action data a picker needs to paste or delete the entry.

Example:
  yankhist browse --prefix "> " --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBrowse(opts, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Count, "count", "n", 0, "number of newest entries (default all)")
	cmd.Flags().StringVar(&opts.Params.Prefix, "prefix", "", "text placed before each header")
	cmd.Flags().StringVar(&opts.Params.HeaderHLGroup, "hl-group", candidate.DefaultHeaderHLGroup, "highlight group for the header (empty disables)")

	return cmd
}

func runBrowse(opts *BrowseOptions, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	entries, err := newestEntries(opts.RootOptions, opts.Count)
	if err != nil {
		return out.Fail("failed to read history", err)
	}
	items := candidate.Browse(entries, opts.now(), opts.Params)
	if opts.Format == "text" {
		return out.Success(browseText(items))
	}
	return out.Success(items)
}

// newestEntries reads the count newest entries, or all of them when count
// is not positive.
func newestEntries(opts *RootOptions, count int) ([]yank.Entry, error) {
	ctx := context.Background()
	s, err := openSession(ctx, opts)
	if err != nil {
		return nil, err
	}
	entries, err := s.ctrl.Get(ctx, -max(count, 0))
	if cerr := s.close(ctx); err == nil && cerr != nil {
		err = cerr
	}
	return entries, err
}
