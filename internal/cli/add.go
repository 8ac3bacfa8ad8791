package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/yankhist/internal/controller"
	"github.com/roach88/yankhist/internal/yank"
)

// AddOptions holds flags for the add command.
type AddOptions struct {
	*RootOptions
	Register string
	Type     string
	Time     int64
}

// AddResult is the outcome of add.
type AddResult struct {
	Recorded bool        `json:"recorded" yaml:"recorded"`
	Entry    *yank.Entry `json:"entry,omitempty" yaml:"entry,omitempty"`
	Reason   string      `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// WriteText implements textWriter.
func (r AddResult) WriteText(w io.Writer) error {
	if !r.Recorded {
		_, err := fmt.Fprintf(w, "Skipped: %s\n", r.Reason)
		return err
	}
	_, err := fmt.Fprintf(w, "Recorded yank %d in register %s\n", r.Entry.ID, r.Entry.Name)
	return err
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add [text...]",
		Short: "Record a yank",
		Long: `Record a yank as if the editor had reported it.

The arguments are joined with spaces. Without arguments the text is read
from standard input and a single trailing newline is dropped. Newlines
separate register lines.

Examples:
  yankhist add "some text"
  git rev-parse HEAD | yankhist add --register a
  yankhist add --type V $'first line\nsecond line'`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Register, "register", "r", "", `register name (default the unnamed register ")`)
	cmd.Flags().StringVarP(&opts.Type, "type", "t", string(yank.Charwise), `register type: v, V or ^V<width>`)
	cmd.Flags().Int64Var(&opts.Time, "time", 0, "capture time in milliseconds since the epoch (default now)")

	return cmd
}

func runAdd(opts *AddOptions, args []string, cmd *cobra.Command) error {
	ctx := context.Background()
	out := opts.formatter(cmd)

	text := strings.Join(args, " ")
	if len(args) == 0 {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return out.Fail("failed to read standard input", err)
		}
		text = strings.TrimSuffix(string(data), "\n")
	}

	ev := controller.Event{
		RegName:     opts.Register,
		RegType:     opts.Type,
		RegContents: yank.TextToContents(text),
		Time:        opts.Time,
	}
	if err := ev.Validate(); err != nil {
		return out.Fail("invalid yank", err)
	}

	s, err := openSession(ctx, opts.RootOptions)
	if err != nil {
		return out.Fail("failed to open history", err)
	}
	s.describe(out)
	entry, ok, err := s.ctrl.OnTextYankPost(ev)
	if cerr := s.close(ctx); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		return out.Fail("failed to record yank", err)
	}

	result := AddResult{Recorded: ok}
	if ok {
		result.Entry = &entry
	} else {
		result.Reason = fmt.Sprintf("shorter than min_length %d", s.ctrl.MinLength())
	}
	return out.Success(result)
}
