package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

// closeTimeout bounds the final flush when serve exits.
const closeTimeout = 10 * time.Second

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve editor requests on standard input",
		Long: `Serve editor requests as line-delimited JSON on standard input and output.

Each request is {"id": ..., "method": ..., "params": [...]}; requests
without an id are notifications and get no response. Methods:

  updateOptions            reload the configuration
  get [count]              history entries, oldest first (default -1)
  delete [ids]             remove entries
  onTextYankPost [event]   record a yank
  complete [params]        completion items
  browse [params]          fuzzy-finder items

The history is flushed when standard input closes or on SIGINT/SIGTERM.

Example:
  echo '{"id":1,"method":"get","params":[-10]}' | yankhist serve`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(rootOpts, cmd)
		},
	}
	return cmd
}

func runServe(opts *RootOptions, cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	out := opts.formatter(cmd)

	s, err := openSession(ctx, opts)
	if err != nil {
		return out.Fail("failed to open history", err)
	}
	if opts.logger != nil {
		opts.logger.Info("serving", "instance", s.store.InstanceID(), "persist_path", s.store.Options().Path)
	}

	d := NewDispatcher(s.ctrl, opts.Clock, opts.logger)
	serveErr := d.Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout())

	closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := s.close(closeCtx); err != nil {
		return out.Fail("failed to flush history", err)
	}
	if serveErr != nil && ctx.Err() == nil {
		return out.Fail("failed to read requests", serveErr)
	}
	return nil
}
