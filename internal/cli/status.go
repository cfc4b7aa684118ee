package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/charmbracelet/x/term"
	"github.com/fsnotify/fsnotify"
	"github.com/sourcegraph/conc"
	"github.com/spf13/cobra"

	"github.com/erg0nix/skill-improver/internal/session"
)

const clearScreen = "\033[H\033[2J"

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "List active improvement loops",
		Args:  cobra.NoArgs,
		RunE:  runStatusCmd,
	}

	cmd.Flags().BoolP("watch", "w", false, "re-render whenever a session record changes")

	return cmd
}

func runStatusCmd(cmd *cobra.Command, _ []string) error {
	app, err := newApp(cmd)
	if err != nil {
		return err
	}

	watch, _ := cmd.Flags().GetBool("watch")
	if !watch {
		return renderStatus(cmd.Context(), cmd.OutOrStdout(), app.Store)
	}

	return watchStatus(cmd.Context(), cmd.OutOrStdout(), app.Store, isInteractive())
}

func renderStatus(ctx context.Context, out io.Writer, store session.Store) error {
	sessions, err := store.List(ctx)
	if err != nil {
		return err
	}

	if len(sessions) == 0 {
		fmt.Fprintln(out, styleDim.Render("No active skill improvement sessions."))
		return nil
	}

	fmt.Fprintln(out, sessionTable(sessions).Render())
	return nil
}

// watchStatus renders the session table and again after every change to a
// record file, until ctx is cancelled. Bursts of events collapse into one
// render.
func watchStatus(ctx context.Context, out io.Writer, store *session.FileStore, clear bool) error {
	if err := store.Fs.MkdirAll(store.Dir, 0o755); err != nil {
		return fmt.Errorf("watch sessions: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch sessions: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(store.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", store.Dir, err)
	}

	render := func() error {
		if clear {
			fmt.Fprint(out, clearScreen)
		}
		return renderStatus(ctx, out, store)
	}

	if err := render(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	changed := make(chan struct{}, 1)
	var wg conc.WaitGroup
	wg.Go(func() {
		forwardRecordEvents(ctx, watcher, changed)
	})

	for range changed {
		if ctx.Err() != nil {
			continue
		}
		if err := render(); err != nil && ctx.Err() == nil {
			cancel()
			wg.Wait()
			return err
		}
	}

	wg.Wait()
	return nil
}

// forwardRecordEvents signals changed for each event on a committed record
// file and closes it when ctx ends or the watcher shuts down.
func forwardRecordEvents(ctx context.Context, watcher *fsnotify.Watcher, changed chan<- struct{}) {
	defer close(changed)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !session.IsRecordFile(filepath.Base(event.Name)) {
				continue
			}
			slog.Debug("session record changed", "path", event.Name, "op", event.Op.String())
			select {
			case changed <- struct{}{}:
			default:
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("session watcher error", "error", err)
		}
	}
}

func isInteractive() bool {
	return term.IsTerminal(os.Stdout.Fd())
}
