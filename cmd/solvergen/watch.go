package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newWatchCmd(a *app) *cobra.Command {
	var flags compileFlags

	cmd := &cobra.Command{
		Use:   "watch FILE",
		Short: "Recompile a rule file whenever it changes",
		Long: `Watch compiles a rule file, prints the plan, and compiles it again
every time the file is saved. Compile errors are logged and watching
continues. Stop with Ctrl-C.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.runWatch(ctx, cmd.OutOrStdout(), args[0], flags, nil)
		},
	}
	flags.register(cmd)
	return cmd
}

// runWatch compiles file once and again on every change until ctx is done.
// ready, when non-nil, is closed once the watcher is installed.
func (a *app) runWatch(ctx context.Context, w io.Writer, file string, flags compileFlags, ready chan<- struct{}) error {
	path, err := filepath.Abs(file)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// Editors often replace the file on save, so watch its directory
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}
	a.logger.Info("watching", zap.String("file", path))
	if ready != nil {
		close(ready)
	}

	a.recompile(w, file, flags)

	// Debounce rapid saves
	const debounce = 100 * time.Millisecond
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("stopped watching", zap.String("file", path))
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			a.logger.Debug("change detected",
				zap.String("file", path),
				zap.Stringer("op", event.Op))
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.logger.Warn("watcher error", zap.Error(err))

		case <-timer.C:
			a.recompile(w, file, flags)
		}
	}
}

// recompile runs one compile and logs instead of returning failures
func (a *app) recompile(w io.Writer, file string, flags compileFlags) {
	err := a.runCompile(w, file, flags)
	switch {
	case err == nil:
		a.logger.Info("compiled", zap.String("file", file))
	case errors.Is(err, errReported):
		// Diagnostics already logged
	default:
		a.logger.Error("compile failed", zap.String("file", file), zap.Error(err))
	}
}
