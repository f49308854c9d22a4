package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/dotle-git/argorator/pkgs/errors"
)

// debounce window for editors that write via rename or multiple events.
const watchDebounce = 200 * time.Millisecond

func newWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:                "watch SCRIPT [script flags and args]",
		Short:              "Re-run a script whenever it changes",
		DisableFlagParsing: true,
		Args:               cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] == "-h" || args[0] == "--help" {
				return cmd.Help()
			}
			return watchScript(cmd, args[0], args[1:])
		},
	}
}

func watchScript(cmd *cobra.Command, scriptPath string, rest []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(errors.ErrExecution, "creating file watcher", err)
	}
	defer watcher.Close()

	// Watch the directory, not the file: editors that save via rename
	// replace the inode and would silently detach a file watch.
	dir := filepath.Dir(scriptPath)
	if err := watcher.Add(dir); err != nil {
		return errors.Wrap(errors.ErrExecution, fmt.Sprintf("watching %s", dir), err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	target, err := filepath.Abs(scriptPath)
	if err != nil {
		target = scriptPath
	}

	runOnce := func() {
		if err := runScript(cmd, scriptPath, rest); err != nil {
			var exit exitError
			if stderrors.As(err, &exit) {
				fmt.Fprintf(cmd.ErrOrStderr(), "exit status %d\n", exit.code)
				return
			}
			printError(err)
		}
	}

	runOnce()
	fmt.Fprintf(cmd.ErrOrStderr(), "watching %s (ctrl-c to stop)\n", scriptPath)

	var timer *time.Timer
	trigger := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-trigger:
			fmt.Fprintf(cmd.ErrOrStderr(), "%s changed, re-running\n", scriptPath)
			runOnce()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			changed, err := filepath.Abs(event.Name)
			if err != nil {
				changed = event.Name
			}
			if changed != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				select {
				case trigger <- struct{}{}:
				default:
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "watch error: %v\n", err)
		}
	}
}
