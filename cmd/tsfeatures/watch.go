package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/tsfeatures"
)

var flagDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Collect a directory, then keep the database current as files change",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		targetDir, err := resolveTargetDir(args)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		e, _, err := newEngine(findRepoRoot(targetDir))
		if err != nil {
			return err
		}
		defer e.Close()

		if _, err := e.CollectDirectory(ctx, targetDir); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %s\n", err)
		}

		w := cmd.OutOrStdout()
		return e.Watch(ctx, targetDir, tsfeatures.WatchOptions{
			Debounce: flagDebounce,
			OnBatch: func(s *tsfeatures.CollectStats, _ error) {
				if s == nil {
					return
				}
				fmt.Fprintf(w, "%s  analyzed %d, cached %d, removed %d, failed %d\n",
					time.Now().Format(time.TimeOnly), s.Analyzed, s.Cached, s.Removed, s.Failed)
			},
		})
	},
}

func init() {
	watchCmd.Flags().DurationVar(&flagDebounce, "debounce", 100*time.Millisecond, "how long to wait for more changes before collecting")
}
