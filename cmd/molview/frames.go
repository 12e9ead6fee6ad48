package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newFramesCmd(opts *globalOptions) *cobra.Command {
	var (
		play     bool
		duration time.Duration
	)

	cmd := &cobra.Command{
		Use:   "frames <source>",
		Short: "Show the trajectory frames of a structure",
		Long: `Print the number of models (trajectory frames) of a structure. With --play
the trajectory is animated for --duration and the frame it stopped at is
reported.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			if err := a.Open(ctx, args[0]); err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Frames: %d\n", a.Viewer.FrameCount())
			if !play {
				return nil
			}

			if err := a.Viewer.Play(ctx); err != nil {
				return err
			}
			fmt.Fprintf(w, "Playing at %d fps for %s\n", a.Config.TargetFPS, duration)

			select {
			case <-ctx.Done():
			case <-time.After(duration):
			}
			if err := a.Viewer.Pause(context.WithoutCancel(ctx)); err != nil {
				return err
			}
			refs := a.Scene.Current()
			if len(refs) == 0 {
				return errNothingLoaded
			}
			fmt.Fprintf(w, "Stopped at frame %d\n", a.Scene.Frame(refs[0].ID)+1)
			return nil
		},
	}

	cmd.Flags().BoolVar(&play, "play", false, "Animate the trajectory")
	cmd.Flags().DurationVar(&duration, "duration", 2*time.Second, "How long to play")
	return cmd
}
