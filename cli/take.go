package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"go-recplay/widgets"
)

func newTakeCmd(deps *Dependencies) *cobra.Command {
	var (
		duration time.Duration
		loop     bool
	)

	cmd := &cobra.Command{
		Use:   "take",
		Short: "Record from the input, then play it back",
		Long: `Records until --duration elapses or Ctrl+C, then replays the take to the output.
With --loop playback repeats until Ctrl+C.`,
		Example: `  recplay take --in Keys --out Synth --duration 8s --loop`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			interrupts := make(chan struct{}, 1)
			go func() {
				for range sigCh {
					select {
					case interrupts <- struct{}{}:
					default:
					}
				}
			}()
			return runTake(cmd.Context(), deps, duration, loop, interrupts)
		},
	}

	cmd.Flags().DurationVar(&duration, "duration", 0, "stop recording after this long (0 = until Ctrl+C)")
	cmd.Flags().BoolVar(&loop, "loop", false, "repeat playback until Ctrl+C")
	return cmd
}

// runTake records then replays. Each value on interrupt ends the current phase.
func runTake(ctx context.Context, deps *Dependencies, duration time.Duration, loop bool, interrupt <-chan struct{}) error {
	out := deps.out()

	log, closeLog, err := headlessLogger(deps)
	if err != nil {
		return err
	}
	defer closeLog()

	r, _, err := openRig(deps, log, true)
	if err != nil {
		return err
	}
	defer deps.closeDriver()
	defer r.Close()
	session := r.Session()

	in, outName := r.Names()
	if err := session.StartRecording(); err != nil {
		return err
	}
	fmt.Fprintf(out, "recording %s -> %s (Ctrl+C to stop)\n", in, outName)

	var timeout <-chan time.Time
	if duration > 0 {
		timer := time.NewTimer(duration)
		defer timer.Stop()
		timeout = timer.C
	}
	select {
	case <-timeout:
	case <-interrupt:
	case <-ctx.Done():
	}

	rec := session.StopRecording()
	fmt.Fprintf(out, "recorded %d events (%s)\n", rec.Len(), widgets.FormatOffset(rec.Duration()))
	if ctx.Err() != nil {
		return nil
	}

	if err := session.StartPlaying(nil, nil, loop); err != nil {
		return err
	}
	if loop {
		fmt.Fprintln(out, "looping (Ctrl+C to stop)")
	} else {
		fmt.Fprintln(out, "playing")
	}

	done := make(chan error, 1)
	go func() { done <- session.Wait() }()
	select {
	case err := <-done:
		if err != nil {
			return err
		}
	case <-interrupt:
		session.StopPlaying()
		if err := <-done; err != nil {
			return err
		}
	case <-ctx.Done():
		session.StopPlaying()
		<-done
	}
	fmt.Fprintln(out, "done")
	return nil
}
