package cli

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"go-recplay/debug"
	"go-recplay/midi"
	"go-recplay/theme"
	"go-recplay/tui"
)

func newTUICmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Run the terminal transport panel (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(deps)
		},
	}
}

func runTUI(deps *Dependencies) error {
	cfg := deps.Config

	// the terminal belongs to the UI, so logs go to the debug file or nowhere
	sink := debug.SinkNone
	if cfg.Debug {
		sink = debug.SinkFile
	}
	log, closeLog, err := debug.New(debug.Options{Sink: sink, Level: cfg.LogLevel})
	if err != nil {
		return err
	}
	defer closeLog()

	palette, err := theme.LoadOrDefault(cfg.UI.Palette)
	if err != nil {
		return err
	}
	th := theme.New(palette)

	r, warnings, err := openRig(deps, log, false)
	if err != nil {
		return err
	}
	defer deps.closeDriver()
	defer r.Close()

	watcher := midi.NewWatcher(deps.lister(), 0, log.Named("watcher"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watcher.Run(ctx)

	m := tui.NewModel(r, watcher, th, cfg.UI.NoticeLines)
	if len(warnings) > 0 {
		m = m.WithStatus(errors.Join(warnings...).Error())
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Error("tui exited", zap.Error(err))
		return err
	}
	return nil
}
