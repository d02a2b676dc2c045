package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"go-recplay/config"
	"go-recplay/midi"
	"go-recplay/rig"
)

// Version is set at build time
var Version = "dev"

// Dependencies are the collaborators commands share. Zero fields get real
// implementations.
type Dependencies struct {
	Config     *config.Config
	ConfigPath string

	Out     io.Writer                         // command output, stdout by default
	LogOut  io.Writer                         // headless log sink, stderr by default
	Openers func(log *zap.Logger) rig.Openers // port openers, the MIDI driver by default
	Lister  midi.Lister                       // port listing, the MIDI driver by default
}

func (d *Dependencies) out() io.Writer {
	if d.Out == nil {
		return os.Stdout
	}
	return d.Out
}

func (d *Dependencies) openers(log *zap.Logger) rig.Openers {
	if d.Openers == nil {
		return rig.DriverOpeners(log)
	}
	return d.Openers(log)
}

// closeDriver releases the MIDI driver when the real one is in use
func (d *Dependencies) closeDriver() {
	if d.Openers == nil {
		midi.CloseDriver()
	}
}

func (d *Dependencies) lister() midi.Lister {
	if d.Lister == nil {
		return midi.ListPorts
	}
	return d.Lister
}

// flags shadow config values when set on the command line
type flags struct {
	input   string
	output  string
	channel string
	debug   bool
}

// NewRootCmd creates the root recplay command. With no subcommand it runs
// the terminal UI.
func NewRootCmd(deps *Dependencies) *cobra.Command {
	var f flags

	root := &cobra.Command{
		Use:   "recplay",
		Short: "Capture, forward and replay MIDI",
		Long: `recplay mirrors a MIDI input to an output, optionally forcing one channel,
records what passes through and plays it back once or in a loop.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, deps, &f)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(deps)
		},
	}
	root.Version = Version

	pf := root.PersistentFlags()
	pf.StringVar(&deps.ConfigPath, "config", deps.ConfigPath, "config file (default $XDG_CONFIG_HOME/go-recplay/config.toml)")
	pf.StringVar(&f.input, "in", "", "input port: name, index or substring")
	pf.StringVar(&f.output, "out", "", "output port: name, index or substring")
	pf.StringVar(&f.channel, "channel", "", "force live traffic onto channel 0-15, or off")
	pf.BoolVar(&f.debug, "debug", false, "verbose logging (TUI logs to ~/.config/go-recplay/debug.log)")

	root.AddCommand(
		newTUICmd(deps),
		newServeCmd(deps),
		newTakeCmd(deps),
		newPortsCmd(deps),
		newConfigCmd(deps),
	)
	return root
}

func loadConfig(cmd *cobra.Command, deps *Dependencies, f *flags) error {
	if deps.Config == nil {
		if err := config.LoadDotEnv(); err != nil {
			return fmt.Errorf("loading .env: %w", err)
		}
		cfg, err := config.Load(deps.ConfigPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		deps.Config = cfg
	}

	pf := cmd.Flags()
	if pf.Changed("in") {
		deps.Config.Input = f.input
	}
	if pf.Changed("out") {
		deps.Config.Output = f.output
	}
	if pf.Changed("channel") {
		ch, err := config.ParseChannel(f.channel)
		if err != nil {
			return err
		}
		deps.Config.Channel = ch
	}
	if pf.Changed("debug") {
		deps.Config.Debug = f.debug
	}
	if deps.Config.Debug {
		deps.Config.LogLevel = "debug"
	}
	return nil
}
