package cli

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"go-recplay/config"
)

func newConfigCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or save the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return toml.NewEncoder(deps.out()).Encode(deps.Config)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "save",
		Short: "Write the effective configuration (flags included) to the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := deps.ConfigPath
			if path == "" {
				p, err := config.Path()
				if err != nil {
					return err
				}
				path = p
			}
			if err := deps.Config.Save(path); err != nil {
				return err
			}
			fmt.Fprintf(deps.out(), "saved %s\n", path)
			return nil
		},
	})
	return cmd
}
