package main

import (
	"fmt"

	"github.com/marmos91/dittodir/pkg/config"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `
Write a commented default configuration file, by default to
$XDG_CONFIG_HOME/dittodir/config.yaml (or ~/.config/dittodir/config.yaml).
An existing file is kept unless --force is given.
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		path, _ := cmd.Flags().GetString("config")

		if path == "" {
			written, err := config.InitConfig(force)
			if err != nil {
				return err
			}
			path = written
		} else if err := config.InitConfigToPath(path, force); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
		return nil
	},
}

func init() {
	initCmd.Flags().Bool("force", false, "overwrite an existing configuration file")
	initCmd.Flags().String("config", "", "write to this path instead of the default location")
}
