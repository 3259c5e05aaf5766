package cmd

import (
	"github.com/spf13/cobra"

	"github.com/vxlab/malsift/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize malsift configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure malsift for your corpus and generates a .malsift.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard()
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
