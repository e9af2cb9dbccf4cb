package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Open or create the index and blob store and print resolved paths",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.Close()

		fmt.Printf("config directory: %s\n", app.Paths.ConfigDir)
		fmt.Printf("data directory:   %s\n", app.Paths.DataDir)
		fmt.Printf("store directory:  %s\n", app.Paths.StoreDir)
		fmt.Printf("user secret:      present\n")
		return nil
	},
}
