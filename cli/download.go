package cli

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/fuzzrnet/forage-go/internal/colors"
	"github.com/fuzzrnet/forage-go/internal/pipeline"
)

var downloadCmd = &cobra.Command{
	Use:   "download [prefix]",
	Short: "Reconstruct files under a path prefix that aren't already present locally",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prefix := ""
		if len(args) == 1 {
			prefix = args[0]
		}

		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.Close()

		stats, err := pipeline.Download(app, prefix)
		if err != nil {
			return fmt.Errorf("download: %w", err)
		}

		for _, f := range stats.Failures {
			log.Printf("%s %s: %v [%s]", colors.Failed("FAILED"), f.Path, f.Err, f.ErrorKind())
		}

		log.Printf("fetched %d files, %d bytes, %s", stats.FilesFetched, stats.BytesWritten, stats.Elapsed)
		if len(stats.Failures) > 0 {
			log.Printf("%s %d file(s) failed to reconstruct", colors.Failed("FAILED"), len(stats.Failures))
			os.Exit(1)
		}
		return nil
	},
}
