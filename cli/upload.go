package cli

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/fuzzrnet/forage-go/internal/pipeline"
)

var uploadCmd = &cobra.Command{
	Use:   "upload [prefix]",
	Short: "Ingest new or changed files under a path prefix",
	Long:  `Walks the data directory, skips anything already seen, and encodes each new file into the blob store.`,
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

		stats, err := pipeline.Upload(app, prefix)
		if err != nil {
			return fmt.Errorf("upload: %w", err)
		}

		log.Printf("uploaded %d files (%d already seen), %d bytes read, %d bytes written, %.1f%% write amplification, %s",
			stats.FilesUploaded, stats.FilesSkipped, stats.BytesRead, stats.BytesWritten,
			stats.WriteAmplification()*100, stats.Elapsed)
		return nil
	},
}
