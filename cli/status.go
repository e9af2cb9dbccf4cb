package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fuzzrnet/forage-go/internal/colors"
	"github.com/fuzzrnet/forage-go/internal/walker"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report data-dir and index counts, byte totals, and configured capacity",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.Close()

		local, err := walker.Walk(app.Paths.DataDir, "", app.Secret)
		if err != nil {
			return fmt.Errorf("status walk data dir: %w", err)
		}

		records, err := app.Index.GetFiles(nil, nil)
		if err != nil {
			return fmt.Errorf("status list files: %w", err)
		}

		var bytesRead, bytesWritten int64
		for _, r := range records {
			bytesRead += r.BytesRead
			bytesWritten += r.BytesWritten
		}
		amp := 0.0
		if bytesRead > 0 {
			amp = float64(bytesWritten)/float64(bytesRead) - 1
		}

		fmt.Printf("data directory:   %s\n", app.Paths.DataDir)
		fmt.Printf("store directory:  %s\n", app.Paths.StoreDir)
		fmt.Printf("local files:      %s\n", colors.LocalOnly(fmt.Sprint(len(local))))
		fmt.Printf("indexed files:    %s\n", colors.Indexed(fmt.Sprint(len(records))))
		fmt.Printf("bytes read:       %d\n", bytesRead)
		fmt.Printf("bytes written:    %d\n", bytesWritten)
		fmt.Printf("write amplification: %.1f%%\n", amp*100)

		var allocated uint64
		for _, v := range app.Config.Volumes {
			allocated += v.Allocated
		}
		fmt.Printf("allocated capacity: %d bytes\n", allocated)
		return nil
	},
}
