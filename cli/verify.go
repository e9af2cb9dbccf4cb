package cli

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/fuzzrnet/forage-go/internal/colors"
	"github.com/fuzzrnet/forage-go/internal/pipeline"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Spot-check a single random slice against its recorded root",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.Close()

		report, err := pipeline.Verify(app)
		if err != nil {
			return fmt.Errorf("verify: %w", err)
		}
		if !report.Checked {
			log.Println("nothing to verify: the store is empty")
			return nil
		}

		if report.OK {
			log.Printf("%s %s slice %d (%s)", colors.OK("OK"), report.Path, report.SliceIdx, report.FP)
			return nil
		}

		log.Printf("%s %s slice %d (%s): %v [%s]", colors.Failed("FAILED"), report.Path, report.SliceIdx, report.FP, report.Err, report.ErrorKind())
		os.Exit(1)
		return nil
	},
}
