// Package cli wires Forage's cobra commands into a single root command.
package cli

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/fuzzrnet/forage-go/internal/forage"
)

const forageVersion = "0.1.0"

var version bool

var rootCmd = &cobra.Command{
	Use:   "forage",
	Short: "Forage is a content-addressed, deduplicating file store",
	Long:  `Forage walks a local data directory, deduplicates file content by keyed fingerprint, and stores it as verified-streaming encoded blobs.`,
	Run: func(cmd *cobra.Command, args []string) {
		if version {
			fmt.Printf("forage version %s\n", forageVersion)
			return
		}
		cmd.Help()
	},
}

func Execute() {
	configureLogging()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolVar(&version, "version", false, "print the version and exit")

	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(listFilesCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(startCmd)

	rootCmd.AddCommand(peersCmd)
	peersCmd.AddCommand(peersListCmd, peersAddCmd)

	rootCmd.AddCommand(newClientCmd)
	rootCmd.AddCommand(openChannelCmd)
	rootCmd.AddCommand(listChannelsCmd)
	rootCmd.AddCommand(closeChannelCmd)
	rootCmd.AddCommand(allocateCmd)
	rootCmd.AddCommand(transferCmd)
}

// configureLogging sets the standard logger's verbosity from FORAGE_LOG.
// Recognized values are "debug", "info" (default), and "quiet"; anything
// else falls back to "info".
func configureLogging() {
	log.SetFlags(0)
	switch os.Getenv("FORAGE_LOG") {
	case "quiet":
		log.SetOutput(io.Discard)
	case "debug":
		log.SetFlags(log.Ltime | log.Lshortfile)
	default:
		// info: plain, prefix-free lines.
	}
}

// openApp is the common entry point every command uses to wire up an
// application context, reporting a uniform error on failure.
func openApp() (*forage.App, error) {
	app, err := forage.Open()
	if err != nil {
		return nil, fmt.Errorf("open forage: %w", err)
	}
	return app, nil
}
