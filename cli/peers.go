package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fuzzrnet/forage-go/internal/index"
)

var peersCmd = &cobra.Command{
	Use:   "peers",
	Short: "Inspect the local peers table",
}

var peersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known peers",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.Close()

		peers, err := app.Index.ListPeers()
		if err != nil {
			return fmt.Errorf("peers list: %w", err)
		}
		for _, p := range peers {
			fmt.Printf("%s\t%s\t%d bytes stored\n", p.TorV3, p.Alias, p.BytesStored)
		}
		return nil
	},
}

var peersAddCmd = &cobra.Command{
	Use:   "add <tor-v3> [alias]",
	Short: "Record a peer's onion address",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		alias := ""
		if len(args) == 2 {
			alias = args[1]
		}

		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.Close()

		now := nowMS()
		if err := app.Index.UpsertPeer(index.Peer{
			TorV3:      args[0],
			Alias:      alias,
			AddedMS:    now,
			LastSeenMS: now,
		}); err != nil {
			return fmt.Errorf("peers add: %w", err)
		}
		return nil
	},
}
