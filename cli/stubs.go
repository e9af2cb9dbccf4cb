// Provider-connection commands. The peers table and its accessor functions
// are real; the Tor transport and channel negotiation they would drive are
// not implemented, so each of these does the bookkeeping against the
// peers table it can do honestly and then reports the unimplemented part
// rather than pretending to succeed.
package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fuzzrnet/forage-go/internal/forageerr"
	"github.com/fuzzrnet/forage-go/internal/index"
)

var newClientCmd = &cobra.Command{
	Use:   "new-client <tor-v3> [alias]",
	Short: "Register a peer row; the handshake itself is not implemented",
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
		if err := app.Index.UpsertPeer(index.Peer{TorV3: args[0], Alias: alias, AddedMS: now, LastSeenMS: now}); err != nil {
			return fmt.Errorf("new-client: %w", err)
		}
		return fmt.Errorf("new-client: peer row registered, handshake: %w", forageerr.NotImplemented)
	},
}

var openChannelCmd = &cobra.Command{
	Use:   "open-channel <tor-v3>",
	Short: "Touch a peer's last-seen time; channel negotiation is not implemented",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.Close()

		peer, err := findPeer(app.Index, args[0])
		if err != nil {
			return fmt.Errorf("open-channel: %w", err)
		}
		peer.LastSeenMS = nowMS()
		if err := app.Index.UpsertPeer(peer); err != nil {
			return fmt.Errorf("open-channel: %w", err)
		}
		return fmt.Errorf("open-channel: peer touched, negotiation: %w", forageerr.NotImplemented)
	},
}

var listChannelsCmd = &cobra.Command{
	Use:   "list-channels",
	Short: "List peers as if they were open channels",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.Close()

		peers, err := app.Index.ListPeers()
		if err != nil {
			return fmt.Errorf("list-channels: %w", err)
		}
		for _, p := range peers {
			fmt.Printf("%s\tlast_seen=%d\tbytes_stored=%d\n", p.TorV3, p.LastSeenMS, p.BytesStored)
		}
		return fmt.Errorf("list-channels: peers listed, channel state: %w", forageerr.NotImplemented)
	},
}

var closeChannelCmd = &cobra.Command{
	Use:   "close-channel <tor-v3>",
	Short: "Touch a peer's last-seen time; tearing down a channel is not implemented",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.Close()

		peer, err := findPeer(app.Index, args[0])
		if err != nil {
			return fmt.Errorf("close-channel: %w", err)
		}
		peer.LastSeenMS = nowMS()
		if err := app.Index.UpsertPeer(peer); err != nil {
			return fmt.Errorf("close-channel: %w", err)
		}
		return fmt.Errorf("close-channel: peer touched, teardown: %w", forageerr.NotImplemented)
	},
}

var allocateCmd = &cobra.Command{
	Use:   "allocate <tor-v3> <bytes>",
	Short: "Record a storage allocation for a peer; wire reservation is not implemented",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		bytes, err := parseUint(args[1])
		if err != nil {
			return fmt.Errorf("allocate: %w", err)
		}

		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.Close()

		peer, err := findPeer(app.Index, args[0])
		if err != nil {
			return fmt.Errorf("allocate: %w", err)
		}
		peer.BytesStored += bytes
		if err := app.Index.UpsertPeer(peer); err != nil {
			return fmt.Errorf("allocate: %w", err)
		}
		return fmt.Errorf("allocate: recorded locally, remote reservation: %w", forageerr.NotImplemented)
	},
}

var transferCmd = &cobra.Command{
	Use:   "transfer <tor-v3> <bytes>",
	Short: "Record a transfer against a peer's byte total; the transport is not implemented",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		bytes, err := parseUint(args[1])
		if err != nil {
			return fmt.Errorf("transfer: %w", err)
		}

		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.Close()

		peer, err := findPeer(app.Index, args[0])
		if err != nil {
			return fmt.Errorf("transfer: %w", err)
		}
		peer.BytesStored += bytes
		if err := app.Index.UpsertPeer(peer); err != nil {
			return fmt.Errorf("transfer: %w", err)
		}
		return fmt.Errorf("transfer: byte total updated locally, data movement: %w", forageerr.NotImplemented)
	},
}

func findPeer(ix *index.Index, torV3 string) (index.Peer, error) {
	peers, err := ix.ListPeers()
	if err != nil {
		return index.Peer{}, err
	}
	for _, p := range peers {
		if p.TorV3 == torV3 {
			return p, nil
		}
	}
	return index.Peer{}, fmt.Errorf("peer %s: %w", torV3, forageerr.NotFound)
}

func parseUint(s string) (int64, error) {
	var n int64
	_, err := fmt.Sscanf(s, "%d", &n)
	if err != nil || n < 0 {
		return 0, errors.New("expected a non-negative integer")
	}
	return n, nil
}
