package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fuzzrnet/forage-go/internal/colors"
)

var listFilesCmd = &cobra.Command{
	Use:   "list-files [prefix] [depth]",
	Short: "Print indexed files under a path prefix as a tree",
	Args:  cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		prefix := ""
		depth := 0
		if len(args) >= 1 {
			prefix = args[0]
		}
		if len(args) == 2 {
			d, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("list-files: depth must be an integer: %w", err)
			}
			depth = d
		}

		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.Close()

		records, err := app.Index.GetFiles(nil, nil)
		if err != nil {
			return fmt.Errorf("list-files: %w", err)
		}

		var paths []string
		for _, r := range records {
			if prefix != "" && !strings.HasPrefix(r.Path, prefix) {
				continue
			}
			paths = append(paths, r.Path)
		}
		sort.Strings(paths)

		printTree(paths, depth)
		return nil
	},
}

// printTree renders paths as an indented tree truncated to maxDepth path
// segments (0 means unlimited).
func printTree(paths []string, maxDepth int) {
	seen := map[string]bool{}
	for _, p := range paths {
		segs := strings.Split(p, "/")
		truncated := maxDepth > 0 && len(segs) > maxDepth
		if truncated {
			segs = segs[:maxDepth]
		}
		for i := range segs {
			key := strings.Join(segs[:i+1], "/")
			if seen[key] {
				continue
			}
			seen[key] = true
			isLeaf := i == len(segs)-1 && !truncated
			label := segs[i]
			if isLeaf {
				label = colors.Indexed(label)
			} else {
				label = colors.Bold(label)
			}
			fmt.Printf("%s%s\n", strings.Repeat("  ", i), label)
		}
	}
}
