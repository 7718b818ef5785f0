package cli

import (
	"fmt"

	"github.com/harun/toolhub/pkg/toolcache"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the result cache",
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete expired cache entries",
	Long: `Delete expired entries from the configured cache backend. Redis expires
entries on its own and needs no purge.`,
	Args: cobra.NoArgs,
	RunE: runCachePurge,
}

func init() {
	cacheCmd.AddCommand(cachePurgeCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCachePurge(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	if rt.cache == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "Cache disabled, nothing to purge")
		return nil
	}

	purger, ok := rt.cache.(toolcache.Purger)
	if !ok {
		fmt.Fprintf(cmd.OutOrStdout(), "Cache backend %s expires entries itself\n", rt.cfg.Cache.Backend)
		return nil
	}

	n, err := purger.Purge(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Purged %d expired entries\n", n)
	return nil
}
