package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/canvasflow/pkg/cache"
	"github.com/matzehuels/canvasflow/pkg/config"
	"github.com/matzehuels/canvasflow/pkg/session"
)

// cacheCommand groups the commands that manage local state: the reply cache
// and saved sessions.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the reply cache and saved sessions",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "clear",
			Short: "Delete all cached provider replies",
			Args:  cobra.NoArgs,
			RunE:  c.runCacheClear,
		},
		&cobra.Command{
			Use:   "prune",
			Short: "Delete expired and unreadable sessions",
			Args:  cobra.NoArgs,
			RunE:  c.runCachePrune,
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the reply cache directory",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := c.loadConfig()
				if err != nil {
					return err
				}
				dir, err := cacheDir(cfg)
				if err != nil {
					return err
				}
				fmt.Println(dir)
				return nil
			},
		},
	)
	return cmd
}

// cacheDir returns cache.dir from the config, or ~/.cache/canvasflow.
func cacheDir(cfg *config.Config) (string, error) {
	if cfg != nil && cfg.Cache.Dir != "" {
		return cfg.Cache.Dir, nil
	}
	return config.DefaultCacheDir()
}

func (c *CLI) runCacheClear(cmd *cobra.Command, args []string) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if cfg.Cache.Backend == config.BackendRedis {
		printWarning("Redis entries expire after %s; nothing stored locally", cfg.Cache.TTL)
		return nil
	}
	dir, err := cacheDir(cfg)
	if err != nil {
		return err
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		printInfo("Cache is empty")
		return nil
	}

	fc, err := cache.NewFileCache(dir)
	if err != nil {
		return err
	}
	n, err := fc.Clear()
	if err != nil {
		return err
	}
	printSuccess("Cleared %d cached replies", n)
	printDetail("%s", dir)
	return nil
}

func (c *CLI) runCachePrune(cmd *cobra.Command, args []string) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	store, err := session.NewFileStore(cfg.History.Dir)
	if err != nil {
		return err
	}
	if err := store.Cleanup(cmd.Context()); err != nil {
		return err
	}
	printSuccess("Pruned expired sessions")
	printDetail("%s", store.Dir())
	return nil
}
