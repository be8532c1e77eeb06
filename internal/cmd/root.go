// Package cmd implements the sitetheme command line.
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/yacchi/sitetheme"
	"github.com/yacchi/sitetheme/internal/log"
	"github.com/yacchi/sitetheme/storage"
	"github.com/yacchi/sitetheme/storage/fs"
	"github.com/yacchi/sitetheme/storage/redis"
)

// Version is reported by "sitetheme --version".
const Version = "0.1.0"

// globalOptions holds the persistent flags shared by every subcommand.
type globalOptions struct {
	logLevel    string
	storageDir  string
	redisAddr   string
	redisPrefix string
	configPath  string
}

// NewRootCommand builds the sitetheme command tree.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "sitetheme",
		Short: "Inspect and distribute the shared site configuration",
		Long: `sitetheme reads the site configuration, persists the current theme in a
shared store and follows changes made by other processes.

Examples:
  # Look up a text entry with a fallback
  sitetheme get text.guestTitle --default "Welcome"

  # Publish a new theme to every running watcher
  sitetheme push theme.yaml

  # Follow theme changes through Redis
  sitetheme watch --redis localhost:6379`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.Configure(log.Config{Level: opts.logLevel, Output: cmd.ErrOrStderr()})
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error); defaults to $LOG_LEVEL or info")
	flags.StringVar(&opts.storageDir, "storage-dir", "", "directory of the file system store (default: user config dir)")
	flags.StringVar(&opts.redisAddr, "redis", "", "Redis address; uses Redis instead of the file system store")
	flags.StringVar(&opts.redisPrefix, "redis-prefix", redis.DefaultPrefix, "key and channel prefix in Redis")
	flags.StringVar(&opts.configPath, "config", "", "site configuration file merged over the built-in defaults")

	root.AddCommand(
		newGetCommand(opts),
		newCSSCommand(opts),
		newPushCommand(opts),
		newWatchCommand(opts),
	)
	return root
}

// Execute runs the command tree with the process arguments.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

// loadStore returns the configuration store selected by --config.
func (o *globalOptions) loadStore(ctx context.Context) (*sitetheme.Store, error) {
	if o.configPath == "" {
		return sitetheme.Default(), nil
	}
	return sitetheme.LoadStore(ctx, o.configPath)
}

// openStorage opens the persistent store selected by --redis or --storage-dir.
func (o *globalOptions) openStorage(ctx context.Context) (storage.Storage, error) {
	if o.redisAddr != "" {
		return redis.Dial(ctx, redis.Config{Addr: o.redisAddr, Prefix: o.redisPrefix},
			redis.WithLogger(log.WithComponent("redis")))
	}

	dir := o.storageDir
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolve storage dir: %w", err)
		}
		dir = filepath.Join(base, "sitetheme")
	}
	return fs.New(dir), nil
}
