package main

import (
	"context"
	"fmt"
	"os"

	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/config"
	"github.com/spf13/cobra"
)

const encryptionKeyEnv = "TOPPLING_ENCRYPTION_KEY"

var rootCmd = &cobra.Command{
	Use:   "toppling",
	Short: "Toppling computes Aether and sandpile models on unbounded lattices",
	Long: `Toppling steps Aether and symmetric sandpile models from a single source on an
n-dimensional lattice, in memory, across threads, or streaming blocks through a store.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("config", "c", "", "YAML or JSON run configuration file")
	rootCmd.PersistentFlags().Bool("debug", false, "Log every step at debug level")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
}

// loadConfig reads --config, if given, and applies the flags the user set on top of it.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return cfg, err
		}
	}
	if key := os.Getenv(encryptionKeyEnv); key != "" && cfg.Store.EncryptionKey == "" {
		cfg.Store.EncryptionKey = key
	}
	applyFlags(cmd, &cfg)
	return cfg, nil
}

func addModelFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("variant", "aether", "Model variant (aether, siv)")
	f.IntP("dim", "d", 2, "Lattice dimension")
	f.Int("width", 64, "Cell width in bits (16, 32, 64), or 0 for arbitrary precision in memory mode")
	f.Int64P("initial", "i", 1_000_000, "Initial value at the origin")
	f.Int64("background", 0, "Background value of every other cell (siv only)")
	addModeFlags(cmd)
	f.Int64("block-size", config.Default().BlockSizeBytes, "Swap block size limit in bytes")
}

func addModeFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("mode", "m", "memory", "Execution mode (memory, parallel, swap)")
	cmd.Flags().IntP("threads", "t", 1, "Worker threads in parallel mode")
}

func addStoreFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("store", "", "Store kind (file, memory, redis, sqlite)")
	f.String("store-dir", "", "Directory of a file store")
	f.String("redis-addr", "", "Address of a redis store")
	f.String("redis-prefix", "", "Key prefix of a redis store")
	f.String("sqlite-path", "", "Database file of a sqlite store")
	f.String("backup-dir", "", "Directory receiving backups, if different from the store")
	f.String("encryption-key", "", "Hex AES-256 key sealing the store blocks (default $"+encryptionKeyEnv+")")
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().Int64P("steps", "s", 0, "Steps to run; 0 runs until stable")
	cmd.Flags().Int64("backup-every", 0, "Back up the run every n steps")
}

// applyFlags copies every flag the user set and cmd defines into cfg.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	set := func(name string, apply func()) {
		if f.Lookup(name) != nil && f.Changed(name) {
			apply()
		}
	}
	set("variant", func() { cfg.Variant, _ = f.GetString("variant") })
	set("dim", func() { cfg.Dimension, _ = f.GetInt("dim") })
	set("width", func() { cfg.Width, _ = f.GetInt("width") })
	set("initial", func() { cfg.InitialValue, _ = f.GetInt64("initial") })
	set("background", func() { cfg.Background, _ = f.GetInt64("background") })
	set("mode", func() { cfg.Mode, _ = f.GetString("mode") })
	set("threads", func() { cfg.Threads, _ = f.GetInt("threads") })
	set("block-size", func() { cfg.BlockSizeBytes, _ = f.GetInt64("block-size") })
	set("steps", func() { cfg.Steps, _ = f.GetInt64("steps") })
	set("backup-every", func() { cfg.BackupEvery, _ = f.GetInt64("backup-every") })
	set("log-level", func() { cfg.LogLevel, _ = f.GetString("log-level") })

	set("store", func() { cfg.Store.Kind, _ = f.GetString("store") })
	set("store-dir", func() {
		cfg.Store.Dir, _ = f.GetString("store-dir")
		if !f.Changed("store") {
			cfg.Store.Kind = config.StoreFile
		}
	})
	set("redis-addr", func() { cfg.Store.RedisAddr, _ = f.GetString("redis-addr") })
	set("redis-prefix", func() { cfg.Store.RedisPrefix, _ = f.GetString("redis-prefix") })
	set("sqlite-path", func() { cfg.Store.SQLitePath, _ = f.GetString("sqlite-path") })
	set("encryption-key", func() { cfg.Store.EncryptionKey, _ = f.GetString("encryption-key") })
	set("backup-dir", func() {
		dir, _ := f.GetString("backup-dir")
		cfg.Backup = config.StoreConfig{Kind: config.StoreFile, Dir: dir, EncryptionKey: cfg.Store.EncryptionKey}
	})
}
