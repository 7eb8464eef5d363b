package main

import (
	"beermap/internal/cache"
	"beermap/internal/keys"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the session cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every session cache entry from the configured backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore(cmd.Context(), cfg.Cache, logger)
		if err != nil {
			return err
		}
		defer closeStore()
		if err := cache.Clear(cmd.Context(), store, keys.All...); err != nil {
			return err
		}
		logger.Info("session cache cleared", zap.String("backend", cfg.Cache.Backend), zap.Strings("keys", keys.All))
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
}
