package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/NancyGarg/transcribe-ai/db"
	"github.com/NancyGarg/transcribe-ai/repository"
)

var redisCmd = &cobra.Command{
	Use:         "redis",
	Short:       "Check the Redis connection and the stored library key",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{consoleLogs: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		f := console
		f.Info(fmt.Sprintf("Redis %s:%s, DB %d", cfg.RedisHost, cfg.RedisPort, cfg.RedisDB))

		client, err := db.ConnectRedis(cfg)
		if err != nil {
			return err
		}
		defer client.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()
		if err := db.CheckRedis(ctx, client); err != nil {
			return err
		}
		f.Success("Read/write check passed")

		entries, err := repository.NewRedisRecordingRepository(client, cfg.RedisKey).Load(ctx)
		if err != nil {
			return fmt.Errorf("read %s: %w", cfg.RedisKey, err)
		}
		ttl, err := client.TTL(ctx, cfg.RedisKey).Result()
		if err != nil {
			return err
		}
		f.Info(fmt.Sprintf("Key %s holds %d recordings (ttl %s)", cfg.RedisKey, len(entries), ttl))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(redisCmd)
}
