package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/spf13/cobra"

	"github.com/NancyGarg/transcribe-ai/storage"
)

var (
	minioPrefix  string
	minioStats   bool
	minioOrphans bool
	minioDelete  bool
)

var minioCmd = &cobra.Command{
	Use:         "minio",
	Short:       "Inspect the audio bucket",
	Long:        `Lists mirrored recordings in the MinIO bucket, prints bucket statistics and finds objects no longer in the library.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{consoleLogs: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		f := console
		f.Info(fmt.Sprintf("MinIO %s, bucket %s", cfg.MinioEndpoint, cfg.MinioBucket))

		client, err := storage.NewMinioClient(cfg)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		objects, stats, err := storage.ListBucketObjects(ctx, client, cfg.MinioBucket, minioPrefix)
		if err != nil {
			return err
		}

		switch {
		case minioOrphans || minioDelete:
			return minioOrphanReport(ctx, client, objects)
		case minioStats:
			f.Info(fmt.Sprintf("Objects: %d", stats.TotalObjects))
			f.Info(fmt.Sprintf("Total size: %s", storage.FormatSize(stats.TotalSize)))
			if !stats.LastModified.IsZero() {
				f.Info(fmt.Sprintf("Last modified: %s", stats.LastModified.Local().Format("2006-01-02 15:04:05")))
			}
		default:
			for _, o := range objects {
				fmt.Printf("  %-48s %10s  %s\n", o.Key, storage.FormatSize(o.Size), o.LastModified.Local().Format("2006-01-02 15:04"))
			}
			f.Info(fmt.Sprintf("%d objects, %s", stats.TotalObjects, storage.FormatSize(stats.TotalSize)))
		}
		return nil
	},
}

func minioOrphanReport(ctx context.Context, client *minio.Client, objects []storage.ObjectInfo) error {
	f := console
	a, err := newApp(ctx, cfg, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	known := make(map[string]bool)
	for _, e := range a.ctrl.Recordings() {
		known[e.ID] = true
	}
	orphans := storage.OrphanedObjects(objects, known)
	if len(orphans) == 0 {
		f.Success("No orphaned objects")
		return nil
	}
	for _, id := range orphans {
		name := storage.ObjectName(id)
		if !minioDelete {
			f.Warning(fmt.Sprintf("Orphaned: %s", name))
			continue
		}
		if err := client.RemoveObject(ctx, cfg.MinioBucket, name, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("remove %s: %w", name, err)
		}
		f.Success(fmt.Sprintf("Removed %s", name))
	}
	return nil
}

func init() {
	minioCmd.Flags().StringVarP(&minioPrefix, "prefix", "p", storage.ObjectPrefix, "object prefix to list")
	minioCmd.Flags().BoolVarP(&minioStats, "stats", "s", false, "print bucket statistics")
	minioCmd.Flags().BoolVar(&minioOrphans, "orphans", false, "list objects whose recording is no longer in the library")
	minioCmd.Flags().BoolVar(&minioDelete, "delete-orphans", false, "remove orphaned objects")
	rootCmd.AddCommand(minioCmd)
}
