package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/NancyGarg/transcribe-ai/config"
	"github.com/NancyGarg/transcribe-ai/core/audio"
	"github.com/NancyGarg/transcribe-ai/core/capture"
	"github.com/NancyGarg/transcribe-ai/core/recording"
	"github.com/NancyGarg/transcribe-ai/core/transcribe"
	"github.com/NancyGarg/transcribe-ai/db"
	"github.com/NancyGarg/transcribe-ai/logger"
	"github.com/NancyGarg/transcribe-ai/model"
	"github.com/NancyGarg/transcribe-ai/repository"
	"github.com/NancyGarg/transcribe-ai/storage"
)

type appOptions struct {
	Notifier recording.Notifier
	// Resume re-queues transcriptions left unfinished by an earlier run.
	Resume bool
	// Watch marks recordings failed when their audio is removed while running.
	Watch bool
}

// app is the wired controller plus everything it needs closed on exit.
type app struct {
	cfg       *config.Config
	ctrl      *recording.Controller
	local     *storage.LocalAudioStore
	audio     recording.AudioStore
	processor *audio.FFmpegProcessor

	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config, opts appOptions) (_ *app, err error) {
	a := &app{cfg: cfg}
	defer func() {
		if err != nil {
			a.closeResources()
		}
	}()

	store, err := a.openStore()
	if err != nil {
		return nil, err
	}
	if a.audio, err = a.openAudioStore(ctx); err != nil {
		return nil, err
	}
	tr, err := transcribe.New(cfg)
	if err != nil {
		return nil, err
	}

	a.processor = audio.NewFFmpegProcessor(cfg.FFmpegPath)
	recorder := capture.NewFFmpegRecorder(capture.Options{
		FFmpegPath:  cfg.FFmpegPath,
		InputFormat: cfg.CaptureInputFormat,
		InputDevice: cfg.CaptureInputDevice,
		TempDir:     cfg.TempDir,
		Interval:    cfg.ProgressInterval,
	}, a.processor)

	a.ctrl = recording.New(recording.Deps{
		Capture:     recorder,
		Store:       store,
		Audio:       a.audio,
		Transcriber: tr,
		Notifier:    opts.Notifier,
		Durations:   a.processor,
	}, recording.Options{
		ProgressInterval: cfg.ProgressInterval,
		ResumePending:    opts.Resume && cfg.ResumePending,
	})
	if err := a.ctrl.Load(ctx); err != nil {
		a.ctrl.Close()
		return nil, fmt.Errorf("load recordings: %w", err)
	}

	if opts.Watch {
		a.watch(ctx)
	}
	return a, nil
}

// openLibrary opens only the recording store, for commands that read entries
// without driving the controller.
func openLibrary(cfg *config.Config) (repository.RecordingRepository, func() error, error) {
	a := &app{cfg: cfg}
	store, err := a.openStore()
	if err != nil {
		a.closeResources()
		return nil, nil, err
	}
	return store, a.closeResources, nil
}

func (a *app) openStore() (repository.RecordingRepository, error) {
	switch a.cfg.StoreDriver {
	case "", "sqlite":
		sqlDB, err := db.OpenSQLite(a.cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, sqlDB.Close)
		return repository.NewSQLRecordingRepository(sqlDB), nil
	case "mysql":
		gormDB, err := db.ConnectGorm(a.cfg, &repository.RecordingRow{})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { return db.CloseGorm(gormDB) })
		return repository.NewGormRecordingRepository(gormDB), nil
	case "redis":
		client, err := db.ConnectRedis(a.cfg)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		return repository.NewRedisRecordingRepository(client, a.cfg.RedisKey), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", a.cfg.StoreDriver)
	}
}

func (a *app) openAudioStore(ctx context.Context) (recording.AudioStore, error) {
	local, err := storage.NewLocalAudioStore(a.cfg.RecordingsDir)
	if err != nil {
		return nil, err
	}
	a.local = local

	switch a.cfg.AudioStore {
	case "", "local":
		return local, nil
	case "minio":
		client, err := storage.NewMinioClient(a.cfg)
		if err != nil {
			return nil, err
		}
		if err := storage.EnsureBucket(ctx, client, a.cfg.MinioBucket, a.cfg.MinioRegion); err != nil {
			return nil, err
		}
		return storage.NewMinioAudioStore(local, client, a.cfg.MinioBucket), nil
	default:
		return nil, fmt.Errorf("unknown audio store %q", a.cfg.AudioStore)
	}
}

func (a *app) watch(ctx context.Context) {
	w, err := storage.NewWatcher(a.local.Dir(), a.ctrl.MarkMissing)
	if err != nil {
		logger.Warn("Audio directory watch disabled", logger.ErrorField(err))
		return
	}
	watchCtx, cancel := context.WithCancel(ctx)
	go w.Run(watchCtx)
	a.closers = append(a.closers, func() error {
		cancel()
		return w.Close()
	})
}

// get looks up a recording or reports it as not found.
func (a *app) get(id string) (model.RecordingEntry, error) {
	e, ok := a.ctrl.Get(id)
	if !ok {
		return model.RecordingEntry{}, fmt.Errorf("%w: %s", recording.ErrNotFound, id)
	}
	return *e, nil
}

// Close waits for running transcriptions, then releases the store, the
// bucket client and the watcher.
func (a *app) Close() error {
	var errs []error
	if a.ctrl != nil {
		errs = append(errs, a.ctrl.Close())
	}
	errs = append(errs, a.closeResources())
	return errors.Join(errs...)
}

func (a *app) closeResources() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// logNotifier forwards controller notifications to the log.
type logNotifier struct{}

func (logNotifier) Notify(n model.Notification) {
	if n.Level == model.NotifyError {
		logger.Warn("Notification", logger.String("title", n.Title), logger.String("message", n.Message))
		return
	}
	logger.Info("Notification", logger.String("title", n.Title), logger.String("message", n.Message))
}
