// Package main is the entry point for the vlpaint command. It paints
// emitter light into the color attributes of a scene file, either once or
// live while the emitter file is edited.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Faultbox/vertexlight/internal/config"
	"github.com/Faultbox/vertexlight/internal/lighting"
	"github.com/Faultbox/vertexlight/internal/logger"
	"github.com/Faultbox/vertexlight/internal/paint"
	"github.com/Faultbox/vertexlight/internal/scene"
	"github.com/Faultbox/vertexlight/internal/scheduler"
)

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== VertexLight Painter ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	if config.SaveRequested() {
		if err := cfg.Save(); err != nil {
			logger.Error("saving config failed", zap.Error(err))
			logger.Sync()
			os.Exit(1)
		}
		logger.Info("config saved", zap.String("dir", config.ConfigDir()))
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Error("paint failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}

	logger.Info("painter closed normally")
}

func run(ctx context.Context, cfg *config.Config) error {
	if cfg.Scene.Path == "" {
		return errors.New("no scene file, use -scene or scene.path")
	}
	sc, err := scene.Load(cfg.Scene.Path)
	if err != nil {
		return err
	}

	if to, ok, err := cfg.Painter.Convert(); err != nil {
		return err
	} else if ok {
		if err := sc.ConvertAttribute(cfg.Painter.Attribute, to); err != nil {
			logger.Warn("attribute conversion incomplete", zap.Error(err))
		}
	}

	settings, err := cfg.Emitter.Settings()
	if err != nil {
		return err
	}

	var (
		emitter     paint.Emitter
		fileEmitter *scene.FileEmitter
	)
	if cfg.Scene.EmitterPath != "" {
		fileEmitter, err = scene.NewFileEmitter(cfg.Scene.EmitterPath, cfg.Emitter)
		if err != nil {
			return err
		}
		settings = fileEmitter.Settings()
		emitter = fileEmitter
	} else {
		pos, rot := cfg.Emitter.Transform()
		emitter = scene.StaticEmitter{Position: pos, Orientation: rot}
	}

	sess, err := paint.NewPainter().Begin(emitter, sc.Surfaces(), cfg.Painter.Attribute)
	if err != nil {
		return err
	}
	for _, te := range sess.Skipped() {
		logger.Warn("target skipped", zap.String("mesh", te.TargetID), zap.Error(te.Err))
	}

	if cfg.Live() {
		err = paintLive(ctx, cfg, sc, sess, fileEmitter)
	} else {
		err = paintOnce(sess, settings)
	}
	if err != nil {
		logger.Warn("painting finished with errors", zap.Error(err))
	}

	return finish(cfg, sc, sess)
}

func paintOnce(sess *paint.Session, settings lighting.Settings) error {
	pos, rot, err := sess.Emitter().Transform()
	if err != nil {
		return err
	}
	return sess.Repaint(settings, pos, rot)
}

func paintLive(ctx context.Context, cfg *config.Config, sc *scene.Scene, sess *paint.Session,
	fileEmitter *scene.FileEmitter) error {

	var opts []scheduler.Option
	if cfg.Scene.Output != "" {
		// Keep the output file current so an external viewer can reload it
		opts = append(opts, scheduler.WithRedraw(func() {
			if err := sc.Export(cfg.Scene.Output); err != nil {
				logger.Warn("live export failed", zap.Error(err))
			}
		}))
	}

	sched, err := scheduler.New(sess, fileEmitter, fileEmitter.Settings(), cfg.Scheduler(), opts...)
	if err != nil {
		return err
	}
	if err := sched.Start(ctx); err != nil {
		return err
	}

	go func() {
		if err := fileEmitter.Watch(ctx, sched); err != nil {
			logger.Warn("emitter watch stopped", zap.Error(err))
		}
	}()

	logger.Info("painting live, press Ctrl+C to finish",
		zap.String("emitter", fileEmitter.Path()),
		zap.Int("targets", len(sess.Targets())),
		zap.Duration("interval", cfg.Scheduler().Interval))

	<-ctx.Done()
	sched.Stop()
	sched.Wait()

	stats := sched.Stats()
	logger.Info("scheduler summary",
		zap.Uint64("ticks", stats.Ticks),
		zap.Uint64("repaints", stats.Repaints),
		zap.Uint64("failures", stats.Failures))
	return nil
}

func finish(cfg *config.Config, sc *scene.Scene, sess *paint.Session) error {
	if cfg.Painter.SaveLayer && cfg.Painter.CommitOnExit {
		if err := sess.SaveLayer(); err != nil {
			logger.Warn("saving layer failed", zap.Error(err))
		}
	}
	if err := sess.End(cfg.Painter.CommitOnExit); err != nil {
		return fmt.Errorf("ending session: %w", err)
	}
	if cfg.Scene.Output == "" {
		return nil
	}
	return sc.Export(cfg.Scene.Output)
}
