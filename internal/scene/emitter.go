package scene

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/vertexlight/internal/config"
	"github.com/Faultbox/vertexlight/internal/lighting"
	"github.com/Faultbox/vertexlight/internal/logger"
	"github.com/Faultbox/vertexlight/pkg/math"
)

// ErrEmitterMissing is returned by Transform while the emitter file is gone.
var ErrEmitterMissing = errors.New("emitter file missing")

// StaticEmitter is an emitter that never moves.
type StaticEmitter struct {
	Position    math.Vec3
	Orientation math.Quat
}

// Transform implements paint.Emitter.
func (e StaticEmitter) Transform() (math.Vec3, math.Quat, error) {
	return e.Position, e.Orientation, nil
}

// Applier receives light setting changes. *scheduler.Scheduler implements it.
type Applier interface {
	Apply(lighting.Delta) error
}

// FileEmitter reads the emitter transform and light settings from a YAML
// file using the config emitter section format. Fields missing from the
// file fall back to the base config.
type FileEmitter struct {
	path string
	base config.EmitterConfig
	log  *zap.Logger

	mu       sync.RWMutex
	pos      math.Vec3
	rot      math.Quat
	settings lighting.Settings
	missing  bool
}

// NewFileEmitter loads the emitter file once.
func NewFileEmitter(path string, base config.EmitterConfig) (*FileEmitter, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	e := &FileEmitter{
		path: abs,
		base: base,
		log:  logger.Named("emitter"),
	}
	if _, err := e.Reload(); err != nil {
		return nil, err
	}
	return e, nil
}

// Path returns the absolute file path.
func (e *FileEmitter) Path() string {
	return e.path
}

// Transform implements paint.Emitter.
func (e *FileEmitter) Transform() (math.Vec3, math.Quat, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.missing {
		return math.Vec3{}, math.Quat{}, fmt.Errorf("%w: %s", ErrEmitterMissing, e.path)
	}
	return e.pos, e.rot, nil
}

// Settings returns the light settings from the last successful load.
func (e *FileEmitter) Settings() lighting.Settings {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.settings
}

// Reload re-reads the file and returns how the light settings changed.
// On error the previous state is kept.
func (e *FileEmitter) Reload() (lighting.Delta, error) {
	data, err := os.ReadFile(e.path)
	if err != nil {
		return lighting.Delta{}, fmt.Errorf("reading emitter: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return lighting.Delta{}, fmt.Errorf("emitter %s: file is empty", e.path)
	}

	cfg := e.base
	if cfg.Target != nil {
		t := *cfg.Target
		cfg.Target = &t
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return lighting.Delta{}, fmt.Errorf("emitter %s: %w", e.path, err)
	}
	settings, err := cfg.Settings()
	if err != nil {
		return lighting.Delta{}, fmt.Errorf("emitter %s: %w", e.path, err)
	}
	pos, rot := cfg.Transform()

	e.mu.Lock()
	defer e.mu.Unlock()
	delta := e.settings.Diff(settings)
	e.settings = settings
	e.pos, e.rot = pos, rot
	e.missing = false
	return delta, nil
}

// Watch reloads the file on every change until ctx is done. Setting
// changes are passed to apply, which may be nil.
func (e *FileEmitter) Watch(ctx context.Context, apply Applier) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Watch the directory so editors that replace the file are seen
	if err := w.Add(filepath.Dir(e.path)); err != nil {
		return err
	}
	e.log.Debug("watching emitter", zap.String("path", e.path))

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != e.path {
				continue
			}
			switch {
			case event.Op&fsnotify.Write == fsnotify.Write ||
				event.Op&fsnotify.Create == fsnotify.Create:
				e.reload(apply)
			case event.Op&fsnotify.Remove == fsnotify.Remove ||
				event.Op&fsnotify.Rename == fsnotify.Rename:
				e.mu.Lock()
				e.missing = true
				e.mu.Unlock()
				e.log.Warn("emitter file removed", zap.String("path", e.path))
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			e.log.Warn("emitter watch error", zap.Error(err))
		}
	}
}

func (e *FileEmitter) reload(apply Applier) {
	delta, err := e.Reload()
	if err != nil {
		// Partial writes fail to parse; the next write event retries
		e.log.Debug("emitter reload failed", zap.Error(err))
		return
	}
	if apply == nil || delta.IsEmpty() {
		return
	}
	if err := apply.Apply(delta); err != nil {
		e.log.Warn("emitter settings rejected", zap.Error(err))
		return
	}
	e.log.Info("emitter settings changed", zap.String("path", e.path))
}
