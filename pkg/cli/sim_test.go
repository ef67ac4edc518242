package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/arjournal/pkg/engine"
	"github.com/m-mizutani/arjournal/pkg/geo"
	"github.com/m-mizutani/arjournal/pkg/model"
	"github.com/m-mizutani/arjournal/pkg/repository"
	"github.com/m-mizutani/arjournal/pkg/tracking"
	"github.com/m-mizutani/arjournal/pkg/usecase/memory"
	"github.com/m-mizutani/gt"
)

func newTestShell(t *testing.T) (*simShell, *bytes.Buffer) {
	t.Helper()
	ctx := context.Background()
	buf := &bytes.Buffer{}

	shell, err := newSimShell(simInput{
		Store:    memory.New(ctx, repository.NewMemory()),
		Locator:  geo.NewStatic(nil),
		Mode:     model.ModeAdd,
		Config:   engine.DefaultConfig(),
		Features: 500,
		Writer:   buf,
	})
	gt.NoError(t, err)

	stop := shell.start(ctx)
	t.Cleanup(func() { gt.NoError(t, stop()) })
	return shell, buf
}

func run(t *testing.T, s *simShell, line string) {
	t.Helper()
	quit, err := s.exec(context.Background(), line)
	gt.NoError(t, err)
	gt.False(t, quit)
}

func TestShellCreateOpenDelete(t *testing.T) {
	s, buf := newTestShell(t)

	run(t, s, "tap 195 422")
	gt.S(t, buf.String()).Contains("new memory at (")

	run(t, s, "save Coffee spot | best latte in town")
	gt.S(t, buf.String()).Contains(`saved "Coffee spot"`)
	gt.S(t, buf.String()).Contains("snapshot: true")
	gt.Equal(t, s.store.Len(), 1)
	m := s.store.List()[0]
	gt.Equal(t, m.Description, "best latte in town")

	buf.Reset()
	run(t, s, "tap 195 422")
	gt.S(t, buf.String()).Contains(`opened "Coffee spot"`)

	buf.Reset()
	run(t, s, "state")
	gt.S(t, buf.String()).Contains("state: viewing")
	gt.S(t, buf.String()).Contains(string(m.ID))

	run(t, s, "delete")
	gt.Equal(t, s.store.Len(), 0)
}

func TestShellCancel(t *testing.T) {
	s, buf := newTestShell(t)

	run(t, s, "tap 195 422")
	run(t, s, "cancel")
	gt.S(t, buf.String()).Contains("canceled")
	gt.Equal(t, s.store.Len(), 0)

	_, err := s.exec(context.Background(), "cancel")
	gt.True(t, errors.Is(err, model.ErrInvalidState))
}

func TestShellFallbackWithoutPlanes(t *testing.T) {
	s, buf := newTestShell(t)
	s.scene.ClearPlanes()

	run(t, s, "tap 195 422")
	gt.S(t, buf.String()).Contains("in front of the camera")
}

func TestShellSaveWithoutTitle(t *testing.T) {
	s, _ := newTestShell(t)

	run(t, s, "tap 195 422")
	_, err := s.exec(context.Background(), "save | only a description")
	gt.True(t, errors.Is(err, model.ErrValidation))
}

func TestShellModeAndTracking(t *testing.T) {
	s, buf := newTestShell(t)

	run(t, s, "mode explore")
	gt.S(t, buf.String()).Contains("0 visible")

	buf.Reset()
	run(t, s, "tap 195 422")
	gt.S(t, buf.String()).Contains("nothing happened")

	// The session reports limited tracking when it starts.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		ts, err := s.engine.TrackingState(context.Background())
		gt.NoError(t, err)
		if ts == tracking.StateLimited {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	run(t, s, "tracking normal")
	buf.Reset()
	run(t, s, "state")
	gt.S(t, buf.String()).Contains("mode: explore")
	gt.S(t, buf.String()).Contains("tracking: normal")

	_, err := s.exec(context.Background(), "tracking lost")
	gt.Error(t, err)
	_, err = s.exec(context.Background(), "mode fly")
	gt.True(t, errors.Is(err, model.ErrValidation))
}

func TestShellLocate(t *testing.T) {
	s, buf := newTestShell(t)
	run(t, s, "locate 35.0 139.0")
	run(t, s, "tap 195 422")
	run(t, s, "save Here")

	buf.Reset()
	run(t, s, "locate 35.01 139.0")
	gt.S(t, buf.String()).Contains("0 visible")

	buf.Reset()
	run(t, s, "locate none")
	gt.S(t, buf.String()).Contains("1 visible")
	gt.S(t, buf.String()).Contains("Here")
}

func TestShellCameraAndPlane(t *testing.T) {
	s, _ := newTestShell(t)
	run(t, s, "camera 1 1.5 0 90")
	run(t, s, "plane -0.5")

	cam, ok := s.scene.CameraPose()
	gt.True(t, ok)
	gt.Equal(t, cam.Position, model.Vec3{X: 1, Y: 1.5})

	_, err := s.exec(context.Background(), "camera 1 2")
	gt.Error(t, err)
}

func TestShellQuitAndUnknown(t *testing.T) {
	s, _ := newTestShell(t)

	quit, err := s.exec(context.Background(), "quit")
	gt.NoError(t, err)
	gt.True(t, quit)

	_, err = s.exec(context.Background(), "fly away")
	gt.Error(t, err)

	quit, err = s.exec(context.Background(), "   ")
	gt.NoError(t, err)
	gt.False(t, quit)
}

func TestNewEngineConfig(t *testing.T) {
	t.Run("defaults without file", func(t *testing.T) {
		cfg := &config{}
		ec, err := cfg.newEngineConfig()
		gt.NoError(t, err)
		gt.Equal(t, ec, engine.DefaultConfig())
	})

	t.Run("overrides from yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "arjournal.yaml")
		gt.NoError(t, os.WriteFile(path, []byte(`
radius_meters: 120
snapshot_timeout: 2s
relocalization_policy: each
narration: false
`), 0o600))

		cfg := &config{configPath: path}
		ec, err := cfg.newEngineConfig()
		gt.NoError(t, err)
		gt.Equal(t, ec.RadiusMeters, 120.0)
		gt.Equal(t, ec.SnapshotTimeout, 2*time.Second)
		gt.Equal(t, ec.RelocalizationPolicy, tracking.PolicyEach)
		gt.False(t, ec.Narration)
		gt.Equal(t, ec.FallbackDistance, float32(0.5))
	})

	t.Run("invalid policy", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "arjournal.yaml")
		gt.NoError(t, os.WriteFile(path, []byte("relocalization_policy: newest\n"), 0o600))

		cfg := &config{configPath: path}
		_, err := cfg.newEngineConfig()
		gt.True(t, errors.Is(err, model.ErrValidation))
	})

	t.Run("missing file", func(t *testing.T) {
		cfg := &config{configPath: filepath.Join(t.TempDir(), "none.yaml")}
		_, err := cfg.newEngineConfig()
		gt.Error(t, err)
	})
}

func TestNewRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("file", func(t *testing.T) {
		dir := t.TempDir()
		cfg := &config{backend: backendFile, dataDir: dir, key: repository.DefaultBlobKey}
		repo, closeRepo, err := cfg.newRepository(ctx)
		gt.NoError(t, err)
		defer closeRepo()

		gt.NoError(t, repo.SaveAll(ctx, []*model.Memory{
			{ID: "a", Title: "A", Color: model.ColorGold, CreatedAt: time.Now()},
		}))
		_, err = os.Stat(filepath.Join(dir, repository.DefaultBlobKey))
		gt.NoError(t, err)
	})

	t.Run("memory", func(t *testing.T) {
		cfg := &config{backend: backendMemory}
		_, closeRepo, err := cfg.newRepository(ctx)
		gt.NoError(t, err)
		closeRepo()
	})

	t.Run("missing settings", func(t *testing.T) {
		for _, cfg := range []*config{
			{backend: backendStorage},
			{backend: backendFirestore, database: "(default)"},
			{backend: "tape"},
		} {
			_, _, err := cfg.newRepository(ctx)
			gt.Error(t, err)
		}
	})
}

func TestNewNarratorDisabledWithoutCredentials(t *testing.T) {
	cfg := &config{}
	n, closeNarrator, err := cfg.newNarrator(context.Background())
	gt.NoError(t, err)
	gt.True(t, n == nil)
	closeNarrator()
}
