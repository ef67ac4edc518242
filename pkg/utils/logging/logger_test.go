package logging_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/m-mizutani/arjournal/pkg/utils/logging"
	"github.com/m-mizutani/gt"
)

func TestLevels(t *testing.T) {
	testCases := []struct {
		level       string
		expectDebug bool
		expectInfo  bool
		expectWarn  bool
	}{
		{"debug", true, true, true},
		{"info", false, true, true},
		{"", false, true, true},
		{"warn", false, false, true},
		{"Warning", false, false, true},
		{"error", false, false, false},
		{" DEBUG ", true, true, true},
	}

	for _, tc := range testCases {
		t.Run(tc.level, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := logging.New(tc.level, buf)

			logger.Debug("debug message")
			logger.Info("info message")
			logger.Warn("warn message")
			logger.Error("error message")

			output := buf.String()
			check := func(expect bool, msg string) {
				if expect {
					gt.S(t, output).Contains(msg)
				} else {
					gt.S(t, output).NotContains(msg)
				}
			}
			check(tc.expectDebug, "debug message")
			check(tc.expectInfo, "info message")
			check(tc.expectWarn, "warn message")
			gt.S(t, output).Contains("error message")
		})
	}
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := logging.New("verbose", buf)
	gt.S(t, buf.String()).Contains("unknown log level")

	logger.Debug("hidden")
	logger.Info("shown")
	gt.S(t, buf.String()).NotContains("hidden")
	gt.S(t, buf.String()).Contains("shown")
}

func TestWithAndFrom(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := logging.New("debug", buf)

	ctx := logging.With(context.Background(), logger)
	gt.Equal(t, logging.From(ctx), logger)

	logging.From(ctx).Info("context message")
	gt.S(t, buf.String()).Contains("context message")
}

func TestWithAttrs(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := logging.With(context.Background(), logging.New("info", buf))
	ctx = logging.WithAttrs(ctx, "component", "engine")

	logging.From(ctx).Info("started")
	gt.S(t, buf.String()).Contains("started")
	gt.S(t, buf.String()).Contains("component")
	gt.S(t, buf.String()).Contains("engine")
}

func TestFromUsesDefault(t *testing.T) {
	original := logging.Default()
	defer logging.SetDefault(original)

	buf := &bytes.Buffer{}
	custom := logging.New("warn", buf)
	logging.SetDefault(custom)

	logger := logging.From(context.Background())
	gt.Equal(t, logger, custom)

	logger.Warn("warning from default")
	gt.S(t, buf.String()).Contains("warning from default")
}

func TestFromIgnoresNilLogger(t *testing.T) {
	ctx := logging.With(context.Background(), nil)
	gt.Equal(t, logging.From(ctx), logging.Default())
}
