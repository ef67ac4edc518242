package adapter_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/m-mizutani/arjournal/pkg/adapter"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
)

type countingNarrator struct {
	calls map[string]int
	fail  bool
}

func (n *countingNarrator) Narrate(ctx context.Context, title string) (string, error) {
	n.calls[title]++
	if n.fail {
		return "", goerr.New("service down")
	}
	return "Behold: " + title, nil
}

func TestCachedNarratorMemoizes(t *testing.T) {
	next := &countingNarrator{calls: map[string]int{}}
	cached, err := adapter.NewCachedNarrator(next, 16)
	gt.NoError(t, err)
	defer cached.Close()

	ctx := context.Background()
	for range 3 {
		text, err := cached.Narrate(ctx, "Kitchen")
		gt.NoError(t, err)
		gt.Equal(t, text, "Behold: Kitchen")
	}
	gt.Equal(t, next.calls["Kitchen"], 1)

	_, err = cached.Narrate(ctx, "Garden")
	gt.NoError(t, err)
	gt.Equal(t, next.calls["Garden"], 1)
}

func TestCachedNarratorHoldsManyTitles(t *testing.T) {
	next := &countingNarrator{calls: map[string]int{}}
	cached, err := adapter.NewCachedNarrator(next, 256)
	gt.NoError(t, err)
	defer cached.Close()

	ctx := context.Background()
	titles := make([]string, 32)
	for i := range titles {
		titles[i] = fmt.Sprintf("Memory %d", i)
		_, err := cached.Narrate(ctx, titles[i])
		gt.NoError(t, err)
	}
	for _, title := range titles {
		_, err := cached.Narrate(ctx, title)
		gt.NoError(t, err)
		gt.Equal(t, next.calls[title], 1)
	}
}

func TestCachedNarratorDoesNotCacheFailures(t *testing.T) {
	next := &countingNarrator{calls: map[string]int{}, fail: true}
	cached, err := adapter.NewCachedNarrator(next, 16)
	gt.NoError(t, err)
	defer cached.Close()

	ctx := context.Background()
	_, err = cached.Narrate(ctx, "Hall")
	gt.Error(t, err)

	next.fail = false
	text, err := cached.Narrate(ctx, "Hall")
	gt.NoError(t, err)
	gt.Equal(t, text, "Behold: Hall")
	gt.Equal(t, next.calls["Hall"], 2)
}
