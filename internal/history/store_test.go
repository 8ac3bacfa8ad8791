package history

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/roach88/yankhist/internal/testutil"
	"github.com/roach88/yankhist/internal/yank"
)

// newTestStore creates a store whose debounced flush never fires during a
// test, so reconciliations happen only where the test asks for them.
func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	base := []Option{
		WithUpdateDuration(time.Hour),
		WithInstanceIDGenerator(testutil.NewFixedIDGenerator("")),
	}
	s := New(append(base, opts...)...)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func info(text string) yank.Info {
	return yank.Info{Name: `"`, Type: yank.Charwise, Contents: []string{text}}
}

func addAt(t *testing.T, s *Store, ms int64, text string) yank.Entry {
	t.Helper()
	e, err := s.AddAt(time.UnixMilli(ms), info(text))
	require.NoError(t, err)
	return e
}

func values(t *testing.T, s *Store) []yank.Entry {
	t.Helper()
	got, err := s.Values(context.Background())
	require.NoError(t, err)
	return got
}

func texts(entries []yank.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = yank.ContentsToText(e.Contents)
	}
	return out
}

func TestStore_ValuesReturnsMostRecentMaxItems(t *testing.T) {
	s := newTestStore(t, WithMaxItems(3))

	addAt(t, s, 1, "A")
	addAt(t, s, 2, "B")
	addAt(t, s, 3, "C")
	addAt(t, s, 4, "D")

	got := values(t, s)
	assert.Equal(t, []string{"B", "C", "D"}, texts(got))
	assert.Equal(t, []int64{2, 3, 4}, []int64{got[0].Time, got[1].Time, got[2].Time})
	assert.Equal(t, 4, s.Len(), "below the truncate threshold nothing is collected")
}

func TestStore_InsertionOrderNotTimeOrder(t *testing.T) {
	s := newTestStore(t)

	addAt(t, s, 30, "late")
	addAt(t, s, 10, "early")
	addAt(t, s, 20, "middle")

	assert.Equal(t, []string{"late", "early", "middle"}, texts(values(t, s)))
}

func TestStore_InsertionOrderProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		maxItems := rapid.IntRange(1, 10).Draw(rt, "maxItems")
		words := rapid.SliceOfN(rapid.StringMatching(`[a-z]{1,8}`), 0, 60).Draw(rt, "words")

		s := New(WithMaxItems(maxItems), WithUpdateDuration(time.Hour))
		defer s.Close(context.Background())

		for i, w := range words {
			_, err := s.AddAt(time.UnixMilli(int64(i+1)), info(w))
			require.NoError(rt, err)
		}

		got, err := s.Values(context.Background())
		require.NoError(rt, err)

		want := words[max(0, len(words)-maxItems):]
		require.Equal(rt, len(want), len(got))
		for i := range want {
			require.Equal(rt, want[i], got[i].Contents[0])
		}
	})
}

func TestStore_IDsAreUniqueAndIncreasing(t *testing.T) {
	s := newTestStore(t)

	a := addAt(t, s, 1, "a")
	b := addAt(t, s, 2, "b")
	require.True(t, s.Delete(b.ID))
	c := addAt(t, s, 3, "c")

	assert.Equal(t, int64(1), a.ID)
	assert.Equal(t, int64(2), b.ID)
	assert.Equal(t, int64(3), c.ID, "deleted ids are never reused")
}

func TestStore_Delete(t *testing.T) {
	s := newTestStore(t)

	addAt(t, s, 1, "a")
	b := addAt(t, s, 2, "b")
	addAt(t, s, 3, "c")

	assert.True(t, s.Delete(b.ID))
	assert.False(t, s.Delete(b.ID), "already removed")
	assert.False(t, s.Delete(999))

	assert.Equal(t, []string{"a", "c"}, texts(values(t, s)))
}

func TestStore_GarbageCollection(t *testing.T) {
	s := newTestStore(t, WithMaxItems(3), WithTruncateThreshold(5))

	for i := 1; i <= 5; i++ {
		addAt(t, s, int64(i), fmt.Sprintf("e%d", i))
	}
	values(t, s)
	assert.Equal(t, 5, s.Len(), "at the threshold nothing is collected")

	addAt(t, s, 6, "e6")
	got := values(t, s)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []string{"e4", "e5", "e6"}, texts(got))
}

func TestStore_ValuesIsIdempotent(t *testing.T) {
	path := tempPath(t)
	s := newTestStore(t, WithPath(path))
	addAt(t, s, 1, "a")
	addAt(t, s, 2, "b")

	first := values(t, s)
	before := readFile(t, path)
	second := values(t, s)

	assert.Equal(t, first, second)
	assert.Equal(t, before, readFile(t, path))
}

func TestStore_AddReturnsIndependentCopy(t *testing.T) {
	s := newTestStore(t)

	in := info("original")
	e, err := s.Add(in)
	require.NoError(t, err)
	in.Contents[0] = "changed by caller"
	e.Contents[0] = "changed via entry"

	assert.Equal(t, []string{"original"}, texts(values(t, s)))
}

func TestStore_AddUsesClock(t *testing.T) {
	clk := testutil.NewManualClock(time.UnixMilli(5_000))
	s := newTestStore(t, WithClock(clk))

	e1, err := s.Add(info("a"))
	require.NoError(t, err)
	clk.Advance(1500 * time.Millisecond)
	e2, err := s.Add(info("b"))
	require.NoError(t, err)

	assert.Equal(t, int64(5_000), e1.Time)
	assert.Equal(t, int64(6_500), e2.Time)
	assert.Equal(t, time.UnixMilli(6_500), e2.CapturedAt())
}

func TestStore_ConcurrentAdds(t *testing.T) {
	path := tempPath(t)
	s := newTestStore(t, WithPath(path), WithMaxItems(1000))

	const workers, perWorker = 10, 20
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		w := w
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				_, err := s.Add(info(fmt.Sprintf("w%d-%d", w, i)))
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	got := values(t, s)
	require.Len(t, got, workers*perWorker)
	seen := make(map[int64]bool, len(got))
	for _, e := range got {
		assert.False(t, seen[e.ID], "duplicate id %d", e.ID)
		seen[e.ID] = true
	}

	reloaded := newTestStore(t, WithPath(path), WithMaxItems(1000))
	assert.Len(t, values(t, reloaded), workers*perWorker)
}

func TestStore_ValuesCancellationAbandonsWaitOnly(t *testing.T) {
	s := newTestStore(t)
	addAt(t, s, 1, "a")

	// Hold the reconciliation lock so the sync cannot finish.
	s.syncMu.Lock()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.Values(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	s.syncMu.Unlock()

	assert.Equal(t, []string{"a"}, texts(values(t, s)))
}

func TestStore_Close(t *testing.T) {
	path := tempPath(t)
	s := New(WithPath(path), WithUpdateDuration(time.Hour))
	addAt(t, s, 1, "a")

	require.NoError(t, s.Close(context.Background()))
	assert.NoError(t, s.Close(context.Background()), "second close is a no-op")

	_, err := s.Add(info("b"))
	assert.ErrorIs(t, err, ErrClosed)
	assert.False(t, s.Delete(1))
	_, err = s.Values(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.Flush(context.Background()), ErrClosed)

	assert.Equal(t, 1, countLines(readFile(t, path)), "close flushes pending entries")
}

func TestStore_DebouncedFlushWritesFile(t *testing.T) {
	path := tempPath(t)
	s := New(WithPath(path), WithUpdateDuration(20*time.Millisecond))
	defer s.Close(context.Background())

	addAt(t, s, 1, "a")
	addAt(t, s, 2, "b")

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(path)
		return err == nil && countLines(string(data)) == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStore_SetOptions(t *testing.T) {
	s := newTestStore(t)

	s.SetOptions(WithMaxItems(0), WithMtimeMargin(-time.Second), WithTruncateThreshold(3))
	got := s.Options()
	assert.Equal(t, DefaultMaxItems, got.MaxItems, "max items below 1 falls back to the default")
	assert.Zero(t, got.MtimeMargin)
	assert.Equal(t, time.Hour, got.UpdateDuration, "options not named are kept")
	assert.Equal(t, DefaultMaxItems, got.EffectiveTruncateThreshold())

	s.SetOptions(WithMaxItems(2))
	addAt(t, s, 1, "a")
	addAt(t, s, 2, "b")
	addAt(t, s, 3, "c")
	assert.Equal(t, []string{"b", "c"}, texts(values(t, s)))
}

func TestOptions_EffectiveTruncateThreshold(t *testing.T) {
	tests := []struct {
		name      string
		maxItems  int
		threshold int
		want      int
	}{
		{"unset", 100, 0, 120},
		{"negative", 10, -5, 30},
		{"below max items", 50, 10, 50},
		{"above max items", 50, 80, 80},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := Options{MaxItems: tt.maxItems, TruncateThreshold: tt.threshold}
			assert.Equal(t, tt.want, o.EffectiveTruncateThreshold())
		})
	}
}

func TestStore_LogsCarryComponentAndInstance(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s := newTestStore(t, WithLogger(logger), WithInstanceIDGenerator(testutil.NewFixedIDGenerator("inst-1")))

	assert.Equal(t, "inst-1", s.InstanceID())
	s.SetOptions(WithMaxItems(5))

	out := buf.String()
	assert.Contains(t, out, "component=history")
	assert.Contains(t, out, "instance=inst-1")
	assert.Contains(t, out, "max_items=5")
}

func TestUUIDv7Generator(t *testing.T) {
	g := UUIDv7Generator{}
	a, b := g.Generate(), g.Generate()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
	assert.Equal(t, byte('7'), a[14], "version nibble")
}
