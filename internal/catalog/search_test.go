package catalog

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func mugs() []Product {
	return []Product{
		{ID: 2, Title: "Blue Mug", Description: "Holds coffee", Public: true, Order: 1},
		{ID: 1, Title: "Red Mug", Subtitle: "Ceramic", Description: "Holds tea", Public: true, Order: 2},
		{ID: 3, Title: "Spoon", Subtitle: "Olive WOOD", Description: "Stirs", Public: true, Order: 3},
	}
}

func titles(ps []Product) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Title
	}
	return out
}

func TestFilter_EmptyTermReturnsFullSetInOrder(t *testing.T) {
	all := mugs()
	for _, term := range []string{"", "   ", "\t"} {
		got := Filter(all, term)
		assert.Equal(t, all, got)
	}
}

func TestFilter_EmptyTermReturnsCopy(t *testing.T) {
	all := mugs()
	got := Filter(all, "")
	got[0].Title = "changed"
	assert.Equal(t, "Blue Mug", all[0].Title)
}

func TestFilter_MatchesAnyTextField(t *testing.T) {
	all := mugs()
	assert.Equal(t, []string{"Blue Mug", "Red Mug"}, titles(Filter(all, "mug")))
	assert.Equal(t, []string{"Blue Mug", "Red Mug"}, titles(Filter(all, "  MUG ")))
	assert.Equal(t, []string{"Red Mug"}, titles(Filter(all, "ceramic")))
	assert.Equal(t, []string{"Spoon"}, titles(Filter(all, "wood")))
	assert.Equal(t, []string{"Blue Mug"}, titles(Filter(all, "coffee")))
	assert.Empty(t, Filter(all, "green"))
}

func TestFilter_TitleSubstringAlwaysMatches(t *testing.T) {
	all := mugs()
	for _, p := range all {
		for i := 0; i < len(p.Title); i++ {
			for j := i + 1; j <= len(p.Title); j++ {
				sub := p.Title[i:j]
				if NormalizeTerm(sub) == "" {
					continue
				}
				assert.Contains(t, titles(Filter(all, sub)), p.Title, "term %q", sub)
			}
		}
	}
}

func TestFilter_Idempotent(t *testing.T) {
	all := mugs()
	once := Filter(all, "mug")
	assert.Equal(t, once, Filter(once, "mug"))
	assert.Len(t, all, 3)
}

func TestFilter_Unicode(t *testing.T) {
	ps := []Product{{Title: "CAFÉ Especial"}, {Title: "Chá"}}
	assert.Equal(t, []string{"CAFÉ Especial"}, titles(Filter(ps, "café")))
}

func TestDebouncer_RunsLastTriggerOnly(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	var runs atomic.Int32
	var last atomic.Value
	done := make(chan struct{}, 5)
	for _, v := range []string{"m", "mu", "mug"} {
		v := v
		d.Trigger(func() {
			runs.Add(1)
			last.Store(v)
			done <- struct{}{}
		})
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("debounced call never ran")
	}
	// give a cancelled timer a chance to misfire
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load())
	assert.Equal(t, "mug", last.Load())
}

func TestDebouncer_StopCancelsPending(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	d := NewDebouncer(20 * time.Millisecond)
	var runs atomic.Int32
	d.Trigger(func() { runs.Add(1) })
	d.Stop()
	d.Trigger(func() { runs.Add(1) })

	time.Sleep(60 * time.Millisecond)
	require.Equal(t, int32(0), runs.Load())
}
