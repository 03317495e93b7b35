package limitqueue

import (
	"testing"

	"github.com/link-light/apexquant/exchtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrainStillAtLimitPartial(t *testing.T) {
	t.Parallel()
	q := New()

	o1 := &exchtypes.Order{OrderID: "o1", Symbol: "600000"}
	o2 := &exchtypes.Order{OrderID: "o2", Symbol: "600000"}
	q.PushUpper(o1)
	q.PushUpper(o2)

	res := q.DrainUpper("600000", false)
	require.Len(t, res.Released, 1, "max(1, 2/10) == 1")
	assert.Equal(t, "o1", res.Released[0].OrderID, "FIFO order preserved")
	assert.False(t, res.Opened)

	assert.True(t, q.Contains("o2"))
	assert.False(t, q.Contains("o1"))
}

func TestDrainOpenedReleasesAll(t *testing.T) {
	t.Parallel()
	q := New()

	o1 := &exchtypes.Order{OrderID: "o1", Symbol: "600000"}
	o2 := &exchtypes.Order{OrderID: "o2", Symbol: "600000"}
	q.PushUpper(o1)
	q.PushUpper(o2)

	res := q.DrainUpper("600000", true)
	require.Len(t, res.Released, 2)
	assert.Equal(t, "o1", res.Released[0].OrderID)
	assert.Equal(t, "o2", res.Released[1].OrderID)
}

func TestRemoveFromQueueIdempotent(t *testing.T) {
	t.Parallel()
	q := New()
	o1 := &exchtypes.Order{OrderID: "o1", Symbol: "600000"}
	q.PushUpper(o1)

	assert.True(t, q.RemoveFromQueue("o1"))
	assert.False(t, q.RemoveFromQueue("o1"), "second removal must fail")
}

func TestDrainEmptyQueue(t *testing.T) {
	t.Parallel()
	q := New()
	res := q.DrainUpper("600000", true)
	assert.Empty(t, res.Released)
}
