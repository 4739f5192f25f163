package events_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/five82/webcodecsgo/internal/events"
)

func TestDispatcher_OnDequeueSetClearFires(t *testing.T) {
	d := events.New()
	calls := 0
	d.SetOnDequeue(func() { calls++ })
	assert.NotNil(t, d.OnDequeue())

	d.Dispatch(events.TypeDequeue)
	assert.Equal(t, 1, calls)

	d.SetOnDequeue(nil)
	assert.Nil(t, d.OnDequeue())
	d.Dispatch(events.TypeDequeue)
	assert.Equal(t, 1, calls)
}

func TestDispatcher_AddRemoveEventListener(t *testing.T) {
	d := events.New()
	calls := 0
	token := d.AddEventListener(events.TypeDequeue, func() { calls++ }, false)

	d.Dispatch(events.TypeDequeue)
	assert.Equal(t, 1, calls)

	d.RemoveEventListener(events.TypeDequeue, token)
	d.Dispatch(events.TypeDequeue)
	assert.Equal(t, 1, calls)
}

func TestDispatcher_ListenersAndOnDequeueBothFire(t *testing.T) {
	d := events.New()
	var order []string
	d.AddEventListener(events.TypeDequeue, func() { order = append(order, "listener") }, false)
	d.SetOnDequeue(func() { order = append(order, "ondequeue") })

	d.Dispatch(events.TypeDequeue)
	assert.Equal(t, []string{"listener", "ondequeue"}, order)
}

func TestDispatcher_MultipleListenersSameType(t *testing.T) {
	d := events.New()
	var seen []int
	d.AddEventListener(events.TypeDequeue, func() { seen = append(seen, 1) }, false)
	d.AddEventListener(events.TypeDequeue, func() { seen = append(seen, 2) }, false)

	d.Dispatch(events.TypeDequeue)
	assert.Equal(t, []int{1, 2}, seen)
}
