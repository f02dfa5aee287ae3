package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleBatchParsesAndDispatches(t *testing.T) {
	bridge := newMutationBridge(nil)

	var got []DomChange
	bridge.subscribe(func(changes []DomChange) {
		got = changes
	})

	bridge.handleBatch(`[{"kind":"added","tag":"div","text":"hello"},{"kind":"text","tag":"p","text":"updated"}]`)

	require.Len(t, got, 2)
	assert.Equal(t, "added", got[0].Kind)
	assert.Equal(t, "div", got[0].Tag)
	assert.Equal(t, "hello", got[0].Text)
	assert.Equal(t, "text", got[1].Kind)
}

func TestHandleBatchDropsMalformedPayload(t *testing.T) {
	bridge := newMutationBridge(nil)

	called := false
	bridge.subscribe(func([]DomChange) { called = true })

	bridge.handleBatch(`{not json`)
	bridge.handleBatch(`[]`)

	assert.False(t, called)
}

func TestDispatchOrderFollowsSubscriptionOrder(t *testing.T) {
	bridge := newMutationBridge(nil)

	var order []string
	for _, name := range []string{"first", "second", "third"} {
		name := name
		bridge.subscribe(func([]DomChange) {
			order = append(order, name)
		})
	}

	bridge.handleBatch(`[{"kind":"added","tag":"li"}]`)
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bridge := newMutationBridge(nil)

	count := 0
	sub := bridge.subscribe(func([]DomChange) { count++ })

	bridge.handleBatch(`[{"kind":"added","tag":"div"}]`)
	bridge.unsubscribe(sub)
	bridge.handleBatch(`[{"kind":"added","tag":"div"}]`)

	assert.Equal(t, 1, count)
}

func TestUnsubscribeUnknownIsNoOp(t *testing.T) {
	bridge := newMutationBridge(nil)
	bridge.unsubscribe(nil)
	bridge.unsubscribe(&DomSubscription{id: 42})

	sub := bridge.subscribe(func([]DomChange) {})
	bridge.unsubscribe(sub)
	bridge.unsubscribe(sub)
}

func TestUnsubscribeDuringDispatchAffectsNextBatch(t *testing.T) {
	bridge := newMutationBridge(nil)

	var sub *DomSubscription
	firstCalls, secondCalls := 0, 0
	bridge.subscribe(func([]DomChange) {
		firstCalls++
		bridge.unsubscribe(sub) // removes the later subscriber mid-dispatch
	})
	sub = bridge.subscribe(func([]DomChange) { secondCalls++ })

	bridge.handleBatch(`[{"kind":"added","tag":"div"}]`)
	bridge.handleBatch(`[{"kind":"added","tag":"div"}]`)

	assert.Equal(t, 2, firstCalls)
	// The first batch dispatches against its snapshot; removal lands after.
	assert.Equal(t, 1, secondCalls)
}

func TestSubscribeDuringDispatch(t *testing.T) {
	bridge := newMutationBridge(nil)

	lateCalls := 0
	bridge.subscribe(func([]DomChange) {
		if lateCalls == 0 {
			bridge.subscribe(func([]DomChange) { lateCalls++ })
		}
	})

	bridge.handleBatch(`[{"kind":"added","tag":"div"}]`)
	assert.Equal(t, 0, lateCalls, "a subscriber added mid-dispatch sees only later batches")

	bridge.handleBatch(`[{"kind":"added","tag":"div"}]`)
	assert.Equal(t, 1, lateCalls)
}

func TestSnapshotSkipsRemovedEntries(t *testing.T) {
	bridge := newMutationBridge(nil)
	subs := make([]*DomSubscription, 0, 5)
	for i := 0; i < 5; i++ {
		subs = append(subs, bridge.subscribe(func([]DomChange) {}))
	}
	bridge.unsubscribe(subs[1])
	bridge.unsubscribe(subs[3])
	assert.Len(t, bridge.snapshot(), 3)
}
