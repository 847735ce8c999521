package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderOrder(t *testing.T) {
	rec := NewRecorder()
	rec.RecordExists(KindVolume, "data", false)
	rec.Record(KindVolume, ActionCreated, "data", "")
	rec.Record(KindImage, ActionPulled, "postgres:16.2", "")
	rec.Record(KindContainer, ActionRun, "db", "")

	all := rec.Events()
	require.Len(t, all, 4)
	for i, e := range all {
		assert.Equal(t, i+1, e.Seq)
		assert.NotEmpty(t, e.ID)
		assert.False(t, e.Timestamp.IsZero())
	}

	require.NotNil(t, all[0].Exists)
	assert.False(t, *all[0].Exists)
	assert.Nil(t, all[1].Exists)

	mutations := rec.Mutations()
	require.Len(t, mutations, 3)
	assert.Equal(t, ActionCreated, mutations[0].Action)
	assert.Equal(t, ActionRun, mutations[2].Action)

	assert.Len(t, rec.For(KindVolume, "data"), 2)
	assert.Empty(t, rec.For(KindVolume, "other"))
}

func TestRecorderEventsIsCopy(t *testing.T) {
	rec := NewRecorder()
	rec.Record(KindContainer, ActionRemoved, "db", "")

	got := rec.Events()
	got[0].Resource = "changed"
	assert.Equal(t, "db", rec.Events()[0].Resource)
}

func TestEventString(t *testing.T) {
	rec := NewRecorder()
	e := rec.RecordExists(KindImage, "nginx:1.25", true)
	assert.Equal(t, "image nginx:1.25 exists-check exists=true", e.String())

	e = rec.Record(KindContainer, ActionRun, "web", "")
	assert.Equal(t, "container web run", e.String())
}

func TestBrokerReceivesRecordedEvents(t *testing.T) {
	broker := NewBroker()
	broker.Start()

	sub := broker.Subscribe()
	assert.Equal(t, 1, broker.SubscriberCount())

	rec := NewRecorder()
	rec.Attach(broker)
	rec.Record(KindNetwork, ActionCreated, "backend", "")

	select {
	case e := <-sub:
		assert.Equal(t, KindNetwork, e.Kind)
		assert.Equal(t, "backend", e.Resource)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}

	broker.Stop()
	_, open := <-sub
	assert.False(t, open)
	assert.Equal(t, 0, broker.SubscriberCount())

	// Publishing after stop must not block
	rec.Record(KindNetwork, ActionCreated, "frontend", "")
	assert.Equal(t, 2, rec.Len())
}

func TestBrokerUnsubscribe(t *testing.T) {
	broker := NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	broker.Unsubscribe(sub)
	broker.Unsubscribe(sub)
	assert.Equal(t, 0, broker.SubscriberCount())
}
