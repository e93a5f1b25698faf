package dynamodb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"refdata-backend/domain/history"
)

func sampleFact() *history.Fact {
	return &history.Fact{
		Seq: 42,
		Event: history.Event{
			EntityID:    "item-1",
			EntityClass: "refbook_item",
			Version:     3,
			Timestamp:   time.Date(2026, 8, 15, 10, 30, 0, 123456789, time.UTC),
			Type:        history.EventTypeUpdate,
			ActorID:     "user-1",
			SessionID:   "session-1",
		},
		Payload: history.DiffPayload{
			FieldChanges: map[string]string{history.FieldValue: "beta"},
			AddedLinks:   map[string][]string{history.LinkChild: {"c1"}},
			RemovedLinks: map[string][]string{history.LinkChild: {"c0"}},
		},
	}
}

func TestFactToRecord_Keys(t *testing.T) {
	record := factToRecord(sampleFact())

	assert.Equal(t, "FACTS#item-1", record.PK)
	assert.Equal(t, "FACT#2026-08-15T10:30:00.123456789Z#000000000042", record.SK)
	assert.Equal(t, "CLASS#refbook_item", record.GSI2PK)
	assert.Equal(t, record.SK, record.GSI2SK)
	assert.Equal(t, "update", record.EventType)
	assert.Equal(t, int64(42), record.Seq)
}

func TestFactRecord_SortKeyOrdersBySeqWithinTimestamp(t *testing.T) {
	f1 := sampleFact()
	f1.Seq = 9
	f2 := sampleFact()
	f2.Seq = 10

	// zero-padding keeps lexicographic order aligned with numeric order
	assert.Less(t, factToRecord(f1).SK, factToRecord(f2).SK)
}

func TestRecordRoundTrip(t *testing.T) {
	original := sampleFact()
	rebuilt, err := recordToFact(*factToRecord(original))
	require.NoError(t, err)

	assert.Equal(t, original.Seq, rebuilt.Seq)
	assert.Equal(t, original.Event, rebuilt.Event)
	assert.Equal(t, original.Payload.FieldChanges, rebuilt.Payload.FieldChanges)
	assert.Equal(t, original.Payload.AddedLinks, rebuilt.Payload.AddedLinks)
	assert.Equal(t, original.Payload.RemovedLinks, rebuilt.Payload.RemovedLinks)
}

func TestRecordToFact_BadTimestamp(t *testing.T) {
	record := factToRecord(sampleFact())
	record.Timestamp = "not-a-timestamp"
	_, err := recordToFact(*record)
	assert.Error(t, err)
}

func TestRecordToFact_EmptyPayloadSections(t *testing.T) {
	f := sampleFact()
	f.Payload = history.NewDiffPayload()
	rebuilt, err := recordToFact(*factToRecord(f))
	require.NoError(t, err)
	assert.True(t, rebuilt.Payload.IsEmpty())
}

func TestSortFacts(t *testing.T) {
	base := time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)
	a := sampleFact()
	a.Seq = 2
	a.Event.Timestamp = base
	b := sampleFact()
	b.Seq = 1
	b.Event.Timestamp = base
	c := sampleFact()
	c.Seq = 3
	c.Event.Timestamp = base.Add(-time.Minute)

	facts := []*history.Fact{a, b, c}
	sortFacts(facts)

	assert.Equal(t, []int64{3, 1, 2}, []int64{facts[0].Seq, facts[1].Seq, facts[2].Seq})
}
