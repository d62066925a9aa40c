package v1

import (
	"encoding/json"
	"testing"
	"time"
)

func TestEnvelopeDecodesTypedPayload(t *testing.T) {
	total := 3
	data, err := json.Marshal(PollChanged{PollID: "poll_1", Reason: "vote_cast", Selections: []string{"opt_a"}, TotalVotes: &total})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	raw, err := json.Marshal(Envelope{
		EventID:          "evt-1",
		EventType:        "engagement.poll.changed",
		OccurredAt:       time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC),
		SourceService:    "engagement-engine",
		SchemaVersion:    1,
		PartitionKeyPath: "poll_id",
		PartitionKey:     "poll_1",
		Data:             data,
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}

	var envelope Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	var payload PollChanged
	if err := envelope.Decode(&payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.PollID != "poll_1" || payload.TotalVotes == nil || *payload.TotalVotes != 3 {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestPayloadsOmitOptionalFields(t *testing.T) {
	data, err := json.Marshal(PollChanged{PollID: "poll_1", Reason: "selection_changed"})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	if got := string(data); got != `{"poll_id":"poll_1","reason":"selection_changed"}` {
		t.Fatalf("unexpected encoding %s", got)
	}
	data, err = json.Marshal(MembershipChanged{Kind: "like", EntityID: "post_1", Reason: "toggled", Liked: true, Count: 2})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	if got := string(data); got != `{"kind":"like","entity_id":"post_1","reason":"toggled","liked":true,"count":2}` {
		t.Fatalf("unexpected encoding %s", got)
	}
}
