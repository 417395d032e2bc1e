package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Lllllllleong/prescriptionreader/internal/models"
	"github.com/Lllllllleong/prescriptionreader/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPublisher struct {
	called int
	data   [][]byte
	attrs  []map[string]string
}

func (s *stubPublisher) Publish(ctx context.Context, data []byte, attrs map[string]string) error {
	s.called++
	s.data = append(s.data, data)
	s.attrs = append(s.attrs, attrs)
	return nil
}

func TestPubSubSink_PublishesPersistedOnly(t *testing.T) {
	pub := &stubPublisher{}
	sink := NewPubSubSink(pub)
	ts := time.Unix(1_700_000_000, 0).UTC()

	sink.Emit(pipeline.Recognized{Text: "x"})
	sink.Emit(pipeline.Failed{Stage: pipeline.StageUploadBlob})
	sink.Emit(pipeline.Persisted{ScanID: "s1", URL: "u", ImageKey: "k", OwnerID: "alice", Timestamp: ts})

	require.Equal(t, 1, pub.called)
	var ev models.ScanEvent
	require.NoError(t, json.Unmarshal(pub.data[0], &ev))
	assert.Equal(t, models.ScanEvent{ScanID: "s1", ImageURL: "u", ImageKey: "k", OwnerID: "alice", Timestamp: ts}, ev)
	assert.Equal(t, "scan.persisted", pub.attrs[0]["type"])
}
