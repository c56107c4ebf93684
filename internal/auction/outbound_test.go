package auction

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sabuhakaya/Carties/pkg/models"
)

// mockPublisher implements EventPublisher for testing.
type mockPublisher struct {
	published []publishedMsg
	err       error
}

type publishedMsg struct {
	RoutingKey    string
	Body          []byte
	CorrelationID string
}

func (m *mockPublisher) Publish(ctx context.Context, routingKey string, body []byte, correlationID string) error {
	m.published = append(m.published, publishedMsg{
		RoutingKey:    routingKey,
		Body:          body,
		CorrelationID: correlationID,
	})
	return m.err
}

type fakeCommitter struct {
	err       error
	committed bool
}

func (f *fakeCommitter) Commit() error {
	f.committed = true
	return f.err
}

func testEnvelope(t *testing.T) models.Envelope {
	t.Helper()
	env, err := models.NewEnvelope(models.EventAuctionDeleted, "corr-1", 2, models.AuctionDeleted{ID: "a-1"})
	if err != nil {
		t.Fatalf("envelope: %v", err)
	}
	return env
}

func TestPublishAndCommit(t *testing.T) {
	tests := []struct {
		name       string
		publishErr error
		commitErr  error
		want       bool
		wantWarn   bool
	}{
		{"publish and commit succeed", nil, nil, true, false},
		{"publish failure does not block commit", errors.New("broker down"), nil, true, false},
		{"commit failure after publish", nil, errors.New("db down"), false, true},
		{"both fail", errors.New("broker down"), errors.New("db down"), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.DebugLevel)
			pub := &mockPublisher{err: tt.publishErr}
			uow := &fakeCommitter{err: tt.commitErr}
			out := &Outbound{Publisher: pub, Log: zap.New(core)}

			got := out.PublishAndCommit(context.Background(), uow, testEnvelope(t))
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
			if !uow.committed {
				t.Error("expected commit to be attempted")
			}
			if len(pub.published) != 1 {
				t.Fatalf("expected publish before commit, got %d", len(pub.published))
			}
			if pub.published[0].RoutingKey != "auction.deleted" || pub.published[0].CorrelationID != "corr-1" {
				t.Errorf("unexpected publish: %+v", pub.published[0])
			}

			warned := logs.FilterMessage("event published for uncommitted change").Len() == 1
			if warned != tt.wantWarn {
				t.Errorf("expected warn=%v, got %v", tt.wantWarn, warned)
			}
		})
	}
}
