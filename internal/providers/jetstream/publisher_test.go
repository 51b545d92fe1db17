package jetstream_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-flow/internal/domain"
	"github.com/feral-file/ff-flow/internal/logger"
	"github.com/feral-file/ff-flow/internal/mocks"
	flowjs "github.com/feral-file/ff-flow/internal/providers/jetstream"
)

func TestMain(m *testing.M) {
	if err := logger.Initialize(logger.Config{Debug: false}); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type testPublisherMocks struct {
	ctrl   *gomock.Controller
	natsJS *mocks.MockNatsJetStream
	conn   *mocks.MockNatsConn
	js     *mocks.MockJetStream
}

func setupTest(t *testing.T) *testPublisherMocks {
	ctrl := gomock.NewController(t)
	return &testPublisherMocks{
		ctrl:   ctrl,
		natsJS: mocks.NewMockNatsJetStream(ctrl),
		conn:   mocks.NewMockNatsConn(ctrl),
		js:     mocks.NewMockJetStream(ctrl),
	}
}

var testConfig = flowjs.Config{
	URL:            "nats://localhost:4222",
	StreamName:     "FLOW_EVENTS",
	MaxReconnects:  5,
	ReconnectWait:  time.Second,
	ConnectionName: "ff-flow-test",
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "flow.events.workflow_executed", flowjs.Subject(domain.EventWorkflowExecuted))
	assert.Equal(t, "flow.events.portfolio_alert_triggered", flowjs.Subject(domain.EventPortfolioAlertTriggered))
}

func TestNewPublisher_CreatesStream(t *testing.T) {
	m := setupTest(t)

	m.natsJS.EXPECT().Connect(testConfig.URL, gomock.Any()).Return(m.conn, m.js, nil)
	m.js.EXPECT().
		CreateOrUpdateStream(gomock.Any(), jetstream.StreamConfig{Name: "FLOW_EVENTS", Subjects: []string{"flow.events.>"}}).
		Return(nil, nil)

	pub, err := flowjs.NewPublisher(context.Background(), testConfig, m.natsJS)
	require.NoError(t, err)
	require.NotNil(t, pub)

	m.conn.EXPECT().Close()
	pub.Close()
}

func TestNewPublisher_Errors(t *testing.T) {
	t.Run("connect", func(t *testing.T) {
		m := setupTest(t)
		m.natsJS.EXPECT().Connect(gomock.Any(), gomock.Any()).Return(nil, nil, errors.New("no servers"))

		_, err := flowjs.NewPublisher(context.Background(), testConfig, m.natsJS)
		assert.ErrorContains(t, err, "no servers")
	})

	t.Run("stream", func(t *testing.T) {
		m := setupTest(t)
		m.natsJS.EXPECT().Connect(gomock.Any(), gomock.Any()).Return(m.conn, m.js, nil)
		m.js.EXPECT().CreateOrUpdateStream(gomock.Any(), gomock.Any()).Return(nil, errors.New("denied"))
		m.conn.EXPECT().Close()

		_, err := flowjs.NewPublisher(context.Background(), testConfig, m.natsJS)
		assert.ErrorContains(t, err, "denied")
	})
}

func TestPublisher_Publish(t *testing.T) {
	m := setupTest(t)
	m.natsJS.EXPECT().Connect(gomock.Any(), gomock.Any()).Return(m.conn, m.js, nil)
	m.js.EXPECT().CreateOrUpdateStream(gomock.Any(), gomock.Any()).Return(nil, nil)

	pub, err := flowjs.NewPublisher(context.Background(), testConfig, m.natsJS)
	require.NoError(t, err)

	at := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	event := domain.NewWorkflowDeletedEvent("wf-1", at)

	m.js.EXPECT().
		Publish(gomock.Any(), "flow.events.workflow_deleted", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, data []byte, _ ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
			var got map[string]any
			require.NoError(t, json.Unmarshal(data, &got))
			assert.Equal(t, "WORKFLOW_DELETED", got["type"])
			assert.Equal(t, map[string]any{"workflowId": "wf-1"}, got["payload"])
			return &jetstream.PubAck{Stream: "FLOW_EVENTS", Sequence: 1}, nil
		})
	require.NoError(t, pub.Publish(context.Background(), event))

	m.js.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("timeout"))
	err = pub.Publish(context.Background(), event)
	assert.ErrorContains(t, err, "timeout")
}
