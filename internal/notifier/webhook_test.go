package notifier_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-flow/internal/adapter"
	"github.com/feral-file/ff-flow/internal/domain"
	"github.com/feral-file/ff-flow/internal/mocks"
	"github.com/feral-file/ff-flow/internal/notifier"
	"github.com/feral-file/ff-flow/internal/webhook"
)

func TestWebhookNotifier_SignedDelivery(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := mocks.NewMockClock(ctrl)
	clock.EXPECT().Now().Return(now)

	var (
		body    []byte
		headers http.Header
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		headers = r.Header.Clone()
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	n := notifier.NewWebhookNotifier(adapter.NewHTTPClient(5*time.Second), clock, "s3cret", true)
	assert.Equal(t, domain.ChannelWebhook, n.Channel())

	err := n.Send(context.Background(), notifier.Message{
		Target: server.URL,
		Payload: map[string]any{
			"workflowName": "Whale watch",
			"status":       webhook.StatusSuccess,
		},
	})
	require.NoError(t, err)

	assert.JSONEq(t, `{"workflowName":"Whale watch","status":"success"}`, string(body))
	assert.Equal(t, strconv.FormatInt(now.Unix(), 10), headers.Get(webhook.HeaderTimestamp))
	require.NotEmpty(t, headers.Get(webhook.HeaderEventID))
	assert.NoError(t, webhook.Verify("s3cret", body,
		headers.Get(webhook.HeaderEventID),
		headers.Get(webhook.HeaderTimestamp),
		headers.Get(webhook.HeaderSignature),
		time.Minute, now))
}

func TestWebhookNotifier_UnsignedWithoutSecret(t *testing.T) {
	var headers http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := notifier.NewWebhookNotifier(adapter.NewHTTPClient(5*time.Second), adapter.NewClock(), "", true)
	err := n.Send(context.Background(), notifier.Message{Target: server.URL, Payload: map[string]string{"a": "b"}})
	require.NoError(t, err)
	assert.Empty(t, headers.Get(webhook.HeaderSignature))
}

func TestWebhookNotifier_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	n := notifier.NewWebhookNotifier(adapter.NewHTTPClient(5*time.Second), adapter.NewClock(), "", true)
	err := n.Send(context.Background(), notifier.Message{Target: server.URL, Payload: map[string]string{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")

	strict := notifier.NewWebhookNotifier(adapter.NewHTTPClient(time.Second), adapter.NewClock(), "", false)
	err = strict.Send(context.Background(), notifier.Message{Target: "http://insecure.test"})
	assert.Error(t, err)
}
