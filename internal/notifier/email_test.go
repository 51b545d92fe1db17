package notifier_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-flow/internal/domain"
	"github.com/feral-file/ff-flow/internal/mocks"
	"github.com/feral-file/ff-flow/internal/notifier"
)

func TestEmailConfig_Validate(t *testing.T) {
	assert.Error(t, notifier.EmailConfig{}.Validate())
	assert.Error(t, notifier.EmailConfig{From: "not an address"}.Validate())
	assert.NoError(t, notifier.EmailConfig{From: "alerts@example.com"}.Validate())
}

func TestEmailNotifier_Send(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		msg        notifier.Message
		sendErr    error
		wantErr    bool
		wantParts  []string
		wantAbsent []string
	}{
		{
			name: "plain text only",
			msg:  notifier.Message{Target: "alice@example.com", Subject: "Workflow Executed: W", Text: "It ran"},
			wantParts: []string{
				"From: \"Web3Flow\" <alerts@example.com>\r\n",
				"To: alice@example.com\r\n",
				"Subject: Workflow Executed: W\r\n",
				"Content-Type: text/plain; charset=UTF-8\r\n",
				"It ran",
			},
			wantAbsent: []string{"multipart/alternative"},
		},
		{
			name: "html alternative",
			msg:  notifier.Message{Target: "Alice <alice@example.com>", Subject: "S", Text: "plain", HTML: "<p>plain</p>"},
			wantParts: []string{
				"To: alice@example.com\r\n",
				"multipart/alternative",
				"Content-Type: text/html; charset=UTF-8",
				"<p>plain</p>",
			},
		},
		{
			name:      "non ascii subject is encoded",
			msg:       notifier.Message{Target: "alice@example.com", Subject: "🚨 Workflow Failure: W", Text: "x"},
			wantParts: []string{"Subject: =?utf-8?q?"},
		},
		{
			name:    "relay error",
			msg:     notifier.Message{Target: "alice@example.com", Subject: "S", Text: "x"},
			sendErr: errors.New("relay down"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			clock := mocks.NewMockClock(ctrl)
			clock.EXPECT().Now().Return(now).AnyTimes()
			sender := mocks.NewMockSMTPSender(ctrl)

			var raw string
			sender.EXPECT().
				SendMail(gomock.Any(), "alerts@example.com", []string{"alice@example.com"}, gomock.Any()).
				DoAndReturn(func(_ context.Context, _ string, _ []string, msg []byte) error {
					raw = string(msg)
					return tt.sendErr
				})

			n, err := notifier.NewEmailNotifier(notifier.EmailConfig{From: "alerts@example.com", FromName: "Web3Flow"}, sender, clock)
			require.NoError(t, err)
			assert.Equal(t, domain.ChannelEmail, n.Channel())

			err = n.Send(context.Background(), tt.msg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			for _, part := range tt.wantParts {
				assert.Contains(t, raw, part)
			}
			for _, part := range tt.wantAbsent {
				assert.NotContains(t, raw, part)
			}
		})
	}
}

func TestEmailNotifier_InvalidRecipient(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	n, err := notifier.NewEmailNotifier(notifier.EmailConfig{From: "alerts@example.com"}, mocks.NewMockSMTPSender(ctrl), mocks.NewMockClock(ctrl))
	require.NoError(t, err)

	assert.ErrorIs(t, n.Send(context.Background(), notifier.Message{}), domain.ErrMissingEndpoint)
	assert.Error(t, n.Send(context.Background(), notifier.Message{Target: "nope"}))
}
