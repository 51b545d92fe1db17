package webhook_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-flow/internal/webhook"
)

func TestSign(t *testing.T) {
	body := []byte(`{"workflowName":"Whale watch","status":"success"}`)
	sig := webhook.Sign("secret", 1700000000, "01JG8XAMPLE1234567890123456", body)

	h := hmac.New(sha256.New, []byte("secret"))
	h.Write([]byte(fmt.Sprintf("%d.%s.%s", 1700000000, "01JG8XAMPLE1234567890123456", body)))
	assert.Equal(t, "sha256="+hex.EncodeToString(h.Sum(nil)), sig)

	t.Run("different secrets give different signatures", func(t *testing.T) {
		other := webhook.Sign("other", 1700000000, "01JG8XAMPLE1234567890123456", body)
		assert.NotEqual(t, sig, other)
	})

	t.Run("body changes are detected", func(t *testing.T) {
		other := webhook.Sign("secret", 1700000000, "01JG8XAMPLE1234567890123456", []byte(`{}`))
		assert.NotEqual(t, sig, other)
	})
}

func TestSignPayload(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	body := []byte(`{"status":"failed"}`)

	signed := webhook.SignPayload("secret", body, now)

	id, err := ulid.Parse(signed.EventID)
	require.NoError(t, err)
	assert.Equal(t, ulid.Timestamp(now), id.Time())
	assert.Equal(t, now.Unix(), signed.Timestamp)
	assert.Equal(t, webhook.Sign("secret", now.Unix(), signed.EventID, body), signed.Signature)

	headers := signed.Headers()
	assert.Equal(t, signed.EventID, headers[webhook.HeaderEventID])
	assert.Equal(t, strconv.FormatInt(now.Unix(), 10), headers[webhook.HeaderTimestamp])
	assert.Equal(t, signed.Signature, headers[webhook.HeaderSignature])

	t.Run("event ids are unique", func(t *testing.T) {
		again := webhook.SignPayload("secret", body, now)
		assert.NotEqual(t, signed.EventID, again.EventID)
	})
}

func TestVerify(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	body := []byte(`{"status":"success"}`)
	signed := webhook.SignPayload("secret", body, now)
	ts := strconv.FormatInt(signed.Timestamp, 10)

	tests := []struct {
		name      string
		secret    string
		body      []byte
		timestamp string
		signature string
		now       time.Time
		wantErr   bool
	}{
		{name: "valid", secret: "secret", body: body, timestamp: ts, signature: signed.Signature, now: now},
		{name: "wrong secret", secret: "nope", body: body, timestamp: ts, signature: signed.Signature, now: now, wantErr: true},
		{name: "tampered body", secret: "secret", body: []byte(`{}`), timestamp: ts, signature: signed.Signature, now: now, wantErr: true},
		{name: "bad timestamp", secret: "secret", body: body, timestamp: "abc", signature: signed.Signature, now: now, wantErr: true},
		{name: "stale", secret: "secret", body: body, timestamp: ts, signature: signed.Signature, now: now.Add(10 * time.Minute), wantErr: true},
		{name: "unknown scheme", secret: "secret", body: body, timestamp: ts, signature: "md5=abc", now: now, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := webhook.Verify(tt.secret, tt.body, signed.EventID, tt.timestamp, tt.signature, 5*time.Minute, tt.now)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
