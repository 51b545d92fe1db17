package webhook

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Sign returns "sha256=<hex>" of HMAC-SHA256 over "{timestamp}.{event_id}.{body}"
func Sign(secret string, timestamp int64, eventID string, body []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(h, "%d.%s.", timestamp, eventID)
	h.Write(body)
	return "sha256=" + hex.EncodeToString(h.Sum(nil))
}

// SignPayload signs body with a fresh ULID event id at the given time
func SignPayload(secret string, body []byte, now time.Time) Signed {
	eventID := ulid.MustNew(ulid.Timestamp(now), rand.Reader).String()
	ts := now.Unix()
	return Signed{
		EventID:   eventID,
		Timestamp: ts,
		Signature: Sign(secret, ts, eventID, body),
	}
}

// Verify checks a received signature against the body.
// Deliveries older than tolerance are rejected when tolerance is positive.
func Verify(secret string, body []byte, eventID, timestamp, signature string, tolerance time.Duration, now time.Time) error {
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp: %w", err)
	}
	if tolerance > 0 {
		age := now.Sub(time.Unix(ts, 0))
		if age > tolerance || age < -tolerance {
			return fmt.Errorf("timestamp outside tolerance: %s", age)
		}
	}
	if !strings.HasPrefix(signature, "sha256=") {
		return fmt.Errorf("unsupported signature scheme")
	}

	expected := Sign(secret, ts, eventID, body)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}
