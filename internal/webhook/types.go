package webhook

// Header names attached to signed webhook deliveries
const (
	// HeaderEventID carries a ULID, unique and time-sortable per delivery
	HeaderEventID = "X-Webhook-Event-ID"
	// HeaderTimestamp carries the Unix time the signature was produced
	HeaderTimestamp = "X-Webhook-Timestamp"
	// HeaderSignature carries "sha256=<hex>"
	HeaderSignature = "X-Webhook-Signature"
)

// Status values used in the generic webhook payload
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Signed holds the headers for one signed delivery
type Signed struct {
	EventID   string
	Timestamp int64
	Signature string
}

// Headers returns the signature headers as a map ready for an HTTP request
func (s Signed) Headers() map[string]string {
	return map[string]string{
		HeaderEventID:   s.EventID,
		HeaderTimestamp: formatInt(s.Timestamp),
		HeaderSignature: s.Signature,
	}
}
