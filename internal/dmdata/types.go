// Package dmdata wraps the external earthquake-telegram provider. It exposes
// the two independent delivery channels the provider offers: a cursor-based
// polling REST API (Client) and a long-lived websocket push feed (Socket).
//
// Both channels deliver the same opaque telegram envelope; everything
// downstream of decoding is shared with the rest of the pipeline.
package dmdata

import "fmt"

// TelegramHead is the provider-assigned classification header of a telegram.
type TelegramHead struct {
	Type string `json:"type"` // e.g. "VXSE53"
}

// RawTelegramItem is the opaque envelope delivered by both feeds. Body is
// base64-encoded gzip-compressed JSON; it is decoded exactly once (see
// DecodeBody) and the raw form is not persisted.
type RawTelegramItem struct {
	ID       string       `json:"id"`
	Head     TelegramHead `json:"head"`
	Format   string       `json:"format"`   // expected "json"
	Encoding string       `json:"encoding"` // expected "base64"
	Body     string       `json:"body"`
}

// PollResponse is the provider's pull-feed page: a batch of telegrams plus
// the cursor for the next poll.
type PollResponse struct {
	Items       []RawTelegramItem `json:"items"`
	NextPooling string            `json:"nextPooling"`
}

// DecodeError reports a telegram body that could not be decoded. The failing
// item is dropped and logged; a malformed body never terminates a feed.
type DecodeError struct {
	ItemID string
	Stage  string // "base64", "gzip", or "json"
	Err    error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("dmdata: decode telegram %s (%s): %v", e.ItemID, e.Stage, e.Err)
}

// Unwrap returns the underlying decode failure.
func (e *DecodeError) Unwrap() error { return e.Err }
