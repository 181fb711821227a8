// Package dmdata – telegram body decoding.
//
// A telegram body arrives as base64(gzip(JSON)). DecodeBody reverses both
// layers and returns the inner JSON bytes; any failure is wrapped in a
// DecodeError identifying the stage so callers can log and drop the single
// item without affecting the rest of the batch.
package dmdata

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"io"
)

// maxBodyBytes caps the decompressed size of a single telegram body. A
// telegram is a few KiB of JSON; anything near this limit is hostile input.
const maxBodyBytes = 8 << 20

// DecodeBody decodes one telegram body into raw JSON bytes.
func DecodeBody(item RawTelegramItem) ([]byte, error) {
	compressed, err := base64.StdEncoding.DecodeString(item.Body)
	if err != nil {
		return nil, &DecodeError{ItemID: item.ID, Stage: "base64", Err: err}
	}

	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, &DecodeError{ItemID: item.ID, Stage: "gzip", Err: err}
	}
	defer zr.Close()

	raw, err := io.ReadAll(io.LimitReader(zr, maxBodyBytes))
	if err != nil {
		return nil, &DecodeError{ItemID: item.ID, Stage: "gzip", Err: err}
	}

	if !json.Valid(raw) {
		return nil, &DecodeError{ItemID: item.ID, Stage: "json", Err: errInvalidJSON}
	}
	return raw, nil
}

var errInvalidJSON = errInvalid("body is not valid JSON")

type errInvalid string

func (e errInvalid) Error() string { return string(e) }
