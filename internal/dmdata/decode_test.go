package dmdata

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"errors"
	"testing"
)

// encodeBody produces the provider's base64(gzip(payload)) body encoding.
func encodeBody(t *testing.T, payload []byte) string {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(payload); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestDecodeBody_RoundTrip(t *testing.T) {
	payload := []byte(`{"eventId":"EQ001","body":{"earthquake":{"magnitude":"5.2"}}}`)
	item := RawTelegramItem{ID: "t1", Body: encodeBody(t, payload)}

	raw, err := DecodeBody(item)
	if err != nil {
		t.Fatalf("DecodeBody: %v", err)
	}
	if !bytes.Equal(raw, payload) {
		t.Fatalf("DecodeBody = %q, want %q", raw, payload)
	}
}

func TestDecodeBody_BadBase64(t *testing.T) {
	item := RawTelegramItem{ID: "t2", Body: "%%% not base64 %%%"}
	_, err := DecodeBody(item)

	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected *DecodeError, got %v", err)
	}
	if de.Stage != "base64" || de.ItemID != "t2" {
		t.Fatalf("unexpected DecodeError %+v", de)
	}
}

func TestDecodeBody_BadGzip(t *testing.T) {
	item := RawTelegramItem{ID: "t3", Body: base64.StdEncoding.EncodeToString([]byte("plain, not gzip"))}
	_, err := DecodeBody(item)

	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected *DecodeError, got %v", err)
	}
	if de.Stage != "gzip" {
		t.Fatalf("expected gzip stage, got %q", de.Stage)
	}
}

func TestDecodeBody_BodyNotJSON(t *testing.T) {
	item := RawTelegramItem{ID: "t4", Body: encodeBody(t, []byte("not json at all"))}
	_, err := DecodeBody(item)

	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected *DecodeError, got %v", err)
	}
	if de.Stage != "json" {
		t.Fatalf("expected json stage, got %q", de.Stage)
	}
}
