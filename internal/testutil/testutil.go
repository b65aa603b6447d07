// Package testutil provides shared test utilities and fixtures.
//
// The frame builders produce checksum-sealed Nortek frames so decoder and
// session tests can describe streams record by record instead of as hex.
package testutil

import (
	"bytes"
	"testing"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// Stream concatenates frames into a single byte stream.
func Stream(frames ...[]byte) []byte {
	return bytes.Join(frames, nil)
}

// AssertNoStraySync fails the test if a sync byte appears anywhere in frame
// after its first byte. Resync tests depend on frames that cannot produce a
// false sync when scanned from the inside.
func AssertNoStraySync(t testing.TB, frame []byte) {
	t.Helper()
	if i := bytes.IndexByte(frame[1:], Sync); i >= 0 {
		t.Fatalf("frame type 0x%02X has a stray sync byte at offset %d", frame[1], i+1)
	}
}
