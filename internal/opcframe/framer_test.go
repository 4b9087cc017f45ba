// SPDX-License-Identifier: Apache-2.0

package opcframe

import (
	"bytes"
	"testing"
)

func TestFramer_SingleMessage(t *testing.T) {
	f := New()
	f.Feed([]byte{0x01, 0x00, 0x00, 0x03, 0xAA, 0xBB, 0xCC})

	msg, ok := f.Next()
	if !ok {
		t.Fatal("Next: ok = false")
	}
	if msg.Channel != 1 || msg.Command != 0 {
		t.Errorf("Channel/Command = %d/%d, want 1/0", msg.Channel, msg.Command)
	}
	if !bytes.Equal(msg.Payload, []byte{0xAA, 0xBB, 0xCC}) {
		t.Errorf("Payload = % X", msg.Payload)
	}
	if _, ok := f.Next(); ok {
		t.Error("second Next() should return ok=false")
	}
}

func TestFramer_PartialHeaderWaits(t *testing.T) {
	f := New()
	f.Feed([]byte{0x01, 0x00})
	if _, ok := f.Next(); ok {
		t.Fatal("Next() should wait for full header")
	}
	f.Feed([]byte{0x00, 0x02, 0x11, 0x22})
	msg, ok := f.Next()
	if !ok {
		t.Fatal("Next() should succeed once payload complete")
	}
	if !bytes.Equal(msg.Payload, []byte{0x11, 0x22}) {
		t.Errorf("Payload = % X", msg.Payload)
	}
}

func TestFramer_PartialPayloadWaits(t *testing.T) {
	f := New()
	f.Feed([]byte{0x01, 0x00, 0x00, 0x05, 0x01, 0x02})
	if _, ok := f.Next(); ok {
		t.Fatal("Next() should wait for full payload")
	}
	f.Feed([]byte{0x03, 0x04, 0x05})
	msg, ok := f.Next()
	if !ok {
		t.Fatal("Next() should succeed once payload complete")
	}
	if !bytes.Equal(msg.Payload, []byte{1, 2, 3, 4, 5}) {
		t.Errorf("Payload = % X", msg.Payload)
	}
}

func TestFramer_MultipleMessagesInOneFeed(t *testing.T) {
	f := New()
	f.Feed([]byte{
		0x01, 0x00, 0x00, 0x01, 0xAA,
		0x02, 0x00, 0x00, 0x02, 0xBB, 0xCC,
	})

	m1, ok := f.Next()
	if !ok || m1.Channel != 1 || !bytes.Equal(m1.Payload, []byte{0xAA}) {
		t.Errorf("first message = %+v", m1)
	}
	m2, ok := f.Next()
	if !ok || m2.Channel != 2 || !bytes.Equal(m2.Payload, []byte{0xBB, 0xCC}) {
		t.Errorf("second message = %+v", m2)
	}
	if _, ok := f.Next(); ok {
		t.Error("third Next() should return ok=false")
	}
}

func TestFramer_ZeroLengthPayload(t *testing.T) {
	f := New()
	f.Feed([]byte{0x00, 0x01, 0x00, 0x00})
	msg, ok := f.Next()
	if !ok {
		t.Fatal("Next: ok = false")
	}
	if len(msg.Payload) != 0 {
		t.Errorf("Payload = % X, want empty", msg.Payload)
	}
}

func TestFramer_BytesFedOneAtATime(t *testing.T) {
	f := New()
	full := []byte{0x01, 0x00, 0x00, 0x02, 0x10, 0x20}
	for i, b := range full {
		f.Feed([]byte{b})
		msg, ok := f.Next()
		if i < len(full)-1 {
			if ok {
				t.Fatalf("Next() succeeded too early at byte %d", i)
			}
			continue
		}
		if !ok {
			t.Fatal("Next() should succeed on final byte")
		}
		if !bytes.Equal(msg.Payload, []byte{0x10, 0x20}) {
			t.Errorf("Payload = % X", msg.Payload)
		}
	}
}
