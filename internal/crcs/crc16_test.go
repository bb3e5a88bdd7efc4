package crcs

import "testing"

func TestCRC16KnownVector(t *testing.T) {
	t.Parallel()
	got := CRC16([]byte("123456789"))
	want := uint16(0x29B1)
	if got != want {
		t.Errorf("CRC16(%q) = 0x%04X, want 0x%04X", "123456789", got, want)
	}
}

func TestCRC16RoundTrip(t *testing.T) {
	t.Parallel()
	data := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	full := AppendCRC16(append([]byte{}, data...), data)
	if !VerifyCRC16(full) {
		t.Error("VerifyCRC16 failed on round-trip data")
	}
}

func TestCRC16DetectsBitFlip(t *testing.T) {
	t.Parallel()
	data := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	full := AppendCRC16(append([]byte{}, data...), data)
	full[0] ^= 0xFF
	if VerifyCRC16(full) {
		t.Error("expected VerifyCRC16 to fail on corrupted data")
	}
}
