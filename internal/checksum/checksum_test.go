package checksum_test

import (
	"bytes"
	"strings"
	"testing"

	"evd-go/internal/checksum"
)

func TestSum(t *testing.T) {
	t.Run("matches the known digest of abc", func(t *testing.T) {
		digest, n, err := checksum.Sum(strings.NewReader("abc"))
		if err != nil {
			t.Fatalf("Sum() error = %v", err)
		}
		want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
		if digest != want {
			t.Errorf("digest = %s, want %s", digest, want)
		}
		if n != 3 {
			t.Errorf("n = %d, want 3", n)
		}
	})

	t.Run("empty input hashes to the empty digest", func(t *testing.T) {
		digest, n, err := checksum.Sum(bytes.NewReader(nil))
		if err != nil {
			t.Fatalf("Sum() error = %v", err)
		}
		want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
		if digest != want || n != 0 {
			t.Errorf("digest = %s n = %d, want %s n = 0", digest, n, want)
		}
	})

	t.Run("SumBytes agrees with Sum", func(t *testing.T) {
		data := []byte("the quick brown fox")
		streamed, _, err := checksum.Sum(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("Sum() error = %v", err)
		}
		if got := checksum.SumBytes(data); got != streamed {
			t.Errorf("SumBytes() = %s, Sum() = %s", got, streamed)
		}
	})
}

func TestVerify(t *testing.T) {
	data := []byte("evidence bytes")
	digest := checksum.SumBytes(data)

	t.Run("matching bytes verify", func(t *testing.T) {
		ok, err := checksum.Verify(digest, bytes.NewReader(data))
		if err != nil {
			t.Fatalf("Verify() error = %v", err)
		}
		if !ok {
			t.Error("Verify() = false, want true")
		}
	})

	t.Run("altered bytes do not verify", func(t *testing.T) {
		ok, err := checksum.Verify(digest, bytes.NewReader([]byte("Evidence bytes")))
		if err != nil {
			t.Fatalf("Verify() error = %v", err)
		}
		if ok {
			t.Error("Verify() = true, want false")
		}
	})
}

func TestValid(t *testing.T) {
	tests := []struct {
		name   string
		digest string
		want   bool
	}{
		{"well-formed", checksum.SumBytes([]byte("x")), true},
		{"too short", "abc123", false},
		{"uppercase refused", strings.ToUpper(checksum.SumBytes([]byte("x"))), false},
		{"non-hex characters", strings.Repeat("g", 64), false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := checksum.Valid(tt.digest); got != tt.want {
				t.Errorf("Valid(%q) = %v, want %v", tt.digest, got, tt.want)
			}
		})
	}
}
