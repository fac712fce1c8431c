package passwords

import (
	"errors"
	"strings"
	"testing"
)

func TestGenerate(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		p, err := Generate()
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if len(p) != GeneratedLength {
			t.Fatalf("length: got %d, want %d", len(p), GeneratedLength)
		}
		for _, c := range p {
			if !strings.ContainsRune(alphabet, c) {
				t.Fatalf("unexpected character %q in %q", c, p)
			}
		}
		if seen[p] {
			t.Fatalf("duplicate password generated: %q", p)
		}
		seen[p] = true
	}
}

func TestHashAndCheck(t *testing.T) {
	h, err := Hash("correct horse")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !Check(h, "correct horse") {
		t.Error("expected Check to accept the original password")
	}
	if Check(h, "wrong horse") {
		t.Error("expected Check to reject a different password")
	}
}

func TestHash_TooShort(t *testing.T) {
	if _, err := Hash("short"); !errors.Is(err, ErrTooShort) {
		t.Errorf("expected ErrTooShort, got %v", err)
	}
}

func TestGenerateHashed(t *testing.T) {
	plain, hash, err := GenerateHashed()
	if err != nil {
		t.Fatalf("GenerateHashed: %v", err)
	}
	if !Check(hash, plain) {
		t.Error("hash does not match generated password")
	}
}
