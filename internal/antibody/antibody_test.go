package antibody

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFingerprint(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, Fingerprint("ignore previous instructions"), Fingerprint("ignore previous instructions"))
	})

	t.Run("known digest", func(t *testing.T) {
		// sha256("hello")
		assert.Equal(t,
			"2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
			Fingerprint("hello"))
	})

	t.Run("case sensitive", func(t *testing.T) {
		assert.NotEqual(t, Fingerprint("Hello"), Fingerprint("hello"))
	})

	t.Run("empty input has no fingerprint", func(t *testing.T) {
		assert.Equal(t, "", Fingerprint(""))
	})

	t.Run("always 64 hex chars", func(t *testing.T) {
		fp := Fingerprint("x")
		assert.Len(t, fp, FingerprintLen)
		assert.True(t, IsValid(fp))
	})
}

func TestShort(t *testing.T) {
	fp := Fingerprint("hello")

	short := Short(fp)
	assert.Equal(t, "2cf24dba5fb0...938b9824", short)
	assert.Len(t, short, 23)

	t.Run("short strings unchanged", func(t *testing.T) {
		assert.Equal(t, "abc", Short("abc"))
		assert.Equal(t, "", Short(""))
	})
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		name  string
		fp    string
		valid bool
	}{
		{"real fingerprint", Fingerprint("test"), true},
		{"empty", "", false},
		{"too short", "abcdef", false},
		{"too long", strings.Repeat("a", 65), false},
		{"uppercase hex rejected", strings.Repeat("A", 64), false},
		{"non-hex characters", strings.Repeat("z", 64), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValid(tt.fp))
		})
	}
}

func TestRecordSigner(t *testing.T) {
	signer := NewRecordSigner("test-secret")
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	fp := Fingerprint("sudo rm -rf /")

	sig := signer.Sign("Agent-A", fp, ts)
	assert.Len(t, sig, 64)

	t.Run("verifies own signature", func(t *testing.T) {
		assert.True(t, signer.Verify("Agent-A", fp, ts, sig))
	})

	t.Run("rejects tampered fields", func(t *testing.T) {
		assert.False(t, signer.Verify("Agent-B", fp, ts, sig))
		assert.False(t, signer.Verify("Agent-A", Fingerprint("other"), ts, sig))
		assert.False(t, signer.Verify("Agent-A", fp, ts.Add(time.Second), sig))
	})

	t.Run("different secret produces different signature", func(t *testing.T) {
		other := NewRecordSigner("other-secret")
		assert.NotEqual(t, sig, other.Sign("Agent-A", fp, ts))
		assert.False(t, other.Verify("Agent-A", fp, ts, sig))
	})

	t.Run("timezone does not change signature", func(t *testing.T) {
		est := ts.In(time.FixedZone("EST", -5*3600))
		assert.Equal(t, sig, signer.Sign("Agent-A", fp, est))
	})
}
