package antibody

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// RecordSigner produces HMAC signatures over registry records so a node can
// verify the provenance of antibodies it stored.
type RecordSigner struct {
	secretKey []byte
}

func NewRecordSigner(secretKey string) *RecordSigner {
	return &RecordSigner{
		secretKey: []byte(secretKey),
	}
}

func (s *RecordSigner) Sign(agentID, fingerprint string, timestamp time.Time) string {
	payload := agentID + fingerprint + timestamp.UTC().Format(time.RFC3339Nano)
	h := hmac.New(sha256.New, s.secretKey)
	h.Write([]byte(payload))
	return hex.EncodeToString(h.Sum(nil))
}

func (s *RecordSigner) Verify(agentID, fingerprint string, timestamp time.Time, signature string) bool {
	expected := s.Sign(agentID, fingerprint, timestamp)
	return hmac.Equal([]byte(expected), []byte(signature))
}
