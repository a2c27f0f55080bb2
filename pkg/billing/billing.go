package billing

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// ProviderShare is the hardware provider's fixed percentage of job
// revenue; the site keeps the remainder
const ProviderShare = 75

// Split divides a halala amount between the hardware provider and the
// site on the fixed 75/25 contract. Integer arithmetic only: the
// provider share floors and the remainder goes to the site, so the
// parts always sum to the total.
func Split(total int64) (provider, site int64) {
	provider = total * ProviderShare / 100
	site = total - provider
	return provider, site
}

// ProofHash computes the canonical billing proof,
// SHA-256("jobId|sessionId|amount|timestamp"), hex-encoded
func ProofHash(jobID, sessionID string, amount, timestamp int64) string {
	payload := fmt.Sprintf("%s|%s|%d|%d", jobID, sessionID, amount, timestamp)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// Verify reports whether a proof hash matches the billing record it
// claims to cover
func Verify(jobID, sessionID string, amount, timestamp int64, proof string) bool {
	expected := ProofHash(jobID, sessionID, amount, timestamp)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(proof)) == 1
}

// DisplaySAR renders a halala amount as a SAR string without floating
// point: DisplaySAR(10050) == "100.50 SAR"
func DisplaySAR(halala int64) string {
	return fmt.Sprintf("%d.%02d SAR", halala/100, halala%100)
}
