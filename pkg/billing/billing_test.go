package billing

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplit_SumsToTotal(t *testing.T) {
	totals := []int64{0, 1, 3, 7, 100, 999, 10000, 99999, 1234567}

	for _, total := range totals {
		provider, site := Split(total)
		assert.Equal(t, total, provider+site, "rounding leak at total=%d", total)
		assert.GreaterOrEqual(t, provider, int64(0))
		assert.GreaterOrEqual(t, site, int64(0))
	}
}

func TestSplit_ProviderGets75Percent(t *testing.T) {
	for _, total := range []int64{100, 1000, 10000} {
		provider, _ := Split(total)
		assert.Equal(t, total*75/100, provider)
	}
}

func TestSplit_SingleHalala(t *testing.T) {
	provider, site := Split(1)
	assert.Equal(t, int64(0), provider)
	assert.Equal(t, int64(1), site)
}

func TestProofHash(t *testing.T) {
	sum := sha256.Sum256([]byte("job-1|sess-1|10000|1700000000"))
	expected := hex.EncodeToString(sum[:])

	assert.Equal(t, expected, ProofHash("job-1", "sess-1", 10000, 1700000000))
	assert.NotEqual(t, expected, ProofHash("job-2", "sess-1", 10000, 1700000000))
}

func TestVerify(t *testing.T) {
	proof := ProofHash("job-1", "sess-1", 10000, 1700000000)

	assert.True(t, Verify("job-1", "sess-1", 10000, 1700000000, proof))
	assert.False(t, Verify("job-1", "sess-1", 99999, 1700000000, proof), "tampered amount must be detected")
	assert.False(t, Verify("job-1", "sess-1", 10000, 1700000000, strings.Repeat("deadbeef", 8)))
}

func TestDisplaySAR(t *testing.T) {
	assert.Equal(t, "100.50 SAR", DisplaySAR(10050))
	assert.Equal(t, "0.00 SAR", DisplaySAR(0))
	assert.Equal(t, "0.01 SAR", DisplaySAR(1))
	assert.Equal(t, "12345.67 SAR", DisplaySAR(1234567))
}
