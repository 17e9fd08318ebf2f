package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentarena/realtime-backend/internal/core/domain"
)

func TestNormalizeAddress(t *testing.T) {
	assert.Equal(t,
		"0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed",
		domain.NormalizeAddress("  0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed "),
	)
}

func TestIsHexAddress(t *testing.T) {
	tests := []struct {
		name    string
		address string
		want    bool
	}{
		{"valid lowercase", "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", true},
		{"valid mixed case", "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", true},
		{"too short", "0x5aaeb", false},
		{"missing prefix", "5aaeb6053f3e94c9b9a09f33669435e7ef1beaed00", false},
		{"non-hex characters", "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaeg", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.IsHexAddress(tt.address))
		})
	}
}

func TestChecksumAddress(t *testing.T) {
	// Reference vectors from the EIP-55 test set.
	tests := []struct {
		in   string
		want string
	}{
		{"0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"},
		{"0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359", "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"},
		{"0xdbf03b407c01e7cd3cbea99509d93f8dddc8c6fb", "0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB"},
	}

	for _, tt := range tests {
		got, err := domain.ChecksumAddress(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)

		// Checksumming is stable for case variants of the same address.
		again, err := domain.ChecksumAddress(tt.want)
		require.NoError(t, err)
		assert.Equal(t, tt.want, again)
	}
}

func TestChecksumAddress_Invalid(t *testing.T) {
	_, err := domain.ChecksumAddress("0x123")
	require.Error(t, err)
}
