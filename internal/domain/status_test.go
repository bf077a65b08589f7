package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	status, err := ParseStatus("partially_refunded")
	require.NoError(t, err)
	assert.Equal(t, StatusPartiallyRefunded, status)

	_, err = ParseStatus("PAID")
	assert.Error(t, err)
}

func TestParseProvider(t *testing.T) {
	for _, s := range []string{"offline", "paypal", "stripe"} {
		provider, err := ParseProvider(s)
		require.NoError(t, err)
		assert.Equal(t, s, provider.String())
	}

	_, err := ParseProvider("bitcoin")
	assert.Error(t, err)

	assert.False(t, ProviderOffline.AssignsProviderID())
	assert.True(t, ProviderStripe.AssignsProviderID())
}

func TestStatusTransition(t *testing.T) {
	tests := []struct {
		name     string
		current  Status
		next     Status
		expected Status
	}{
		{"open to pending", StatusOpen, StatusPending, StatusPending},
		{"authorized to succeeded", StatusAuthorized, StatusSucceeded, StatusSucceeded},
		{"succeeded to refunded", StatusSucceeded, StatusRefunded, StatusRefunded},
		{"refunded stays on late pending", StatusRefunded, StatusPending, StatusRefunded},
		{"partially refunded stays on late authorized", StatusPartiallyRefunded, StatusAuthorized, StatusPartiallyRefunded},
		{"disputed stays on late pending", StatusDisputed, StatusPending, StatusDisputed},
		{"partially refunded to refunded", StatusPartiallyRefunded, StatusRefunded, StatusRefunded},
		{"disputed to succeeded", StatusDisputed, StatusSucceeded, StatusSucceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.current.Transition(tt.next))
		})
	}
}
