package sentry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeDisabledWithoutDSN(t *testing.T) {
	err := Initialize(Config{})
	require.NoError(t, err)
}

func TestInitializeWithDSN(t *testing.T) {
	err := Initialize(Config{
		DSN:         "https://public@o0.ingest.sentry.io/0",
		Environment: "test",
		SampleRate:  0.5,
	})
	require.NoError(t, err)
	assert.True(t, IsEnabled())

	// Flush with a tiny timeout must not hang.
	Flush(1)
}
