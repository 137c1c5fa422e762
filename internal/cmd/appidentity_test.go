package cmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pippora/pippora/internal/appid"
)

func TestAppIdentityLoading(t *testing.T) {
	identity, err := appid.Get(context.Background())
	require.NoError(t, err)
	require.NotNil(t, identity)

	assert.Equal(t, "pippora", identity.Vendor)
	assert.Equal(t, "pippora", identity.BinaryName)
	assert.Equal(t, "pippora", identity.ConfigName)
	assert.Equal(t, "PIPPORA_", identity.EnvPrefix)
}
