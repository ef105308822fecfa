package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootServesByDefault(t *testing.T) {
	t.Setenv("DSN", "")
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("BUCKET_NAME", "")

	cmd := rootCmd()
	cmd.SetArgs([]string{"--log-level", "error"})
	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err, "root runs serve, which validates the config first")
	assert.Contains(t, err.Error(), "database dsn is required")
}

func TestVersion(t *testing.T) {
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Equal(t, "journal version "+Version+"\n", out.String())
}
