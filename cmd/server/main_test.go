package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, version+"\n", out.String())
}

func TestRootFlags(t *testing.T) {
	cmd := newRootCmd()

	for _, name := range []string{"host", "port", "dev"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
	assert.Equal(t, "p", cmd.Flags().Lookup("port").Shorthand)
}

func TestApplyTimeZone(t *testing.T) {
	orig := time.Local
	defer func() { time.Local = orig }()

	applyTimeZone("America/Argentina/Buenos_Aires")
	assert.Equal(t, "America/Argentina/Buenos_Aires", time.Local.String())

	applyTimeZone("Not/AZone")
	assert.Equal(t, "America/Argentina/Buenos_Aires", time.Local.String())
}
