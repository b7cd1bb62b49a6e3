package vars

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserAgent(t *testing.T) {
	old := Commit
	t.Cleanup(func() { Commit = old })

	Commit = "da15c174cd2ada1ad247906536c101e8f6799def"
	assert.Equal(t, "gsdash/"+Version+" (da15c17)", UserAgent())

	Commit = "abc"
	assert.Equal(t, "abc", CommitShort())
}

func TestFprint(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Fprint(&buf))

	assert.Contains(t, buf.String(), "name:     gsdash\n")
	assert.Contains(t, buf.String(), "built:    unknown\n")
	assert.Contains(t, buf.String(), "license:  "+License)
}
