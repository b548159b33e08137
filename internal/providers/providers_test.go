package providers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
[provider "dnb"]
url = https://services.dnb.de/oai/repository
set = dnb:reiheA
prefix = MARC21-xml

[provider "arxiv"]
url = http://export.arxiv.org/oai2
`

func TestParse(t *testing.T) {
	c, err := Parse(sample)
	require.NoError(t, err)
	require.Len(t, c.Provider, 2)

	p := c.Lookup("dnb")
	require.NotNil(t, p)
	assert.Equal(t, Provider{URL: "https://services.dnb.de/oai/repository", Set: "dnb:reiheA", Prefix: "MARC21-xml"}, *p)
	assert.Equal(t, "http://export.arxiv.org/oai2", c.Lookup("arxiv").URL)
	assert.Equal(t, &Provider{URL: "http://example.com/oai"}, c.Lookup("http://example.com/oai"))
	assert.Nil(t, c.Lookup(""))
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse("[provider \"x\"]\nunknown = 1\n")
	assert.Error(t, err)
}

func TestRead(t *testing.T) {
	dir := t.TempDir()
	c, err := Read(filepath.Join(dir, "missing.cfg"))
	require.NoError(t, err)
	assert.Empty(t, c.Provider)

	path := filepath.Join(dir, DefaultFilename)
	require.NoError(t, os.WriteFile(path, []byte(sample), 0644))
	c, err = Read(path)
	require.NoError(t, err)
	assert.Equal(t, "dnb:reiheA", c.Lookup("dnb").Set)
}
