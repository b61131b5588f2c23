package templates

import (
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Embedded(t *testing.T) {
	templates, err := Load(FS)
	require.NoError(t, err)

	for _, name := range []string{"index.html", "submit.html", "login.html", "messages.html", "message.html"} {
		assert.Contains(t, templates, name)
	}
	assert.NotContains(t, templates, "base.html")
	assert.NotContains(t, templates, "partials.html")
}

func TestLoad_BrokenTemplate(t *testing.T) {
	fsys := fstest.MapFS{
		"base.html":     {Data: []byte(`{{template "content" .}}`)},
		"partials.html": {Data: []byte(``)},
		"bad.html":      {Data: []byte(`{{define "content"}}{{noSuchFunc .Data}}{{end}}`)},
	}
	_, err := Load(fsys)
	assert.Error(t, err)
}

func TestStatic(t *testing.T) {
	_, err := fs.Stat(Static(), "style.css")
	assert.NoError(t, err)
	_, err = fs.Stat(Static(), "counter.js")
	assert.NoError(t, err)
}
