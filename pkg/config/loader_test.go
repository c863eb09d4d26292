package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromFileJsonMC(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "mockman.conf")

	content := `{
		// single static server
		"servers": [
			{
				"server": {"serverId": "svc-a", "port": 8080},
				"expectations": [
					{
						"match": {"method": "GET", "path": "/ping"},
						"response": {"kind": "static", "static": {"statusCode": 200, "body": "pong"}}
					}
				]
			}
		]
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	doc, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Len(t, doc.Servers, 1)
	assert.Equal(t, "svc-a", doc.Servers[0].Server.ServerID)
	assert.Equal(t, 8080, doc.Servers[0].Server.Port)
	require.Len(t, doc.Servers[0].Expectations, 1)
	assert.Equal(t, "static", doc.Servers[0].Expectations[0].Response.Kind)
}

func TestLoadFromFileEnvExpansion(t *testing.T) {
	t.Setenv("MOCKMAN_TEST_PORT", "9100")
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "mockman.conf")

	content := `{"servers": [{"server": {"serverId": "svc-a", "port": @{MOCKMAN_TEST_PORT}}}]}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	doc, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, doc.Servers[0].Server.Port)
}

func TestLoadFromFileYAML(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "mockman.yaml")

	content := "servers:\n  - server:\n      serverId: svc-b\n      port: 8081\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	doc, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Len(t, doc.Servers, 1)
	assert.Equal(t, "svc-b", doc.Servers[0].Server.ServerID)
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "does-not-exist.conf"))
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestLoadFromFileEmpty(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "empty.conf")
	require.NoError(t, os.WriteFile(path, []byte{}, 0644))

	_, err := LoadFromFile(path)
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestDocumentValidateRejectsDuplicateServerID(t *testing.T) {
	doc := &Document{Servers: []ServerDocument{
		{Server: ServerBlock{ServerID: "dup"}},
		{Server: ServerBlock{ServerID: "dup"}},
	}}
	assert.Error(t, doc.Validate())
}

func TestDocumentValidateRejectsBlankServerID(t *testing.T) {
	doc := &Document{Servers: []ServerDocument{{Server: ServerBlock{ServerID: ""}}}}
	assert.Error(t, doc.Validate())
}
