package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cli struct {
	dataDir string
	envFile string
}

func newCLI(t *testing.T) *cli {
	dir := t.TempDir()
	return &cli{dataDir: filepath.Join(dir, "data"), envFile: filepath.Join(dir, "missing.env")}
}

func (c *cli) run(t *testing.T, args ...string) string {
	t.Helper()
	var out, errOut bytes.Buffer
	full := append([]string{"--data-dir", c.dataDir, "--env-file", c.envFile, "--log-level", "error"}, args...)
	err := run(context.Background(), full, &out, &errOut)
	require.NoError(t, err, "gulp %s: %s", strings.Join(args, " "), errOut.String())
	return strings.TrimSpace(out.String())
}

func TestCLI_ImportFromURL(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("1,Apple\n2,Banana\n"))
	}))
	defer ts.Close()

	c := newCLI(t)
	userOut := c.run(t, "user", "create", "Tester")
	userID, token, ok := strings.Cut(userOut, "\t")
	require.True(t, ok, userOut)
	assert.NotEmpty(t, token)

	schemaID := c.run(t, "schema", "create", "--name", "fruit",
		"--json", `{"columns":[{"column_type":"String"},{"column_type":"WikiPage","wiki":"enwiki"}]}`)
	listID := c.run(t, "list", "create", "Fruit", "--schema", schemaID, "--user", userID)
	sourceID := c.run(t, "source", "add", "--list", listID, "--user", userID,
		"--type", "url", "--format", "csv", "--location", ts.URL)

	var stats map[string]any
	require.NoError(t, json.Unmarshal([]byte(c.run(t, "import", sourceID)), &stats))
	assert.Equal(t, float64(2), stats["inserted"])

	require.NoError(t, json.Unmarshal([]byte(c.run(t, "import", sourceID)), &stats))
	assert.Equal(t, float64(0), stats["inserted"])
	assert.Equal(t, float64(2), stats["skipped"])

	assert.Equal(t, "0\t1", c.run(t, "snapshot", listID))
	assert.Equal(t, "1\t1", c.run(t, "snapshot", listID))

	var info map[string]any
	require.NoError(t, json.Unmarshal([]byte(c.run(t, "list", "info", listID)), &info))
	assert.Equal(t, float64(2), info["total"])
	assert.Equal(t, "Fruit", info["list"].(map[string]any)["name"])

	schemas := c.run(t, "schema", "list")
	assert.Contains(t, schemas, "fruit")
	assert.True(t, strings.HasPrefix(schemas, schemaID), schemas)
}

func TestCLI_UploadedFileSource(t *testing.T) {
	c := newCLI(t)
	userID, _, ok := strings.Cut(c.run(t, "user", "create", "Owner"), "\t")
	require.True(t, ok)
	otherID, _, ok := strings.Cut(c.run(t, "user", "create", "Other"), "\t")
	require.True(t, ok)

	csvPath := filepath.Join(t.TempDir(), "fruit.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("1,Apple\n2,Banana\n3,Cherry\n"), 0o644))
	fileID := c.run(t, "upload", "add", csvPath, "--user", userID)

	schemaID := c.run(t, "schema", "create", "--json", `{"columns":[{"column_type":"String"},{"column_type":"String"}]}`)
	listID := c.run(t, "list", "create", "Fruit", "--schema", schemaID, "--user", userID)

	var out, errOut bytes.Buffer
	err := run(context.Background(), []string{"--data-dir", c.dataDir, "--env-file", c.envFile,
		"source", "add", "--list", listID, "--user", otherID, "--type", "file", "--format", "csv", "--location", fileID},
		&out, &errOut)
	assert.ErrorContains(t, err, "belongs to another user")

	sourceID := c.run(t, "source", "add", "--list", listID, "--user", userID,
		"--type", "file", "--format", "csv", "--location", fileID)
	var stats map[string]any
	require.NoError(t, json.Unmarshal([]byte(c.run(t, "import", sourceID)), &stats))
	assert.Equal(t, float64(3), stats["inserted"])

	stray := filepath.Join(c.dataDir, "storage", "uploads", "stray.sz")
	require.NoError(t, os.WriteFile(stray, []byte("x"), 0o644))
	assert.Equal(t, "uploads/stray.sz", c.run(t, "upload", "prune", "--dry-run"))
	assert.FileExists(t, stray)
	assert.Equal(t, "uploads/stray.sz", c.run(t, "upload", "prune"))
	assert.NoFileExists(t, stray)
	assert.Empty(t, c.run(t, "upload", "prune"))
}

func TestCLI_InvalidArguments(t *testing.T) {
	c := newCLI(t)
	var out, errOut bytes.Buffer
	base := []string{"--data-dir", c.dataDir, "--env-file", c.envFile}

	err := run(context.Background(), append(base, "snapshot", "abc"), &out, &errOut)
	assert.ErrorContains(t, err, "invalid list id")

	err = run(context.Background(), append(base, "source", "add", "--list", "1",
		"--type", "ftp", "--format", "csv", "--location", "x"), &out, &errOut)
	assert.ErrorContains(t, err, "unsupported source type")

	err = run(context.Background(), append(base, "schema", "create", "--json", "not json"), &out, &errOut)
	assert.Error(t, err)
}

func TestCLI_Version(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"--version"}, &out, &out))
	assert.Contains(t, out.String(), version)
}
