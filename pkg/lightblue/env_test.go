package lightblue_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lightblue-platform/lightblue_sdk_go/pkg/lightblue"
	"github.com/lightblue-platform/lightblue_sdk_go/pkg/query"
	"github.com/lightblue-platform/lightblue_sdk_go/pkg/request"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LIGHTBLUE_CONFIG",
		"LIGHTBLUE_RUNTIME_MODE",
		"LIGHTBLUE_DATA_SERVICE_URI",
		"LIGHTBLUE_VERBOSE",
		"LIGHTBLUE_LOG_LEVEL",
		"LIGHTBLUE_MOCK_SEED",
	} {
		t.Setenv(key, "")
	}
}

func TestNewFromEnvHTTPMode(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"status":"COMPLETE","matchCount":0,"processed":[]}`))
	}))
	defer srv.Close()

	clearEnv(t)
	t.Setenv("LIGHTBLUE_RUNTIME_MODE", "http")
	t.Setenv("LIGHTBLUE_DATA_SERVICE_URI", srv.URL+"/rest/data")

	c, mode, err := lightblue.NewFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "http", mode)

	d, err := request.Find("country").Version("1.0.0").Build()
	require.NoError(t, err)
	env, err := c.ExecuteRequest(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, "/rest/data/country/1.0.0/find", gotPath)
	assert.Equal(t, int64(0), env.MatchCount())
}

func TestNewFromEnvHTTPModeRequiresURI(t *testing.T) {
	clearEnv(t)
	t.Setenv("LIGHTBLUE_RUNTIME_MODE", "http")

	_, _, err := lightblue.NewFromEnv()
	assert.Error(t, err)
}

func TestNewFromEnvAutoFallsBackToMock(t *testing.T) {
	clearEnv(t)

	c, mode, err := lightblue.NewFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "mock", mode)
	assert.Equal(t, lightblue.MockBaseURI, c.BaseURI())

	d, err := request.Insert("country").Documents(map[string]any{"name": "Canada"}).Build()
	require.NoError(t, err)
	env, err := c.ExecuteRequest(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, int64(1), env.ModifiedCount())
}

func TestNewFromEnvAutoPrefersURI(t *testing.T) {
	clearEnv(t)
	t.Setenv("LIGHTBLUE_DATA_SERVICE_URI", "http://lightblue.example/rest/data")

	c, mode, err := lightblue.NewFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "http", mode)
	assert.Equal(t, "http://lightblue.example/rest/data", c.BaseURI())
}

func TestNewFromEnvMockSeed(t *testing.T) {
	dir := t.TempDir()
	seed := filepath.Join(dir, "seed.json")
	require.NoError(t, os.WriteFile(seed, []byte(`[{"entity":"country","documents":[{"_id":"ca","name":"Canada"}]}]`), 0o600))

	clearEnv(t)
	t.Setenv("LIGHTBLUE_RUNTIME_MODE", "mock")
	t.Setenv("LIGHTBLUE_MOCK_SEED", seed)

	c, mode, err := lightblue.NewFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "mock", mode)

	d, err := request.Find("country").Where(query.Field("_id").Eq("ca")).Build()
	require.NoError(t, err)
	env, err := c.ExecuteRequest(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, int64(1), env.MatchCount())

	t.Setenv("LIGHTBLUE_MOCK_SEED", filepath.Join(dir, "missing.json"))
	_, _, err = lightblue.NewFromEnv()
	assert.Error(t, err)
}

func TestNewFromEnvConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lightblue.yaml")
	require.NoError(t, os.WriteFile(path, []byte("runtime_mode: mock\nverbose: true\n"), 0o600))

	clearEnv(t)
	t.Setenv("LIGHTBLUE_CONFIG", path)

	_, mode, err := lightblue.NewFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "mock", mode)
}

func TestNewFromEnvRejectsUnknownMode(t *testing.T) {
	clearEnv(t)
	t.Setenv("LIGHTBLUE_RUNTIME_MODE", "grpc")

	_, _, err := lightblue.NewFromEnv()
	assert.Error(t, err)
}
