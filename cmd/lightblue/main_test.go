package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lightblue-platform/lightblue_sdk_go/pkg/lightblue"
	"github.com/lightblue-platform/lightblue_sdk_go/pkg/memstore"
	"github.com/lightblue-platform/lightblue_sdk_go/pkg/query"
	"github.com/lightblue-platform/lightblue_sdk_go/pkg/request"
	"github.com/lightblue-platform/lightblue_sdk_go/pkg/response"
	"github.com/lightblue-platform/lightblue_sdk_go/pkg/transport"
)

const seedJSON = `[{"entity":"country","documents":[
	{"_id":"ca","name":"Canada","iso2Code":"CA"},
	{"_id":"fr","name":"France","iso2Code":"FR"}
]}]`

func writeSeed(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(seedJSON), 0o600))
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	for _, key := range []string{"LIGHTBLUE_RUNTIME_MODE", "LIGHTBLUE_DATA_SERVICE_URI", "LIGHTBLUE_MOCK_SEED", "LIGHTBLUE_LOG_LEVEL", "LIGHTBLUE_VERBOSE"} {
		t.Setenv(key, "")
	}
	var out bytes.Buffer
	root := newRootCmd(&out, &out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestFindCommand(t *testing.T) {
	seed := writeSeed(t)
	out, err := runCLI(t, "find",
		"--runtime-mode", "mock",
		"--mock-seed", seed,
		"--log-level", "error",
		"--entity", "country",
		"--query", `{"field":"iso2Code","op":"=","rvalue":"FR"}`,
		"--projection", `{"field":"name","include":true}`,
	)
	require.NoError(t, err)

	env := response.New(strings.TrimSpace(out))
	assert.Equal(t, int64(1), env.MatchCount())
	many, err := response.ProcessedMany[map[string]any](env)
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"name": "France"}}, many)
}

func TestCommandsSucceed(t *testing.T) {
	cases := []struct {
		name      string
		args      []string
		matched   int64
		modified  int64
		processed []map[string]any
	}{
		{
			name:      "find range",
			args:      []string{"find", "--sort", `{"name":"$asc"}`, "--from", "1", "--to", "1", "--projection", `{"field":"name","include":true}`},
			matched:   2,
			processed: []map[string]any{{"name": "France"}},
		},
		{
			name:      "insert",
			args:      []string{"insert", "--data", `[{"_id":"it","name":"Italy"},{"_id":"es","name":"Spain"}]`},
			modified:  2,
			processed: []map[string]any{},
		},
		{
			name:      "save",
			args:      []string{"save", "--data", `{"_id":"ca","name":"Kanada"}`},
			modified:  1,
			processed: []map[string]any{},
		},
		{
			name:      "save upsert",
			args:      []string{"save", "--data", `{"_id":"jp","name":"Japan"}`, "--upsert", "--projection", `{"field":"_id","include":true}`},
			modified:  1,
			processed: []map[string]any{{"_id": "jp"}},
		},
		{
			name: "update",
			args: []string{"update",
				"--query", `{"field":"_id","op":"=","rvalue":"ca"}`,
				"--update", `{"$set":{"name":"Kanada"}}`,
				"--projection", `{"field":"name","include":true}`,
			},
			matched:   1,
			modified:  1,
			processed: []map[string]any{{"name": "Kanada"}},
		},
		{
			name:      "delete",
			args:      []string{"delete", "--query", `{"field":"iso2Code","op":"$in","values":["FR","CA"]}`},
			matched:   2,
			modified:  2,
			processed: []map[string]any{},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			seed := writeSeed(t)
			args := append(tc.args, "--runtime-mode", "mock", "--mock-seed", seed, "--log-level", "error", "--entity", "country")
			out, err := runCLI(t, args...)
			require.NoError(t, err, out)

			env := response.New(strings.TrimSpace(out))
			hasErr, err := env.HasError()
			require.NoError(t, err)
			assert.False(t, hasErr, out)
			assert.Equal(t, tc.matched, env.MatchCount())
			assert.Equal(t, tc.modified, env.ModifiedCount())

			many, err := response.ProcessedMany[map[string]any](env)
			require.NoError(t, err)
			assert.Equal(t, tc.processed, many)
		})
	}
}

func TestDescriptorOmitsRangeOutsideFind(t *testing.T) {
	root := newRootCmd(&bytes.Buffer{}, &bytes.Buffer{})
	for _, op := range []request.Operation{request.OpInsert, request.OpSave, request.OpUpdate, request.OpDelete} {
		cmd, _, err := root.Find([]string{op.Segment()})
		require.NoError(t, err)
		assert.Nil(t, cmd.Flags().Lookup("from"), op)
		assert.Nil(t, cmd.Flags().Lookup("to"), op)
	}

	f := &crudFlags{entity: "country", from: -1, to: -1, data: `{"name":"Italy"}`}
	d, err := f.descriptor(request.OpInsert)
	require.NoError(t, err)
	assert.Equal(t, `{"data":[{"name":"Italy"}]}`, d.Body())
}

func TestVerboseFindKeepsStdoutClean(t *testing.T) {
	seed := writeSeed(t)
	out, err := runCLI(t, "find",
		"--runtime-mode", "mock",
		"--mock-seed", seed,
		"--log-level", "debug",
		"--verbose",
		"--entity", "country",
	)
	require.NoError(t, err)

	env := response.New(strings.TrimSpace(out))
	assert.Equal(t, int64(2), env.MatchCount())
}

func TestInsertCommandReportsServiceError(t *testing.T) {
	seed := writeSeed(t)
	out, err := runCLI(t, "insert",
		"--runtime-mode", "mock",
		"--mock-seed", seed,
		"--log-level", "error",
		"--entity", "country",
		"--data", `[{"_id":"ca","name":"Duplicate"}]`,
	)
	assert.ErrorIs(t, err, errServiceStatus)
	assert.Contains(t, out, `"status":"error"`)
}

func TestCommandFlagErrors(t *testing.T) {
	_, err := runCLI(t, "find", "--runtime-mode", "mock", "--log-level", "error")
	assert.Error(t, err)

	_, err = runCLI(t, "find", "--runtime-mode", "mock", "--log-level", "error", "--entity", "country", "--query", "{")
	assert.Error(t, err)

	_, err = runCLI(t, "delete", "--runtime-mode", "mock", "--log-level", "error", "--entity", "country")
	assert.ErrorIs(t, err, request.ErrInvalidRequest)

	_, err = runCLI(t, "find", "--runtime-mode", "http", "--log-level", "error", "--entity", "country")
	assert.Error(t, err)

	_, err = runCLI(t, "find", "--runtime-mode", "mock", "--log-level", "loud", "--entity", "country")
	assert.Error(t, err)
}

func TestSandboxRouterServesClient(t *testing.T) {
	store := memstore.New(memstore.WithBasePath(sandboxBasePath))
	srv := httptest.NewServer(newSandboxRouter(store, zap.NewNop(), 0, failConfig{}))
	defer srv.Close()

	c, err := lightblue.New(srv.URL+sandboxBasePath, transport.NewHTTP())
	require.NoError(t, err)
	ctx := context.Background()

	insert, err := request.Insert("country").Version("1.0.0").Documents(map[string]any{"_id": "ca", "name": "Canada"}).Build()
	require.NoError(t, err)
	env, err := c.ExecuteRequest(ctx, insert)
	require.NoError(t, err)
	assert.Equal(t, int64(1), env.ModifiedCount())

	find, err := request.Find("country").Version("1.0.0").Where(query.Field("name").Eq("Canada")).Build()
	require.NoError(t, err)
	env, err = c.ExecuteRequest(ctx, find)
	require.NoError(t, err)
	assert.Equal(t, int64(1), env.MatchCount())

	resp, err := http.Get(srv.URL + "/elsewhere/country/find")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSandboxFailureInjection(t *testing.T) {
	srv := httptest.NewServer(newSandboxRouter(memstore.New(), zap.NewNop(), 0, failConfig{rate: 1, code: http.StatusBadGateway}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + sandboxBasePath + "/country/find")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestParseFailConfig(t *testing.T) {
	cfg, err := parseFailConfig("")
	require.NoError(t, err)
	assert.Equal(t, failConfig{}, cfg)

	cfg, err = parseFailConfig("rate=0.25, code=503")
	require.NoError(t, err)
	assert.Equal(t, failConfig{rate: 0.25, code: 503}, cfg)

	cfg, err = parseFailConfig("rate=1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, cfg.code)

	for _, bad := range []string{"rate", "rate=x", "code=y", "speed=1"} {
		_, err := parseFailConfig(bad)
		assert.Error(t, err, bad)
	}
}
