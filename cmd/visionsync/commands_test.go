package main

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/vision-sync/pkg/store"
)

type testEnv struct {
	dir        string
	configPath string
	modelPath  string
	vectorPath string
	hits       *int32
}

// newTestEnv writes a config pointing at temp dirs and a local model server.
func newTestEnv(t *testing.T, modelStatus int) *testEnv {
	t.Helper()
	for _, key := range []string{"DATABASE_URL", "SUPABASE_DB_URL", "GEMINI_API_KEY", "GCS_BUCKET", "MODEL_PATH", "MODEL_SHA256", "MODEL_URL", "CHROMA_DB_PATH", "VECTOR_BACKEND", "PORT", "HOST"} {
		t.Setenv(key, "")
	}

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(modelStatus)
		if modelStatus == http.StatusOK {
			w.Write([]byte("onnx-weights"))
		}
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	env := &testEnv{
		dir:        dir,
		configPath: filepath.Join(dir, "config.yaml"),
		modelPath:  filepath.Join(dir, "models", "yolov8n.onnx"),
		vectorPath: filepath.Join(dir, "chroma_store"),
		hits:       &hits,
	}

	cfg := fmt.Sprintf(`
vision:
  model_path: %q
  model_url: %q
vector:
  path: %q
  batch_size: 10
log:
  level: error
`, env.modelPath, srv.URL+"/yolov8n.onnx", env.vectorPath)
	require.NoError(t, os.WriteFile(env.configPath, []byte(cfg), 0644))
	return env
}

func (e *testEnv) run(args ...string) (string, error) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (e *testEnv) count(t *testing.T) int {
	t.Helper()
	vs, err := store.New(context.Background(), store.Config{
		Backend:    "chromem",
		Path:       e.vectorPath,
		Collection: "furniture_products",
	})
	require.NoError(t, err)
	defer vs.Close()

	n, err := vs.Count(context.Background())
	require.NoError(t, err)
	return n
}

func TestSeedCommand_IsIdempotent(t *testing.T) {
	env := newTestEnv(t, http.StatusOK)

	out, err := env.run("seed")
	require.NoError(t, err)
	assert.Contains(t, out, "collection now holds 35")

	_, err = env.run("seed")
	require.NoError(t, err)
	assert.Equal(t, 35, env.count(t))
}

func TestSeedCommand_CustomCatalog(t *testing.T) {
	env := newTestEnv(t, http.StatusOK)
	catalogPath := filepath.Join(env.dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(catalogPath, []byte(`
products:
  - id: custom_001
    name: Oak Desk
    description: Solid oak writing desk with two drawers
    category: desk
    style: rustic
    room_type: office
`), 0644))

	_, err := env.run("seed", "--catalog", catalogPath)
	require.NoError(t, err)
	assert.Equal(t, 1, env.count(t))
}

func TestSeedCommand_MissingCatalog(t *testing.T) {
	env := newTestEnv(t, http.StatusOK)

	_, err := env.run("seed", "--catalog", filepath.Join(env.dir, "missing.yaml"))
	assert.ErrorContains(t, err, "failed to load catalog")
}

func TestFetchModelCommand_UsesCache(t *testing.T) {
	env := newTestEnv(t, http.StatusOK)

	out, err := env.run("fetch-model")
	require.NoError(t, err)
	assert.Contains(t, out, "Model downloaded")

	data, err := os.ReadFile(env.modelPath)
	require.NoError(t, err)
	assert.Equal(t, "onnx-weights", string(data))

	out, err = env.run("fetch-model")
	require.NoError(t, err)
	assert.Contains(t, out, "Model already cached")
	assert.Equal(t, int32(1), atomic.LoadInt32(env.hits))
}

func TestFetchModelCommand_PinnedExport(t *testing.T) {
	env := newTestEnv(t, http.StatusInternalServerError)
	exported := []byte("exported-onnx")
	require.NoError(t, os.MkdirAll(filepath.Dir(env.modelPath), 0755))
	require.NoError(t, os.WriteFile(env.modelPath, exported, 0644))
	sum := sha256.Sum256(exported)

	t.Setenv("MODEL_SHA256", hex.EncodeToString(sum[:]))
	out, err := env.run("fetch-model")
	require.NoError(t, err)
	assert.Contains(t, out, "Model already cached")
	assert.Contains(t, out, "sha256:"+hex.EncodeToString(sum[:])[:12])
	assert.Equal(t, int32(0), atomic.LoadInt32(env.hits))

	t.Setenv("MODEL_SHA256", hex.EncodeToString(make([]byte, sha256.Size)))
	_, err = env.run("fetch-model")
	require.Error(t, err)
}

func TestWarmupCommand(t *testing.T) {
	env := newTestEnv(t, http.StatusOK)

	out, err := env.run("warmup")
	require.NoError(t, err)
	assert.Contains(t, out, "Warm-up complete")
	assert.FileExists(t, env.modelPath)
	assert.Equal(t, 35, env.count(t))
}

func TestWarmupCommand_FailedDownloadSkipsSeeding(t *testing.T) {
	env := newTestEnv(t, http.StatusNotFound)

	_, err := env.run("warmup")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch-model")
	assert.NoFileExists(t, env.modelPath)
	assert.NoDirExists(t, env.vectorPath)
}

func TestServeCommand_InvalidPort(t *testing.T) {
	env := newTestEnv(t, http.StatusOK)

	_, err := env.run("serve", "--port", "70000")
	assert.ErrorContains(t, err, "invalid config")
}

func TestServeCommand_BindFailure(t *testing.T) {
	env := newTestEnv(t, http.StatusOK)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	_, err = env.run("serve", "--host", "127.0.0.1", "--port", strconv.Itoa(port))
	assert.ErrorContains(t, err, "failed to listen")
}

func TestShortDigest(t *testing.T) {
	assert.Equal(t, "unverified", shortDigest(""))
	assert.Equal(t, "sha256:abc", shortDigest("abc"))
	assert.Equal(t, "sha256:0123456789ab", shortDigest("0123456789abcdef"))
}
