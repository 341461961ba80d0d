package cli

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/graff"
	"github.com/aretw0/graff/internal/config"
	"github.com/aretw0/graff/pkg/codec"
	"github.com/aretw0/graff/pkg/domain"
	"github.com/aretw0/graff/pkg/scenario"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memorySettings(t *testing.T, endpoint string) *Settings {
	t.Helper()
	s, err := Resolve(Flags{Endpoint: endpoint, Store: config.StoreMemory})
	require.NoError(t, err)
	return s
}

func TestResolve_Precedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graff.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
endpoint:
  address: tcp://file:1
  timeout: 3s
robot:
  name: from-file
session: from-file
`), 0o644))

	t.Setenv(config.EnvRobot, "from-env")
	t.Setenv(config.EnvSession, "from-env")

	s, err := Resolve(Flags{ConfigPath: path, Session: "from-flag", LogLevel: "debug"})
	require.NoError(t, err)

	assert.Equal(t, "tcp://file:1", s.Config.Endpoint.Address)
	assert.Equal(t, 3*time.Second, s.Config.Endpoint.Timeout)
	assert.Equal(t, "from-env", s.Config.Robot.Name)
	assert.Equal(t, "from-flag", s.Config.Session)
	assert.Equal(t, "debug", s.Config.Log.Level)
	assert.NotNil(t, s.Logger)
}

func TestResolve_Invalid(t *testing.T) {
	_, err := Resolve(Flags{Store: "etcd"})
	assert.Error(t, err)

	_, err = Resolve(Flags{Store: config.StoreMemory, LogLevel: "loud"})
	assert.Error(t, err)
}

func TestOpenStorage(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		st, err := OpenStorage(config.Store{Kind: config.StoreMemory})
		require.NoError(t, err)
		assert.Nil(t, st.Locker)
		assert.NoError(t, st.Close())
	})

	t.Run("file yaml", func(t *testing.T) {
		dir := t.TempDir()
		st, err := OpenStorage(config.Store{Kind: config.StoreFile, Path: dir, Format: "yaml"})
		require.NoError(t, err)
		require.NoError(t, st.Store.Save(ctx, "s1", domain.NewSession("s1")))
		assert.FileExists(t, filepath.Join(dir, "s1.yaml"))
	})

	t.Run("file bad format", func(t *testing.T) {
		_, err := OpenStorage(config.Store{Kind: config.StoreFile, Format: "xml"})
		assert.Error(t, err)
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		st, err := OpenStorage(config.Store{
			Kind:  config.StoreRedis,
			Redis: config.Redis{Addr: mr.Addr(), Prefix: "test:"},
		})
		require.NoError(t, err)
		t.Cleanup(func() { _ = st.Close() })
		require.NotNil(t, st.Locker)

		require.NoError(t, st.Store.Save(ctx, "s1", domain.NewSession("s1")))
		names, err := st.Store.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"s1"}, names)

		unlock, err := st.Locker.Lock(ctx, "s1", time.Second)
		require.NoError(t, err)
		assert.True(t, mr.Exists("test:lock:s1"))
		require.NoError(t, unlock(ctx))
	})
}

func sampleSession(t *testing.T) *domain.Session {
	t.Helper()
	s := domain.NewSession("first dive")
	x0, err := domain.NewVariable("x0", "Pose2")
	require.NoError(t, err)
	x1, err := domain.NewVariable("x1", "Pose2")
	require.NoError(t, err)
	odo, err := domain.NewNormalVector([]float64{10, 0, 1.047}, []float64{0.01, 0, 0, 0, 0.01, 0, 0, 0, 0.01})
	require.NoError(t, err)
	f, err := domain.NewFactor("Pose2Pose2", []string{"x0", "x1"}, odo)
	require.NoError(t, err)
	require.NoError(t, s.AddVariable(x0))
	require.NoError(t, s.AddVariable(x1))
	require.NoError(t, s.AddFactor(f))
	return s
}

func TestFormatSession(t *testing.T) {
	s := sampleSession(t)

	text, err := FormatSession(s, FormatJSON)
	require.NoError(t, err)
	back, err := codec.UnmarshalSnapshot([]byte(text))
	require.NoError(t, err)
	assert.Equal(t, s.ToDocument(), back.ToDocument())

	text, err = FormatSession(s, "yml")
	require.NoError(t, err)
	back, err = codec.UnmarshalSnapshotYAML([]byte(text))
	require.NoError(t, err)
	assert.Equal(t, s.ToDocument(), back.ToDocument())

	text, err = FormatSession(s, FormatMarkdown)
	require.NoError(t, err)
	assert.Contains(t, text, "| fx0x1 | Pose2Pose2 |")

	text, err = FormatSession(s, FormatMermaid)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "graph LR"))
	assert.NotContains(t, text, "classDef")

	text, err = FormatSession(s, FormatMermaid, "x1")
	require.NoError(t, err)
	assert.Contains(t, text, "class x1 focus;")

	dangling, err := domain.NewFactor("Pose2Pose2", []string{"x1", "x2"}, domain.NewNormal(0, 1))
	require.NoError(t, err)
	require.NoError(t, s.AddFactor(dangling))
	text, err = FormatSession(s, FormatMermaid)
	require.NoError(t, err)
	assert.Contains(t, text, "class fx1x2 dangling;")

	_, err = FormatSession(s, "dot")
	assert.Error(t, err)
}

func TestExportAndRemove(t *testing.T) {
	ctx := context.Background()
	st, err := OpenStorage(config.Store{Kind: config.StoreMemory})
	require.NoError(t, err)
	s := sampleSession(t)
	require.NoError(t, st.Store.Save(ctx, s.Name(), s))

	dir := t.TempDir()
	out := filepath.Join(dir, "pretty.yaml")
	require.NoError(t, ExportSession(ctx, st.Store, s.Name(), out))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	back, err := codec.UnmarshalSnapshotYAML(data)
	require.NoError(t, err)
	assert.Equal(t, 1, back.NumFactors())

	err = ExportSession(ctx, st.Store, "missing", filepath.Join(dir, "x.json"))
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	removed, err := RemoveSessions(ctx, st.Store, []string{s.Name()})
	require.NoError(t, err)
	assert.Equal(t, []string{s.Name()}, removed)
}

func TestRunScenario_Memory(t *testing.T) {
	s := memorySettings(t, "mem://")
	storage, err := OpenStorage(s.Config.Store)
	require.NoError(t, err)

	dive := scenario.DefaultDiveOptions()
	dive.Legs, dive.PosesPerLeg, dive.GridSize = 1, 2, 3

	var out bytes.Buffer
	rep, err := RunScenario(context.Background(), s, storage, RunOptions{
		Scenario: ScenarioDive,
		Dive:     dive,
		Out:      &out,
	})
	require.NoError(t, err)
	assert.Equal(t, rep.Sent, rep.Confirmed)
	assert.True(t, rep.Solved)
	assert.Contains(t, out.String(), "confirmed")

	saved, err := storage.Store.Load(context.Background(), dive.Session)
	require.NoError(t, err)
	assert.Equal(t, rep.Session.NumFactors(), saved.NumFactors())
}

func TestRunScenario_Unknown(t *testing.T) {
	s := memorySettings(t, "mem://")
	_, err := RunScenario(context.Background(), s, nil, RunOptions{Scenario: "loop", Quiet: true})
	assert.Error(t, err)
}

func TestServe_ShutdownRequest(t *testing.T) {
	type addrs struct{ zmq, http string }
	ready := make(chan addrs, 1)
	done := make(chan error, 1)
	go func() {
		done <- Serve(context.Background(), ServeOptions{
			ZMQ:   "tcp://127.0.0.1:0",
			HTTP:  "127.0.0.1:0",
			Ready: func(z, h string) { ready <- addrs{z, h} },
		})
	}()

	var a addrs
	select {
	case a = <-ready:
	case err := <-done:
		t.Fatalf("serve exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not become ready")
	}

	ctx := context.Background()
	client, err := graff.Dial(a.zmq, graff.WithTimeout(5*time.Second))
	require.NoError(t, err)
	defer client.Close()
	require.NoError(t, client.Register(ctx))

	overHTTP, err := graff.Dial(a.http, graff.WithTimeout(5*time.Second))
	require.NoError(t, err)
	defer overHTTP.Close()
	st, err := overHTTP.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Robots)

	resp, err := http.Get(a.http + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), `graff_backend_requests_served_total{request="registerRobot",status="OK"} 1`)

	require.NoError(t, client.Shutdown(ctx))
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop after requestShutdown")
	}
}

func TestServe_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, ServeOptions{
			ZMQ:   "tcp://127.0.0.1:0",
			Mock:  true,
			Ready: func(string, string) { cancel() },
		})
	}()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop on cancel")
	}
}

func TestServe_NoListeners(t *testing.T) {
	assert.Error(t, Serve(context.Background(), ServeOptions{}))
}
