package main

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"energy_dashboard/internal/config"
	"energy_dashboard/internal/logging"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func TestRunSimulation(t *testing.T) {
	cfg := testConfig(t)

	var buf bytes.Buffer
	require.NoError(t, runSimulation(&buf, cfg, 5, 42))

	out := buf.String()
	assert.Contains(t, out, "TICK")
	assert.Contains(t, out, "GRID")
	assert.Contains(t, out, "15 min home average")
	// header, separators and one row per tick
	assert.GreaterOrEqual(t, strings.Count(out, "\n"), 5)
}

func TestRunSimulation_Deterministic(t *testing.T) {
	cfg := testConfig(t)

	var a, b bytes.Buffer
	require.NoError(t, runSimulation(&a, cfg, 10, 7))
	require.NoError(t, runSimulation(&b, cfg, 10, 7))
	assert.Equal(t, a.String(), b.String())
}

func TestPrintTemperatures(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printTemperatures(&buf, []string{"0", "2.5", "5"}))

	out := buf.String()
	assert.Contains(t, out, "15.00")
	assert.Contains(t, out, "18.90")
	assert.Contains(t, out, "23.40")
}

func TestPrintTemperatures_Invalid(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, printTemperatures(&buf, []string{"warm"}))
	assert.Error(t, printTemperatures(&buf, []string{"NaN"}))
}

func TestSimulateCmd_RejectsBadFlags(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"simulate", "--weather", "foggy"})
	assert.Error(t, cmd.Execute())

	cmd = newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"simulate", "--ticks", "0"})
	assert.Error(t, cmd.Execute())
}

func TestSimulateCmd(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"simulate", "-n", "3", "-w", "rainy", "--manual"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "SOLAR")
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestServe_Shutdown(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.Addr = freeAddr(t)
	cfg.Simulation.AutoStart = false

	logger, err := logging.New(logging.Options{Level: "error"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, cfg, logger.Logger) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + cfg.Server.Addr + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("server did not shut down")
	}
}
