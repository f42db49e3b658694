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
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ops-analytics/internal/domain"
	"ops-analytics/internal/feed"
)

// execute runs opsctl on memory storage without a remote feed and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("FEED_URL", "")
	return executeWithEnv(t, args...)
}

// executeWithEnv runs opsctl with an isolated config path and the caller's environment.
func executeWithEnv(t *testing.T, args ...string) (string, error) {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("OPS_STORAGE", "memory")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{
		"--config", filepath.Join(dir, "config.yaml"),
		"--env-file", filepath.Join(dir, ".env"),
	}, args...))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func TestMetricsCommand(t *testing.T) {
	out, err := execute(t, "metrics", "--window", "all")
	require.NoError(t, err)
	assert.Contains(t, out, "Window")
	assert.Contains(t, out, "all")
	assert.Contains(t, out, "Max Drawdown")
}

func TestMetricsCommand_JSON(t *testing.T) {
	out, err := execute(t, "metrics", "--window", "last-30-days", "--dimension", "market", "--json")
	require.NoError(t, err)

	var resp struct {
		Window  string `json:"window"`
		Metrics struct {
			ClosedCount int `json:"closed_count"`
			Movers      struct {
				Dimension string `json:"dimension"`
			} `json:"movers"`
		} `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Positive(t, resp.Metrics.ClosedCount)
	assert.Equal(t, "market", resp.Metrics.Movers.Dimension)
}

func TestMetricsCommand_StoresSnapshots(t *testing.T) {
	_, err := execute(t, "metrics", "--store")
	require.NoError(t, err)
}

func TestMetricsCommand_BadInput(t *testing.T) {
	_, err := execute(t, "metrics", "--window", "someday")
	assert.Error(t, err)

	_, err = execute(t, "metrics", "--dimension", "colour")
	assert.Error(t, err)
}

func TestAlertsCommand(t *testing.T) {
	out, err := execute(t, "alerts")
	require.NoError(t, err)
	assert.Contains(t, out, "RANK")
	assert.Contains(t, out, "active capital today")

	out, err = execute(t, "alerts", "--json")
	require.NoError(t, err)
	var items []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	for i, it := range items {
		assert.EqualValues(t, i+1, it["rank"])
	}
}

func TestToggleCommand(t *testing.T) {
	out, err := execute(t, "toggle", "p1", "1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "p1 day 1: "), out)

	_, err = execute(t, "toggle", "p404", "1")
	assert.Error(t, err)

	_, err = execute(t, "toggle", "p1", "0")
	assert.Error(t, err)

	_, err = execute(t, "toggle", "p1", "40")
	assert.Error(t, err)
}

func TestReportCommand(t *testing.T) {
	outDir := t.TempDir()
	out, err := execute(t, "report", "--window", "all", "--output-dir", outDir)
	require.NoError(t, err)

	for _, name := range []string{"REPORT.md", "equity.csv", "alerts.csv", "trades.csv"} {
		assert.Contains(t, out, name)
		data, err := os.ReadFile(filepath.Join(outDir, name))
		require.NoError(t, err, name)
		assert.NotEmpty(t, data, name)
	}

	md, _ := os.ReadFile(filepath.Join(outDir, "REPORT.md"))
	assert.True(t, strings.HasPrefix(string(md), "# Operations Report"))
}

func TestSeedCommand_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")
	csv := "date,category,stake,odds,outcome\n2024-05-01,sports,100,2.0,WIN\n2024-05-02,casino,50,1.5,loss\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))

	out, err := execute(t, "seed", "--csv", path)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 2 trades")

	_, err = execute(t, "seed", "--csv", filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestMigrateCommand_Memory(t *testing.T) {
	out, err := execute(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "nothing to migrate")
}

func TestVerifyCommand_NeedsFeed(t *testing.T) {
	_, err := execute(t, "verify")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "remote feed")
}

func TestVerifyCommand_AgainstFeed(t *testing.T) {
	// The feed serves the stored fixture ledger back, so both sides agree.
	fixed := time.Date(2024, 5, 19, 12, 0, 0, 0, time.UTC)
	prev := now
	now = func() time.Time { return fixed }
	defer func() { now = prev }()

	fx := feed.BuildFixtures(fixed)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start, _ := domain.ParseDay(r.URL.Query().Get("start"))
		end, _ := domain.ParseDay(r.URL.Query().Get("end"))
		var out []feed.WireTrade
		for _, tr := range fx.Trades {
			d := domain.Day(tr.Date)
			if !d.Before(start) && !d.After(end) {
				out = append(out, feed.FromRecord(*tr))
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}))
	defer srv.Close()

	t.Setenv("FEED_URL", srv.URL)
	out, err := executeWithEnv(t, "verify", "--window", "month-to-date")
	require.NoError(t, err, out)
	assert.Contains(t, out, "0 divergent")
}
