package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"github.com/haukened/siteblock/internal/block/config"
	"github.com/haukened/siteblock/internal/block/gateways/extension"
	"github.com/haukened/siteblock/internal/block/gateways/fetch"
)

const testOrigin = "chrome-extension://testextension"

func freeAddr(t *testing.T) string {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())
	return addr
}

// TestBuildApplication_ConfigurationVariations tests different configurations
func TestBuildApplication_ConfigurationVariations(t *testing.T) {
	tests := []struct {
		name          string
		setupEnv      func(t *testing.T)
		wantErr       bool
		errorContains string
		fetchContent  bool
	}{
		{
			name: "minimal valid config",
			setupEnv: func(t *testing.T) {
				t.Setenv("SITEBLOCK_DB_PATH", filepath.Join(t.TempDir(), "state.db"))
			},
		},
		{
			name: "fetch content source",
			setupEnv: func(t *testing.T) {
				t.Setenv("SITEBLOCK_DB_PATH", filepath.Join(t.TempDir(), "state.db"))
				t.Setenv("SITEBLOCK_CONTENT_SOURCE", "fetch")
			},
			fetchContent: true,
		},
		{
			name: "rule cache disabled",
			setupEnv: func(t *testing.T) {
				t.Setenv("SITEBLOCK_DB_PATH", filepath.Join(t.TempDir(), "state.db"))
				t.Setenv("SITEBLOCK_RULE_CACHE_SIZE", "0")
			},
		},
		{
			name: "unwritable database path",
			setupEnv: func(t *testing.T) {
				t.Setenv("SITEBLOCK_DB_PATH", filepath.Join(t.TempDir(), "missing", "dir", "state.db"))
			},
			wantErr:       true,
			errorContains: "failed to open store",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupEnv(t)

			cfg, err := config.Load()
			require.NoError(t, err)

			app, err := buildApplication(cfg)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
				assert.Nil(t, app)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, app)
			t.Cleanup(func() { _ = app.store.Close() })
			assert.NotNil(t, app.engine)
			assert.NotNil(t, app.bridge)
		})
	}
}

func TestBuildGateways_ContentSource(t *testing.T) {
	cfg := config.DEFAULT_APP_CONFIG

	cfg.ContentSource = "fetch"
	gw, err := buildGateways(&cfg, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &fetch.Accessor{}, gw.content)

	cfg.ContentSource = "extension"
	gw, err = buildGateways(&cfg, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &extension.Server{}, gw.content)

	cfg.ContentSource = "carrier-pigeon"
	_, err = buildGateways(&cfg, nil, nil)
	assert.Error(t, err)
}

// TestApplication_Integration drives the daemon end to end over the bridge:
// a rule written through storage blocks the next matching navigation.
func TestApplication_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	addr := freeAddr(t)
	t.Setenv("SITEBLOCK_LISTEN", addr)
	t.Setenv("SITEBLOCK_DB_PATH", filepath.Join(t.TempDir(), "state.db"))
	t.Setenv("SITEBLOCK_EXTENSION_ORIGIN", testOrigin)
	t.Setenv("SITEBLOCK_LOG_LEVEL", "debug")

	cfg, err := config.Load()
	require.NoError(t, err)
	app, err := buildApplication(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appErr := make(chan error, 1)
	go func() { appErr <- app.Run(ctx) }()

	var conn *websocket.Conn
	require.Eventually(t, func() bool {
		c, _, err := websocket.Dial(ctx, "ws://"+addr, &websocket.DialOptions{
			HTTPHeader: http.Header{"Origin": []string{testOrigin}},
		})
		if err != nil {
			return false
		}
		conn = c
		return true
	}, 2*time.Second, 20*time.Millisecond)
	defer conn.CloseNow()
	require.Eventually(t, app.bridge.Connected, time.Second, 5*time.Millisecond)

	rctx, rcancel := context.WithTimeout(ctx, 5*time.Second)
	defer rcancel()

	write := func(msg extension.IncomingMsg) {
		data, err := json.Marshal(msg)
		require.NoError(t, err)
		require.NoError(t, conn.Write(rctx, websocket.MessageText, data))
	}
	read := func() extension.OutgoingMsg {
		_, data, err := conn.Read(rctx)
		require.NoError(t, err)
		var msg extension.OutgoingMsg
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	}
	ok := true

	write(extension.IncomingMsg{
		Type:  extension.TypeStorageSet,
		ID:    "set-1",
		Key:   "blocked",
		Value: json.RawMessage(`[{"name":"youtube.com","scope":"domain","enabled":true}]`),
	})
	ack := read()
	assert.Equal(t, extension.ReplyAck, ack.Type)
	assert.Equal(t, "set-1", ack.ID)
	assert.Empty(t, ack.Error)
	assert.Equal(t, 1, app.rules.Stats().Hostnames)

	write(extension.IncomingMsg{Type: extension.TypeNavigation, TabID: 7, URL: "https://www.youtube.com/watch?v=1"})

	closeCmd := read()
	assert.Equal(t, extension.CmdCloseTab, closeCmd.Type)
	assert.Equal(t, 7, closeCmd.TabID)
	write(extension.IncomingMsg{Type: extension.TypeResponse, ID: closeCmd.ID, OK: &ok})

	openCmd := read()
	assert.Equal(t, extension.CmdOpenTab, openCmd.Type)
	assert.True(t, strings.HasPrefix(openCmd.URL, testOrigin+"/warning.html?"), openCmd.URL)
	assert.Contains(t, openCmd.URL, "reason=domain")
	write(extension.IncomingMsg{Type: extension.TypeResponse, ID: openCmd.ID, OK: &ok})

	write(extension.IncomingMsg{Type: extension.TypeStorageGet, ID: "get-1", Key: "lastBlockContext"})
	got := read()
	assert.Equal(t, extension.ReplyStorageValue, got.Type)
	assert.Contains(t, string(got.Value), `"blocked":"youtube.com"`)

	cancel()
	select {
	case err := <-appErr:
		assert.NoError(t, err, "Application should shutdown gracefully")
	case <-time.After(5 * time.Second):
		t.Fatal("Application failed to shutdown within timeout")
	}
}
