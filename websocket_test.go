// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package zik

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
)

// newBridge starts a WebSocket bridge that hands every inbound message to
// handle and writes back whatever frames it returns
func newBridge(t *testing.T, handle func(msg []byte) [][]byte) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		for {
			kind, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if kind != websocket.BinaryMessage {
				t.Errorf("message type = %d, want binary", kind)
			}
			for _, frame := range handle(msg) {
				if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
					return
				}
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// TestWSTransport_ManagerRoundTrip runs a request cycle through a bridge
// with a notification ahead of the answer
func TestWSTransport_ManagerRoundTrip(t *testing.T) {
	url := newBridge(t, func(msg []byte) [][]byte {
		if gjson.GetBytes(msg, "path").String() != "/api/system/battery/get" {
			return nil
		}
		return [][]byte{
			deviceFrame(DefaultPreambleLength, `{"notify":{"path":"/api/audio/noise_control/enabled/get"}}`),
			deviceFrame(DefaultPreambleLength, `{"answer":{"system":{"battery":{"percent":91}}}}`),
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tr, err := DialWebSocket(ctx, url)
	if err != nil {
		t.Fatalf("DialWebSocket() error: %v", err)
	}
	rec := &recordingStrategy{}
	m, err := NewManager(tr, V2Catalog, WithStrategy(rec))
	if err != nil {
		t.Fatalf("NewManager() error: %v", err)
	}
	defer m.Close()

	v, err := m.Get(ctx, PathBattery)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if v.Get("system.battery.percent").Int() != 91 {
		t.Errorf("Get() = %s", v.Raw())
	}
	if len(rec.seen) != 1 || rec.seen[0] != "/api/audio/noise_control/enabled/get" {
		t.Errorf("notifications = %v", rec.seen)
	}
}

// TestWSTransport_ShortMessage tests that a message shorter than the preamble is rejected
func TestWSTransport_ShortMessage(t *testing.T) {
	url := newBridge(t, func(msg []byte) [][]byte {
		return [][]byte{{0x01, 0x02}}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tr, err := DialWebSocket(ctx, url)
	if err != nil {
		t.Fatalf("DialWebSocket() error: %v", err)
	}
	defer tr.Close()

	if err := tr.Send(ctx, []byte(`{}`)); err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	_, err = tr.Receive(ctx)
	if !errors.Is(err, ErrProtocolViolation) {
		t.Fatalf("expected ErrProtocolViolation, got %v", err)
	}
}

// TestWSTransport_Options tests constructor validation
func TestWSTransport_Options(t *testing.T) {
	if _, err := NewWSTransport(nil); err == nil {
		t.Error("expected error for nil connection")
	}

	url := newBridge(t, func(msg []byte) [][]byte { return nil })
	if _, err := DialWebSocket(context.Background(), url, MaxMessageSize(-1)); err == nil {
		t.Error("expected option error")
	}
}

// TestDialWebSocket_Unreachable tests dial failures
func TestDialWebSocket_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	if _, err := DialWebSocket(context.Background(), url); err == nil {
		t.Error("expected handshake failure against a non-WebSocket endpoint")
	}
	srv.Close()
}
