package ble

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runLoop drains the session queue on its own goroutine until ctx ends.
func runLoop(ctx context.Context, s *Session) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-s.Radio():
				s.HandleRadio(ev)
			}
		}
	}()
}

func next(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case e := <-events:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("no session event")
		return nil
	}
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWebSocketRejectsWhenNotAdvertising(t *testing.T) {
	srv := httptest.NewServer(NewWebSocketAdapter(nil))
	defer srv.Close()

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestWebSocketCentral(t *testing.T) {
	adapter := NewWebSocketAdapter(nil)
	events := make(chan Event, 16)
	s := NewSession(adapter, WithDeviceName("ws-test"), WithHandler(func(e Event) { events <- e }))
	require.NoError(t, s.StartAdvertising())
	defer s.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runLoop(ctx, s)

	srv := httptest.NewServer(adapter)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var hello wsFrame
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, "advertisement", hello.Type)
	assert.Equal(t, "ws-test", hello.Name)
	assert.Equal(t, ServiceUUID.String(), hello.Service)

	connected, ok := next(t, events).(DeviceConnected)
	require.True(t, ok)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"write","characteristic":"`+WriteCharacteristicUUID.String()+`","value":"右滑","response":true,"id":7}`)))
	assert.Equal(t, MessageReceived{Peer: connected.Peer, Text: "右滑"}, next(t, events))

	var resp wsFrame
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "response", resp.Type)
	assert.Equal(t, 7, resp.ID)
	require.NotNil(t, resp.Status)
	assert.Equal(t, StatusSuccess, *resp.Status)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("单击")))
	assert.Equal(t, MessageReceived{Peer: connected.Peer, Text: "单击"}, next(t, events))

	assert.Equal(t, 1, s.UpdateCounter(9))
	var notify wsFrame
	require.NoError(t, conn.ReadJSON(&notify))
	assert.Equal(t, "notify", notify.Type)
	assert.Equal(t, NotifyCharacteristicUUID.String(), notify.Characteristic)
	require.NotNil(t, notify.Value)
	assert.Equal(t, "9", *notify.Value)
	assert.Equal(t, CounterUpdated{Value: 9, Notified: 1}, next(t, events))

	require.NoError(t, conn.Close())
	assert.Equal(t, DeviceDisconnected{Peer: connected.Peer}, next(t, events))
}

func TestDecodeFrame(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want RadioEvent
	}{
		{"raw text", "左摆", WriteRequest{Peer: "p", Characteristic: WriteCharacteristicUUID, Value: []byte("左摆")}},
		{"json without type", `{"value":"x"}`, WriteRequest{Peer: "p", Characteristic: WriteCharacteristicUUID, Value: []byte(`{"value":"x"}`)}},
		{"write default characteristic", `{"type":"write","value":"转腕","id":3}`,
			WriteRequest{Peer: "p", RequestID: 3, Characteristic: WriteCharacteristicUUID, Value: []byte("转腕")}},
		{"read default characteristic", `{"type":"read","id":4}`,
			ReadRequest{Peer: "p", RequestID: 4, Characteristic: NotifyCharacteristicUUID}},
		{"bad characteristic", `{"type":"read","characteristic":"nope","id":5}`,
			ReadRequest{Peer: "p", RequestID: 5}},
		{"unknown type", `{"type":"subscribe"}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decodeFrame("p", []byte(tt.in)))
		})
	}
}
