// internal/ble/websocket.go
//
// WebSocketAdapter is a radio whose centrals are WebSocket clients.
// Each socket is one peer; the frames mirror GATT operations:
//
//	client → server  {"type":"write","characteristic":"<uuid>","value":"左滑","response":true,"id":7}
//	                 {"type":"read","characteristic":"<uuid>","id":8}
//	                 any non-JSON frame: write-without-response of its raw text
//	server → client  {"type":"advertisement","name":"…","service":"<uuid>"}
//	                 {"type":"notify","characteristic":"<uuid>","value":"42"}
//	                 {"type":"response","id":7,"status":0,"value":""}
//
// Sockets are only accepted while advertising with a server open. Outbound
// frames go through a bounded per-peer queue; a full queue drops the frame.

package ble

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	wsOutboxSize  = 32
	wsWriteWait   = 5 * time.Second
	wsMaxFrameLen = 4096
)

var errOutboxFull = errors.New("peer outbox full")

type wsFrame struct {
	Type           string  `json:"type"`
	Characteristic string  `json:"characteristic,omitempty"`
	Value          *string `json:"value,omitempty"`
	Response       bool    `json:"response,omitempty"`
	ID             int     `json:"id,omitempty"`
	Status         *Status `json:"status,omitempty"`
	Name           string  `json:"name,omitempty"`
	Service        string  `json:"service,omitempty"`
}

// WebSocketAdapter accepts virtual centrals over HTTP upgrade.
type WebSocketAdapter struct {
	upgrader websocket.Upgrader
	log      zerolog.Logger

	mu          sync.Mutex
	advertising bool
	data        AdvertiseData
	server      *wsServer
}

// NewWebSocketAdapter returns an adapter that accepts sockets from any origin
// accepted by checkOrigin (nil allows same-origin only).
func NewWebSocketAdapter(checkOrigin func(r *http.Request) bool) *WebSocketAdapter {
	return &WebSocketAdapter{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		log: log.With().Str("component", "ws-radio").Logger(),
	}
}

func (a *WebSocketAdapter) StartAdvertising(_ AdvertiseSettings, data AdvertiseData) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.advertising = true
	a.data = data
	return nil
}

func (a *WebSocketAdapter) StopAdvertising() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.advertising = false
	return nil
}

func (a *WebSocketAdapter) OpenServer(sink func(RadioEvent)) (Server, error) {
	srv := &wsServer{sink: sink, conns: make(map[Peer]*wsConn), log: a.log}
	a.mu.Lock()
	a.server = srv
	a.mu.Unlock()
	return srv, nil
}

// ServeHTTP upgrades the request and runs the peer until either side closes.
func (a *WebSocketAdapter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	srv, advertising, data := a.server, a.advertising, a.data
	a.mu.Unlock()
	if !advertising || srv == nil || srv.isClosed() {
		http.Error(w, `{"error":"not_advertising"}`, http.StatusServiceUnavailable)
		return
	}

	ws, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.log.Warn().Err(err).Msg("upgrade")
		return
	}
	ws.SetReadLimit(wsMaxFrameLen)

	peer := Peer(uuid.NewString())
	c := &wsConn{ws: ws, out: make(chan wsFrame, wsOutboxSize)}
	if !srv.add(peer, c) {
		_ = ws.Close()
		return
	}
	go c.writeLoop()

	hello := wsFrame{Type: "advertisement", Service: ServiceUUID.String()}
	if data.IncludeDeviceName {
		hello.Name = data.DeviceName
	}
	_ = c.send(hello)

	a.log.Debug().Str("peer", string(peer)).Str("remote", r.RemoteAddr).Msg("central attached")
	srv.sink(ConnectionStateChanged{Peer: peer, State: StateConnected})
	srv.readLoop(peer, c)
	srv.remove(peer, c)
	srv.sink(ConnectionStateChanged{Peer: peer, State: StateDisconnected})
}

type wsServer struct {
	sink func(RadioEvent)
	log  zerolog.Logger

	mu     sync.Mutex
	closed bool
	conns  map[Peer]*wsConn
}

func (s *wsServer) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *wsServer) add(p Peer, c *wsConn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[p] = c
	return true
}

func (s *wsServer) remove(p Peer, c *wsConn) {
	s.mu.Lock()
	if s.conns[p] == c {
		delete(s.conns, p)
	}
	s.mu.Unlock()
	c.close()
}

func (s *wsServer) conn(p Peer) (*wsConn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrServerClosed
	}
	c, ok := s.conns[p]
	if !ok {
		return nil, ErrUnknownPeer
	}
	return c, nil
}

func (s *wsServer) readLoop(p Peer, c *wsConn) {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug().Err(err).Str("peer", string(p)).Msg("read")
			}
			return
		}
		if ev := decodeFrame(p, data); ev != nil {
			s.sink(ev)
		}
	}
}

// decodeFrame turns one client frame into a radio event, or nil to ignore it.
func decodeFrame(p Peer, data []byte) RadioEvent {
	var f wsFrame
	if err := json.Unmarshal(data, &f); err != nil || f.Type == "" {
		return WriteRequest{Peer: p, Characteristic: WriteCharacteristicUUID, Value: data}
	}
	char := WriteCharacteristicUUID
	if f.Type == "read" {
		char = NotifyCharacteristicUUID
	}
	if f.Characteristic != "" {
		id, err := uuid.Parse(f.Characteristic)
		if err != nil {
			id = uuid.Nil
		}
		char = id
	}
	switch f.Type {
	case "write":
		var value []byte
		if f.Value != nil {
			value = []byte(*f.Value)
		}
		return WriteRequest{Peer: p, RequestID: f.ID, Characteristic: char, ResponseNeeded: f.Response, Value: value}
	case "read":
		return ReadRequest{Peer: p, RequestID: f.ID, Characteristic: char}
	}
	return nil
}

func (s *wsServer) AddService(Service) error {
	if s.isClosed() {
		return ErrServerClosed
	}
	return nil
}

func (s *wsServer) Notify(p Peer, characteristic uuid.UUID, value []byte) error {
	c, err := s.conn(p)
	if err != nil {
		return err
	}
	v := string(value)
	return c.send(wsFrame{Type: "notify", Characteristic: characteristic.String(), Value: &v})
}

func (s *wsServer) Respond(p Peer, requestID int, status Status, value []byte) error {
	c, err := s.conn(p)
	if err != nil {
		return err
	}
	v := string(value)
	return c.send(wsFrame{Type: "response", ID: requestID, Status: &status, Value: &v})
}

// Close drops every socket without telling the centrals why.
func (s *wsServer) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	conns := s.conns
	s.conns = map[Peer]*wsConn{}
	s.mu.Unlock()
	for _, c := range conns {
		c.close()
	}
	return nil
}

type wsConn struct {
	ws *websocket.Conn

	mu     sync.Mutex
	closed bool
	out    chan wsFrame
}

func (c *wsConn) send(f wsFrame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrServerClosed
	}
	select {
	case c.out <- f:
		return nil
	default:
		return errOutboxFull
	}
}

func (c *wsConn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.out)
	}
}

// writeLoop drains the outbox and closes the socket once it is closed.
func (c *wsConn) writeLoop() {
	defer c.ws.Close()
	for f := range c.out {
		_ = c.ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := c.ws.WriteJSON(f); err != nil {
			c.close()
			for range c.out {
			}
			return
		}
	}
}
