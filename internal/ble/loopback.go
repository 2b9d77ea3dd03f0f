package ble

import (
	"sync"

	"github.com/google/uuid"
)

// Notification is one value pushed to a peer through a Loopback server.
type Notification struct {
	Peer           Peer
	Characteristic uuid.UUID
	Value          string
}

// Response is one request acknowledgment sent through a Loopback server.
type Response struct {
	Peer      Peer
	RequestID int
	Status    Status
	Value     []byte
}

// Loopback is an in-process radio. Centrals are simulated by calling Connect,
// Write, Read and Disconnect; everything the peripheral sends is recorded.
type Loopback struct {
	// NoPeripheral makes StartAdvertising fail with ErrAdvertisingUnsupported.
	NoPeripheral bool

	mu            sync.Mutex
	advertising   bool
	settings      AdvertiseSettings
	data          AdvertiseData
	sink          func(RadioEvent)
	services      []Service
	notifications []Notification
	responses     []Response
	nextRequest   int
}

// NewLoopback returns a loopback radio with peripheral support.
func NewLoopback() *Loopback { return &Loopback{} }

func (l *Loopback) StartAdvertising(settings AdvertiseSettings, data AdvertiseData) error {
	if l.NoPeripheral {
		return ErrAdvertisingUnsupported
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.advertising = true
	l.settings = settings
	l.data = data
	return nil
}

func (l *Loopback) StopAdvertising() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.advertising = false
	return nil
}

func (l *Loopback) OpenServer(sink func(RadioEvent)) (Server, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sink = sink
	l.services = nil
	return &loopbackServer{l: l}, nil
}

// Advertising reports the current advertising state and payload.
func (l *Loopback) Advertising() (bool, AdvertiseSettings, AdvertiseData) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.advertising, l.settings, l.data
}

// Services returns the services registered on the open server.
func (l *Loopback) Services() []Service {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Service(nil), l.services...)
}

// Notifications returns every notification sent so far.
func (l *Loopback) Notifications() []Notification {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Notification(nil), l.notifications...)
}

// Responses returns every response sent so far.
func (l *Loopback) Responses() []Response {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Response(nil), l.responses...)
}

// Connect simulates peer connecting. It reports false when no server is open.
func (l *Loopback) Connect(p Peer) bool {
	return l.emit(ConnectionStateChanged{Peer: p, State: StateConnected})
}

// Disconnect simulates peer dropping its link.
func (l *Loopback) Disconnect(p Peer) bool {
	return l.emit(ConnectionStateChanged{Peer: p, State: StateDisconnected})
}

// Write simulates a write from p and returns its request id.
func (l *Loopback) Write(p Peer, characteristic uuid.UUID, value []byte, withResponse bool) int {
	id := l.requestID()
	l.emit(WriteRequest{Peer: p, RequestID: id, Characteristic: characteristic, ResponseNeeded: withResponse, Value: value})
	return id
}

// Read simulates a read from p and returns its request id.
func (l *Loopback) Read(p Peer, characteristic uuid.UUID) int {
	id := l.requestID()
	l.emit(ReadRequest{Peer: p, RequestID: id, Characteristic: characteristic})
	return id
}

func (l *Loopback) requestID() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextRequest++
	return l.nextRequest
}

func (l *Loopback) emit(ev RadioEvent) bool {
	l.mu.Lock()
	sink := l.sink
	l.mu.Unlock()
	if sink == nil {
		return false
	}
	sink(ev)
	return true
}

type loopbackServer struct {
	l      *Loopback
	closed bool
}

func (s *loopbackServer) AddService(svc Service) error {
	s.l.mu.Lock()
	defer s.l.mu.Unlock()
	if s.closed {
		return ErrServerClosed
	}
	s.l.services = append(s.l.services, svc)
	return nil
}

func (s *loopbackServer) Notify(p Peer, characteristic uuid.UUID, value []byte) error {
	s.l.mu.Lock()
	defer s.l.mu.Unlock()
	if s.closed {
		return ErrServerClosed
	}
	s.l.notifications = append(s.l.notifications, Notification{Peer: p, Characteristic: characteristic, Value: string(value)})
	return nil
}

func (s *loopbackServer) Respond(p Peer, requestID int, status Status, value []byte) error {
	s.l.mu.Lock()
	defer s.l.mu.Unlock()
	if s.closed {
		return ErrServerClosed
	}
	s.l.responses = append(s.l.responses, Response{Peer: p, RequestID: requestID, Status: status, Value: value})
	return nil
}

func (s *loopbackServer) Close() error {
	s.l.mu.Lock()
	defer s.l.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.l.sink = nil
	return nil
}
