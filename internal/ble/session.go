// internal/ble/session.go
//
// Peripheral session manager.
// Responsibilities:
//   - Advertising lifecycle and the GATT server holding ControlService.
//   - The set of connected peers (no duplicates, idempotent add/remove).
//   - Counter notifications to every connected peer.
//   - Decoding writes to the write characteristic into MessageReceived events.
//
// Threading:
//   - Adapters call the sink from their own goroutines; the sink only enqueues.
//   - The owning loop drains Radio() and calls HandleRadio, one event at a time,
//     so per-peer arrival order (e.g. write then disconnect) is preserved.
//   - Stop may be called from any goroutine at any time. Events queued by a
//     server that Stop closed are dropped, even after a restart.

package ble

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultQueueSize = 64

// Session owns one GATT server and its connected peers.
type Session struct {
	adapter Adapter
	name    string
	handler func(Event)
	radio   chan RadioEvent
	log     zerolog.Logger

	mu          sync.Mutex // guards everything below
	server      Server
	gen         uint64 // bumped whenever a server closes
	advertising bool
	done        chan struct{}
	peers       []Peer
	counter     int
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithDeviceName sets the name included in the advertisement.
func WithDeviceName(name string) SessionOption {
	return func(s *Session) { s.name = name }
}

// WithHandler sets the receiver of session events. It is called on the
// goroutine that calls HandleRadio, UpdateCounter or StartAdvertising.
func WithHandler(h func(Event)) SessionOption {
	return func(s *Session) { s.handler = h }
}

// WithQueueSize sets the capacity of the radio event queue.
func WithQueueSize(n int) SessionOption {
	return func(s *Session) { s.radio = make(chan RadioEvent, n) }
}

// NewSession constructs an idle session over adapter.
func NewSession(adapter Adapter, opts ...SessionOption) *Session {
	s := &Session{
		adapter: adapter,
		name:    "gesturetris",
		handler: func(Event) {},
		radio:   make(chan RadioEvent, defaultQueueSize),
		log:     log.With().Str("component", "ble").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// queued tags a radio callback with the generation of the server it came from.
type queued struct {
	gen uint64
	RadioEvent
}

// Radio is the queue of pending radio callbacks.
func (s *Session) Radio() <-chan RadioEvent { return s.radio }

// SetHandler replaces the event handler. Call it before StartAdvertising.
func (s *Session) SetHandler(h func(Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = h
}

func (s *Session) emit(e Event) {
	s.mu.Lock()
	h := s.handler
	s.mu.Unlock()
	h(e)
}

// StartAdvertising advertises ServiceUUID with the device name, low latency,
// high power and no timeout, then opens the GATT server with ControlService.
// If the radio has no peripheral mode it reports ErrAdvertisingUnsupported
// once and leaves advertising off.
func (s *Session) StartAdvertising() error {
	s.mu.Lock()
	if s.advertising {
		s.mu.Unlock()
		return nil
	}
	err := s.adapter.StartAdvertising(
		AdvertiseSettings{Mode: AdvertiseLowLatency, TxPower: TxPowerHigh, Connectable: true},
		AdvertiseData{DeviceName: s.name, IncludeDeviceName: true, ServiceUUIDs: []uuid.UUID{ServiceUUID}},
	)
	if err != nil {
		s.mu.Unlock()
		if !errors.Is(err, ErrAdvertisingUnsupported) {
			err = fmt.Errorf("start advertising: %w", err)
		}
		s.log.Error().Err(err).Msg("advertising failed")
		s.emit(AdvertisingFailed{Err: err})
		return err
	}
	s.advertising = true

	if s.server == nil {
		if err := s.openServer(); err != nil {
			_ = s.adapter.StopAdvertising()
			s.advertising = false
			s.mu.Unlock()
			s.log.Error().Err(err).Msg("gatt server failed")
			s.emit(AdvertisingFailed{Err: err})
			return err
		}
	}
	s.mu.Unlock()
	s.log.Info().Str("service", ServiceUUID.String()).Str("name", s.name).Msg("advertising started")
	return nil
}

// openServer must be called with s.mu held.
func (s *Session) openServer() error {
	done := make(chan struct{})
	gen := s.gen
	srv, err := s.adapter.OpenServer(func(ev RadioEvent) {
		select {
		case <-done:
			return
		default:
		}
		select {
		case s.radio <- queued{gen: gen, RadioEvent: ev}:
		case <-done:
		}
	})
	if err != nil {
		return fmt.Errorf("open gatt server: %w", err)
	}
	if err := srv.AddService(ControlService()); err != nil {
		_ = srv.Close()
		return fmt.Errorf("add service: %w", err)
	}
	s.server = srv
	s.done = done
	return nil
}

// Stop halts advertising, closes the server and forgets every peer. Peers are
// not told. Calling Stop again is a no-op.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.advertising {
		if err := s.adapter.StopAdvertising(); err != nil {
			s.log.Warn().Err(err).Msg("stop advertising")
		}
		s.advertising = false
	}
	if s.server != nil {
		close(s.done)
		if err := s.server.Close(); err != nil {
			s.log.Warn().Err(err).Msg("close gatt server")
		}
		s.server = nil
		s.gen++
		s.log.Info().Msg("gatt server closed")
	}
	s.peers = nil
}

// HandleRadio applies one radio callback. Only the owning loop calls it.
func (s *Session) HandleRadio(ev RadioEvent) {
	var out []Event
	s.mu.Lock()
	if s.server == nil {
		s.mu.Unlock()
		s.log.Debug().Msgf("dropping %T after stop", ev)
		return
	}
	if q, ok := ev.(queued); ok {
		if q.gen != s.gen {
			s.mu.Unlock()
			s.log.Debug().Msgf("dropping %T from a closed server", q.RadioEvent)
			return
		}
		ev = q.RadioEvent
	}
	switch ev := ev.(type) {
	case ConnectionStateChanged:
		out = s.handleConnection(ev)
	case WriteRequest:
		out = s.handleWrite(ev)
	case ReadRequest:
		s.handleRead(ev)
	}
	s.mu.Unlock()
	for _, e := range out {
		s.emit(e)
	}
}

func (s *Session) handleConnection(ev ConnectionStateChanged) []Event {
	switch ev.State {
	case StateConnected:
		if s.indexOf(ev.Peer) >= 0 {
			return nil
		}
		s.peers = append(s.peers, ev.Peer)
		s.log.Info().Str("peer", string(ev.Peer)).Int("peers", len(s.peers)).Msg("device connected")
		return []Event{DeviceConnected{Peer: ev.Peer}}
	default:
		i := s.indexOf(ev.Peer)
		if i < 0 {
			return nil
		}
		s.peers = append(s.peers[:i], s.peers[i+1:]...)
		s.log.Info().Str("peer", string(ev.Peer)).Int("peers", len(s.peers)).Msg("device disconnected")
		return []Event{DeviceDisconnected{Peer: ev.Peer}}
	}
}

func (s *Session) handleWrite(ev WriteRequest) []Event {
	if ev.Characteristic != WriteCharacteristicUUID {
		if ev.ResponseNeeded {
			status := StatusRequestNotSupported
			if ev.Characteristic == NotifyCharacteristicUUID {
				status = StatusWriteNotPermitted
			}
			s.respond(ev.Peer, ev.RequestID, status, nil)
		}
		return nil
	}
	text := strings.ToValidUTF8(string(ev.Value), "\uFFFD")
	s.log.Debug().Str("peer", string(ev.Peer)).Str("text", text).Msg("write received")
	if ev.ResponseNeeded {
		s.respond(ev.Peer, ev.RequestID, StatusSuccess, nil)
	}
	return []Event{MessageReceived{Peer: ev.Peer, Text: text}}
}

func (s *Session) handleRead(ev ReadRequest) {
	if ev.Characteristic != NotifyCharacteristicUUID {
		s.respond(ev.Peer, ev.RequestID, StatusReadNotPermitted, nil)
		return
	}
	s.respond(ev.Peer, ev.RequestID, StatusSuccess, []byte(strconv.Itoa(s.counter)))
}

func (s *Session) respond(peer Peer, id int, status Status, value []byte) {
	if err := s.server.Respond(peer, id, status, value); err != nil {
		s.log.Warn().Err(err).Str("peer", string(peer)).Int("request", id).Msg("send response")
	}
}

// UpdateCounter stores v and notifies every connected peer with its decimal
// text. It returns the number of peers notified; with no peers the value is
// only stored.
func (s *Session) UpdateCounter(v int) int {
	if v < 0 {
		s.log.Warn().Int("value", v).Msg("negative counter ignored")
		return 0
	}
	s.mu.Lock()
	s.counter = v
	notified := 0
	if s.server != nil && len(s.peers) > 0 {
		value := []byte(strconv.Itoa(v))
		for _, p := range s.peers {
			if err := s.server.Notify(p, NotifyCharacteristicUUID, value); err != nil {
				s.log.Warn().Err(err).Str("peer", string(p)).Msg("notify")
				continue
			}
			notified++
		}
	}
	h := s.handler
	s.mu.Unlock()
	h(CounterUpdated{Value: v, Notified: notified})
	return notified
}

// Peers returns a copy of the connected peers in connection order.
func (s *Session) Peers() []Peer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Peer(nil), s.peers...)
}

// Counter returns the last stored counter value.
func (s *Session) Counter() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counter
}

// Advertising reports whether the session is advertising.
func (s *Session) Advertising() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.advertising
}

func (s *Session) indexOf(p Peer) int {
	for i, q := range s.peers {
		if q == p {
			return i
		}
	}
	return -1
}
