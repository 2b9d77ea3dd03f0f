// internal/ble/adapter.go
//
// Radio abstraction. The platform stack (or a simulated one) implements
// Adapter and Server; everything above this file only speaks in terms of
// peers, characteristics and the RadioEvent variants below.

package ble

import (
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrAdvertisingUnsupported is returned when the radio cannot act as a peripheral.
	ErrAdvertisingUnsupported = errors.New("advertising unsupported")
	// ErrServerClosed is returned by Server methods after Close.
	ErrServerClosed = errors.New("gatt server closed")
	// ErrUnknownPeer is returned when addressing a peer that is not connected.
	ErrUnknownPeer = errors.New("unknown peer")
)

// Peer is the opaque address of a connected central.
type Peer string

// Adapter is the peripheral side of a radio stack.
type Adapter interface {
	// StartAdvertising begins advertising. It returns ErrAdvertisingUnsupported
	// when the hardware has no peripheral mode.
	StartAdvertising(settings AdvertiseSettings, data AdvertiseData) error
	StopAdvertising() error
	// OpenServer opens a GATT server. Connection and request callbacks are
	// delivered through sink, possibly from the adapter's own goroutines.
	OpenServer(sink func(RadioEvent)) (Server, error)
}

// Server is an open GATT server. Notify and Respond must not block on I/O.
type Server interface {
	AddService(svc Service) error
	Notify(peer Peer, characteristic uuid.UUID, value []byte) error
	Respond(peer Peer, requestID int, status Status, value []byte) error
	Close() error
}

// ConnState is a link state reported by the radio.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnected
)

func (s ConnState) String() string {
	if s == StateConnected {
		return "connected"
	}
	return "disconnected"
}

// RadioEvent is a callback from the radio. The set of variants is closed.
type RadioEvent interface {
	radioEvent()
}

// ConnectionStateChanged reports a peer link transition.
type ConnectionStateChanged struct {
	Peer  Peer
	State ConnState
}

// WriteRequest carries one inbound write. ResponseNeeded is set for
// acknowledged writes.
type WriteRequest struct {
	Peer           Peer
	RequestID      int
	Characteristic uuid.UUID
	ResponseNeeded bool
	Value          []byte
}

// ReadRequest asks for the current value of a characteristic.
type ReadRequest struct {
	Peer           Peer
	RequestID      int
	Characteristic uuid.UUID
}

func (ConnectionStateChanged) radioEvent() {}
func (WriteRequest) radioEvent()           {}
func (ReadRequest) radioEvent()            {}
