package bridge

import (
	"github.com/robalobadob/gesturetris/internal/ble"
	"github.com/robalobadob/gesturetris/internal/game"
	"github.com/robalobadob/gesturetris/internal/store"
)

// Event is delivered to observers from the bridge loop. The set of variants
// is closed.
type Event interface {
	bridgeEvent()
}

type DeviceConnected struct{ Peer ble.Peer }

type DeviceDisconnected struct{ Peer ble.Peer }

// CounterUpdated carries the value just pushed to the peers.
type CounterUpdated struct {
	Value    int
	Notified int
}

// GestureReceived is emitted for every write, before it is dispatched.
type GestureReceived struct {
	Peer ble.Peer
	Text string
}

// BoardChanged asks renderers to redraw from Snapshot.
type BoardChanged struct{ Snapshot game.Snapshot }

// GameStarted is emitted when a fresh game begins.
type GameStarted struct{ Snapshot game.Snapshot }

// GameOver carries the final snapshot and the recorded result.
type GameOver struct {
	Snapshot game.Snapshot
	Result   store.Result
}

// AdvertisingFailed reports that the radio could not advertise.
type AdvertisingFailed struct{ Err error }

func (DeviceConnected) bridgeEvent()    {}
func (DeviceDisconnected) bridgeEvent() {}
func (CounterUpdated) bridgeEvent()     {}
func (GestureReceived) bridgeEvent()    {}
func (BoardChanged) bridgeEvent()       {}
func (GameStarted) bridgeEvent()        {}
func (GameOver) bridgeEvent()           {}
func (AdvertisingFailed) bridgeEvent()  {}

// Observer receives bridge events on the loop goroutine. Implementations that
// own another context (a UI) must hand the event off and return.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }
