package ble

// Event is emitted by a Session to its handler. The set of variants is closed.
type Event interface {
	sessionEvent()
}

type DeviceConnected struct{ Peer Peer }

type DeviceDisconnected struct{ Peer Peer }

// CounterUpdated reports a stored counter value and how many peers were notified.
type CounterUpdated struct {
	Value    int
	Notified int
}

// MessageReceived carries the decoded text of one write to the write characteristic.
type MessageReceived struct {
	Peer Peer
	Text string
}

// AdvertisingFailed is emitted once when StartAdvertising fails.
type AdvertisingFailed struct{ Err error }

func (DeviceConnected) sessionEvent()    {}
func (DeviceDisconnected) sessionEvent() {}
func (CounterUpdated) sessionEvent()     {}
func (MessageReceived) sessionEvent()    {}
func (AdvertisingFailed) sessionEvent()  {}
