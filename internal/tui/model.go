// internal/tui/model.go
//
// Terminal view of the running game.
// Responsibilities:
//   - bubbletea Model fed by bridge events (never touches the engine).
//   - Forwarder: a bridge.Observer that hands events to the program without
//     blocking the bridge loop.
//
// Keys: q / ctrl+c quit. Gameplay input only comes from the controller.

package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/robalobadob/gesturetris/internal/ble"
	"github.com/robalobadob/gesturetris/internal/bridge"
	"github.com/robalobadob/gesturetris/internal/game"
)

// EventMsg wraps a bridge event for the bubbletea loop.
type EventMsg struct{ Event bridge.Event }

// Model is the bubbletea model.
type Model struct {
	deviceName string
	width      int
	height     int

	snap      game.Snapshot
	hasGame   bool
	paused    bool
	peers     []ble.Peer
	counter   int
	gesture   string
	status    string
	radioErr  error
	lastScore int
}

// NewModel returns a model showing the waiting screen for deviceName.
func NewModel(deviceName string) Model {
	return Model{deviceName: deviceName, status: "advertising"}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	case EventMsg:
		m.apply(msg.Event)
	}
	return m, nil
}

func (m *Model) apply(e bridge.Event) {
	switch e := e.(type) {
	case bridge.DeviceConnected:
		m.peers = append(append([]ble.Peer(nil), m.peers...), e.Peer)
		m.paused = false
		m.status = fmt.Sprintf("connected: %s", e.Peer)
	case bridge.DeviceDisconnected:
		peers := make([]ble.Peer, 0, len(m.peers))
		for _, p := range m.peers {
			if p != e.Peer {
				peers = append(peers, p)
			}
		}
		m.peers = peers
		if m.hasGame && !m.snap.GameOver {
			m.paused = true
		}
		m.status = fmt.Sprintf("disconnected: %s", e.Peer)
	case bridge.CounterUpdated:
		m.counter = e.Value
	case bridge.GestureReceived:
		m.gesture = e.Text
	case bridge.GameStarted:
		m.snap, m.hasGame, m.paused = e.Snapshot, true, false
		m.status = "game started"
	case bridge.BoardChanged:
		m.snap, m.hasGame = e.Snapshot, true
	case bridge.GameOver:
		m.snap, m.hasGame = e.Snapshot, true
		m.lastScore = e.Result.Score
		m.status = fmt.Sprintf("game over: %d points", e.Result.Score)
	case bridge.AdvertisingFailed:
		m.radioErr = e.Err
		if errors.Is(e.Err, ble.ErrAdvertisingUnsupported) {
			m.status = "this radio cannot advertise as a peripheral"
		} else {
			m.status = "advertising failed"
		}
	}
}

func (m Model) View() string {
	if !m.hasGame {
		return center(m.width, m.height, viewWaiting(m))
	}
	return center(m.width, m.height, viewGame(m))
}

// Forwarder queues bridge events for a tea.Program. Observe never blocks; when
// the queue is full the event is dropped, which only costs a stale frame.
type Forwarder struct {
	send  func(tea.Msg)
	queue chan bridge.Event
}

// NewForwarder forwards to send (usually (*tea.Program).Send).
func NewForwarder(send func(tea.Msg), size int) *Forwarder {
	return &Forwarder{send: send, queue: make(chan bridge.Event, size)}
}

func (f *Forwarder) Observe(e bridge.Event) {
	select {
	case f.queue <- e:
	default:
	}
}

// Run delivers queued events until ctx is done.
func (f *Forwarder) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-f.queue:
			f.send(EventMsg{Event: e})
		}
	}
}
