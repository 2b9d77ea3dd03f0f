// internal/bridge/bridge.go
//
// Glue between the peripheral session, the gesture dispatcher and the engine.
// Responsibilities:
//   - One serialized loop (Run) owning the game, the counter and the clocks.
//   - Counter tick: value = (value+1) mod 1000, pushed to every peer.
//   - Gameplay clock: a fresh game starts on connect, the clock pauses on
//     disconnect, and a finished game stops it and is handed to the Store.
//   - Read requests (Snapshot, Info) run on the loop so readers never tear state.
//
// Threading:
//   - Radio callbacks arrive through the session queue and are applied here.
//   - Observers run on the loop; they must not block.

package bridge

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/gesturetris/internal/ble"
	"github.com/robalobadob/gesturetris/internal/game"
	"github.com/robalobadob/gesturetris/internal/gesture"
	"github.com/robalobadob/gesturetris/internal/store"
)

// ErrStopped is returned by read requests once Run has returned.
var ErrStopped = errors.New("bridge stopped")

const counterModulus = 1000

// Config holds the bridge timings and gameplay clock policy.
type Config struct {
	CounterInterval time.Duration
	GameTick        time.Duration
	// PauseOnDisconnect stops the gameplay clock whenever a peer disconnects.
	PauseOnDisconnect bool
	// ResumeOnReconnect continues a paused game on the next connect instead of
	// starting a new one.
	ResumeOnReconnect bool
	SaveTimeout       time.Duration
}

// DefaultConfig ticks the counter and the game once a second and abandons a
// game whose controller disconnected.
func DefaultConfig() Config {
	return Config{
		CounterInterval:   time.Second,
		GameTick:          time.Second,
		PauseOnDisconnect: true,
		SaveTimeout:       5 * time.Second,
	}
}

// Info is a point-in-time view of the session and game.
type Info struct {
	Advertising bool       `json:"advertising"`
	Peers       []ble.Peer `json:"peers"`
	Counter     int        `json:"counter"`
	Playing     bool       `json:"playing"`
	GameID      string     `json:"gameId,omitempty"`
	Score       int        `json:"score"`
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithObserver adds an observer. Observers are called in the order added.
func WithObserver(o Observer) Option {
	return func(b *Bridge) { b.observers = append(b.observers, o) }
}

// WithStore records finished games in st.
func WithStore(st store.Store) Option {
	return func(b *Bridge) { b.store = st }
}

// WithGameOptions is passed to game.New for every game the bridge starts.
func WithGameOptions(opts ...game.Option) Option {
	return func(b *Bridge) { b.gameOpts = opts }
}

// WithVocabulary replaces the default gesture vocabulary.
func WithVocabulary(v gesture.Vocabulary) Option {
	return func(b *Bridge) { b.dispatcher = gesture.NewDispatcher(v) }
}

// Bridge owns the game and drives it from session events.
type Bridge struct {
	session    *ble.Session
	cfg        Config
	dispatcher *gesture.Dispatcher
	gameOpts   []game.Option
	store      store.Store
	observers  []Observer
	log        zerolog.Logger

	reqs    chan func()
	stopped chan struct{}
	saves   sync.WaitGroup

	// Owned by the loop.
	game    *game.Game
	running bool
	counter int
	clock   *time.Ticker
}

// New builds a bridge over session and installs itself as the session's
// event handler. Zero durations in cfg fall back to DefaultConfig.
func New(session *ble.Session, cfg Config, opts ...Option) *Bridge {
	def := DefaultConfig()
	if cfg.CounterInterval <= 0 {
		cfg.CounterInterval = def.CounterInterval
	}
	if cfg.GameTick <= 0 {
		cfg.GameTick = def.GameTick
	}
	if cfg.SaveTimeout <= 0 {
		cfg.SaveTimeout = def.SaveTimeout
	}
	b := &Bridge{
		session:    session,
		cfg:        cfg,
		dispatcher: gesture.NewDispatcher(gesture.DefaultVocabulary()),
		reqs:       make(chan func()),
		stopped:    make(chan struct{}),
		log:        log.With().Str("component", "bridge").Logger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	session.SetHandler(b.onSessionEvent)
	return b
}

// Run starts advertising and serves events until ctx is cancelled. It then
// stops both clocks, stops the session and waits for pending score writes.
// Advertising failures are reported to observers and do not end the loop.
// Run must be called once.
func (b *Bridge) Run(ctx context.Context) error {
	defer close(b.stopped)

	if err := b.session.StartAdvertising(); err != nil {
		b.log.Warn().Err(err).Msg("running without advertising")
	}

	counter := time.NewTicker(b.cfg.CounterInterval)
	defer func() {
		counter.Stop()
		b.stopClock()
		b.session.Stop()
		b.saves.Wait()
		b.log.Info().Msg("bridge stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-b.session.Radio():
			b.session.HandleRadio(ev)
		case <-counter.C:
			b.onCounterTick()
		case <-b.clockC():
			b.onGameTick()
		case fn := <-b.reqs:
			fn()
		}
	}
}

// Snapshot returns a copy of the current game, or false if none was started.
func (b *Bridge) Snapshot(ctx context.Context) (game.Snapshot, bool, error) {
	var (
		snap game.Snapshot
		ok   bool
	)
	err := b.do(ctx, func() {
		if b.game != nil {
			snap, ok = b.game.Snapshot(), true
		}
	})
	return snap, ok, err
}

// Info returns the session and game status.
func (b *Bridge) Info(ctx context.Context) (Info, error) {
	var info Info
	err := b.do(ctx, func() { info = b.info() })
	return info, err
}

func (b *Bridge) info() Info {
	info := Info{
		Advertising: b.session.Advertising(),
		Peers:       b.session.Peers(),
		Counter:     b.counter,
		Playing:     b.running,
	}
	if b.game != nil {
		info.GameID = b.game.ID
		info.Score = b.game.Score()
	}
	return info
}

// do runs fn on the loop and waits for it.
func (b *Bridge) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case b.reqs <- func() { fn(); close(done) }:
	case <-b.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bridge) emit(e Event) {
	for _, o := range b.observers {
		o.Observe(e)
	}
}

func (b *Bridge) onSessionEvent(e ble.Event) {
	switch e := e.(type) {
	case ble.DeviceConnected:
		b.emit(DeviceConnected{Peer: e.Peer})
		b.onConnect()
	case ble.DeviceDisconnected:
		b.emit(DeviceDisconnected{Peer: e.Peer})
		if b.cfg.PauseOnDisconnect {
			b.pause()
		}
	case ble.CounterUpdated:
		b.emit(CounterUpdated{Value: e.Value, Notified: e.Notified})
	case ble.MessageReceived:
		b.emit(GestureReceived{Peer: e.Peer, Text: e.Text})
		b.onGesture(e.Text)
	case ble.AdvertisingFailed:
		b.emit(AdvertisingFailed{Err: e.Err})
	}
}

func (b *Bridge) onCounterTick() {
	b.counter = (b.counter + 1) % counterModulus
	b.session.UpdateCounter(b.counter)
}

func (b *Bridge) onConnect() {
	if b.running {
		return
	}
	if b.cfg.ResumeOnReconnect && b.game != nil && !b.game.IsGameOver() {
		b.running = true
		b.startClock()
		b.log.Info().Str("game", b.game.ID).Msg("game resumed")
		b.emit(BoardChanged{Snapshot: b.game.Snapshot()})
		return
	}
	b.game = game.New(b.gameOpts...)
	b.running = true
	b.startClock()
	b.log.Info().Str("game", b.game.ID).Msg("game started")
	b.emit(GameStarted{Snapshot: b.game.Snapshot()})
}

func (b *Bridge) pause() {
	if !b.running {
		return
	}
	b.running = false
	b.stopClock()
	b.log.Info().Str("game", b.game.ID).Msg("game paused")
}

func (b *Bridge) onGesture(text string) {
	var e gesture.Engine
	if b.running && b.game != nil {
		e = b.game
	}
	res := b.dispatcher.Dispatch(e, text)
	if res.Action != gesture.ActionNone {
		b.log.Debug().Str("action", string(res.Action)).Bool("changed", res.Changed).Msg("gesture applied")
	}
	if res.Changed {
		b.emit(BoardChanged{Snapshot: b.game.Snapshot()})
	}
	b.checkOver()
}

func (b *Bridge) onGameTick() {
	if !b.running || b.game == nil {
		return
	}
	b.game.MoveDown()
	b.emit(BoardChanged{Snapshot: b.game.Snapshot()})
	b.checkOver()
}

// checkOver stops the clock and records the result once the game has ended.
func (b *Bridge) checkOver() {
	if !b.running || b.game == nil || !b.game.IsGameOver() {
		return
	}
	b.running = false
	b.stopClock()
	res := store.Result{
		GameID:     b.game.ID,
		Score:      b.game.Score(),
		Lines:      b.game.Lines(),
		FinishedAt: time.Now().UTC(),
	}
	b.log.Info().Str("game", res.GameID).Int("score", res.Score).Int("lines", res.Lines).Msg("game over")
	b.emit(GameOver{Snapshot: b.game.Snapshot(), Result: res})
	b.record(res)
}

func (b *Bridge) record(res store.Result) {
	if b.store == nil {
		return
	}
	b.saves.Add(1)
	go func() {
		defer b.saves.Done()
		ctx, cancel := context.WithTimeout(context.Background(), b.cfg.SaveTimeout)
		defer cancel()
		if err := b.store.Save(ctx, res); err != nil {
			b.log.Error().Err(err).Str("game", res.GameID).Msg("save result")
		}
	}()
}

func (b *Bridge) startClock() {
	if b.clock == nil {
		b.clock = time.NewTicker(b.cfg.GameTick)
	}
}

func (b *Bridge) stopClock() {
	if b.clock != nil {
		b.clock.Stop()
		b.clock = nil
	}
}

// clockC is nil while the clock is stopped, which disables its select case.
func (b *Bridge) clockC() <-chan time.Time {
	if b.clock == nil {
		return nil
	}
	return b.clock.C
}
