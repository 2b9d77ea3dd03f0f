package main

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/gesturetris/internal/ble"
	"github.com/robalobadob/gesturetris/internal/bridge"
	"github.com/robalobadob/gesturetris/internal/gesture"
	"github.com/robalobadob/gesturetris/internal/httpserver"
	"github.com/robalobadob/gesturetris/internal/store"
	"github.com/robalobadob/gesturetris/internal/tui"
)

func main() {
	_ = godotenv.Load()
	cfg := loadConfig()
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if cfg.TUI {
		// The terminal belongs to the board; logs go to a file.
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Fatal().Err(err).Str("file", cfg.LogFile).Msg("open log file")
		}
		defer f.Close()
		log.Logger = log.Output(f)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scores, closeScores, err := openScores(cfg.ScoresDB)
	if err != nil {
		log.Fatal().Err(err).Str("db", cfg.ScoresDB).Msg("failed to open score history")
	}
	defer closeScores()

	radio := ble.NewWebSocketAdapter(originChecker(cfg.ClientOrigin))
	session := ble.NewSession(radio, ble.WithDeviceName(cfg.DeviceName))

	opts := []bridge.Option{bridge.WithStore(scores)}
	if cfg.GestureAliases {
		opts = append(opts, bridge.WithVocabulary(gesture.DefaultVocabulary().WithEnglishAliases()))
	}
	var program *tea.Program
	if cfg.TUI {
		program = tea.NewProgram(tui.NewModel(cfg.DeviceName), tea.WithAltScreen(), tea.WithContext(ctx))
		fwd := tui.NewForwarder(program.Send, 256)
		go fwd.Run(ctx)
		opts = append(opts, bridge.WithObserver(fwd))
	}

	b := bridge.New(session, bridge.Config{
		CounterInterval:   cfg.CounterInterval,
		GameTick:          cfg.GameTick,
		PauseOnDisconnect: cfg.PauseOnDisconnect,
		ResumeOnReconnect: cfg.ResumeOnReconnect,
	}, opts...)
	srv := httpserver.New(b, scores, radio)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := b.Run(ctx); err != nil {
			log.Error().Err(err).Msg("bridge exited")
		}
	}()
	go func() {
		defer wg.Done()
		log.Info().Str("port", cfg.Port).Str("device", cfg.DeviceName).Msg("starting gesturetris")
		if err := srv.Start(ctx, ":"+cfg.Port); err != nil {
			log.Error().Err(err).Msg("server exited")
			stop()
		}
	}()

	if program != nil {
		if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			log.Error().Err(err).Msg("terminal view exited")
		}
		stop()
	}
	wg.Wait()
}

// openScores returns the SQLite score history when dsn is set, otherwise an
// in-memory one. The returned func closes the database.
func openScores(dsn string) (store.Store, func(), error) {
	if dsn == "" {
		return store.NewMemoryStore(), func() {}, nil
	}
	db, err := openDB(dsn)
	if err != nil {
		return nil, nil, err
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return store.NewSQLite(db), func() { _ = db.Close() }, nil
}

// originChecker accepts sockets without an Origin header, from the server's
// own host, and from allowed. An empty allowed keeps the same-origin default.
func originChecker(allowed string) func(*http.Request) bool {
	if allowed == "" {
		return nil
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || origin == allowed {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && u.Host == r.Host
	}
}
