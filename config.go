// config.go
//
// Process configuration from the environment (.env is loaded first when present).
//
//	PORT                 HTTP listen port                     (5175)
//	LOG_LEVEL            zerolog level                        (info)
//	LOG_FILE             log destination in TUI mode          (gesturetris.log)
//	DEVICE_NAME          advertised peripheral name           (gesturetris)
//	COUNTER_INTERVAL     counter notification period          (1s)
//	GAME_TICK            gameplay clock period                (1s)
//	PAUSE_ON_DISCONNECT  stop the clock when a peer leaves    (true)
//	RESUME_ON_RECONNECT  continue a paused game on reconnect  (false)
//	GESTURE_ALIASES      also accept left/right/rotate/tap     (false)
//	SCORES_DB            SQLite path; empty keeps scores in memory
//	CLIENT_ORIGIN        allowed browser origin for the API and /central
//	TUI                  draw the board in the terminal       (false)

package main

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

type config struct {
	Port              string
	LogLevel          string
	LogFile           string
	DeviceName        string
	CounterInterval   time.Duration
	GameTick          time.Duration
	PauseOnDisconnect bool
	ResumeOnReconnect bool
	GestureAliases    bool
	ScoresDB          string
	ClientOrigin      string
	TUI               bool
}

func loadConfig() config {
	return config{
		Port:              getEnv("PORT", "5175"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFile:           getEnv("LOG_FILE", "gesturetris.log"),
		DeviceName:        getEnv("DEVICE_NAME", "gesturetris"),
		CounterInterval:   envDuration("COUNTER_INTERVAL", time.Second),
		GameTick:          envDuration("GAME_TICK", time.Second),
		PauseOnDisconnect: envBool("PAUSE_ON_DISCONNECT", true),
		ResumeOnReconnect: envBool("RESUME_ON_RECONNECT", false),
		GestureAliases:    envBool("GESTURE_ALIASES", false),
		ScoresDB:          getEnv("SCORES_DB", ""),
		ClientOrigin:      getEnv("CLIENT_ORIGIN", ""),
		TUI:               envBool("TUI", false),
	}
}

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// envDuration parses k as a Go duration ("750ms", "2s"); bad or
// non-positive values fall back to def.
func envDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Warn().Str("key", k).Str("value", v).Msg("invalid duration, using default")
		return def
	}
	return d
}

func envBool(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Warn().Str("key", k).Str("value", v).Msg("invalid bool, using default")
		return def
	}
	return b
}
