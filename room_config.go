package server

import "time"

const (
	defaultRoundsToWin      = 3
	defaultMaxRounds        = 5
	defaultCountdownSeconds = 3
	defaultRoundEndDelay    = 2500 * time.Millisecond
)

// RoomConfig captures the match-level knobs for a room.
type RoomConfig struct {
	RoundsToWin      int           `json:"roundsToWin"`
	MaxRounds        int           `json:"maxRounds"`
	CountdownSeconds int           `json:"countdownSeconds"`
	RoundEndDelay    time.Duration `json:"roundEndDelay"`
}

// normalized returns a config with defaults applied. MaxRounds is raised to
// the smallest count that lets a match reach RoundsToWin, so a room can
// never stall short of its own win threshold.
func (cfg RoomConfig) normalized() RoomConfig {
	normalized := cfg
	if normalized.RoundsToWin <= 0 {
		normalized.RoundsToWin = defaultRoundsToWin
	}
	if normalized.MaxRounds < normalized.RoundsToWin {
		normalized.MaxRounds = 2*normalized.RoundsToWin - 1
	}
	if normalized.CountdownSeconds <= 0 {
		normalized.CountdownSeconds = defaultCountdownSeconds
	}
	if normalized.RoundEndDelay <= 0 {
		normalized.RoundEndDelay = defaultRoundEndDelay
	}
	return normalized
}

// DefaultRoomConfig returns the standard first-to-three setup.
func DefaultRoomConfig() RoomConfig {
	return RoomConfig{
		RoundsToWin:      defaultRoundsToWin,
		MaxRounds:        defaultMaxRounds,
		CountdownSeconds: defaultCountdownSeconds,
		RoundEndDelay:    defaultRoundEndDelay,
	}
}
