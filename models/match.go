package models

import (
	"fmt"
	"time"
)

// MatchStatus представляет статусы матча, соответствующие ENUM в БД.
type MatchStatus string

const (
	MatchStatusScheduled  MatchStatus = "scheduled"
	MatchStatusInProgress MatchStatus = "in_progress"
	MatchStatusFinished   MatchStatus = "finished"
)

type MatchFormat string

const (
	FormatLeague     MatchFormat = "league"
	FormatTournament MatchFormat = "tournament"
)

func (f MatchFormat) Valid() bool {
	return f == FormatLeague || f == FormatTournament
}

// FormatSettings фиксируются при создании матча и не меняются по ходу игры.
type FormatSettings struct {
	HalfDurationMinutes int `json:"half_duration_minutes"`
	NumberOfHalves      int `json:"number_of_halves"`
	PlayersOnField      int `json:"players_on_field"`
}

func (s FormatSettings) Validate() error {
	if s.HalfDurationMinutes <= 0 {
		return fmt.Errorf("half_duration_minutes must be positive, got %d", s.HalfDurationMinutes)
	}
	if s.NumberOfHalves <= 0 {
		return fmt.Errorf("number_of_halves must be positive, got %d", s.NumberOfHalves)
	}
	if s.PlayersOnField <= 0 {
		return fmt.Errorf("players_on_field must be positive, got %d", s.PlayersOnField)
	}
	return nil
}

// HalfDuration возвращает номинальную длительность тайма в секундах.
// Истечение времени носит информационный характер: переходы между таймами
// и завершение матча всегда инициирует оператор.
func (s FormatSettings) HalfDuration() int {
	return s.HalfDurationMinutes * 60
}

type Match struct {
	ID             int            `json:"id" db:"id"`
	TeamID         int            `json:"team_id" db:"team_id"`
	Opponent       string         `json:"opponent" db:"opponent"`
	Venue          string         `json:"venue" db:"venue"`
	Competition    string         `json:"competition" db:"competition"`
	MatchDate      time.Time      `json:"match_date" db:"match_date"`
	Format         MatchFormat    `json:"format" db:"format"`
	FormatSettings FormatSettings `json:"format_settings" db:"format_settings"`
	Status         MatchStatus    `json:"status" db:"status"`
	HomeScore      int            `json:"home_score" db:"home_score"`
	AwayScore      int            `json:"away_score" db:"away_score"`
	CurrentHalf    int            `json:"current_half" db:"current_half"`
	CurrentTime    int            `json:"current_time" db:"elapsed_seconds"` // seconds
	TimerRunning   bool           `json:"is_timer_running" db:"is_timer_running"`
	ActivePlayers  []int          `json:"active_players" db:"active_players"`
	StartedAt      *time.Time     `json:"started_at,omitempty" db:"started_at"`
	EndedAt        *time.Time     `json:"ended_at,omitempty" db:"ended_at"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`

	Team *Team `json:"team,omitempty" db:"-"`
}

// HasActivePlayer сообщает, находится ли игрок сейчас на площадке.
// ActivePlayers трактуется как множество: порядок идентификаторов не значим.
func (m *Match) HasActivePlayer(playerID int) bool {
	for _, id := range m.ActivePlayers {
		if id == playerID {
			return true
		}
	}
	return false
}

func (m *Match) IsLive() bool {
	return m.Status == MatchStatusInProgress
}
