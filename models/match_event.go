package models

import "time"

type MatchEventType string

const (
	EventGoal         MatchEventType = "goal"
	EventFoul         MatchEventType = "foul"
	EventSubstitution MatchEventType = "substitution"
	EventTimeout      MatchEventType = "timeout"
	EventYellowCard   MatchEventType = "yellow_card"
	EventRedCard      MatchEventType = "red_card"
)

func (t MatchEventType) Valid() bool {
	switch t {
	case EventGoal, EventFoul, EventSubstitution, EventTimeout, EventYellowCard, EventRedCard:
		return true
	}
	return false
}

// MatchEvent — запись в журнале матча. Журнал только пополняется: события
// никогда не изменяются и не удаляются, порядок определяется вставкой.
// EventTime — отметка игрового времени в секундах, носит справочный характер.
type MatchEvent struct {
	ID          int            `json:"id" db:"id"`
	MatchID     int            `json:"match_id" db:"match_id"`
	PlayerID    *int           `json:"player_id,omitempty" db:"player_id"`
	EventType   MatchEventType `json:"event_type" db:"event_type"`
	EventTime   int            `json:"event_time" db:"event_time"` // seconds
	Half        int            `json:"half" db:"half"`
	Description string         `json:"description" db:"description"`
	Metadata    map[string]any `json:"metadata" db:"metadata"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
}
