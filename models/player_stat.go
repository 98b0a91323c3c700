package models

// PlayerStat — одна строка на пару (матч, игрок). Создаётся при стартовом
// составе или при первом выходе игрока на замену.
type PlayerStat struct {
	ID                 int  `json:"id" db:"id"`
	MatchID            int  `json:"match_id" db:"match_id"`
	PlayerID           int  `json:"player_id" db:"player_id"`
	TimeOnField        int  `json:"time_on_field" db:"time_on_field"` // seconds
	Goals              int  `json:"goals" db:"goals"`
	Fouls              int  `json:"fouls" db:"fouls"`
	IsStarter          bool `json:"is_starter" db:"is_starter"`
	IsCurrentlyOnField bool `json:"is_currently_on_field" db:"is_currently_on_field"`

	Player *Player `json:"player,omitempty" db:"-"`
}
