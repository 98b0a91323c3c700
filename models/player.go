package models

// FutsalPosition перечисляет позиции, допустимые для игрока.
type FutsalPosition string

const (
	PositionPortero FutsalPosition = "Portero"
	PositionCierre  FutsalPosition = "Cierre"
	PositionPivot   FutsalPosition = "Pivot"
	PositionAla     FutsalPosition = "Ala"
)

func (p FutsalPosition) Valid() bool {
	switch p {
	case PositionPortero, PositionCierre, PositionPivot, PositionAla:
		return true
	}
	return false
}

type Player struct {
	ID           int            `json:"id" db:"id"`
	TeamID       int            `json:"team_id" db:"team_id"`
	Name         string         `json:"name" db:"name"`
	JerseyNumber int            `json:"jersey_number" db:"jersey_number"`
	Position     FutsalPosition `json:"position" db:"position"`
	IsActive     bool           `json:"is_active" db:"is_active"`

	Team *Team `json:"team,omitempty" db:"-"`
}
