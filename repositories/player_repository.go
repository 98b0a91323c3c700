package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/futsal-hq/match-tracker/models"
	"github.com/lib/pq"
)

var (
	ErrPlayerNotFound       = errors.New("player not found")
	ErrPlayerTeamInvalid    = errors.New("player team conflict or invalid")
	ErrJerseyNumberConflict = errors.New("jersey number is already taken in this team")
)

type PlayerRepository interface {
	Create(ctx context.Context, player *models.Player) error
	GetByID(ctx context.Context, id int) (*models.Player, error)
	ListByTeam(ctx context.Context, teamID int) ([]*models.Player, error)
	ListAllActive(ctx context.Context) ([]*models.Player, error)
	Update(ctx context.Context, player *models.Player) error
	Deactivate(ctx context.Context, id int) error
}

type postgresPlayerRepository struct {
	db *sql.DB
}

func NewPostgresPlayerRepository(db *sql.DB) PlayerRepository {
	return &postgresPlayerRepository{db: db}
}

func (r *postgresPlayerRepository) Create(ctx context.Context, player *models.Player) error {
	query := `
		INSERT INTO players (team_id, name, jersey_number, position)
		VALUES ($1, $2, $3, $4)
		RETURNING id, is_active`

	err := r.db.QueryRowContext(ctx, query,
		player.TeamID,
		player.Name,
		player.JerseyNumber,
		player.Position,
	).Scan(&player.ID, &player.IsActive)

	return r.handlePlayerError(err)
}

func (r *postgresPlayerRepository) GetByID(ctx context.Context, id int) (*models.Player, error) {
	query := `
		SELECT id, team_id, name, jersey_number, position, is_active
		FROM players
		WHERE id = $1`

	player := &models.Player{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&player.ID,
		&player.TeamID,
		&player.Name,
		&player.JerseyNumber,
		&player.Position,
		&player.IsActive,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}
	return player, nil
}

// ListByTeam возвращает только активных игроков команды.
func (r *postgresPlayerRepository) ListByTeam(ctx context.Context, teamID int) ([]*models.Player, error) {
	query := `
		SELECT id, team_id, name, jersey_number, position, is_active
		FROM players
		WHERE team_id = $1 AND is_active = TRUE
		ORDER BY jersey_number ASC`

	return r.queryPlayers(ctx, query, teamID)
}

func (r *postgresPlayerRepository) ListAllActive(ctx context.Context) ([]*models.Player, error) {
	query := `
		SELECT id, team_id, name, jersey_number, position, is_active
		FROM players
		WHERE is_active = TRUE
		ORDER BY team_id ASC, jersey_number ASC`

	return r.queryPlayers(ctx, query)
}

func (r *postgresPlayerRepository) Update(ctx context.Context, player *models.Player) error {
	query := `
		UPDATE players
		SET name = $1, jersey_number = $2, position = $3
		WHERE id = $4`

	result, err := r.db.ExecContext(ctx, query,
		player.Name,
		player.JerseyNumber,
		player.Position,
		player.ID,
	)
	if err != nil {
		return r.handlePlayerError(err)
	}
	rowsAffected, checkErr := checkRowsAffected(result)
	if checkErr != nil {
		return checkErr
	}
	if rowsAffected == 0 {
		return ErrPlayerNotFound
	}
	return nil
}

func (r *postgresPlayerRepository) Deactivate(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE players SET is_active = FALSE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rowsAffected, checkErr := checkRowsAffected(result)
	if checkErr != nil {
		return checkErr
	}
	if rowsAffected == 0 {
		return ErrPlayerNotFound
	}
	return nil
}

func (r *postgresPlayerRepository) queryPlayers(ctx context.Context, query string, args ...interface{}) ([]*models.Player, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	players := make([]*models.Player, 0)
	for rows.Next() {
		player := &models.Player{}
		if scanErr := rows.Scan(
			&player.ID,
			&player.TeamID,
			&player.Name,
			&player.JerseyNumber,
			&player.Position,
			&player.IsActive,
		); scanErr != nil {
			return nil, scanErr
		}
		players = append(players, player)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return players, nil
}

func (r *postgresPlayerRepository) handlePlayerError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23503": // foreign_key_violation
			return ErrPlayerTeamInvalid
		case "23505": // unique_violation
			return ErrJerseyNumberConflict
		}
	}
	return err
}
