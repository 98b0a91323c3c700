package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/futsal-hq/match-tracker/models"
	"github.com/lib/pq"
)

var (
	ErrPlayerStatNotFound = errors.New("player stat not found")
	ErrPlayerStatConflict = errors.New("player stat already exists for this match and player")
)

type PlayerStatRepository interface {
	Create(ctx context.Context, stat *models.PlayerStat) error
	GetByMatchAndPlayer(ctx context.Context, matchID, playerID int) (*models.PlayerStat, error)
	ListByMatch(ctx context.Context, matchID int) ([]*models.PlayerStat, error)
	// EnsureOnField создаёт строку статистики (is_starter = false), если её
	// ещё нет, и в любом случае помечает игрока находящимся на площадке.
	EnsureOnField(ctx context.Context, matchID, playerID int) error
	SetOnField(ctx context.Context, matchID, playerID int, onField bool) error
	IncrementGoals(ctx context.Context, matchID, playerID int) error
	IncrementFouls(ctx context.Context, matchID, playerID int) error
	// AddTimeOnField начисляет delta секунд всем перечисленным игрокам
	// одним запросом.
	AddTimeOnField(ctx context.Context, matchID int, playerIDs []int, delta int) error
}

type postgresPlayerStatRepository struct {
	db *sql.DB
}

func NewPostgresPlayerStatRepository(db *sql.DB) PlayerStatRepository {
	return &postgresPlayerStatRepository{db: db}
}

func (r *postgresPlayerStatRepository) Create(ctx context.Context, stat *models.PlayerStat) error {
	query := `
		INSERT INTO player_stats (match_id, player_id, time_on_field, goals, fouls, is_starter, is_currently_on_field)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		stat.MatchID,
		stat.PlayerID,
		stat.TimeOnField,
		stat.Goals,
		stat.Fouls,
		stat.IsStarter,
		stat.IsCurrentlyOnField,
	).Scan(&stat.ID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" { // unique_violation
			return ErrPlayerStatConflict
		}
		return err
	}
	return nil
}

func (r *postgresPlayerStatRepository) GetByMatchAndPlayer(ctx context.Context, matchID, playerID int) (*models.PlayerStat, error) {
	query := `
		SELECT id, match_id, player_id, time_on_field, goals, fouls, is_starter, is_currently_on_field
		FROM player_stats
		WHERE match_id = $1 AND player_id = $2`

	stat := &models.PlayerStat{}
	err := r.db.QueryRowContext(ctx, query, matchID, playerID).Scan(
		&stat.ID,
		&stat.MatchID,
		&stat.PlayerID,
		&stat.TimeOnField,
		&stat.Goals,
		&stat.Fouls,
		&stat.IsStarter,
		&stat.IsCurrentlyOnField,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerStatNotFound
		}
		return nil, err
	}
	return stat, nil
}

func (r *postgresPlayerStatRepository) ListByMatch(ctx context.Context, matchID int) ([]*models.PlayerStat, error) {
	query := `
		SELECT id, match_id, player_id, time_on_field, goals, fouls, is_starter, is_currently_on_field
		FROM player_stats
		WHERE match_id = $1
		ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make([]*models.PlayerStat, 0)
	for rows.Next() {
		stat := &models.PlayerStat{}
		if scanErr := rows.Scan(
			&stat.ID,
			&stat.MatchID,
			&stat.PlayerID,
			&stat.TimeOnField,
			&stat.Goals,
			&stat.Fouls,
			&stat.IsStarter,
			&stat.IsCurrentlyOnField,
		); scanErr != nil {
			return nil, scanErr
		}
		stats = append(stats, stat)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *postgresPlayerStatRepository) EnsureOnField(ctx context.Context, matchID, playerID int) error {
	query := `
		INSERT INTO player_stats (match_id, player_id, is_starter, is_currently_on_field)
		VALUES ($1, $2, FALSE, TRUE)
		ON CONFLICT (match_id, player_id)
		DO UPDATE SET is_currently_on_field = TRUE`

	_, err := r.db.ExecContext(ctx, query, matchID, playerID)
	return err
}

func (r *postgresPlayerStatRepository) SetOnField(ctx context.Context, matchID, playerID int, onField bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE player_stats SET is_currently_on_field = $1 WHERE match_id = $2 AND player_id = $3`,
		onField, matchID, playerID)
	if err != nil {
		return err
	}
	rowsAffected, checkErr := checkRowsAffected(result)
	if checkErr != nil {
		return checkErr
	}
	if rowsAffected == 0 {
		return ErrPlayerStatNotFound
	}
	return nil
}

func (r *postgresPlayerStatRepository) IncrementGoals(ctx context.Context, matchID, playerID int) error {
	return r.increment(ctx, "goals", matchID, playerID)
}

func (r *postgresPlayerStatRepository) IncrementFouls(ctx context.Context, matchID, playerID int) error {
	return r.increment(ctx, "fouls", matchID, playerID)
}

func (r *postgresPlayerStatRepository) increment(ctx context.Context, column string, matchID, playerID int) error {
	// column приходит только из IncrementGoals/IncrementFouls, не из запроса.
	query := `UPDATE player_stats SET ` + column + ` = ` + column + ` + 1 WHERE match_id = $1 AND player_id = $2`
	result, err := r.db.ExecContext(ctx, query, matchID, playerID)
	if err != nil {
		return err
	}
	rowsAffected, checkErr := checkRowsAffected(result)
	if checkErr != nil {
		return checkErr
	}
	if rowsAffected == 0 {
		return ErrPlayerStatNotFound
	}
	return nil
}

func (r *postgresPlayerStatRepository) AddTimeOnField(ctx context.Context, matchID int, playerIDs []int, delta int) error {
	if len(playerIDs) == 0 || delta == 0 {
		return nil
	}
	query := `
		UPDATE player_stats
		SET time_on_field = time_on_field + $1
		WHERE match_id = $2 AND player_id = ANY($3)`

	_, err := r.db.ExecContext(ctx, query, delta, matchID, toInt64Array(playerIDs))
	return err
}
