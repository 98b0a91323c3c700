package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/futsal-hq/match-tracker/models"
	"github.com/lib/pq"
)

var (
	ErrMatchNotFound    = errors.New("match not found")
	ErrMatchTeamInvalid = errors.New("match team conflict or invalid")
)

// MatchUpdate описывает частичное обновление матча. Заполненные (не-nil)
// поля попадают в SET; обновление атомарно и возвращает новый снимок строки.
type MatchUpdate struct {
	Status        *models.MatchStatus
	HomeScore     *int
	AwayScore     *int
	CurrentHalf   *int
	CurrentTime   *int
	TimerRunning  *bool
	ActivePlayers *[]int
	StartedAt     *time.Time
	EndedAt       *time.Time
}

// LineupSwap описывает одну замену для атомарного применения: событие
// журнала, снятие уходящего и выход заменяющего пишутся одной
// транзакцией вместе с обновлением множества активных игроков.
type LineupSwap struct {
	Out   int
	In    int
	Event *models.MatchEvent
}

type MatchRepository interface {
	Create(ctx context.Context, match *models.Match) error
	GetByID(ctx context.Context, id int) (*models.Match, error)
	List(ctx context.Context) ([]*models.Match, error)
	ListByTeam(ctx context.Context, teamID int) ([]*models.Match, error)
	Update(ctx context.Context, id int, upd MatchUpdate) (*models.Match, error)
	// Start одной транзакцией создаёт строки статистики стартового состава
	// и переводит матч в in_progress.
	Start(ctx context.Context, id int, starters []int, startedAt time.Time) (*models.Match, error)
	// ApplyLineupChange одной транзакцией применяет пакет замен: события,
	// флаги статистики и множество активных игроков.
	ApplyLineupChange(ctx context.Context, id int, swaps []LineupSwap, newActive []int) (*models.Match, error)
	// Delete удаляет матч вместе с его событиями и статистикой игроков.
	Delete(ctx context.Context, id int) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

const matchColumns = `id, team_id, opponent, venue, competition, match_date, format, format_settings,
		status, home_score, away_score, current_half, elapsed_seconds, is_timer_running,
		active_players, started_at, ended_at, created_at`

func (r *postgresMatchRepository) Create(ctx context.Context, match *models.Match) error {
	settingsJSON, err := json.Marshal(match.FormatSettings)
	if err != nil {
		return fmt.Errorf("failed to marshal format settings: %w", err)
	}

	query := `
		INSERT INTO matches (team_id, opponent, venue, competition, match_date, format, format_settings)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, status, home_score, away_score, current_half, elapsed_seconds,
			is_timer_running, active_players, created_at`

	var active pq.Int64Array
	err = r.db.QueryRowContext(ctx, query,
		match.TeamID,
		match.Opponent,
		match.Venue,
		match.Competition,
		match.MatchDate,
		match.Format,
		settingsJSON,
	).Scan(
		&match.ID,
		&match.Status,
		&match.HomeScore,
		&match.AwayScore,
		&match.CurrentHalf,
		&match.CurrentTime,
		&match.TimerRunning,
		&active,
		&match.CreatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" { // foreign_key_violation
			return ErrMatchTeamInvalid
		}
		return err
	}
	match.ActivePlayers = fromInt64Array(active)
	return nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`
	match, err := r.scanMatch(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return match, nil
}

func (r *postgresMatchRepository) List(ctx context.Context) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches ORDER BY match_date DESC`
	return r.queryMatches(ctx, query)
}

func (r *postgresMatchRepository) ListByTeam(ctx context.Context, teamID int) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE team_id = $1 ORDER BY match_date DESC`
	return r.queryMatches(ctx, query, teamID)
}

func (r *postgresMatchRepository) Update(ctx context.Context, id int, upd MatchUpdate) (*models.Match, error) {
	setClauses := make([]string, 0, 9)
	args := make([]interface{}, 0, 10)
	placeholderIndex := 1

	addClause := func(column string, value interface{}) {
		setClauses = append(setClauses, column+" = $"+strconv.Itoa(placeholderIndex))
		args = append(args, value)
		placeholderIndex++
	}

	if upd.Status != nil {
		addClause("status", *upd.Status)
	}
	if upd.HomeScore != nil {
		addClause("home_score", *upd.HomeScore)
	}
	if upd.AwayScore != nil {
		addClause("away_score", *upd.AwayScore)
	}
	if upd.CurrentHalf != nil {
		addClause("current_half", *upd.CurrentHalf)
	}
	if upd.CurrentTime != nil {
		addClause("elapsed_seconds", *upd.CurrentTime)
	}
	if upd.TimerRunning != nil {
		addClause("is_timer_running", *upd.TimerRunning)
	}
	if upd.ActivePlayers != nil {
		addClause("active_players", toInt64Array(*upd.ActivePlayers))
	}
	if upd.StartedAt != nil {
		addClause("started_at", *upd.StartedAt)
	}
	if upd.EndedAt != nil {
		addClause("ended_at", *upd.EndedAt)
	}

	if len(setClauses) == 0 {
		return r.GetByID(ctx, id)
	}

	var queryBuilder strings.Builder
	queryBuilder.WriteString("UPDATE matches SET ")
	queryBuilder.WriteString(strings.Join(setClauses, ", "))
	queryBuilder.WriteString(" WHERE id = $")
	queryBuilder.WriteString(strconv.Itoa(placeholderIndex))
	queryBuilder.WriteString(" RETURNING " + matchColumns)
	args = append(args, id)

	match, err := r.scanMatch(r.db.QueryRowContext(ctx, queryBuilder.String(), args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return match, nil
}

func (r *postgresMatchRepository) Start(ctx context.Context, id int, starters []int, startedAt time.Time) (*models.Match, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	statQuery := `
		INSERT INTO player_stats (match_id, player_id, is_starter, is_currently_on_field)
		SELECT $1, unnest($2::integer[]), TRUE, TRUE`
	if _, err = tx.ExecContext(ctx, statQuery, id, toInt64Array(starters)); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" { // unique_violation
			return nil, ErrPlayerStatConflict
		}
		return nil, fmt.Errorf("failed to create starter stats: %w", err)
	}

	query := `
		UPDATE matches
		SET status = 'in_progress', current_half = 1, elapsed_seconds = 0,
			is_timer_running = TRUE, active_players = $1, started_at = $2
		WHERE id = $3
		RETURNING ` + matchColumns
	match, err := r.scanMatch(tx.QueryRowContext(ctx, query, toInt64Array(starters), startedAt, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit match start: %w", err)
	}
	return match, nil
}

func (r *postgresMatchRepository) ApplyLineupChange(ctx context.Context, id int, swaps []LineupSwap, newActive []int) (*models.Match, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i := range swaps {
		swap := &swaps[i]

		metadataJSON, marshalErr := json.Marshal(swap.Event.Metadata)
		if marshalErr != nil {
			return nil, fmt.Errorf("failed to marshal event metadata: %w", marshalErr)
		}
		eventQuery := `
			INSERT INTO match_events (match_id, player_id, event_type, event_time, half, description, metadata)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, created_at`
		if err = tx.QueryRowContext(ctx, eventQuery,
			swap.Event.MatchID,
			swap.Event.PlayerID,
			swap.Event.EventType,
			swap.Event.EventTime,
			swap.Event.Half,
			swap.Event.Description,
			metadataJSON,
		).Scan(&swap.Event.ID, &swap.Event.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to append substitution event: %w", err)
		}

		result, execErr := tx.ExecContext(ctx,
			`UPDATE player_stats SET is_currently_on_field = FALSE WHERE match_id = $1 AND player_id = $2`,
			id, swap.Out)
		if execErr != nil {
			return nil, fmt.Errorf("failed to mark player %d off field: %w", swap.Out, execErr)
		}
		rowsAffected, checkErr := checkRowsAffected(result)
		if checkErr != nil {
			return nil, checkErr
		}
		if rowsAffected == 0 {
			return nil, ErrPlayerStatNotFound
		}

		if _, err = tx.ExecContext(ctx, `
			INSERT INTO player_stats (match_id, player_id, is_starter, is_currently_on_field)
			VALUES ($1, $2, FALSE, TRUE)
			ON CONFLICT (match_id, player_id)
			DO UPDATE SET is_currently_on_field = TRUE`,
			id, swap.In); err != nil {
			return nil, fmt.Errorf("failed to mark player %d on field: %w", swap.In, err)
		}
	}

	query := `UPDATE matches SET active_players = $1 WHERE id = $2 RETURNING ` + matchColumns
	match, err := r.scanMatch(tx.QueryRowContext(ctx, query, toInt64Array(newActive), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit lineup change: %w", err)
	}
	return match, nil
}

func (r *postgresMatchRepository) Delete(ctx context.Context, id int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx, `DELETE FROM match_events WHERE match_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete match events: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM player_stats WHERE match_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete player stats: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM matches WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rowsAffected, checkErr := checkRowsAffected(result)
	if checkErr != nil {
		return checkErr
	}
	if rowsAffected == 0 {
		return ErrMatchNotFound
	}

	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *postgresMatchRepository) scanMatch(row rowScanner) (*models.Match, error) {
	match := &models.Match{}
	var settingsJSON []byte
	var active pq.Int64Array

	err := row.Scan(
		&match.ID,
		&match.TeamID,
		&match.Opponent,
		&match.Venue,
		&match.Competition,
		&match.MatchDate,
		&match.Format,
		&settingsJSON,
		&match.Status,
		&match.HomeScore,
		&match.AwayScore,
		&match.CurrentHalf,
		&match.CurrentTime,
		&match.TimerRunning,
		&active,
		&match.StartedAt,
		&match.EndedAt,
		&match.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(settingsJSON, &match.FormatSettings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal format settings for match %d: %w", match.ID, err)
	}
	match.ActivePlayers = fromInt64Array(active)
	return match, nil
}

func (r *postgresMatchRepository) queryMatches(ctx context.Context, query string, args ...interface{}) ([]*models.Match, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		match, scanErr := r.scanMatch(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		matches = append(matches, match)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return matches, nil
}
