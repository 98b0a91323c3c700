package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/futsal-hq/match-tracker/models"
	"github.com/lib/pq"
)

var (
	ErrMatchEventMatchInvalid  = errors.New("match event match conflict or invalid")
	ErrMatchEventPlayerInvalid = errors.New("match event player conflict or invalid")
)

// MatchEventRepository — журнал матча. Только вставка и чтение: событие
// никогда не обновляется и не удаляется отдельно от матча.
type MatchEventRepository interface {
	Append(ctx context.Context, event *models.MatchEvent) error
	ListByMatch(ctx context.Context, matchID int) ([]*models.MatchEvent, error)
}

type postgresMatchEventRepository struct {
	db *sql.DB
}

func NewPostgresMatchEventRepository(db *sql.DB) MatchEventRepository {
	return &postgresMatchEventRepository{db: db}
}

func (r *postgresMatchEventRepository) Append(ctx context.Context, event *models.MatchEvent) error {
	metadata := event.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal event metadata: %w", err)
	}

	query := `
		INSERT INTO match_events (match_id, player_id, event_type, event_time, half, description, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err = r.db.QueryRowContext(ctx, query,
		event.MatchID,
		event.PlayerID,
		event.EventType,
		event.EventTime,
		event.Half,
		event.Description,
		metadataJSON,
	).Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" { // foreign_key_violation
			switch pqErr.Constraint {
			case "match_events_match_id_fkey":
				return ErrMatchEventMatchInvalid
			case "match_events_player_id_fkey":
				return ErrMatchEventPlayerInvalid
			}
			return ErrMatchEventMatchInvalid
		}
		return err
	}
	event.Metadata = metadata
	return nil
}

// ListByMatch возвращает события в порядке вставки, от старых к новым.
// Порядок определяется последовательным id, а не event_time: две записи
// могут иметь одинаковую отметку игрового времени.
func (r *postgresMatchEventRepository) ListByMatch(ctx context.Context, matchID int) ([]*models.MatchEvent, error) {
	query := `
		SELECT id, match_id, player_id, event_type, event_time, half, description, metadata, created_at
		FROM match_events
		WHERE match_id = $1
		ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*models.MatchEvent, 0)
	for rows.Next() {
		event := &models.MatchEvent{}
		var metadataJSON []byte
		if scanErr := rows.Scan(
			&event.ID,
			&event.MatchID,
			&event.PlayerID,
			&event.EventType,
			&event.EventTime,
			&event.Half,
			&event.Description,
			&metadataJSON,
			&event.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &event.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata for event %d: %w", event.ID, err)
			}
		}
		events = append(events, event)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}
