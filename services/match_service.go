package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/futsal-hq/match-tracker/models"
	"github.com/futsal-hq/match-tracker/repositories"
	"golang.org/x/sync/errgroup"
)

type CreateMatchInput struct {
	TeamID         int                   `json:"team_id"`
	Opponent       string                `json:"opponent"`
	Venue          string                `json:"venue"`
	Competition    string                `json:"competition"`
	MatchDate      time.Time             `json:"match_date"`
	Format         models.MatchFormat    `json:"format"`
	FormatSettings models.FormatSettings `json:"format_settings"`
}

// MatchSummary — полный срез матча для зрителя: состояние, журнал и
// статистика игроков.
type MatchSummary struct {
	Match  *models.Match        `json:"match"`
	Events []*models.MatchEvent `json:"events"`
	Stats  []*models.PlayerStat `json:"stats"`
}

type MatchService interface {
	CreateMatch(ctx context.Context, input CreateMatchInput) (*models.Match, error)
	GetMatchByID(ctx context.Context, id int) (*models.Match, error)
	ListMatches(ctx context.Context) ([]*models.Match, error)
	ListMatchesByTeam(ctx context.Context, teamID int) ([]*models.Match, error)
	DeleteMatch(ctx context.Context, id int) error
	ListEvents(ctx context.Context, matchID int) ([]*models.MatchEvent, error)
	ListStats(ctx context.Context, matchID int) ([]*models.PlayerStat, error)
	GetSummary(ctx context.Context, matchID int) (*MatchSummary, error)
}

type matchService struct {
	matchRepo repositories.MatchRepository
	teamRepo  repositories.TeamRepository
	eventRepo repositories.MatchEventRepository
	statRepo  repositories.PlayerStatRepository
	locker    *MatchLocker
}

func NewMatchService(
	matchRepo repositories.MatchRepository,
	teamRepo repositories.TeamRepository,
	eventRepo repositories.MatchEventRepository,
	statRepo repositories.PlayerStatRepository,
	locker *MatchLocker,
) MatchService {
	return &matchService{
		matchRepo: matchRepo,
		teamRepo:  teamRepo,
		eventRepo: eventRepo,
		statRepo:  statRepo,
		locker:    locker,
	}
}

func (s *matchService) CreateMatch(ctx context.Context, input CreateMatchInput) (*models.Match, error) {
	if strings.TrimSpace(input.Opponent) == "" {
		return nil, fmt.Errorf("%w: opponent is required", ErrValidationFailed)
	}
	if !input.Format.Valid() {
		return nil, ErrInvalidMatchFormat
	}
	if err := input.FormatSettings.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormatSettings, err)
	}

	team, err := s.teamRepo.GetByID(ctx, input.TeamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	if !team.IsActive {
		return nil, ErrTeamInactive
	}

	match := &models.Match{
		TeamID:         input.TeamID,
		Opponent:       input.Opponent,
		Venue:          input.Venue,
		Competition:    input.Competition,
		MatchDate:      input.MatchDate,
		Format:         input.Format,
		FormatSettings: input.FormatSettings,
		Status:         models.MatchStatusScheduled,
		CurrentHalf:    1,
	}
	if err := s.matchRepo.Create(ctx, match); err != nil {
		if errors.Is(err, repositories.ErrMatchTeamInvalid) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to create match: %w", err)
	}
	return match, nil
}

func (s *matchService) GetMatchByID(ctx context.Context, id int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return match, nil
}

func (s *matchService) ListMatches(ctx context.Context) ([]*models.Match, error) {
	matches, err := s.matchRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	return matches, nil
}

func (s *matchService) ListMatchesByTeam(ctx context.Context, teamID int) ([]*models.Match, error) {
	matches, err := s.matchRepo.ListByTeam(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches for team %d: %w", teamID, err)
	}
	return matches, nil
}

// DeleteMatch удаляет матч вместе с журналом и статистикой. Разрешено
// только до начала: идущий матч держит блокировку, завершённый — история.
func (s *matchService) DeleteMatch(ctx context.Context, id int) error {
	unlock := s.locker.Lock(id)
	defer unlock()

	match, err := s.GetMatchByID(ctx, id)
	if err != nil {
		return err
	}
	if match.Status != models.MatchStatusScheduled {
		return ErrMatchNotDeletable
	}

	if err := s.matchRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return ErrMatchNotFound
		}
		return err
	}

	// Матча больше нет, новые операции упрутся в not found. Запись в
	// таблице блокировок держать незачем.
	s.locker.Forget(id)
	return nil
}

func (s *matchService) ListEvents(ctx context.Context, matchID int) ([]*models.MatchEvent, error) {
	if _, err := s.GetMatchByID(ctx, matchID); err != nil {
		return nil, err
	}
	events, err := s.eventRepo.ListByMatch(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events for match %d: %w", matchID, err)
	}
	return events, nil
}

func (s *matchService) ListStats(ctx context.Context, matchID int) ([]*models.PlayerStat, error) {
	if _, err := s.GetMatchByID(ctx, matchID); err != nil {
		return nil, err
	}
	stats, err := s.statRepo.ListByMatch(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stats for match %d: %w", matchID, err)
	}
	return stats, nil
}

// GetSummary загружает матч, журнал и статистику параллельно. Чтения не
// берут блокировку матча и могут идти одновременно с живой игрой.
func (s *matchService) GetSummary(ctx context.Context, matchID int) (*MatchSummary, error) {
	summary := &MatchSummary{}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		match, err := s.GetMatchByID(gCtx, matchID)
		if err != nil {
			return err
		}
		summary.Match = match
		return nil
	})

	g.Go(func() error {
		events, err := s.eventRepo.ListByMatch(gCtx, matchID)
		if err != nil {
			return fmt.Errorf("failed to list events for match %d: %w", matchID, err)
		}
		summary.Events = events
		return nil
	})

	g.Go(func() error {
		stats, err := s.statRepo.ListByMatch(gCtx, matchID)
		if err != nil {
			return fmt.Errorf("failed to list stats for match %d: %w", matchID, err)
		}
		summary.Stats = stats
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summary, nil
}
