package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/futsal-hq/match-tracker/models"
	"github.com/futsal-hq/match-tracker/repositories"
)

type CreatePlayerInput struct {
	TeamID       int                   `json:"team_id"`
	Name         string                `json:"name"`
	JerseyNumber int                   `json:"jersey_number"`
	Position     models.FutsalPosition `json:"position"`
}

type UpdatePlayerInput struct {
	Name         *string                `json:"name,omitempty"`
	JerseyNumber *int                   `json:"jersey_number,omitempty"`
	Position     *models.FutsalPosition `json:"position,omitempty"`
}

type PlayerService interface {
	CreatePlayer(ctx context.Context, input CreatePlayerInput) (*models.Player, error)
	GetPlayerByID(ctx context.Context, id int) (*models.Player, error)
	ListPlayersByTeam(ctx context.Context, teamID int) ([]*models.Player, error)
	ListAllPlayers(ctx context.Context) ([]*models.Player, error)
	UpdatePlayer(ctx context.Context, id int, input UpdatePlayerInput) (*models.Player, error)
	DeactivatePlayer(ctx context.Context, id int) error
}

type playerService struct {
	playerRepo repositories.PlayerRepository
	teamRepo   repositories.TeamRepository
}

func NewPlayerService(playerRepo repositories.PlayerRepository, teamRepo repositories.TeamRepository) PlayerService {
	return &playerService{playerRepo: playerRepo, teamRepo: teamRepo}
}

func (s *playerService) CreatePlayer(ctx context.Context, input CreatePlayerInput) (*models.Player, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrPlayerNameRequired
	}
	if !input.Position.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPosition, input.Position)
	}
	if input.JerseyNumber <= 0 {
		return nil, fmt.Errorf("%w: jersey number must be positive", ErrValidationFailed)
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

	player := &models.Player{
		TeamID:       input.TeamID,
		Name:         name,
		JerseyNumber: input.JerseyNumber,
		Position:     input.Position,
	}
	if err := s.playerRepo.Create(ctx, player); err != nil {
		switch {
		case errors.Is(err, repositories.ErrJerseyNumberConflict):
			return nil, ErrJerseyNumberConflict
		case errors.Is(err, repositories.ErrPlayerTeamInvalid):
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to create player: %w", err)
	}
	return player, nil
}

func (s *playerService) GetPlayerByID(ctx context.Context, id int) (*models.Player, error) {
	player, err := s.playerRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}
	return player, nil
}

func (s *playerService) ListPlayersByTeam(ctx context.Context, teamID int) ([]*models.Player, error) {
	if _, err := s.teamRepo.GetByID(ctx, teamID); err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	players, err := s.playerRepo.ListByTeam(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list players for team %d: %w", teamID, err)
	}
	return players, nil
}

func (s *playerService) ListAllPlayers(ctx context.Context) ([]*models.Player, error) {
	players, err := s.playerRepo.ListAllActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	return players, nil
}

func (s *playerService) UpdatePlayer(ctx context.Context, id int, input UpdatePlayerInput) (*models.Player, error) {
	player, err := s.GetPlayerByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrPlayerNameRequired
		}
		player.Name = name
	}
	if input.JerseyNumber != nil {
		if *input.JerseyNumber <= 0 {
			return nil, fmt.Errorf("%w: jersey number must be positive", ErrValidationFailed)
		}
		player.JerseyNumber = *input.JerseyNumber
	}
	if input.Position != nil {
		if !input.Position.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPosition, *input.Position)
		}
		player.Position = *input.Position
	}

	if err := s.playerRepo.Update(ctx, player); err != nil {
		switch {
		case errors.Is(err, repositories.ErrJerseyNumberConflict):
			return nil, ErrJerseyNumberConflict
		case errors.Is(err, repositories.ErrPlayerNotFound):
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to update player %d: %w", id, err)
	}
	return player, nil
}

func (s *playerService) DeactivatePlayer(ctx context.Context, id int) error {
	if err := s.playerRepo.Deactivate(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return ErrPlayerNotFound
		}
		return fmt.Errorf("failed to deactivate player %d: %w", id, err)
	}
	return nil
}
