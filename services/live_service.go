package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/futsal-hq/match-tracker/models"
	"github.com/futsal-hq/match-tracker/repositories"
)

type GoalInput struct {
	PlayerID *int `json:"player_id,omitempty"`
	HomeSide bool `json:"home_side"`
}

type CardColor string

const (
	CardYellow CardColor = "yellow"
	CardRed    CardColor = "red"
)

type CardInput struct {
	PlayerID int       `json:"player_id"`
	Color    CardColor `json:"color"`
}

type EventInput struct {
	EventType   models.MatchEventType `json:"event_type"`
	PlayerID    *int                  `json:"player_id,omitempty"`
	EventTime   *int                  `json:"event_time,omitempty"`
	Description string                `json:"description"`
}

// LiveMatchService владеет жизненным циклом матча:
// scheduled -> in_progress -> finished, без пропуска состояний и без
// переходов из finished. Все мутирующие операции одного матча
// сериализуются через MatchLocker.
type LiveMatchService interface {
	StartMatch(ctx context.Context, matchID int, starters []int) (*models.Match, error)
	ToggleTimer(ctx context.Context, matchID int) (*models.Match, error)
	AdvanceClock(ctx context.Context, matchID int, deltaSeconds int) (*models.Match, error)
	RecordGoal(ctx context.Context, matchID int, input GoalInput) (*models.Match, error)
	RecordCard(ctx context.Context, matchID int, input CardInput) (*models.MatchEvent, error)
	RecordEvent(ctx context.Context, matchID int, input EventInput) (*models.MatchEvent, error)
	EndMatch(ctx context.Context, matchID int) (*models.Match, error)
}

type liveMatchService struct {
	matchRepo  repositories.MatchRepository
	playerRepo repositories.PlayerRepository
	eventRepo  repositories.MatchEventRepository
	statRepo   repositories.PlayerStatRepository
	locker     *MatchLocker
	hub        Broadcaster
}

func NewLiveMatchService(
	matchRepo repositories.MatchRepository,
	playerRepo repositories.PlayerRepository,
	eventRepo repositories.MatchEventRepository,
	statRepo repositories.PlayerStatRepository,
	locker *MatchLocker,
	hub Broadcaster,
) LiveMatchService {
	return &liveMatchService{
		matchRepo:  matchRepo,
		playerRepo: playerRepo,
		eventRepo:  eventRepo,
		statRepo:   statRepo,
		locker:     locker,
		hub:        hub,
	}
}

func (s *liveMatchService) StartMatch(ctx context.Context, matchID int, starters []int) (*models.Match, error) {
	unlock := s.locker.Lock(matchID)
	defer unlock()

	match, err := s.loadMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match.Status != models.MatchStatusScheduled {
		return nil, fmt.Errorf("%w: cannot start a %s match", ErrIllegalTransition, match.Status)
	}

	required := match.FormatSettings.PlayersOnField
	if len(starters) != required {
		return nil, fmt.Errorf("%w: got %d starters, need %d", ErrInvalidLineupSize, len(starters), required)
	}
	seen := make(map[int]bool, len(starters))
	for _, id := range starters {
		if seen[id] {
			return nil, fmt.Errorf("%w: duplicate starter %d", ErrInvalidLineupSize, id)
		}
		seen[id] = true
	}

	teamPlayers, err := s.playerRepo.ListByTeam(ctx, match.TeamID)
	if err != nil {
		return nil, fmt.Errorf("failed to load team players: %w", err)
	}
	eligible := make(map[int]bool, len(teamPlayers))
	for _, p := range teamPlayers {
		eligible[p.ID] = true
	}
	for _, id := range starters {
		if !eligible[id] {
			return nil, fmt.Errorf("%w: player %d", ErrInvalidPlayer, id)
		}
	}

	// Старт — одна транзакция: строки статистики стартового состава и
	// перевод матча в in_progress фиксируются вместе, либо не фиксируется
	// ничего.
	updated, err := s.matchRepo.Start(ctx, matchID, starters, time.Now().UTC())
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerStatConflict) {
			return nil, fmt.Errorf("%w: match already has recorded stats", ErrIllegalTransition)
		}
		return nil, s.mapMatchRepoError(err)
	}

	s.hub.BroadcastMatchUpdate(matchID, updated)
	return updated, nil
}

func (s *liveMatchService) ToggleTimer(ctx context.Context, matchID int) (*models.Match, error) {
	unlock := s.locker.Lock(matchID)
	defer unlock()

	match, err := s.loadMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !match.IsLive() {
		return nil, fmt.Errorf("%w: timer can only be toggled while in progress", ErrIllegalTransition)
	}

	running := !match.TimerRunning
	updated, err := s.matchRepo.Update(ctx, matchID, repositories.MatchUpdate{TimerRunning: &running})
	if err != nil {
		return nil, s.mapMatchRepoError(err)
	}

	s.hub.BroadcastMatchUpdate(matchID, updated)
	return updated, nil
}

// AdvanceClock — чистый переход состояния: ядро не держит собственный
// таймер, тики приходят от внешнего планировщика. Пока секундомер на
// паузе, вызов — это no-op.
func (s *liveMatchService) AdvanceClock(ctx context.Context, matchID int, deltaSeconds int) (*models.Match, error) {
	if deltaSeconds < 0 {
		return nil, fmt.Errorf("%w: clock delta must not be negative", ErrValidationFailed)
	}

	unlock := s.locker.Lock(matchID)
	defer unlock()

	match, err := s.loadMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !match.TimerRunning || !match.IsLive() {
		return match, nil
	}

	if err := s.statRepo.AddTimeOnField(ctx, matchID, match.ActivePlayers, deltaSeconds); err != nil {
		return nil, fmt.Errorf("failed to credit time on field: %w", err)
	}

	elapsed := match.CurrentTime + deltaSeconds
	updated, err := s.matchRepo.Update(ctx, matchID, repositories.MatchUpdate{CurrentTime: &elapsed})
	if err != nil {
		return nil, s.mapMatchRepoError(err)
	}

	s.hub.BroadcastMatchUpdate(matchID, updated)
	return updated, nil
}

// RecordGoal фиксирует гол. Домашний гол всегда приписан игроку
// отслеживаемой команды; гол соперника — безличный, состав соперника
// трекер не ведёт.
func (s *liveMatchService) RecordGoal(ctx context.Context, matchID int, input GoalInput) (*models.Match, error) {
	if input.HomeSide && input.PlayerID == nil {
		return nil, fmt.Errorf("%w: home goal requires a scorer", ErrValidationFailed)
	}
	if !input.HomeSide && input.PlayerID != nil {
		return nil, fmt.Errorf("%w: away goal cannot be credited to a roster player", ErrValidationFailed)
	}

	unlock := s.locker.Lock(matchID)
	defer unlock()

	match, err := s.loadMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !match.IsLive() {
		return nil, ErrMatchNotLive
	}

	description := "Away goal"
	var scorer *models.Player
	if input.HomeSide {
		scorer, err = s.requireTeamPlayer(ctx, match, *input.PlayerID)
		if err != nil {
			return nil, err
		}
		description = fmt.Sprintf("Goal by %s", scorer.Name)
	}

	event := &models.MatchEvent{
		MatchID:     matchID,
		PlayerID:    input.PlayerID,
		EventType:   models.EventGoal,
		EventTime:   match.CurrentTime,
		Half:        match.CurrentHalf,
		Description: description,
		Metadata:    map[string]any{"home_side": input.HomeSide},
	}
	if err := s.eventRepo.Append(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to append goal event: %w", err)
	}

	if scorer != nil {
		if err := s.bumpStat(ctx, matchID, scorer.ID, s.statRepo.IncrementGoals, func(stat *models.PlayerStat) {
			stat.Goals = 1
		}); err != nil {
			return nil, err
		}
	}

	upd := repositories.MatchUpdate{}
	if input.HomeSide {
		score := match.HomeScore + 1
		upd.HomeScore = &score
	} else {
		score := match.AwayScore + 1
		upd.AwayScore = &score
	}
	updated, err := s.matchRepo.Update(ctx, matchID, upd)
	if err != nil {
		return nil, s.mapMatchRepoError(err)
	}

	s.hub.BroadcastNewEvent(matchID, event)
	s.hub.BroadcastMatchUpdate(matchID, updated)
	return updated, nil
}

// RecordCard оставляет карточку записью в журнале. Красная карточка не
// убирает игрока с площадки и не меняет счёт: политика удалений остаётся
// за оператором.
func (s *liveMatchService) RecordCard(ctx context.Context, matchID int, input CardInput) (*models.MatchEvent, error) {
	var eventType models.MatchEventType
	switch input.Color {
	case CardYellow:
		eventType = models.EventYellowCard
	case CardRed:
		eventType = models.EventRedCard
	default:
		return nil, fmt.Errorf("%w: unknown card color %q", ErrInvalidEventType, input.Color)
	}

	unlock := s.locker.Lock(matchID)
	defer unlock()

	match, err := s.loadMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !match.IsLive() {
		return nil, ErrMatchNotLive
	}

	player, err := s.requireTeamPlayer(ctx, match, input.PlayerID)
	if err != nil {
		return nil, err
	}

	event := &models.MatchEvent{
		MatchID:     matchID,
		PlayerID:    &player.ID,
		EventType:   eventType,
		EventTime:   match.CurrentTime,
		Half:        match.CurrentHalf,
		Description: fmt.Sprintf("%s card for %s", input.Color, player.Name),
		Metadata:    map[string]any{"color": input.Color},
	}
	if err := s.eventRepo.Append(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to append card event: %w", err)
	}

	s.hub.BroadcastNewEvent(matchID, event)
	return event, nil
}

func (s *liveMatchService) RecordEvent(ctx context.Context, matchID int, input EventInput) (*models.MatchEvent, error) {
	switch input.EventType {
	case models.EventFoul, models.EventTimeout:
	case models.EventGoal, models.EventSubstitution, models.EventYellowCard, models.EventRedCard:
		return nil, fmt.Errorf("%w: %s events have a dedicated operation", ErrInvalidEventType, input.EventType)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidEventType, input.EventType)
	}

	unlock := s.locker.Lock(matchID)
	defer unlock()

	match, err := s.loadMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !match.IsLive() {
		return nil, ErrMatchNotLive
	}

	if input.PlayerID != nil {
		if _, err := s.requireTeamPlayer(ctx, match, *input.PlayerID); err != nil {
			return nil, err
		}
	}

	eventTime := match.CurrentTime
	if input.EventTime != nil {
		if *input.EventTime > match.CurrentTime {
			return nil, fmt.Errorf("%w: %d > %d", ErrEventTimeInFuture, *input.EventTime, match.CurrentTime)
		}
		eventTime = *input.EventTime
	}

	event := &models.MatchEvent{
		MatchID:     matchID,
		PlayerID:    input.PlayerID,
		EventType:   input.EventType,
		EventTime:   eventTime,
		Half:        match.CurrentHalf,
		Description: input.Description,
	}
	if err := s.eventRepo.Append(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to append %s event: %w", input.EventType, err)
	}

	if input.EventType == models.EventFoul && input.PlayerID != nil {
		if err := s.bumpStat(ctx, matchID, *input.PlayerID, s.statRepo.IncrementFouls, func(stat *models.PlayerStat) {
			stat.Fouls = 1
		}); err != nil {
			return nil, err
		}
	}

	s.hub.BroadcastNewEvent(matchID, event)
	return event, nil
}

func (s *liveMatchService) EndMatch(ctx context.Context, matchID int) (*models.Match, error) {
	unlock := s.locker.Lock(matchID)
	defer unlock()

	match, err := s.loadMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match.Status != models.MatchStatusInProgress {
		return nil, fmt.Errorf("%w: cannot end a %s match", ErrIllegalTransition, match.Status)
	}

	now := time.Now().UTC()
	status := models.MatchStatusFinished
	running := false
	updated, err := s.matchRepo.Update(ctx, matchID, repositories.MatchUpdate{
		Status:       &status,
		TimerRunning: &running,
		EndedAt:      &now,
	})
	if err != nil {
		return nil, s.mapMatchRepoError(err)
	}

	s.hub.BroadcastMatchUpdate(matchID, updated)
	return updated, nil
}

func (s *liveMatchService) loadMatch(ctx context.Context, matchID int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return nil, s.mapMatchRepoError(err)
	}
	return match, nil
}

func (s *liveMatchService) mapMatchRepoError(err error) error {
	if errors.Is(err, repositories.ErrMatchNotFound) {
		return ErrMatchNotFound
	}
	return err
}

// requireTeamPlayer проверяет, что игрок существует, активен и принадлежит
// команде матча.
func (s *liveMatchService) requireTeamPlayer(ctx context.Context, match *models.Match, playerID int) (*models.Player, error) {
	player, err := s.playerRepo.GetByID(ctx, playerID)
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, fmt.Errorf("%w: player %d", ErrInvalidPlayer, playerID)
		}
		return nil, err
	}
	if player.TeamID != match.TeamID {
		return nil, fmt.Errorf("%w: player %d", ErrForeignPlayer, playerID)
	}
	if !player.IsActive {
		return nil, fmt.Errorf("%w: player %d is inactive", ErrInvalidPlayer, playerID)
	}
	return player, nil
}

// bumpStat инкрементирует счётчик в строке статистики, создавая строку,
// если игрок ещё не попадал в протокол этого матча.
func (s *liveMatchService) bumpStat(
	ctx context.Context,
	matchID, playerID int,
	incr func(ctx context.Context, matchID, playerID int) error,
	seed func(stat *models.PlayerStat),
) error {
	err := incr(ctx, matchID, playerID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repositories.ErrPlayerStatNotFound) {
		return fmt.Errorf("failed to update stat for player %d: %w", playerID, err)
	}

	stat := &models.PlayerStat{MatchID: matchID, PlayerID: playerID}
	seed(stat)
	if err := s.statRepo.Create(ctx, stat); err != nil {
		return fmt.Errorf("failed to create stat for player %d: %w", playerID, err)
	}
	return nil
}
