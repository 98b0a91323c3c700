package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/futsal-hq/match-tracker/models"
	"github.com/futsal-hq/match-tracker/repositories"
)

// LineupService следит за инвариантом состава: пока матч идёт, на площадке
// ровно столько игроков, сколько задано настройками формата. Замена — это
// биективная подмена в множестве активных игроков, размер не меняется.
type LineupService interface {
	Substitute(ctx context.Context, matchID, playerOut, playerIn int) (*models.Match, error)
	// ApplyHalftimeChanges применяет пакет замен перерыва атомарно: весь
	// пакет проверяется по состоянию площадки до пакета, частичное
	// применение снаружи не наблюдаемо.
	ApplyHalftimeChanges(ctx context.Context, matchID int, playersOut, playersIn []int) (*models.Match, error)
	StartNextHalf(ctx context.Context, matchID int) (*models.Match, error)
}

type lineupService struct {
	matchRepo  repositories.MatchRepository
	playerRepo repositories.PlayerRepository
	locker     *MatchLocker
	hub        Broadcaster
}

func NewLineupService(
	matchRepo repositories.MatchRepository,
	playerRepo repositories.PlayerRepository,
	locker *MatchLocker,
	hub Broadcaster,
) LineupService {
	return &lineupService{
		matchRepo:  matchRepo,
		playerRepo: playerRepo,
		locker:     locker,
		hub:        hub,
	}
}

func (s *lineupService) Substitute(ctx context.Context, matchID, playerOut, playerIn int) (*models.Match, error) {
	unlock := s.locker.Lock(matchID)
	defer unlock()

	match, err := s.loadMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !match.IsLive() {
		return nil, ErrMatchNotLive
	}

	swap, err := s.validateSwap(ctx, match, match.ActivePlayers, playerOut, playerIn)
	if err != nil {
		return nil, err
	}

	event := buildSwapEvent(match, swap)
	newActive := replacePlayer(match.ActivePlayers, playerOut, playerIn)
	updated, err := s.matchRepo.ApplyLineupChange(ctx, matchID,
		[]repositories.LineupSwap{{Out: playerOut, In: playerIn, Event: event}}, newActive)
	if err != nil {
		return nil, s.mapMatchRepoError(err)
	}

	s.hub.BroadcastNewEvent(matchID, event)
	s.hub.BroadcastMatchUpdate(matchID, updated)
	return updated, nil
}

func (s *lineupService) ApplyHalftimeChanges(ctx context.Context, matchID int, playersOut, playersIn []int) (*models.Match, error) {
	unlock := s.locker.Lock(matchID)
	defer unlock()

	match, err := s.loadMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if len(playersOut) != len(playersIn) {
		return nil, fmt.Errorf("%w: %d out, %d in", ErrUnbalancedSubstitution, len(playersOut), len(playersIn))
	}
	if !match.IsLive() {
		return nil, ErrMatchNotLive
	}
	if match.TimerRunning {
		return nil, ErrHalftimeWindowClosed
	}

	// Весь пакет проверяется по снимку площадки до первой замены.
	preBatch := match.ActivePlayers
	seenOut := make(map[int]bool, len(playersOut))
	seenIn := make(map[int]bool, len(playersIn))
	swaps := make([]repositories.LineupSwap, 0, len(playersOut))
	newActive := make([]int, len(preBatch))
	copy(newActive, preBatch)
	for i := range playersOut {
		out, in := playersOut[i], playersIn[i]
		if seenOut[out] {
			return nil, fmt.Errorf("%w: player %d listed out twice", ErrValidationFailed, out)
		}
		if seenIn[in] {
			return nil, fmt.Errorf("%w: player %d listed in twice", ErrValidationFailed, in)
		}
		seenOut[out] = true
		seenIn[in] = true

		swap, err := s.validateSwap(ctx, match, preBatch, out, in)
		if err != nil {
			return nil, err
		}
		swaps = append(swaps, repositories.LineupSwap{Out: out, In: in, Event: buildSwapEvent(match, swap)})
		newActive = replacePlayer(newActive, out, in)
	}

	updated, err := s.matchRepo.ApplyLineupChange(ctx, matchID, swaps, newActive)
	if err != nil {
		return nil, s.mapMatchRepoError(err)
	}

	for i := range swaps {
		s.hub.BroadcastNewEvent(matchID, swaps[i].Event)
	}
	s.hub.BroadcastMatchUpdate(matchID, updated)
	return updated, nil
}

// StartNextHalf завершает перерыв: номер тайма растёт, игровое время
// сбрасывается в ноль. Это единственная точка, где CurrentTime уменьшается.
func (s *lineupService) StartNextHalf(ctx context.Context, matchID int) (*models.Match, error) {
	unlock := s.locker.Lock(matchID)
	defer unlock()

	match, err := s.loadMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !match.IsLive() {
		return nil, ErrMatchNotLive
	}
	if match.CurrentHalf >= match.FormatSettings.NumberOfHalves {
		return nil, fmt.Errorf("%w: already in half %d of %d", ErrNoMoreHalves, match.CurrentHalf, match.FormatSettings.NumberOfHalves)
	}

	half := match.CurrentHalf + 1
	elapsed := 0
	running := true
	updated, err := s.matchRepo.Update(ctx, matchID, repositories.MatchUpdate{
		CurrentHalf:  &half,
		CurrentTime:  &elapsed,
		TimerRunning: &running,
	})
	if err != nil {
		return nil, s.mapMatchRepoError(err)
	}

	s.hub.BroadcastMatchUpdate(matchID, updated)
	return updated, nil
}

type pendingSwap struct {
	out, in int
	outName string
	inName  string
}

// validateSwap проверяет одну замену относительно переданного множества
// активных игроков, не меняя состояния.
func (s *lineupService) validateSwap(ctx context.Context, match *models.Match, active []int, playerOut, playerIn int) (*pendingSwap, error) {
	if !containsPlayer(active, playerOut) {
		return nil, fmt.Errorf("%w: player %d", ErrPlayerNotOnField, playerOut)
	}
	if containsPlayer(active, playerIn) {
		return nil, fmt.Errorf("%w: player %d", ErrPlayerAlreadyOnField, playerIn)
	}

	outPlayer, err := s.playerRepo.GetByID(ctx, playerOut)
	if err != nil && !errors.Is(err, repositories.ErrPlayerNotFound) {
		return nil, err
	}
	inPlayer, err := s.playerRepo.GetByID(ctx, playerIn)
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, fmt.Errorf("%w: player %d", ErrForeignPlayer, playerIn)
		}
		return nil, err
	}
	if inPlayer.TeamID != match.TeamID {
		return nil, fmt.Errorf("%w: player %d", ErrForeignPlayer, playerIn)
	}
	if !inPlayer.IsActive {
		return nil, fmt.Errorf("%w: player %d is inactive", ErrInvalidPlayer, playerIn)
	}

	swap := &pendingSwap{out: playerOut, in: playerIn, inName: inPlayer.Name}
	if outPlayer != nil {
		swap.outName = outPlayer.Name
	}
	return swap, nil
}

// buildSwapEvent собирает событие замены; запись в журнал делает репозиторий
// в одной транзакции с флагами статистики и множеством активных игроков.
func buildSwapEvent(match *models.Match, swap *pendingSwap) *models.MatchEvent {
	return &models.MatchEvent{
		MatchID:     match.ID,
		EventType:   models.EventSubstitution,
		EventTime:   match.CurrentTime,
		Half:        match.CurrentHalf,
		Description: fmt.Sprintf("Substitution: %s off, %s on", swap.outName, swap.inName),
		Metadata:    map[string]any{"player_out": swap.out, "player_in": swap.in},
	}
}

func replacePlayer(active []int, out, in int) []int {
	next := make([]int, len(active))
	for i, id := range active {
		if id == out {
			next[i] = in
		} else {
			next[i] = id
		}
	}
	return next
}

func (s *lineupService) loadMatch(ctx context.Context, matchID int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return nil, s.mapMatchRepoError(err)
	}
	return match, nil
}

func (s *lineupService) mapMatchRepoError(err error) error {
	if errors.Is(err, repositories.ErrMatchNotFound) {
		return ErrMatchNotFound
	}
	return err
}
