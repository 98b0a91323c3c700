package services_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/futsal-hq/match-tracker/models"
	"github.com/futsal-hq/match-tracker/repositories"
)

// In-memory репозитории для тестов сервисов. Поведение повторяет
// postgres-реализации: те же sentinel-ошибки, Update возвращает свежий
// снимок строки.

type fakeMatchRepo struct {
	mu      sync.Mutex
	nextID  int
	matches map[int]*models.Match
	// Start и ApplyLineupChange в postgres пишут в несколько таблиц одной
	// транзакцией; здесь это те же in-memory репозитории.
	stats  *fakeStatRepo
	events *fakeEventRepo
}

func newFakeMatchRepo(stats *fakeStatRepo, events *fakeEventRepo) *fakeMatchRepo {
	return &fakeMatchRepo{
		matches: make(map[int]*models.Match),
		stats:   stats,
		events:  events,
	}
}

func cloneMatch(m *models.Match) *models.Match {
	c := *m
	if m.ActivePlayers != nil {
		c.ActivePlayers = append([]int(nil), m.ActivePlayers...)
	}
	return &c
}

func (r *fakeMatchRepo) Create(_ context.Context, match *models.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	match.ID = r.nextID
	// Значения по умолчанию из схемы, в postgres их подставляет INSERT.
	if match.Status == "" {
		match.Status = models.MatchStatusScheduled
	}
	if match.CurrentHalf == 0 {
		match.CurrentHalf = 1
	}
	match.CreatedAt = time.Now().UTC()
	r.matches[match.ID] = cloneMatch(match)
	return nil
}

func (r *fakeMatchRepo) GetByID(_ context.Context, id int) (*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	match, ok := r.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	return cloneMatch(match), nil
}

func (r *fakeMatchRepo) List(_ context.Context) ([]*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int, 0, len(r.matches))
	for id := range r.matches {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]*models.Match, 0, len(ids))
	for _, id := range ids {
		out = append(out, cloneMatch(r.matches[id]))
	}
	return out, nil
}

func (r *fakeMatchRepo) ListByTeam(ctx context.Context, teamID int) ([]*models.Match, error) {
	all, _ := r.List(ctx)
	out := make([]*models.Match, 0, len(all))
	for _, m := range all {
		if m.TeamID == teamID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMatchRepo) Update(_ context.Context, id int, upd repositories.MatchUpdate) (*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	match, ok := r.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	if upd.Status != nil {
		match.Status = *upd.Status
	}
	if upd.HomeScore != nil {
		match.HomeScore = *upd.HomeScore
	}
	if upd.AwayScore != nil {
		match.AwayScore = *upd.AwayScore
	}
	if upd.CurrentHalf != nil {
		match.CurrentHalf = *upd.CurrentHalf
	}
	if upd.CurrentTime != nil {
		match.CurrentTime = *upd.CurrentTime
	}
	if upd.TimerRunning != nil {
		match.TimerRunning = *upd.TimerRunning
	}
	if upd.ActivePlayers != nil {
		match.ActivePlayers = append([]int(nil), (*upd.ActivePlayers)...)
	}
	if upd.StartedAt != nil {
		t := *upd.StartedAt
		match.StartedAt = &t
	}
	if upd.EndedAt != nil {
		t := *upd.EndedAt
		match.EndedAt = &t
	}
	return cloneMatch(match), nil
}

func (r *fakeMatchRepo) Start(ctx context.Context, id int, starters []int, startedAt time.Time) (*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	match, ok := r.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}

	// Всё или ничего, как в транзакции: сперва проверки, запись — в конце.
	for _, pid := range starters {
		if _, err := r.stats.GetByMatchAndPlayer(ctx, id, pid); err == nil {
			return nil, repositories.ErrPlayerStatConflict
		}
	}
	for _, pid := range starters {
		_ = r.stats.Create(ctx, &models.PlayerStat{
			MatchID:            id,
			PlayerID:           pid,
			IsStarter:          true,
			IsCurrentlyOnField: true,
		})
	}

	match.Status = models.MatchStatusInProgress
	match.CurrentHalf = 1
	match.CurrentTime = 0
	match.TimerRunning = true
	match.ActivePlayers = append([]int(nil), starters...)
	t := startedAt
	match.StartedAt = &t
	return cloneMatch(match), nil
}

func (r *fakeMatchRepo) ApplyLineupChange(ctx context.Context, id int, swaps []repositories.LineupSwap, newActive []int) (*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	match, ok := r.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}

	// Всё или ничего: каждая замена проверяется до первой записи.
	for _, swap := range swaps {
		if _, err := r.stats.GetByMatchAndPlayer(ctx, id, swap.Out); err != nil {
			return nil, repositories.ErrPlayerStatNotFound
		}
	}
	for i := range swaps {
		swap := &swaps[i]
		if err := r.events.Append(ctx, swap.Event); err != nil {
			return nil, err
		}
		_ = r.stats.SetOnField(ctx, id, swap.Out, false)
		_ = r.stats.EnsureOnField(ctx, id, swap.In)
	}

	match.ActivePlayers = append([]int(nil), newActive...)
	return cloneMatch(match), nil
}

func (r *fakeMatchRepo) Delete(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.matches[id]; !ok {
		return repositories.ErrMatchNotFound
	}
	delete(r.matches, id)
	return nil
}

type fakeTeamRepo struct {
	mu     sync.Mutex
	nextID int
	teams  map[int]*models.Team
}

func newFakeTeamRepo() *fakeTeamRepo {
	return &fakeTeamRepo{teams: make(map[int]*models.Team)}
}

func (r *fakeTeamRepo) Create(_ context.Context, team *models.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.teams {
		if existing.Name == team.Name {
			return repositories.ErrTeamNameConflict
		}
	}
	r.nextID++
	team.ID = r.nextID
	team.CreatedAt = time.Now().UTC()
	c := *team
	r.teams[team.ID] = &c
	return nil
}

func (r *fakeTeamRepo) GetByID(_ context.Context, id int) (*models.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	team, ok := r.teams[id]
	if !ok {
		return nil, repositories.ErrTeamNotFound
	}
	c := *team
	return &c, nil
}

func (r *fakeTeamRepo) ListActive(_ context.Context) ([]*models.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Team, 0, len(r.teams))
	for _, team := range r.teams {
		if team.IsActive {
			c := *team
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeTeamRepo) Deactivate(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	team, ok := r.teams[id]
	if !ok {
		return repositories.ErrTeamNotFound
	}
	team.IsActive = false
	return nil
}

func (r *fakeTeamRepo) UpdateCrestKey(_ context.Context, id int, crestKey *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	team, ok := r.teams[id]
	if !ok {
		return repositories.ErrTeamNotFound
	}
	team.CrestKey = crestKey
	return nil
}

type fakePlayerRepo struct {
	mu      sync.Mutex
	nextID  int
	players map[int]*models.Player
}

func newFakePlayerRepo() *fakePlayerRepo {
	return &fakePlayerRepo{players: make(map[int]*models.Player)}
}

func (r *fakePlayerRepo) Create(_ context.Context, player *models.Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	player.ID = r.nextID
	c := *player
	r.players[player.ID] = &c
	return nil
}

func (r *fakePlayerRepo) GetByID(_ context.Context, id int) (*models.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	player, ok := r.players[id]
	if !ok {
		return nil, repositories.ErrPlayerNotFound
	}
	c := *player
	return &c, nil
}

func (r *fakePlayerRepo) ListByTeam(_ context.Context, teamID int) ([]*models.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int, 0, len(r.players))
	for id := range r.players {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]*models.Player, 0, len(ids))
	for _, id := range ids {
		p := r.players[id]
		if p.TeamID == teamID && p.IsActive {
			c := *p
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *fakePlayerRepo) ListAllActive(_ context.Context) ([]*models.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Player, 0, len(r.players))
	for _, p := range r.players {
		if p.IsActive {
			c := *p
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakePlayerRepo) Update(_ context.Context, player *models.Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.players[player.ID]; !ok {
		return repositories.ErrPlayerNotFound
	}
	c := *player
	r.players[player.ID] = &c
	return nil
}

func (r *fakePlayerRepo) Deactivate(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	player, ok := r.players[id]
	if !ok {
		return repositories.ErrPlayerNotFound
	}
	player.IsActive = false
	return nil
}

type fakeEventRepo struct {
	mu     sync.Mutex
	nextID int
	events []*models.MatchEvent
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{}
}

func (r *fakeEventRepo) Append(_ context.Context, event *models.MatchEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	event.ID = r.nextID
	event.CreatedAt = time.Now().UTC()
	c := *event
	r.events = append(r.events, &c)
	return nil
}

func (r *fakeEventRepo) ListByMatch(_ context.Context, matchID int) ([]*models.MatchEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.MatchEvent, 0, len(r.events))
	for _, e := range r.events {
		if e.MatchID == matchID {
			c := *e
			out = append(out, &c)
		}
	}
	return out, nil
}

type statKey struct {
	matchID  int
	playerID int
}

type fakeStatRepo struct {
	mu     sync.Mutex
	nextID int
	stats  map[statKey]*models.PlayerStat
}

func newFakeStatRepo() *fakeStatRepo {
	return &fakeStatRepo{stats: make(map[statKey]*models.PlayerStat)}
}

func (r *fakeStatRepo) Create(_ context.Context, stat *models.PlayerStat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := statKey{stat.MatchID, stat.PlayerID}
	if _, ok := r.stats[key]; ok {
		return repositories.ErrPlayerStatConflict
	}
	r.nextID++
	stat.ID = r.nextID
	c := *stat
	r.stats[key] = &c
	return nil
}

func (r *fakeStatRepo) GetByMatchAndPlayer(_ context.Context, matchID, playerID int) (*models.PlayerStat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stat, ok := r.stats[statKey{matchID, playerID}]
	if !ok {
		return nil, repositories.ErrPlayerStatNotFound
	}
	c := *stat
	return &c, nil
}

func (r *fakeStatRepo) ListByMatch(_ context.Context, matchID int) ([]*models.PlayerStat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.PlayerStat, 0, len(r.stats))
	for key, stat := range r.stats {
		if key.matchID == matchID {
			c := *stat
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeStatRepo) EnsureOnField(_ context.Context, matchID, playerID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := statKey{matchID, playerID}
	stat, ok := r.stats[key]
	if !ok {
		r.nextID++
		stat = &models.PlayerStat{ID: r.nextID, MatchID: matchID, PlayerID: playerID}
		r.stats[key] = stat
	}
	stat.IsCurrentlyOnField = true
	return nil
}

func (r *fakeStatRepo) SetOnField(_ context.Context, matchID, playerID int, onField bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stat, ok := r.stats[statKey{matchID, playerID}]
	if !ok {
		return repositories.ErrPlayerStatNotFound
	}
	stat.IsCurrentlyOnField = onField
	return nil
}

func (r *fakeStatRepo) IncrementGoals(_ context.Context, matchID, playerID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stat, ok := r.stats[statKey{matchID, playerID}]
	if !ok {
		return repositories.ErrPlayerStatNotFound
	}
	stat.Goals++
	return nil
}

func (r *fakeStatRepo) IncrementFouls(_ context.Context, matchID, playerID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stat, ok := r.stats[statKey{matchID, playerID}]
	if !ok {
		return repositories.ErrPlayerStatNotFound
	}
	stat.Fouls++
	return nil
}

func (r *fakeStatRepo) AddTimeOnField(_ context.Context, matchID int, playerIDs []int, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range playerIDs {
		if stat, ok := r.stats[statKey{matchID, id}]; ok {
			stat.TimeOnField += delta
		}
	}
	return nil
}

// fakeHub записывает рассылки вместо отправки в WebSocket.
type fakeHub struct {
	mu           sync.Mutex
	matchUpdates []*models.Match
	newEvents    []*models.MatchEvent
}

func newFakeHub() *fakeHub {
	return &fakeHub{}
}

func (h *fakeHub) BroadcastMatchUpdate(_ int, match *models.Match) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.matchUpdates = append(h.matchUpdates, match)
}

func (h *fakeHub) BroadcastNewEvent(_ int, event *models.MatchEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.newEvents = append(h.newEvents, event)
}

func (h *fakeHub) matchUpdateCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.matchUpdates)
}

func (h *fakeHub) eventCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.newEvents)
}
