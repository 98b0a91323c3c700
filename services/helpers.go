package services

import (
	"sync"

	"github.com/futsal-hq/match-tracker/models"
)

// Broadcaster рассылает зафиксированные изменения всем подписчикам матча.
// Доставка best-effort: недоступный или отставший зритель не влияет на
// исход операции, вызвавшей рассылку.
type Broadcaster interface {
	BroadcastMatchUpdate(matchID int, match *models.Match)
	BroadcastNewEvent(matchID int, event *models.MatchEvent)
}

// MatchLocker сериализует мутирующие операции над одним матчем.
// Блокировка держится на весь цикл «прочитать — проверить — записать —
// разослать», чтобы два конкурентных вызова не потеряли инкремент счёта
// и рассылка шла в порядке фиксации. Разные матчи независимы.
type MatchLocker struct {
	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

func NewMatchLocker() *MatchLocker {
	return &MatchLocker{locks: make(map[int]*sync.Mutex)}
}

// Lock блокирует матч и возвращает функцию разблокировки.
func (l *MatchLocker) Lock(matchID int) func() {
	l.mu.Lock()
	lock, ok := l.locks[matchID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[matchID] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// Forget убирает запись матча из таблицы блокировок. Вызывается после
// удаления матча, когда новых операций над ним уже не будет: без этого
// таблица растёт на каждую когда-либо заблокированную запись.
func (l *MatchLocker) Forget(matchID int) {
	l.mu.Lock()
	delete(l.locks, matchID)
	l.mu.Unlock()
}

// containsPlayer проверяет принадлежность id множеству игроков.
func containsPlayer(ids []int, playerID int) bool {
	for _, id := range ids {
		if id == playerID {
			return true
		}
	}
	return false
}
