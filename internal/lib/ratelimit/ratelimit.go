package ratelimit

import (
	"sync"
	"time"
)

// Limiter — потокобезопасный лимитер со скользящим окном.
// Для каждого ключа хранятся отметки времени обращений; отметки старше окна
// отбрасываются при каждом обращении, поэтому TTL записей равен размеру окна.
type Limiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	hits   map[string][]time.Time
	now    func() time.Time // подменяется в тестах
}

// New создаёт лимитер: не более limit обращений на ключ за window.
func New(limit int, window time.Duration) *Limiter {
	return &Limiter{
		limit:  limit,
		window: window,
		hits:   make(map[string][]time.Time),
		now:    time.Now,
	}
}

// Allow регистрирует обращение по ключу и сообщает, укладывается ли оно в лимит.
// Отклонённые обращения тоже учитываются: непрерывный поток запросов не
// обнуляет окно.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	kept := l.hits[key][:0]
	for _, ts := range l.hits[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	allowed := len(kept) < l.limit
	l.hits[key] = append(kept, now)
	return allowed
}
