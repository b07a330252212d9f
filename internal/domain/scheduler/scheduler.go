// Package scheduler - отменяемые отложенные задачи по ключу ник + назначение.
//
// На ключ приходится не больше одной живой задачи: повторный Schedule заменяет
// прежнюю, таймеры перевзводятся, а не копятся. Сработавший callback обязан
// сделать Claim своего токена; Claim не проходит, если задачу отменили или
// заменили уже после срабатывания таймера.
package scheduler

import (
	"sync"
	"time"
)

type Purpose string

const (
	PurposeRemoval Purpose = "removal"
	PurposeTyping  Purpose = "typing"
)

type Key struct {
	Nickname string
	Purpose  Purpose
}

type task struct {
	timer *time.Timer
}

// Token - идентификатор одной запланированной задачи
type Token struct {
	key  Key
	task *task
}

func (t Token) Key() Key {
	return t.key
}

type Scheduler struct {
	mu    sync.Mutex
	tasks map[Key]*task
}

func New() *Scheduler {
	return &Scheduler{tasks: make(map[Key]*task)}
}

// Schedule запускает fn через d, заменяя задачу с тем же ключом
func (s *Scheduler) Schedule(key Key, d time.Duration, fn func(Token)) Token {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.tasks[key]; ok {
		prev.timer.Stop()
	}

	t := &task{}
	tok := Token{key: key, task: t}
	s.tasks[key] = t

	t.timer = time.AfterFunc(d, func() { fn(tok) })

	return tok
}

// Claim сообщает, что tok всё ещё живая задача своего ключа, и забывает её
func (s *Scheduler) Claim(tok Token) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tasks[tok.key] != tok.task {
		return false
	}

	delete(s.tasks, tok.key)
	return true
}

func (s *Scheduler) Cancel(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[key]
	if !ok {
		return false
	}

	t.timer.Stop()
	delete(s.tasks, key)
	return true
}

// CancelNickname снимает все задачи ника независимо от назначения
func (s *Scheduler) CancelNickname(nickname string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, t := range s.tasks {
		if key.Nickname == nickname {
			t.timer.Stop()
			delete(s.tasks, key)
		}
	}
}

func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, t := range s.tasks {
		t.timer.Stop()
		delete(s.tasks, key)
	}
}

func (s *Scheduler) Pending(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.tasks[key]
	return ok
}

func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.tasks)
}
