package session

import "sync"

// Subscription типизированная подписка на значения T.
// Канал C буферизован на одно значение: медленный получатель видит
// последнее опубликованное значение, промежуточные схлопываются.
// C закрывается после Unsubscribe или закрытия сессии.
type Subscription[T any] struct {
	C      <-chan T
	ch     chan T
	parent *broadcaster[T]
}

// Unsubscribe отменяет подписку. Повторные вызовы безопасны.
func (s *Subscription[T]) Unsubscribe() {
	s.parent.remove(s)
}

// broadcaster рассылает последнее значение всем подписчикам.
type broadcaster[T any] struct {
	last    T
	subs    map[*Subscription[T]]struct{}
	mu      sync.Mutex
	hasLast bool
	closed  bool
}

func newBroadcaster[T any]() *broadcaster[T] {
	return &broadcaster[T]{subs: make(map[*Subscription[T]]struct{})}
}

// subscribe регистрирует подписчика и сразу отдает ему текущее значение.
func (b *broadcaster[T]) subscribe() *Subscription[T] {
	ch := make(chan T, 1)
	sub := &Subscription[T]{C: ch, ch: ch, parent: b}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(ch)
		return sub
	}
	if b.hasLast {
		ch <- b.last
	}
	b.subs[sub] = struct{}{}
	return sub
}

func (b *broadcaster[T]) publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.last = v
	b.hasLast = true
	for sub := range b.subs {
		select {
		case sub.ch <- v:
		default:
			// Вытесняем устаревшее значение
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- v:
			default:
			}
		}
	}
}

func (b *broadcaster[T]) remove(sub *Subscription[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[sub]; !ok {
		return
	}
	delete(b.subs, sub)
	close(sub.ch)
}

// count возвращает число активных подписчиков.
func (b *broadcaster[T]) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.subs)
}

// close закрывает каналы всех подписчиков; новые подписки сразу закрыты.
func (b *broadcaster[T]) close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subs {
		close(sub.ch)
	}
	clear(b.subs)
}
