package session

import (
	"context"
	"errors"
	"iter"
	"sync"
	"sync/atomic"

	"github.com/iudanet/flowsync/internal/client/transport"
	"github.com/iudanet/flowsync/internal/models"
)

// Handle дескриптор открытой сессии документа. Несколько дескрипторов
// одного документа разделяют одну сессию и одно соединение.
type Handle struct {
	c      *Coordinator
	s      *session
	once   sync.Once
	closed atomic.Bool
}

func newHandle(c *Coordinator, s *session) *Handle {
	return &Handle{c: c, s: s}
}

// DocumentID возвращает идентификатор документа.
func (h *Handle) DocumentID() string {
	return h.s.id
}

// Insert вставляет text перед видимой позицией pos.
func (h *Handle) Insert(pos int, text string) error {
	if h.closed.Load() {
		return ErrSessionClosed
	}
	var opErr error
	err := h.s.do(func() {
		u, err := h.s.doc.Insert(pos, text)
		if err != nil {
			opErr = err
			return
		}
		h.s.commitLocal(u)
	})
	if err != nil {
		return err
	}
	return opErr
}

// Delete удаляет length видимых символов начиная с pos.
func (h *Handle) Delete(pos, length int) error {
	if h.closed.Load() {
		return ErrSessionClosed
	}
	var opErr error
	err := h.s.do(func() {
		u, err := h.s.doc.Delete(pos, length)
		if err != nil {
			opErr = err
			return
		}
		h.s.commitLocal(u)
	})
	if err != nil {
		return err
	}
	return opErr
}

// SetCursor публикует позицию курсора локального участника.
func (h *Handle) SetCursor(anchor, head int) error {
	if h.closed.Load() {
		return ErrSessionClosed
	}
	var opErr error
	if err := h.s.do(func() { opErr = h.s.setCursor(anchor, head) }); err != nil {
		return err
	}
	return opErr
}

// Text возвращает текущий видимый текст.
func (h *Handle) Text() string {
	return h.s.doc.Text()
}

// Peers возвращает известных участников, включая локального.
func (h *Handle) Peers() []models.Peer {
	return h.s.aware.Peers()
}

// Status возвращает состояние соединения сессии.
func (h *Handle) Status() Status {
	return h.s.currentStatus()
}

// Err возвращает ошибку, остановившую сессию: ErrSessionClosed после
// закрытия дескриптора или transport.ErrAuthExpired после отказа в доступе.
func (h *Handle) Err() error {
	if h.closed.Load() {
		return ErrSessionClosed
	}
	st := h.s.currentStatus()
	if st.State == transport.StateDisconnected && st.Err != nil {
		return st.Err
	}
	return nil
}

// SubscribeText подписывает на изменения текста. Первое значение - текущий текст.
func (h *Handle) SubscribeText() *Subscription[string] {
	return h.s.texts.subscribe()
}

// SubscribePeers подписывает на изменения набора участников.
func (h *Handle) SubscribePeers() *Subscription[[]models.Peer] {
	return h.s.peers.subscribe()
}

// SubscribeStatus подписывает на изменения состояния соединения.
func (h *Handle) SubscribeStatus() *Subscription[Status] {
	return h.s.statuses.subscribe()
}

// Texts возвращает последовательность версий текста, начиная с текущей.
// Каждый проход создает свою подписку; последовательность завершается
// с отменой ctx или закрытием сессии.
func (h *Handle) Texts(ctx context.Context) iter.Seq[string] {
	return func(yield func(string) bool) {
		sub := h.SubscribeText()
		defer sub.Unsubscribe()

		for {
			select {
			case <-ctx.Done():
				return
			case text, ok := <-sub.C:
				if !ok || !yield(text) {
					return
				}
			}
		}
	}
}

// WaitSynced ждет завершения рукопожатия. Возвращает ошибку, если сессия
// остановилась или ctx отменен раньше.
func (h *Handle) WaitSynced(ctx context.Context) error {
	sub := h.SubscribeStatus()
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case st, ok := <-sub.C:
			if !ok {
				return ErrSessionClosed
			}
			switch {
			case st.State == transport.StateSynced:
				return nil
			case st.State == transport.StateDisconnected && st.Err != nil:
				return st.Err
			}
		}
	}
}

// Close освобождает дескриптор. Последний дескриптор закрывает сессию:
// подписки закрываются, соединение разрывается, снимок сохраняется.
// Повторные вызовы безопасны.
func (h *Handle) Close() error {
	var err error
	h.once.Do(func() {
		h.closed.Store(true)
		err = h.c.release(h.s)
	})
	return err
}

// IsClosed сообщает, что ошибка вызвана закрытой сессией.
func IsClosed(err error) bool {
	return errors.Is(err, ErrSessionClosed) || errors.Is(err, ErrCoordinatorClosed)
}
