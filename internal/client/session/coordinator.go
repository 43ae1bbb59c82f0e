// Package session связывает реплицируемый текст, транспорт и реестр
// присутствия в открытую сессию документа.
//
// Coordinator кэширует сессии по идентификатору документа со счетчиком
// ссылок: повторное открытие того же документа возвращает новый дескриптор
// той же сессии, сессия закрывается вместе с последним дескриптором.
// Все изменения состояния сессии выполняются в одной горутине (цикле событий).
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/iudanet/flowsync/internal/validation"
)

// Coordinator открывает и кэширует сессии документов.
type Coordinator struct {
	sessions map[string]*session
	logger   *slog.Logger
	opts     Options
	mu       sync.Mutex
	closed   bool
}

// NewCoordinator создает координатор.
func NewCoordinator(opts Options) (*Coordinator, error) {
	opts.populateDefaults()
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("invalid session options: %w", err)
	}
	return &Coordinator{
		opts:     opts,
		logger:   opts.Logger.With("replica_id", opts.ReplicaID),
		sessions: make(map[string]*session),
	}, nil
}

// DocumentID строит идентификатор документа из идентификаторов сессии и файла.
func DocumentID(sessionID, fileID string) string {
	return sessionID + "-" + fileID
}

// Open возвращает дескриптор сессии документа, создавая ее при первом открытии.
// Сессия восстанавливает последний сохраненный снимок и офлайн-очередь.
func (c *Coordinator) Open(ctx context.Context, documentID string) (*Handle, error) {
	if err := validation.ValidateDocumentID(documentID); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrCoordinatorClosed
	}

	if s, ok := c.sessions[documentID]; ok {
		s.refs++
		c.logger.Debug("Session reused", "document_id", documentID, "refs", s.refs)
		return newHandle(c, s), nil
	}

	s, err := newSession(ctx, documentID, c.opts, c.logger)
	if err != nil {
		return nil, err
	}
	s.refs = 1
	c.sessions[documentID] = s
	s.start()

	c.logger.Info("Session opened", "document_id", documentID)
	return newHandle(c, s), nil
}

// Sessions возвращает число открытых сессий.
func (c *Coordinator) Sessions() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.sessions)
}

// Close закрывает все сессии независимо от числа дескрипторов.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	c.closed = true
	sessions := make([]*session, 0, len(c.sessions))
	for id, s := range c.sessions {
		sessions = append(sessions, s)
		delete(c.sessions, id)
	}
	c.mu.Unlock()

	var firstErr error
	for _, s := range sessions {
		if err := s.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// release освобождает одну ссылку на сессию.
func (c *Coordinator) release(s *session) error {
	c.mu.Lock()
	if c.sessions[s.id] != s {
		// Уже закрыта через Coordinator.Close
		c.mu.Unlock()
		return nil
	}
	s.refs--
	if s.refs > 0 {
		c.mu.Unlock()
		return nil
	}
	// Закрываем под блокировкой: повторный Open того же документа
	// должен увидеть сохраненный снимок
	defer c.mu.Unlock()
	delete(c.sessions, s.id)

	c.logger.Info("Session closed", "document_id", s.id)
	return s.close()
}
