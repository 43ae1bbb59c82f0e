package session

import (
	"errors"
	"log/slog"
	"time"

	"github.com/iudanet/flowsync/internal/client/awareness"
	"github.com/iudanet/flowsync/internal/client/storage"
	"github.com/iudanet/flowsync/internal/client/transport"
	"github.com/iudanet/flowsync/internal/models"
)

// DefaultSweepInterval период проверки истекших участников и heartbeat.
const DefaultSweepInterval = time.Second

// Options явный контекст координатора: все зависимости передаются
// при создании, глобального состояния нет.
type Options struct {
	Tokens transport.TokenSource
	// Documents локальное хранилище снимков и офлайн-очереди; может быть nil
	Documents storage.DocumentStorage
	Logger    *slog.Logger
	// Now источник времени для реестра присутствия
	Now       func() time.Time
	ReplicaID string
	// Presence имя и цвет локального участника; курсор задается через SetCursor
	Presence      models.Presence
	Transport     transport.Config
	Awareness     awareness.Config
	SweepInterval time.Duration
}

func (o *Options) populateDefaults() {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = DefaultSweepInterval
	}
}

func (o *Options) validate() error {
	var errs []error
	if o.ReplicaID == "" {
		errs = append(errs, errors.New("replica id is required"))
	}
	if o.Tokens == nil {
		errs = append(errs, errors.New("token source is required"))
	}
	if o.Transport.URL == "" {
		errs = append(errs, errors.New("server url is required"))
	}
	return errors.Join(errs...)
}
