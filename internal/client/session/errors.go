package session

import (
	"errors"

	"github.com/iudanet/flowsync/internal/validation"
)

var (
	// ErrSessionClosed операция над закрытой сессией или дескриптором.
	ErrSessionClosed = errors.New("session closed")

	// ErrCoordinatorClosed Open после закрытия координатора.
	ErrCoordinatorClosed = errors.New("coordinator closed")

	// ErrInvalidDocumentID пустой или некорректный идентификатор документа.
	ErrInvalidDocumentID = validation.ErrInvalidDocumentID
)
