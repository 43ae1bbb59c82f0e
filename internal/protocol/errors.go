package protocol

import (
	"fmt"

	"github.com/iudanet/flowsync/internal/crdt"
)

// ErrMalformedMessage сообщение протокола повреждено или обрезано.
// Оборачивает crdt.ErrMalformedUpdate, поэтому errors.Is срабатывает для обоих.
var ErrMalformedMessage = fmt.Errorf("malformed message: %w", crdt.ErrMalformedUpdate)
