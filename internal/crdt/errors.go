package crdt

import "errors"

var (
	// ErrInvalidOperation локальная правка ссылается на позицию вне документа.
	// Такая правка отклоняется синхронно и никогда не отправляется.
	ErrInvalidOperation = errors.New("invalid operation: position out of range")

	// ErrMalformedUpdate обновление повреждено или обрезано.
	ErrMalformedUpdate = errors.New("malformed update")
)
