package crdt

import (
	"fmt"
	"strings"
)

// ID глобально уникальный идентификатор вставленного символа.
// Replica задает пространство имен, Clock - порядковый номер внутри реплики.
type ID struct {
	Replica string
	Clock   uint64
}

// String returns "replica:clock".
func (id ID) String() string {
	return fmt.Sprintf("%s:%d", id.Replica, id.Clock)
}

// Compare задает полный порядок на идентификаторах: сначала по реплике,
// затем по значению часов. Возвращает -1, 0 или 1.
func (id ID) Compare(other ID) int {
	if c := strings.Compare(id.Replica, other.Replica); c != 0 {
		return c
	}
	switch {
	case id.Clock < other.Clock:
		return -1
	case id.Clock > other.Clock:
		return 1
	}
	return 0
}

func idPtr(id ID) *ID {
	return &id
}

func equalIDPtr(a, b *ID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
