package crdt

import (
	"sync"

	"github.com/google/uuid"
)

// ReplicaClock выдает идентификаторы для локальных вставок реплики.
// Счетчик монотонно возрастает и никогда не перескакивает значения:
// соседние реплики интегрируют элементы одной реплики строго по порядку,
// поэтому пропуск в нумерации навсегда оставил бы элементы в ожидании.
type ReplicaClock struct {
	replicaID string     // уникальный идентификатор реплики
	next      uint64     // следующее свободное значение часов
	mu        sync.Mutex // мьютекс для потокобезопасности
}

// NewReplicaClock создает часы с новым уникальным идентификатором реплики (UUID).
func NewReplicaClock() *ReplicaClock {
	return &ReplicaClock{
		replicaID: uuid.New().String(),
	}
}

// NewReplicaClockWithID создает часы с заданным идентификатором реплики.
// Используется при восстановлении сохраненной реплики и в тестах.
func NewReplicaClockWithID(replicaID string) *ReplicaClock {
	return &ReplicaClock{
		replicaID: replicaID,
	}
}

// Reserve резервирует n последовательных значений и возвращает первое из них.
func (c *ReplicaClock) Reserve(n uint64) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	first := c.next
	c.next += n
	return first
}

// Advance сдвигает часы вперед, если реплика увидела собственные элементы
// (например, из снапшота, сохраненного до перезапуска).
func (c *ReplicaClock) Advance(next uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if next > c.next {
		c.next = next
	}
}

// Next возвращает следующее значение часов без его резервирования.
func (c *ReplicaClock) Next() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.next
}

// ReplicaID возвращает идентификатор реплики.
func (c *ReplicaClock) ReplicaID() string {
	return c.replicaID
}
