package crdt

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"sync"
	"unicode/utf8"
)

// item один вставленный символ в списке документа.
// После интеграции меняется только флаг deleted (false -> true).
type item struct {
	originLeft  *ID
	originRight *ID
	left        *item
	right       *item
	id          ID
	content     rune
	deleted     bool
}

// Text реплицируемая последовательность символов (CRDT в стиле YATA).
//
// Документ хранится как двусвязный список всех когда-либо вставленных символов,
// включая удаленные (tombstone). Конкурентные вставки с одинаковым левым
// origin упорядочиваются детерминированно: элемент реплики с меньшим
// идентификатором оказывается левее. Сборка мусора не выполняется.
type Text struct {
	clock          *ReplicaClock
	head           *item
	items          map[ID]*item
	pending        map[ID]*item    // элементы, ожидающие своих зависимостей
	pendingDeletes map[ID]struct{} // удаления еще не полученных элементов
	sv             StateVector
	length         int // количество видимых символов
	mu             sync.Mutex
}

// NewText создает пустой документ для реплики replicaID.
func NewText(replicaID string) *Text {
	return NewTextWithClock(NewReplicaClockWithID(replicaID))
}

// NewTextWithClock создает пустой документ с заданными часами реплики.
func NewTextWithClock(clock *ReplicaClock) *Text {
	return &Text{
		clock:          clock,
		items:          make(map[ID]*item),
		pending:        make(map[ID]*item),
		pendingDeletes: make(map[ID]struct{}),
		sv:             make(StateVector),
	}
}

// ReplicaID возвращает идентификатор локальной реплики.
func (t *Text) ReplicaID() string {
	return t.clock.ReplicaID()
}

// Insert вставляет content в видимую позицию pos (в символах Unicode)
// и возвращает сгенерированное обновление для рассылки.
func (t *Text) Insert(pos int, content string) (*Update, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if pos < 0 || pos > t.length {
		return nil, fmt.Errorf("%w: insert at %d, length %d", ErrInvalidOperation, pos, t.length)
	}
	if !utf8.ValidString(content) {
		return nil, fmt.Errorf("%w: content is not valid UTF-8", ErrInvalidOperation)
	}
	if content == "" {
		return &Update{}, nil
	}

	// Соседи в момент вставки: левый - видимый символ pos-1,
	// правый - следующий за ним элемент списка (возможно, tombstone)
	var left *item
	if pos > 0 {
		left = t.visibleAt(pos - 1)
	}
	right := t.head
	if left != nil {
		right = left.right
	}

	runes := []rune(content)
	first := t.clock.Reserve(uint64(len(runes)))
	replica := t.clock.ReplicaID()

	run := Run{
		ID:      ID{Replica: replica, Clock: first},
		Content: content,
	}
	if left != nil {
		run.OriginLeft = idPtr(left.id)
	}
	if right != nil {
		run.OriginRight = idPtr(right.id)
	}

	prevOrigin := run.OriginLeft
	for k, r := range runes {
		it := &item{
			id:          ID{Replica: replica, Clock: first + uint64(k)},
			originLeft:  prevOrigin,
			originRight: run.OriginRight,
			content:     r,
		}
		t.integrate(it)
		prevOrigin = idPtr(it.id)
	}

	return &Update{Runs: []Run{run}}, nil
}

// Delete помечает удаленными length видимых символов начиная с pos.
func (t *Text) Delete(pos, length int) (*Update, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if pos < 0 || length < 0 || pos+length > t.length {
		return nil, fmt.Errorf("%w: delete [%d,%d), length %d", ErrInvalidOperation, pos, pos+length, t.length)
	}
	if length == 0 {
		return &Update{}, nil
	}

	ids := make([]ID, 0, length)
	for it := t.visibleAt(pos); it != nil && len(ids) < length; it = it.right {
		if it.deleted {
			continue
		}
		it.deleted = true
		t.length--
		ids = append(ids, it.id)
	}

	return &Update{Deletes: deleteRangesFromIDs(ids)}, nil
}

// ApplyUpdate сливает удаленное или повторно проигрываемое обновление.
// Повторное применение того же обновления ничего не меняет; порядок
// применения разных обновлений не влияет на итоговый текст.
// Возвращает true, если состояние документа изменилось.
func (t *Text) ApplyUpdate(u *Update) (bool, error) {
	if u == nil {
		return false, nil
	}
	if err := u.validate(); err != nil {
		return false, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	changed := false

	// Разворачиваем вставки в отдельные символы и ставим в очередь ожидания
	for _, r := range u.Runs {
		prevOrigin := r.OriginLeft
		k := uint64(0)
		for _, ch := range r.Content {
			id := ID{Replica: r.ID.Replica, Clock: r.ID.Clock + k}
			if _, known := t.items[id]; !known && id.Clock >= t.sv[id.Replica] {
				if _, parked := t.pending[id]; !parked {
					t.pending[id] = &item{
						id:          id,
						originLeft:  prevOrigin,
						originRight: r.OriginRight,
						content:     ch,
					}
				}
			}
			prevOrigin = idPtr(id)
			k++
		}
	}

	if t.drainPending() {
		changed = true
	}

	// Применяем удаления; удаления неизвестных элементов откладываем
	for _, d := range u.Deletes {
		for c := d.Clock; c < d.Clock+d.Len; c++ {
			id := ID{Replica: d.Replica, Clock: c}
			it, ok := t.items[id]
			if !ok {
				t.pendingDeletes[id] = struct{}{}
				continue
			}
			if !it.deleted {
				it.deleted = true
				t.length--
				changed = true
			}
		}
	}

	return changed, nil
}

// Text материализует видимый (не удаленный) текст в порядке документа.
func (t *Text) Text() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var b strings.Builder
	for it := t.head; it != nil; it = it.right {
		if !it.deleted {
			b.WriteRune(it.content)
		}
	}
	return b.String()
}

// Len возвращает количество видимых символов.
func (t *Text) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.length
}

// Pending возвращает количество элементов, ожидающих зависимостей.
func (t *Text) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.pending)
}

// StateVector возвращает копию вектора состояния документа.
func (t *Text) StateVector() StateVector {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.sv.Clone()
}

// Diff возвращает все элементы, которых нет у реплики с вектором состояния sv,
// и полный набор удалений. Diff(nil) - полное состояние документа.
func (t *Text) Diff(sv StateVector) *Update {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.diff(sv)
}

// Snapshot сериализует полное состояние для новых участников.
func (t *Text) Snapshot() ([]byte, error) {
	return t.Diff(nil).MarshalBinary()
}

// Restore сливает полное состояние из снапшота. Документ может быть
// непустым: снапшот применяется как обычное обновление, поэтому устаревший
// снапшот не воскрешает удаленные символы.
func (t *Text) Restore(data []byte) error {
	u, err := DecodeUpdate(data)
	if err != nil {
		return err
	}
	if _, err := t.ApplyUpdate(u); err != nil {
		return fmt.Errorf("failed to apply snapshot: %w", err)
	}
	return nil
}

func (t *Text) diff(sv StateVector) *Update {
	var missing []*item
	for it := t.head; it != nil; it = it.right {
		if it.id.Clock >= sv[it.id.Replica] {
			missing = append(missing, it)
		}
	}
	for _, it := range t.pending {
		if it.id.Clock >= sv[it.id.Replica] {
			missing = append(missing, it)
		}
	}
	slices.SortFunc(missing, func(a, b *item) int {
		return a.id.Compare(b.id)
	})

	u := &Update{}
	for _, it := range missing {
		if n := len(u.Runs); n > 0 {
			last := &u.Runs[n-1]
			lastID := ID{Replica: last.ID.Replica, Clock: last.ID.Clock + uint64(last.Len()) - 1}
			if it.id.Replica == lastID.Replica && it.id.Clock == lastID.Clock+1 &&
				equalIDPtr(it.originLeft, &lastID) && equalIDPtr(it.originRight, last.OriginRight) {
				last.Content += string(it.content)
				continue
			}
		}
		u.Runs = append(u.Runs, Run{
			ID:          it.id,
			OriginLeft:  copyID(it.originLeft),
			OriginRight: copyID(it.originRight),
			Content:     string(it.content),
		})
	}
	u.Deletes = t.deleteSet()
	return u
}

// deleteSet собирает все известные tombstone, включая отложенные удаления.
func (t *Text) deleteSet() []DeleteRange {
	var ids []ID
	for it := t.head; it != nil; it = it.right {
		if it.deleted {
			ids = append(ids, it.id)
		}
	}
	for id := range t.pendingDeletes {
		ids = append(ids, id)
	}
	return deleteRangesFromIDs(ids)
}

// drainPending интегрирует ожидающие элементы, пока есть прогресс.
// Элемент готов, когда его часы следуют сразу за уже интегрированными
// элементами той же реплики и оба origin известны.
func (t *Text) drainPending() bool {
	changed := false
	for len(t.pending) > 0 {
		ready := make([]*item, 0, len(t.pending))
		for _, it := range t.pending {
			ready = append(ready, it)
		}
		slices.SortFunc(ready, func(a, b *item) int {
			if c := cmp.Compare(a.id.Replica, b.id.Replica); c != 0 {
				return c
			}
			return cmp.Compare(a.id.Clock, b.id.Clock)
		})

		progress := false
		for _, it := range ready {
			if it.id.Clock < t.sv[it.id.Replica] {
				// дубликат уже интегрированного элемента
				delete(t.pending, it.id)
				continue
			}
			if !t.canIntegrate(it) {
				continue
			}
			delete(t.pending, it.id)
			t.integrate(it)
			progress = true
			changed = true
		}
		if !progress {
			break
		}
	}
	return changed
}

func (t *Text) canIntegrate(it *item) bool {
	if it.id.Clock != t.sv[it.id.Replica] {
		return false
	}
	if it.originLeft != nil {
		if _, ok := t.items[*it.originLeft]; !ok {
			return false
		}
	}
	if it.originRight != nil {
		if _, ok := t.items[*it.originRight]; !ok {
			return false
		}
	}
	return true
}

// integrate вставляет элемент в список по правилам YATA.
// Все зависимости элемента уже должны быть интегрированы.
func (t *Text) integrate(it *item) {
	var left, right *item
	if it.originLeft != nil {
		left = t.items[*it.originLeft]
	}
	if it.originRight != nil {
		right = t.items[*it.originRight]
	}

	o := t.head
	if left != nil {
		o = left.right
	}

	conflicting := make(map[*item]struct{})
	beforeOrigin := make(map[*item]struct{})
	for o != nil && o != right {
		beforeOrigin[o] = struct{}{}
		conflicting[o] = struct{}{}

		if equalIDPtr(it.originLeft, o.originLeft) {
			// Одинаковый левый origin: меньшая реплика стоит левее
			if o.id.Replica < it.id.Replica {
				left = o
				clear(conflicting)
			} else if equalIDPtr(it.originRight, o.originRight) {
				break
			}
		} else if o.originLeft != nil {
			ol := t.items[*o.originLeft]
			if _, ok := beforeOrigin[ol]; !ok {
				break
			}
			if _, ok := conflicting[ol]; !ok {
				left = o
				clear(conflicting)
			}
		} else {
			break
		}
		o = o.right
	}

	// Связываем элемент справа от left
	it.left = left
	if left != nil {
		it.right = left.right
		left.right = it
	} else {
		it.right = t.head
		t.head = it
	}
	if it.right != nil {
		it.right.left = it
	}

	if _, ok := t.pendingDeletes[it.id]; ok {
		it.deleted = true
		delete(t.pendingDeletes, it.id)
	}

	t.items[it.id] = it
	t.sv[it.id.Replica] = it.id.Clock + 1
	if it.id.Replica == t.clock.ReplicaID() {
		t.clock.Advance(it.id.Clock + 1)
	}
	if !it.deleted {
		t.length++
	}
}

// visibleAt возвращает видимый элемент с индексом idx или nil.
func (t *Text) visibleAt(idx int) *item {
	for it := t.head; it != nil; it = it.right {
		if it.deleted {
			continue
		}
		if idx == 0 {
			return it
		}
		idx--
	}
	return nil
}

func copyID(id *ID) *ID {
	if id == nil {
		return nil
	}
	return idPtr(*id)
}
