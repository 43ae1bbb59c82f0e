package crdt

import (
	"cmp"
	"fmt"
	"slices"
	"unicode/utf8"
)

// Run последовательность символов одной вставки.
// Символ k получает ID (Replica, Clock+k); его левый origin - предыдущий
// символ этой же вставки, правый origin у всех символов общий.
type Run struct {
	OriginLeft  *ID    // элемент слева в момент вставки (nil - начало документа)
	OriginRight *ID    // элемент справа в момент вставки (nil - конец документа)
	Content     string // вставленный текст
	ID          ID     // идентификатор первого символа
}

// Len returns the number of code points in the run.
func (r Run) Len() int {
	return utf8.RuneCountInString(r.Content)
}

// DeleteRange диапазон удаленных (tombstone) идентификаторов одной реплики.
type DeleteRange struct {
	Replica string
	Clock   uint64
	Len     uint64
}

// Contains reports whether id falls into the range.
func (d DeleteRange) Contains(id ID) bool {
	return id.Replica == d.Replica && id.Clock >= d.Clock && id.Clock < d.Clock+d.Len
}

// Update неизменяемая самодостаточная дельта: новые вставки и tombstone-маркеры.
// Слияние обновлений ассоциативно, коммутативно и идемпотентно.
type Update struct {
	Runs    []Run
	Deletes []DeleteRange
}

// IsEmpty reports whether the update carries neither insertions nor deletions.
func (u *Update) IsEmpty() bool {
	return u == nil || (len(u.Runs) == 0 && len(u.Deletes) == 0)
}

// MergeUpdates объединяет несколько обновлений в одно.
// Повторы допустимы: применение результата идемпотентно.
func MergeUpdates(updates ...*Update) *Update {
	merged := &Update{}
	var deletes []DeleteRange
	for _, u := range updates {
		if u == nil {
			continue
		}
		merged.Runs = append(merged.Runs, u.Runs...)
		deletes = append(deletes, u.Deletes...)
	}
	merged.Deletes = normalizeDeletes(deletes)
	return merged
}

// validate проверяет структурную корректность обновления до применения,
// чтобы некорректное обновление не было применено частично.
func (u *Update) validate() error {
	for i, r := range u.Runs {
		if r.ID.Replica == "" {
			return fmt.Errorf("%w: run %d has empty replica", ErrMalformedUpdate, i)
		}
		if r.Content == "" || !utf8.ValidString(r.Content) {
			return fmt.Errorf("%w: run %d has invalid content", ErrMalformedUpdate, i)
		}
		if r.ID.Clock+uint64(r.Len()) < r.ID.Clock {
			return fmt.Errorf("%w: run %d clock overflow", ErrMalformedUpdate, i)
		}
	}
	for i, d := range u.Deletes {
		if d.Replica == "" || d.Len == 0 || d.Clock+d.Len < d.Clock {
			return fmt.Errorf("%w: delete range %d is invalid", ErrMalformedUpdate, i)
		}
	}
	return nil
}

// normalizeDeletes сортирует диапазоны и склеивает пересекающиеся и смежные.
// Возвращает nil для пустого набора.
func normalizeDeletes(ranges []DeleteRange) []DeleteRange {
	if len(ranges) == 0 {
		return nil
	}
	sorted := slices.Clone(ranges)
	slices.SortFunc(sorted, func(a, b DeleteRange) int {
		if c := cmp.Compare(a.Replica, b.Replica); c != 0 {
			return c
		}
		return cmp.Compare(a.Clock, b.Clock)
	})

	var out []DeleteRange
	for _, r := range sorted {
		if n := len(out); n > 0 {
			last := &out[n-1]
			if last.Replica == r.Replica && r.Clock <= last.Clock+last.Len {
				if end := r.Clock + r.Len; end > last.Clock+last.Len {
					last.Len = end - last.Clock
				}
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

// deleteRangesFromIDs строит нормализованный набор диапазонов из идентификаторов.
func deleteRangesFromIDs(ids []ID) []DeleteRange {
	ranges := make([]DeleteRange, 0, len(ids))
	for _, id := range ids {
		ranges = append(ranges, DeleteRange{Replica: id.Replica, Clock: id.Clock, Len: 1})
	}
	return normalizeDeletes(ranges)
}
