package models

import "time"

// Cursor позиция курсора участника в видимых символах документа.
// Anchor - начало выделения, Head - позиция каретки; без выделения они равны.
type Cursor struct {
	Anchor int `json:"anchor"`
	Head   int `json:"head"`
}

// Presence эфемерное состояние участника: имя, цвет и курсор.
// Не является частью документа и не сохраняется.
type Presence struct {
	Cursor *Cursor `json:"cursor,omitempty"` // Cursor nil, если курсор не установлен
	Name   string  `json:"name"`             // Name отображаемое имя участника
	Color  string  `json:"color"`            // Color цвет курсора (например, "#ff8800")
}

// Clone создает глубокую копию состояния
func (p *Presence) Clone() *Presence {
	if p == nil {
		return nil
	}
	out := &Presence{Name: p.Name, Color: p.Color}
	if p.Cursor != nil {
		c := *p.Cursor
		out.Cursor = &c
	}
	return out
}

// Equal сравнивает два состояния по значению
func (p *Presence) Equal(other *Presence) bool {
	if p == nil || other == nil {
		return p == other
	}
	if p.Name != other.Name || p.Color != other.Color {
		return false
	}
	if p.Cursor == nil || other.Cursor == nil {
		return p.Cursor == other.Cursor
	}
	return *p.Cursor == *other.Cursor
}

// Peer участник документа, известный реестру присутствия.
type Peer struct {
	LastSeen time.Time `json:"last_seen"` // LastSeen локальное время последнего сообщения
	Replica  string    `json:"replica"`   // Replica идентификатор реплики участника
	Presence Presence  `json:"presence"`  // Presence последнее полученное состояние
	Clock    uint64    `json:"clock"`     // Clock счетчик состояний участника
	Local    bool      `json:"local"`     // Local true для собственной реплики
}
