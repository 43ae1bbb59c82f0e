package crdt

import (
	"cmp"
	"fmt"
	"slices"

	"google.golang.org/protobuf/encoding/protowire"
)

// Бинарный формат совместим с protobuf wire format:
//
//	Update      { 1: repeated Run; 2: repeated DeleteRange; 3: records }
//	Run         { 1: replica; 2: clock; 3: origin_left ID; 4: origin_right ID; 5: content }
//	ID          { 1: replica; 2: clock }
//	DeleteRange { 1: replica; 2: clock; 3: len }
//	StateVector { 1: repeated Entry{ 1: replica; 2: clock } }
//
// records пишется последним и равен числу Run + DeleteRange: без него
// обрезанное на границе записи обновление выглядело бы корректным.
// Неизвестные поля пропускаются.
const (
	fieldUpdateRuns    protowire.Number = 1
	fieldUpdateDeletes protowire.Number = 2
	fieldUpdateRecords protowire.Number = 3

	fieldRunReplica     protowire.Number = 1
	fieldRunClock       protowire.Number = 2
	fieldRunOriginLeft  protowire.Number = 3
	fieldRunOriginRight protowire.Number = 4
	fieldRunContent     protowire.Number = 5

	fieldIDReplica protowire.Number = 1
	fieldIDClock   protowire.Number = 2

	fieldDeleteReplica protowire.Number = 1
	fieldDeleteClock   protowire.Number = 2
	fieldDeleteLen     protowire.Number = 3

	fieldSVEntry   protowire.Number = 1
	fieldSVReplica protowire.Number = 1
	fieldSVClock   protowire.Number = 2
)

// EncodeUpdate сериализует обновление в бинарный формат.
func EncodeUpdate(u *Update) ([]byte, error) {
	if u == nil {
		u = &Update{}
	}
	return u.MarshalBinary()
}

// DecodeUpdate разбирает бинарное обновление.
// Любая ошибка разбора оборачивает ErrMalformedUpdate.
func DecodeUpdate(data []byte) (*Update, error) {
	u := &Update{}
	if err := u.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return u, nil
}

// MarshalBinary реализует encoding.BinaryMarshaler.
func (u *Update) MarshalBinary() ([]byte, error) {
	b := []byte{}
	for _, r := range u.Runs {
		b = protowire.AppendTag(b, fieldUpdateRuns, protowire.BytesType)
		b = protowire.AppendBytes(b, appendRun(nil, r))
	}
	for _, d := range u.Deletes {
		b = protowire.AppendTag(b, fieldUpdateDeletes, protowire.BytesType)
		b = protowire.AppendBytes(b, appendDeleteRange(nil, d))
	}
	b = protowire.AppendTag(b, fieldUpdateRecords, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(len(u.Runs)+len(u.Deletes)))
	return b, nil
}

// UnmarshalBinary реализует encoding.BinaryUnmarshaler.
func (u *Update) UnmarshalBinary(data []byte) error {
	var (
		decoded    Update
		records    uint64
		hasRecords bool
	)
	err := consumeFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == fieldUpdateRecords && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			records = v
			hasRecords = n >= 0
			return n, nil
		case num == fieldUpdateRuns && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			r, err := decodeRun(v)
			if err != nil {
				return 0, err
			}
			decoded.Runs = append(decoded.Runs, r)
			return n, nil
		case num == fieldUpdateDeletes && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			d, err := decodeDeleteRange(v)
			if err != nil {
				return 0, err
			}
			decoded.Deletes = append(decoded.Deletes, d)
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
	if err != nil {
		return err
	}
	if !hasRecords {
		return fmt.Errorf("%w: missing record count", ErrMalformedUpdate)
	}
	if got := uint64(len(decoded.Runs) + len(decoded.Deletes)); got != records {
		return fmt.Errorf("%w: expected %d records, got %d", ErrMalformedUpdate, records, got)
	}
	if err := decoded.validate(); err != nil {
		return err
	}
	*u = decoded
	return nil
}

// EncodeStateVector сериализует вектор состояния; записи отсортированы по реплике.
func EncodeStateVector(sv StateVector) []byte {
	replicas := make([]string, 0, len(sv))
	for r := range sv {
		replicas = append(replicas, r)
	}
	slices.SortFunc(replicas, cmp.Compare[string])

	b := []byte{}
	for _, r := range replicas {
		var entry []byte
		entry = protowire.AppendTag(entry, fieldSVReplica, protowire.BytesType)
		entry = protowire.AppendString(entry, r)
		entry = protowire.AppendTag(entry, fieldSVClock, protowire.VarintType)
		entry = protowire.AppendVarint(entry, sv[r])

		b = protowire.AppendTag(b, fieldSVEntry, protowire.BytesType)
		b = protowire.AppendBytes(b, entry)
	}
	return b
}

// DecodeStateVector разбирает вектор состояния.
func DecodeStateVector(data []byte) (StateVector, error) {
	sv := make(StateVector)
	err := consumeFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != fieldSVEntry || typ != protowire.BytesType {
			return protowire.ConsumeFieldValue(num, typ, b), nil
		}
		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return n, nil
		}
		var replica string
		var clock uint64
		err := consumeFields(v, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
			switch {
			case num == fieldSVReplica && typ == protowire.BytesType:
				s, n := protowire.ConsumeString(b)
				replica = s
				return n, nil
			case num == fieldSVClock && typ == protowire.VarintType:
				c, n := protowire.ConsumeVarint(b)
				clock = c
				return n, nil
			}
			return protowire.ConsumeFieldValue(num, typ, b), nil
		})
		if err != nil {
			return 0, err
		}
		if replica == "" {
			return 0, fmt.Errorf("%w: state vector entry without replica", ErrMalformedUpdate)
		}
		sv[replica] = max(sv[replica], clock)
		return n, nil
	})
	if err != nil {
		return nil, err
	}
	return sv, nil
}

func appendRun(b []byte, r Run) []byte {
	b = protowire.AppendTag(b, fieldRunReplica, protowire.BytesType)
	b = protowire.AppendString(b, r.ID.Replica)
	b = protowire.AppendTag(b, fieldRunClock, protowire.VarintType)
	b = protowire.AppendVarint(b, r.ID.Clock)
	if r.OriginLeft != nil {
		b = protowire.AppendTag(b, fieldRunOriginLeft, protowire.BytesType)
		b = protowire.AppendBytes(b, appendID(nil, *r.OriginLeft))
	}
	if r.OriginRight != nil {
		b = protowire.AppendTag(b, fieldRunOriginRight, protowire.BytesType)
		b = protowire.AppendBytes(b, appendID(nil, *r.OriginRight))
	}
	b = protowire.AppendTag(b, fieldRunContent, protowire.BytesType)
	b = protowire.AppendString(b, r.Content)
	return b
}

func appendID(b []byte, id ID) []byte {
	b = protowire.AppendTag(b, fieldIDReplica, protowire.BytesType)
	b = protowire.AppendString(b, id.Replica)
	b = protowire.AppendTag(b, fieldIDClock, protowire.VarintType)
	b = protowire.AppendVarint(b, id.Clock)
	return b
}

func appendDeleteRange(b []byte, d DeleteRange) []byte {
	b = protowire.AppendTag(b, fieldDeleteReplica, protowire.BytesType)
	b = protowire.AppendString(b, d.Replica)
	b = protowire.AppendTag(b, fieldDeleteClock, protowire.VarintType)
	b = protowire.AppendVarint(b, d.Clock)
	b = protowire.AppendTag(b, fieldDeleteLen, protowire.VarintType)
	b = protowire.AppendVarint(b, d.Len)
	return b
}

func decodeRun(data []byte) (Run, error) {
	var r Run
	err := consumeFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == fieldRunReplica && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			r.ID.Replica = s
			return n, nil
		case num == fieldRunClock && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			r.ID.Clock = v
			return n, nil
		case (num == fieldRunOriginLeft || num == fieldRunOriginRight) && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			id, err := decodeID(v)
			if err != nil {
				return 0, err
			}
			if num == fieldRunOriginLeft {
				r.OriginLeft = &id
			} else {
				r.OriginRight = &id
			}
			return n, nil
		case num == fieldRunContent && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			r.Content = s
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
	return r, err
}

func decodeID(data []byte) (ID, error) {
	var id ID
	err := consumeFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == fieldIDReplica && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			id.Replica = s
			return n, nil
		case num == fieldIDClock && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			id.Clock = v
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
	if err != nil {
		return ID{}, err
	}
	if id.Replica == "" {
		return ID{}, fmt.Errorf("%w: origin without replica", ErrMalformedUpdate)
	}
	return id, nil
}

func decodeDeleteRange(data []byte) (DeleteRange, error) {
	var d DeleteRange
	err := consumeFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == fieldDeleteReplica && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			d.Replica = s
			return n, nil
		case num == fieldDeleteClock && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			d.Clock = v
			return n, nil
		case num == fieldDeleteLen && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			d.Len = v
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
	return d, err
}

// consumeFields обходит поля сообщения. fn получает данные после тега и
// возвращает длину значения; отрицательная длина означает ошибку protowire.
func consumeFields(data []byte, fn func(protowire.Number, protowire.Type, []byte) (int, error)) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrMalformedUpdate, protowire.ParseError(n))
		}
		data = data[n:]

		m, err := fn(num, typ, data)
		if err != nil {
			return err
		}
		if m < 0 {
			return fmt.Errorf("%w: field %d: %v", ErrMalformedUpdate, num, protowire.ParseError(m))
		}
		data = data[m:]
	}
	return nil
}
