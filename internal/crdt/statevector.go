package crdt

import "maps"

// StateVector кратко описывает, что реплика уже интегрировала:
// для каждой реплики - следующее ожидаемое значение часов.
type StateVector map[string]uint64

// Get возвращает следующее ожидаемое значение часов для реплики.
func (sv StateVector) Get(replica string) uint64 {
	return sv[replica]
}

// Clone возвращает независимую копию.
func (sv StateVector) Clone() StateVector {
	out := make(StateVector, len(sv))
	maps.Copy(out, sv)
	return out
}

// Covers reports whether sv has seen everything other has seen.
func (sv StateVector) Covers(other StateVector) bool {
	for replica, clock := range other {
		if sv[replica] < clock {
			return false
		}
	}
	return true
}
