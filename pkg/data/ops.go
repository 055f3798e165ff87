package data

// Add implements spec §4.1 add(target, delta, init_type) → target'.
// target may be nil, meaning the key was absent; the zero value of
// initType is used as the starting point in that case.
func Add(target *Value, delta Value, initType Kind) (Value, error) {
	effective := ZeroOf(initType)
	if target != nil {
		effective = *target
	}

	switch effective.kind {
	case KindCount:
		if delta.kind != KindCount {
			return Value{}, ErrTypeClash
		}
		return Count(effective.count + delta.count), nil
	case KindInt:
		if delta.kind != KindInt {
			return Value{}, ErrTypeClash
		}
		return Int(effective.i + delta.i), nil
	case KindReal:
		if delta.kind != KindReal {
			return Value{}, ErrTypeClash
		}
		return Real(effective.r + delta.r), nil
	case KindTimestamp:
		if delta.kind != KindTimespan {
			return Value{}, ErrTypeClash
		}
		return Timestamp(effective.ts.Add(delta.dur)), nil
	case KindString:
		if delta.kind != KindString {
			return Value{}, ErrTypeClash
		}
		return String(effective.s + delta.s), nil
	case KindSet:
		out := effective.cloneSet()
		out.set[delta.canonicalKey()] = delta
		return out, nil
	case KindTable:
		if delta.kind != KindVector || len(delta.vec) != 2 {
			return Value{}, ErrTypeClash
		}
		return effective.TablePut(delta.vec[0], delta.vec[1]), nil
	case KindVector:
		out := make([]Value, len(effective.vec)+1)
		copy(out, effective.vec)
		out[len(effective.vec)] = delta
		return Value{kind: KindVector, vec: out}, nil
	default:
		return Value{}, ErrTypeClash
	}
}

// Subtract implements spec §4.1 subtract(target, delta) → target'.
//
// Vector subtraction is defined as pop-last: delta is ignored rather
// than treated as the removed element.
func Subtract(target Value, delta Value) (Value, error) {
	switch target.kind {
	case KindCount:
		if delta.kind != KindCount {
			return Value{}, ErrTypeClash
		}
		return Count(target.count - delta.count), nil
	case KindInt:
		if delta.kind != KindInt {
			return Value{}, ErrTypeClash
		}
		return Int(target.i - delta.i), nil
	case KindReal:
		if delta.kind != KindReal {
			return Value{}, ErrTypeClash
		}
		return Real(target.r - delta.r), nil
	case KindTimestamp:
		if delta.kind != KindTimespan {
			return Value{}, ErrTypeClash
		}
		return Timestamp(target.ts.Add(-delta.dur)), nil
	case KindSet:
		key := delta.canonicalKey()
		if _, ok := target.set[key]; !ok {
			return Value{}, ErrNoSuchKey
		}
		out := target.cloneSet()
		delete(out.set, key)
		return out, nil
	case KindTable:
		key := delta.canonicalKey()
		if _, ok := target.table[key]; !ok {
			return Value{}, ErrNoSuchKey
		}
		return target.TableDelete(delta), nil
	case KindVector:
		if len(target.vec) == 0 {
			return Value{}, ErrNoSuchKey
		}
		out := make([]Value, len(target.vec)-1)
		copy(out, target.vec[:len(target.vec)-1])
		return Value{kind: KindVector, vec: out}, nil
	default:
		return Value{}, ErrTypeClash
	}
}

// IndexInto implements spec §4.1 index_into(container, index).
// For sets the result is a boolean membership Value, never an error.
func IndexInto(container Value, index Value) (Value, error) {
	switch container.kind {
	case KindTable:
		v, ok := container.TableGet(index)
		if !ok {
			return Value{}, ErrNoSuchKey
		}
		return v, nil
	case KindVector:
		i, ok := asInt(index)
		if !ok || i < 0 || i >= len(container.vec) {
			return Value{}, ErrNoSuchKey
		}
		return container.vec[i], nil
	case KindSet:
		return Bool(container.SetContains(index)), nil
	default:
		return Value{}, ErrTypeClash
	}
}

func asInt(v Value) (int, bool) {
	switch v.kind {
	case KindCount:
		return int(v.count), true
	case KindInt:
		return int(v.i), true
	default:
		return 0, false
	}
}

func (v Value) cloneSet() Value {
	out := Value{kind: KindSet, set: make(map[string]Value, len(v.set)+1)}
	for k, e := range v.set {
		out.set[k] = e
	}
	return out
}
