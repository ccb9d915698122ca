package eval

import "strconv"

// Value is the result of an evaluation: an integer or, for comparisons, a boolean.
type Value struct {
	isBool bool
	i      int64
}

// Int returns an integer value.
func Int(v int64) Value {
	return Value{i: v}
}

// Bool returns a boolean value.
func Bool(v bool) Value {
	if v {
		return Value{isBool: true, i: 1}
	}
	return Value{isBool: true}
}

func (v Value) IsBool() bool {
	return v.isBool
}

// Int64 returns the numeric value; booleans are 0 or 1.
func (v Value) Int64() int64 {
	return v.i
}

// Truth reports whether the value is non-zero.
func (v Value) Truth() bool {
	return v.i != 0
}

// Matches reports whether a 32-bit device result equals v, comparing booleans as 0/1.
func (v Value) Matches(result int32) bool {
	return v.i == int64(result)
}

func (v Value) String() string {
	if v.isBool {
		return strconv.FormatBool(v.i != 0)
	}
	return strconv.FormatInt(v.i, 10)
}
