package interp

import (
	"math"
	"testing"
)

func TestToBoolean(t *testing.T) {
	tests := []struct {
		input    Value
		expected bool
	}{
		{Boolean(true), true},
		{Boolean(false), false},
		{Null{}, false},
		{Undefined{}, false},
		{String(""), false},
		{String("foo"), true},
		{String("0"), true},
		{String("false"), true},
		{Number(0), false},
		{Number(math.Copysign(0, -1)), false},
		{Number(1), true},
		{Number(math.Inf(1)), true},
		{Number(math.Inf(-1)), true},
		{Number(math.NaN()), false},
		{Number(math.MaxFloat64), true},
		{Number(math.SmallestNonzeroFloat64), true},
	}
	for _, c := range tests {
		if v := ToBoolean(c.input); v != Boolean(c.expected) {
			t.Errorf("ToBoolean(%v) (%T) == %v", c.input, c.input, v)
		}
	}
}

func TestToNumber(t *testing.T) {
	tests := []struct {
		input    Value
		expected float64
	}{
		{Undefined{}, math.NaN()},
		{Null{}, 0},
		{Boolean(true), 1},
		{Boolean(false), 0},
		{String(""), 0},
		{String("  42  "), 42},
		{String("3.5"), 3.5},
		{String("-7"), -7},
		{String("0x10"), 16},
		{String("1e3"), 1000},
		{String("Infinity"), math.Inf(1)},
		{String("-Infinity"), math.Inf(-1)},
		{String("zebra"), math.NaN()},
		{String("12abc"), math.NaN()},
		{String("Inf"), math.NaN()},
		{String("NaN"), math.NaN()},
		{Number(6), 6},
	}
	for _, c := range tests {
		got := float64(ToNumber(c.input))
		if math.IsNaN(c.expected) {
			if !math.IsNaN(got) {
				t.Errorf("ToNumber(%#v) == %v, want NaN", c.input, got)
			}
			continue
		}
		if got != c.expected {
			t.Errorf("ToNumber(%#v) == %v, want %v", c.input, got, c.expected)
		}
	}
}

func TestToString(t *testing.T) {
	tests := []struct {
		input    Value
		expected string
	}{
		{Undefined{}, "undefined"},
		{Null{}, "null"},
		{Boolean(true), "true"},
		{Boolean(false), "false"},
		{String("hi"), "hi"},
		{Number(0), "0"},
		{Number(math.Copysign(0, -1)), "0"},
		{Number(42), "42"},
		{Number(-1.5), "-1.5"},
		{Number(math.NaN()), "NaN"},
		{Number(math.Inf(1)), "Infinity"},
		{Number(math.Inf(-1)), "-Infinity"},
		{Number(1e21), "1e+21"},
		{Number(1.5e-7), "1.5e-7"},
		{Number(123456789), "123456789"},
	}
	for _, c := range tests {
		if got := string(ToString(c.input)); got != c.expected {
			t.Errorf("ToString(%#v) == %q, want %q", c.input, got, c.expected)
		}
	}
}

func TestStrictEquals(t *testing.T) {
	o1 := NewObject(nil)
	o2 := NewObject(nil)
	tests := []struct {
		a, b     Value
		expected bool
	}{
		{Number(1), Number(1), true},
		{Number(math.NaN()), Number(math.NaN()), false},
		{Number(0), Number(math.Copysign(0, -1)), true},
		{String("a"), String("a"), true},
		{Number(1), String("1"), false},
		{Undefined{}, Null{}, false},
		{Undefined{}, Undefined{}, true},
		{Null{}, Null{}, true},
		{o1, o1, true},
		{o1, o2, false},
	}
	for _, c := range tests {
		if got := StrictEquals(c.a, c.b); got != c.expected {
			t.Errorf("StrictEquals(%v, %v) == %v, want %v", c.a, c.b, got, c.expected)
		}
	}
}

func TestLooseEquals(t *testing.T) {
	tests := []struct {
		a, b     Value
		expected bool
	}{
		{Number(1), String("1"), true},
		{Boolean(true), Number(1), true},
		{Boolean(false), String(""), true},
		{Undefined{}, Null{}, true},
		{Null{}, Number(0), false},
		{Undefined{}, Number(0), false},
		{Number(math.NaN()), Number(math.NaN()), false},
		{String("0x10"), Number(16), true},
	}
	for _, c := range tests {
		if got := LooseEquals(c.a, c.b); got != c.expected {
			t.Errorf("LooseEquals(%v, %v) == %v, want %v", c.a, c.b, got, c.expected)
		}
	}
}

func TestToInt32(t *testing.T) {
	tests := []struct {
		input    float64
		expected int32
	}{
		{0, 0},
		{1, 1},
		{-1, -1},
		{math.NaN(), 0},
		{math.Inf(1), 0},
		{4294967296, 0},
		{4294967297, 1},
		{2147483648, -2147483648},
	}
	for _, c := range tests {
		if got := ToInt32(Number(c.input)); got != c.expected {
			t.Errorf("ToInt32(%v) == %v, want %v", c.input, got, c.expected)
		}
	}
}
