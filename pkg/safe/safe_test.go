package safe

import (
	"errors"
	"math"
	"testing"
)

type count uint64

func TestInt(t *testing.T) {
	tests := []struct {
		name    string
		got     func() (int, error)
		want    int
		wantErr bool
	}{
		{name: "negative int64", got: func() (int, error) { return Int(int64(-42)) }, want: -42},
		{name: "min int64", got: func() (int, error) { return Int(int64(math.MinInt64)) }, want: math.MinInt64},
		{name: "uint32 max", got: func() (int, error) { return Int(uint32(math.MaxUint32)) }, want: math.MaxUint32},
		{name: "named type", got: func() (int, error) { return Int(count(7)) }, want: 7},
		{name: "int8", got: func() (int, error) { return Int(int8(-128)) }, want: -128},
		{name: "uint64 overflow", got: func() (int, error) { return Int(uint64(math.MaxUint64)) }, wantErr: true},
		{name: "uint overflow", got: func() (int, error) { return Int(uint(math.MaxUint)) }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.got()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Int() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrOutOfRange) {
				t.Fatalf("Int() error = %v, want ErrOutOfRange", err)
			}
			if got != tt.want {
				t.Errorf("Int() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUint32(t *testing.T) {
	tests := []struct {
		name    string
		got     func() (uint32, error)
		want    uint32
		wantErr bool
	}{
		{name: "zero", got: func() (uint32, error) { return Uint32(0) }, want: 0},
		{name: "max from int64", got: func() (uint32, error) { return Uint32(int64(math.MaxUint32)) }, want: math.MaxUint32},
		{name: "sighash byte", got: func() (uint32, error) { return Uint32(uint8(0x81)) }, want: 0x81},
		{name: "named type", got: func() (uint32, error) { return Uint32(count(1 << 31)) }, want: 1 << 31},
		{name: "negative", got: func() (uint32, error) { return Uint32(-1) }, wantErr: true},
		{name: "min int64", got: func() (uint32, error) { return Uint32(int64(math.MinInt64)) }, wantErr: true},
		{name: "above max", got: func() (uint32, error) { return Uint32(uint64(math.MaxUint32) + 1) }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.got()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Uint32() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrOutOfRange) {
				t.Fatalf("Uint32() error = %v, want ErrOutOfRange", err)
			}
			if got != tt.want {
				t.Errorf("Uint32() = %v, want %v", got, tt.want)
			}
		})
	}
}
