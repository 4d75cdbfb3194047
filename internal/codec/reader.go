// Package codec implements the consensus byte layout of transactions and
// their components.
package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"

	"github.com/btcsuite/btcd/wire"
	"github.com/goodnatureofminers/btctoolkit/internal/model"
	"github.com/goodnatureofminers/btctoolkit/pkg/safe"
)

// MaxSize is the largest length prefix accepted for any byte string or
// vector, matching the reference node.
const MaxSize = 0x02000000

// reader tracks the byte offset of every field it decodes so failures can
// point at the offending position.
type reader struct {
	op  string
	buf []byte
	r   *bytes.Reader
}

func newReader(op string, b []byte) *reader {
	return &reader{op: op, buf: b, r: bytes.NewReader(b)}
}

func (d *reader) offset() int {
	return len(d.buf) - d.r.Len()
}

func (d *reader) remaining() int {
	return d.r.Len()
}

func (d *reader) fail(field string, at int, err error) error {
	kind := model.ErrInvalidEncoding
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		kind = model.ErrTruncatedInput
	}
	return &model.Error{Kind: kind, Op: d.op, Field: field, Offset: at, Err: err}
}

func (d *reader) invalid(field string, at int, msg string) error {
	return &model.Error{Kind: model.ErrInvalidEncoding, Op: d.op, Field: field, Offset: at, Err: errors.New(msg)}
}

func (d *reader) truncated(field string, at int, msg string) error {
	return &model.Error{Kind: model.ErrTruncatedInput, Op: d.op, Field: field, Offset: at, Err: errors.New(msg)}
}

func (d *reader) readFull(field string, n int) ([]byte, error) {
	at := d.offset()
	if n > d.remaining() {
		return nil, d.truncated(field, at, "need more bytes")
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(d.r, b); err != nil {
		return nil, d.fail(field, at, err)
	}
	return b, nil
}

func (d *reader) readByte(field string) (byte, error) {
	at := d.offset()
	b, err := d.r.ReadByte()
	if err != nil {
		return 0, d.fail(field, at, err)
	}
	return b, nil
}

func (d *reader) uint32(field string) (uint32, error) {
	b, err := d.readFull(field, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (d *reader) uint64(field string) (uint64, error) {
	b, err := d.readFull(field, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (d *reader) varInt(field string) (uint64, error) {
	at := d.offset()
	v, err := wire.ReadVarInt(d.r, 0)
	if err != nil {
		return 0, d.fail(field, at, err)
	}
	return v, nil
}

// count reads a vector length and rejects lengths that cannot fit in the
// remaining bytes given the minimum encoded size of one element.
func (d *reader) count(field string, minElem int) (int, error) {
	at := d.offset()
	v, err := d.varInt(field)
	if err != nil {
		return 0, err
	}
	if v > MaxSize {
		return 0, d.invalid(field, at, "count exceeds maximum size")
	}
	if minElem > 0 && v > uint64(d.remaining()/minElem) {
		return 0, d.truncated(field, at, "count exceeds remaining bytes")
	}
	n, err := safe.Int(v)
	if err != nil {
		return 0, d.invalid(field, at, err.Error())
	}
	return n, nil
}

func (d *reader) varBytes(field string) ([]byte, error) {
	at := d.offset()
	n, err := d.varInt(field)
	if err != nil {
		return nil, err
	}
	if n > MaxSize {
		return nil, d.invalid(field, at, "length exceeds maximum size")
	}
	if n > uint64(d.remaining()) {
		return nil, d.truncated(field, at, "length exceeds remaining bytes")
	}
	size, err := safe.Int(n)
	if err != nil {
		return nil, d.invalid(field, at, err.Error())
	}
	return d.readFull(field, size)
}
