package codec

import (
	"bytes"
	"encoding/binary"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// EncodeVarInt returns the compact-size encoding of v.
func EncodeVarInt(v uint64) []byte {
	var buf bytes.Buffer
	writeVarInt(&buf, v)
	return buf.Bytes()
}

// DecodeVarInt decodes a compact-size integer from the start of b.
func DecodeVarInt(b []byte) (uint64, int, error) {
	d := newReader("decode varint", b)
	v, err := d.varInt("varint")
	if err != nil {
		return 0, 0, err
	}
	return v, d.offset(), nil
}

// EncodeVarBytes returns b prefixed with its compact-size length.
func EncodeVarBytes(b []byte) []byte {
	var buf bytes.Buffer
	writeVarBytes(&buf, b)
	return buf.Bytes()
}

// DecodeVarBytes decodes a length-prefixed byte string from the start of b.
func DecodeVarBytes(b []byte) ([]byte, int, error) {
	d := newReader("decode var bytes", b)
	v, err := d.varBytes("bytes")
	if err != nil {
		return nil, 0, err
	}
	return v, d.offset(), nil
}

// OutPoint references an output of a previous transaction.
type OutPoint struct {
	Hash  chainhash.Hash
	Index uint32
}

// String returns the txid:vout form.
func (o OutPoint) String() string {
	return wire.NewOutPoint(&o.Hash, o.Index).String()
}

// EncodeOutPoint returns the 36-byte encoding of o.
func EncodeOutPoint(o OutPoint) []byte {
	var buf bytes.Buffer
	writeOutPoint(&buf, o)
	return buf.Bytes()
}

// DecodeOutPoint decodes an outpoint from the start of b.
func DecodeOutPoint(b []byte) (OutPoint, int, error) {
	d := newReader("decode outpoint", b)
	o, err := d.outPoint()
	if err != nil {
		return OutPoint{}, 0, err
	}
	return o, d.offset(), nil
}

func (d *reader) outPoint() (OutPoint, error) {
	var o OutPoint
	h, err := d.readFull("previous output hash", chainhash.HashSize)
	if err != nil {
		return o, err
	}
	copy(o.Hash[:], h)
	if o.Index, err = d.uint32("previous output index"); err != nil {
		return o, err
	}
	return o, nil
}

func writeVarInt(buf *bytes.Buffer, v uint64) {
	// bytes.Buffer writes cannot fail.
	_ = wire.WriteVarInt(buf, 0, v)
}

func writeVarBytes(buf *bytes.Buffer, b []byte) {
	_ = wire.WriteVarBytes(buf, 0, b)
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeUint64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func writeOutPoint(buf *bytes.Buffer, o OutPoint) {
	buf.Write(o.Hash[:])
	writeUint32(buf, o.Index)
}
