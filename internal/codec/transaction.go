package codec

import (
	"bytes"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/goodnatureofminers/btctoolkit/internal/model"
)

const (
	// minInputSize is outpoint + empty script + sequence.
	minInputSize = 36 + 1 + 4
	// minOutputSize is value + empty script.
	minOutputSize = 8 + 1

	witnessMarker = 0x00
	witnessFlag   = 0x01
)

// Input spends a previous output.
type Input struct {
	PreviousOutPoint OutPoint
	SignatureScript  []byte
	Sequence         uint32
	Witness          [][]byte
}

// Output locks Value satoshis to PkScript.
type Output struct {
	Value    int64
	PkScript []byte
}

// Transaction is the structured form of a consensus-encoded transaction.
type Transaction struct {
	Version  int32
	Inputs   []Input
	Outputs  []Output
	LockTime uint32
}

// HasWitness reports whether the transaction serializes in the segregated
// witness format, which is the case iff any input carries witness items.
func (tx *Transaction) HasWitness() bool {
	for _, in := range tx.Inputs {
		if len(in.Witness) > 0 {
			return true
		}
	}
	return false
}

// EncodeInput returns the encoding of in without its witness.
func EncodeInput(in Input) []byte {
	var buf bytes.Buffer
	writeInput(&buf, in)
	return buf.Bytes()
}

// DecodeInput decodes an input (without witness) from the start of b.
func DecodeInput(b []byte) (Input, int, error) {
	d := newReader("decode input", b)
	in, err := d.input()
	if err != nil {
		return Input{}, 0, err
	}
	return in, d.offset(), nil
}

// EncodeOutput returns the encoding of out.
func EncodeOutput(out Output) []byte {
	var buf bytes.Buffer
	writeOutput(&buf, out)
	return buf.Bytes()
}

// DecodeOutput decodes an output from the start of b.
func DecodeOutput(b []byte) (Output, int, error) {
	d := newReader("decode output", b)
	out, err := d.output()
	if err != nil {
		return Output{}, 0, err
	}
	return out, d.offset(), nil
}

// EncodeWitness returns the stack count followed by each length-prefixed
// item, the layout used for PSBT final witnesses.
func EncodeWitness(w [][]byte) []byte {
	var buf bytes.Buffer
	writeWitness(&buf, w)
	return buf.Bytes()
}

// DecodeWitness decodes a witness stack from the start of b.
func DecodeWitness(b []byte) ([][]byte, int, error) {
	d := newReader("decode witness", b)
	w, err := d.witness()
	if err != nil {
		return nil, 0, err
	}
	return w, d.offset(), nil
}

// EncodeTransaction returns the full serialization of tx, including
// witness data when present.
func EncodeTransaction(tx Transaction) []byte {
	return encodeTransaction(tx, tx.HasWitness())
}

// EncodeTransactionNoWitness returns the legacy serialization used for the
// transaction id.
func EncodeTransactionNoWitness(tx Transaction) []byte {
	return encodeTransaction(tx, false)
}

// DecodeTransaction decodes b as exactly one transaction. Trailing bytes are
// an encoding error.
func DecodeTransaction(b []byte) (Transaction, error) {
	tx, n, err := DecodeTransactionPrefix(b)
	if err != nil {
		return Transaction{}, err
	}
	if n != len(b) {
		return Transaction{}, &model.Error{
			Kind:   model.ErrInvalidEncoding,
			Op:     "decode transaction",
			Field:  "trailing data",
			Offset: n,
		}
	}
	return tx, nil
}

// DecodeTransactionPrefix decodes a transaction from the start of b and
// returns the number of bytes consumed.
func DecodeTransactionPrefix(b []byte) (Transaction, int, error) {
	d := newReader("decode transaction", b)
	tx, err := d.transaction()
	if err != nil {
		return Transaction{}, 0, err
	}
	return tx, d.offset(), nil
}

func (d *reader) input() (Input, error) {
	var (
		in  Input
		err error
	)
	if in.PreviousOutPoint, err = d.outPoint(); err != nil {
		return in, err
	}
	if in.SignatureScript, err = d.varBytes("signature script"); err != nil {
		return in, err
	}
	if in.Sequence, err = d.uint32("sequence"); err != nil {
		return in, err
	}
	return in, nil
}

func (d *reader) output() (Output, error) {
	var out Output
	v, err := d.uint64("value")
	if err != nil {
		return out, err
	}
	out.Value = int64(v)
	if out.PkScript, err = d.varBytes("public key script"); err != nil {
		return out, err
	}
	return out, nil
}

func (d *reader) witness() ([][]byte, error) {
	n, err := d.count("witness item count", 1)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	items := make([][]byte, n)
	for i := range items {
		if items[i], err = d.varBytes("witness item"); err != nil {
			return nil, err
		}
	}
	return items, nil
}

// transaction follows the reference node's unserialize logic: an empty
// input vector is read as the segwit marker and the next byte as flags.
func (d *reader) transaction() (Transaction, error) {
	var tx Transaction
	if d.remaining() == 0 {
		return tx, d.truncated("version", 0, "empty input")
	}
	v, err := d.uint32("version")
	if err != nil {
		return tx, err
	}
	tx.Version = int32(v)

	nIn, err := d.count("input count", minInputSize)
	if err != nil {
		return tx, err
	}
	var flags byte
	if nIn == 0 {
		flagsAt := d.offset()
		if flags, err = d.readByte("segwit flag"); err != nil {
			return tx, err
		}
		if flags != 0 {
			if nIn, err = d.count("input count", minInputSize); err != nil {
				return tx, err
			}
			if err = d.inputsAndOutputs(&tx, nIn); err != nil {
				return tx, err
			}
		}
		if flags&^witnessFlag != 0 {
			return tx, d.invalid("segwit flag", flagsAt, "unknown transaction optional data")
		}
	} else if err = d.inputsAndOutputs(&tx, nIn); err != nil {
		return tx, err
	}

	if flags&witnessFlag != 0 {
		witnessAt := d.offset()
		for i := range tx.Inputs {
			if tx.Inputs[i].Witness, err = d.witness(); err != nil {
				return tx, err
			}
		}
		if !tx.HasWitness() {
			return tx, d.invalid("witness", witnessAt, "superfluous witness record")
		}
	}

	if tx.LockTime, err = d.uint32("lock time"); err != nil {
		return tx, err
	}
	return tx, nil
}

func (d *reader) inputsAndOutputs(tx *Transaction, nIn int) error {
	var err error
	tx.Inputs = make([]Input, nIn)
	for i := range tx.Inputs {
		if tx.Inputs[i], err = d.input(); err != nil {
			return err
		}
	}
	nOut, err := d.count("output count", minOutputSize)
	if err != nil {
		return err
	}
	tx.Outputs = make([]Output, nOut)
	for i := range tx.Outputs {
		if tx.Outputs[i], err = d.output(); err != nil {
			return err
		}
	}
	return nil
}

func writeInput(buf *bytes.Buffer, in Input) {
	writeOutPoint(buf, in.PreviousOutPoint)
	writeVarBytes(buf, in.SignatureScript)
	writeUint32(buf, in.Sequence)
}

func writeOutput(buf *bytes.Buffer, out Output) {
	writeUint64(buf, uint64(out.Value))
	writeVarBytes(buf, out.PkScript)
}

func writeWitness(buf *bytes.Buffer, w [][]byte) {
	writeVarInt(buf, uint64(len(w)))
	for _, item := range w {
		writeVarBytes(buf, item)
	}
}

func encodeTransaction(tx Transaction, withWitness bool) []byte {
	var buf bytes.Buffer
	writeUint32(&buf, uint32(tx.Version))
	if withWitness {
		buf.WriteByte(witnessMarker)
		buf.WriteByte(witnessFlag)
	}
	writeVarInt(&buf, uint64(len(tx.Inputs)))
	for _, in := range tx.Inputs {
		writeInput(&buf, in)
	}
	writeVarInt(&buf, uint64(len(tx.Outputs)))
	for _, out := range tx.Outputs {
		writeOutput(&buf, out)
	}
	if withWitness {
		for _, in := range tx.Inputs {
			writeWitness(&buf, in.Witness)
		}
	}
	writeUint32(&buf, tx.LockTime)
	return buf.Bytes()
}

// TxID returns the double-SHA256 of the legacy serialization.
func (tx *Transaction) TxID() chainhash.Hash {
	return chainhash.DoubleHashH(EncodeTransactionNoWitness(*tx))
}

// WTxID returns the double-SHA256 of the full serialization.
func (tx *Transaction) WTxID() chainhash.Hash {
	return chainhash.DoubleHashH(EncodeTransaction(*tx))
}

// Size is the full serialized size in bytes.
func (tx *Transaction) Size() int {
	return len(EncodeTransaction(*tx))
}

// StrippedSize is the serialized size without witness data.
func (tx *Transaction) StrippedSize() int {
	return len(EncodeTransactionNoWitness(*tx))
}

// Weight is the BIP141 weight of the transaction.
func (tx *Transaction) Weight() int64 {
	return blockchain.GetTransactionWeight(btcutil.NewTx(tx.MsgTx()))
}

// VSize is the weight divided by four, rounded up.
func (tx *Transaction) VSize() int64 {
	return (tx.Weight() + blockchain.WitnessScaleFactor - 1) / blockchain.WitnessScaleFactor
}

// TotalOutputValue sums the output values.
func (tx *Transaction) TotalOutputValue() int64 {
	var total int64
	for _, out := range tx.Outputs {
		total += out.Value
	}
	return total
}

// MsgTx converts tx into a btcd wire transaction. Byte slices are copied.
func (tx *Transaction) MsgTx() *wire.MsgTx {
	msg := wire.NewMsgTx(tx.Version)
	msg.LockTime = tx.LockTime
	for _, in := range tx.Inputs {
		op := wire.NewOutPoint(&in.PreviousOutPoint.Hash, in.PreviousOutPoint.Index)
		txIn := wire.NewTxIn(op, cloneBytes(in.SignatureScript), cloneWitness(in.Witness))
		txIn.Sequence = in.Sequence
		msg.AddTxIn(txIn)
	}
	for _, out := range tx.Outputs {
		msg.AddTxOut(wire.NewTxOut(out.Value, cloneBytes(out.PkScript)))
	}
	return msg
}

// FromMsgTx converts a btcd wire transaction. Byte slices are copied.
func FromMsgTx(msg *wire.MsgTx) Transaction {
	tx := Transaction{
		Version:  msg.Version,
		LockTime: msg.LockTime,
		Inputs:   make([]Input, len(msg.TxIn)),
		Outputs:  make([]Output, len(msg.TxOut)),
	}
	for i, in := range msg.TxIn {
		tx.Inputs[i] = Input{
			PreviousOutPoint: OutPoint{Hash: in.PreviousOutPoint.Hash, Index: in.PreviousOutPoint.Index},
			SignatureScript:  cloneBytes(in.SignatureScript),
			Sequence:         in.Sequence,
			Witness:          cloneWitness(in.Witness),
		}
	}
	for i, out := range msg.TxOut {
		tx.Outputs[i] = Output{Value: out.Value, PkScript: cloneBytes(out.PkScript)}
	}
	return tx
}

// Clone returns a deep copy of tx.
func (tx *Transaction) Clone() Transaction {
	c := Transaction{Version: tx.Version, LockTime: tx.LockTime}
	if tx.Inputs != nil {
		c.Inputs = make([]Input, len(tx.Inputs))
		for i, in := range tx.Inputs {
			c.Inputs[i] = Input{
				PreviousOutPoint: in.PreviousOutPoint,
				SignatureScript:  cloneBytes(in.SignatureScript),
				Sequence:         in.Sequence,
				Witness:          cloneWitness(in.Witness),
			}
		}
	}
	if tx.Outputs != nil {
		c.Outputs = make([]Output, len(tx.Outputs))
		for i, out := range tx.Outputs {
			c.Outputs[i] = Output{Value: out.Value, PkScript: cloneBytes(out.PkScript)}
		}
	}
	return c
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte{}, b...)
}

func cloneWitness(w [][]byte) [][]byte {
	if w == nil {
		return nil
	}
	c := make([][]byte, len(w))
	for i, item := range w {
		c[i] = cloneBytes(item)
	}
	return c
}
