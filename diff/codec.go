package diff

import (
	"github.com/buyukakyuz/bpx"
)

// maxU24 is the largest value a 24-bit wire length field can hold.
const maxU24 = 0xFFFFFF

// Operation is a single diff operation. Copy keeps an Offset field for
// forward compatibility with random-access copy strategies; the wire
// format never encodes it. Copy is strictly sequential against an
// implicit base cursor.
type Operation struct {
	Op     Op
	Offset uint32
	Length uint32
	Data   []byte
}

// CopyOp builds a Copy operation of the given length.
func CopyOp(length uint32) Operation {
	return Operation{Op: OpCopy, Length: length}
}

// InsertOp builds an Insert operation carrying data.
func InsertOp(data []byte) Operation {
	return Operation{Op: OpInsert, Data: data}
}

// DeleteOp builds a Delete operation of the given length.
func DeleteOp(length uint32) Operation {
	return Operation{Op: OpDelete, Length: length}
}

// Encode serializes operations into the wire format, always appending
// the End terminator (even for an empty operations slice, per § 8
// property 2).
func Encode(operations []Operation) ([]byte, error) {
	buf := make([]byte, 0, len(operations)*4+1)

	for _, op := range operations {
		switch op.Op {
		case OpCopy:
			if op.Length > maxU24 {
				return nil, bpx.NewError(bpx.InvalidFormat, "Copy length too large (max 24-bit)")
			}
			buf = append(buf, OpCopy.Byte())
			buf = appendU24(buf, op.Length)
		case OpInsert:
			if len(op.Data) > maxU24 {
				return nil, bpx.NewError(bpx.InvalidFormat, "Insert data too large (max 24-bit length)")
			}
			buf = append(buf, OpInsert.Byte())
			buf = appendU24(buf, uint32(len(op.Data)))
			buf = append(buf, op.Data...)
		case OpDelete:
			if op.Length > maxU24 {
				return nil, bpx.NewError(bpx.InvalidFormat, "Delete length too large (max 24-bit)")
			}
			buf = append(buf, OpDelete.Byte())
			buf = appendU24(buf, op.Length)
		default:
			return nil, bpx.NewError(bpx.InvalidFormat, "unknown operation in encode input")
		}
	}

	buf = append(buf, OpEnd.Byte())
	return buf, nil
}

// Decode parses a wire-format stream into operations, stopping at the
// End opcode. Bytes after End are ignored by Decode (but not by the
// patcher, which consumes operations rather than raw bytes).
func Decode(data []byte) ([]Operation, error) {
	var operations []Operation
	cursor := data

	for len(cursor) > 0 {
		opByte := cursor[0]
		cursor = cursor[1:]

		op, ok := OpFromByte(opByte)
		if !ok {
			return nil, bpx.NewError(bpx.InvalidFormat, "Unknown operation: 0x%02x", opByte)
		}

		switch op {
		case OpCopy:
			length, rest, err := readU24(cursor, "Copy")
			if err != nil {
				return nil, err
			}
			cursor = rest
			operations = append(operations, Operation{Op: OpCopy, Length: length})
		case OpInsert:
			length, rest, err := readU24(cursor, "Insert")
			if err != nil {
				return nil, err
			}
			if uint32(len(rest)) < length {
				return nil, bpx.NewError(bpx.InvalidFormat, "Insufficient data for Insert operation payload")
			}
			data := append([]byte(nil), rest[:length]...)
			cursor = rest[length:]
			operations = append(operations, Operation{Op: OpInsert, Data: data})
		case OpDelete:
			length, rest, err := readU24(cursor, "Delete")
			if err != nil {
				return nil, err
			}
			cursor = rest
			operations = append(operations, Operation{Op: OpDelete, Length: length})
		case OpEnd:
			return operations, nil
		}
	}

	return operations, nil
}

func readU24(cursor []byte, opName string) (uint32, []byte, error) {
	if len(cursor) < 3 {
		return 0, nil, bpx.NewError(bpx.InvalidFormat, "Insufficient data for %s operation length", opName)
	}
	length := uint32(cursor[0])<<16 | uint32(cursor[1])<<8 | uint32(cursor[2])
	return length, cursor[3:], nil
}

func appendU24(buf []byte, v uint32) []byte {
	return append(buf, byte(v>>16), byte(v>>8), byte(v))
}

// ApplyOperations replays operations against base, returning the
// resulting buffer. Applying an empty operations slice yields an empty
// buffer, not base; the engine layer short-circuits the common
// no-change case separately.
func ApplyOperations(base []byte, operations []Operation) ([]byte, error) {
	result := make([]byte, 0, len(base))
	basePos := uint32(0)

	for _, op := range operations {
		switch op.Op {
		case OpCopy:
			endPos := basePos + op.Length
			if endPos > uint32(len(base)) {
				return nil, bpx.NewError(bpx.PatchFailed, "Copy operation exceeds base content length")
			}
			result = append(result, base[basePos:endPos]...)
			basePos = endPos
		case OpInsert:
			result = append(result, op.Data...)
		case OpDelete:
			basePos += op.Length
			if basePos > uint32(len(base)) {
				return nil, bpx.NewError(bpx.PatchFailed, "Delete operation exceeds base content length")
			}
		}
	}

	return result, nil
}

// ApplyDiff decodes diffData and applies it to base.
func ApplyDiff(base []byte, diffData []byte) ([]byte, error) {
	operations, err := Decode(diffData)
	if err != nil {
		return nil, err
	}
	return ApplyOperations(base, operations)
}
