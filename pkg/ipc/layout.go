package ipc

import (
	"encoding/binary"
	"fmt"

	"github.com/hansbonini/wiifs/pkg/wii"
)

// FieldKind is the wire type of a record field
type FieldKind int

const (
	KindU8 FieldKind = iota
	KindU16
	KindU32
	KindBytes
	KindPad
)

// Field describes one big-endian field of a fixed-layout record
type Field struct {
	Name   string
	Kind   FieldKind
	Offset uint32
	Size   uint32
}

func U8(name string) Field  { return Field{Name: name, Kind: KindU8, Size: 1} }
func U16(name string) Field { return Field{Name: name, Kind: KindU16, Size: 2} }
func U32(name string) Field { return Field{Name: name, Kind: KindU32, Size: 4} }

// Bytes is a fixed-size byte array field
func Bytes(name string, size uint32) Field {
	return Field{Name: name, Kind: KindBytes, Size: size}
}

// Pad is an unnamed run of bytes skipped on decode and zeroed on encode
func Pad(size uint32) Field {
	return Field{Kind: KindPad, Size: size}
}

// Layout is an ordered set of fields packed back to back
type Layout struct {
	Name   string
	fields []Field
	index  map[string]int
	size   uint32
}

// NewLayout assigns offsets to fields in declaration order.
// It panics on duplicate names; layouts are package-level declarations.
func NewLayout(name string, fields ...Field) *Layout {
	l := &Layout{Name: name, index: make(map[string]int)}
	for _, f := range fields {
		f.Offset = l.size
		l.size += f.Size
		if f.Kind == KindPad {
			l.fields = append(l.fields, f)
			continue
		}
		if _, dup := l.index[f.Name]; dup {
			panic(fmt.Sprintf("layout %s: duplicate field %q", name, f.Name))
		}
		l.index[f.Name] = len(l.fields)
		l.fields = append(l.fields, f)
	}
	return l
}

// Size returns the total record size in bytes
func (l *Layout) Size() uint32 {
	return l.size
}

// Field returns the named field; it panics if the name is unknown
func (l *Layout) Field(name string) Field {
	i, ok := l.index[name]
	if !ok {
		panic(fmt.Sprintf("layout %s: unknown field %q", l.Name, name))
	}
	return l.fields[i]
}

// Offset returns the byte offset of the named field
func (l *Layout) Offset(name string) uint32 {
	return l.Field(name).Offset
}

// Record holds decoded field values keyed by field name
type Record struct {
	layout *Layout
	ints   map[string]uint32
	bytes  map[string][]byte
}

// NewRecord returns an all-zero record for l
func (l *Layout) NewRecord() Record {
	return Record{layout: l, ints: make(map[string]uint32), bytes: make(map[string][]byte)}
}

// Uint returns an integer field value
func (r Record) Uint(name string) uint32 {
	r.layout.Field(name)
	return r.ints[name]
}

// Bytes returns a byte array field value (always the declared size)
func (r Record) Bytes(name string) []byte {
	f := r.layout.Field(name)
	if b, ok := r.bytes[name]; ok {
		return b
	}
	return make([]byte, f.Size)
}

// SetUint stores an integer field value
func (r Record) SetUint(name string, value uint32) Record {
	r.layout.Field(name)
	r.ints[name] = value
	return r
}

// SetBytes stores a byte array field value, truncated or zero-padded to size
func (r Record) SetBytes(name string, value []byte) Record {
	f := r.layout.Field(name)
	b := make([]byte, f.Size)
	copy(b, value)
	r.bytes[name] = b
	return r
}

// Unmarshal decodes a record from a byte slice of at least l.Size() bytes
func (l *Layout) Unmarshal(data []byte) (Record, error) {
	if uint32(len(data)) < l.size {
		return Record{}, fmt.Errorf("%s: need %d bytes, got %d", l.Name, l.size, len(data))
	}
	r := l.NewRecord()
	for _, f := range l.fields {
		field := data[f.Offset : f.Offset+f.Size]
		switch f.Kind {
		case KindU8:
			r.ints[f.Name] = uint32(field[0])
		case KindU16:
			r.ints[f.Name] = uint32(binary.BigEndian.Uint16(field))
		case KindU32:
			r.ints[f.Name] = binary.BigEndian.Uint32(field)
		case KindBytes:
			r.bytes[f.Name] = append([]byte(nil), field...)
		}
	}
	return r, nil
}

// Marshal encodes r into exactly l.Size() bytes
func (l *Layout) Marshal(r Record) []byte {
	data := make([]byte, l.size)
	for _, f := range l.fields {
		field := data[f.Offset : f.Offset+f.Size]
		switch f.Kind {
		case KindU8:
			field[0] = uint8(r.ints[f.Name])
		case KindU16:
			binary.BigEndian.PutUint16(field, uint16(r.ints[f.Name]))
		case KindU32:
			binary.BigEndian.PutUint32(field, r.ints[f.Name])
		case KindBytes:
			copy(field, r.bytes[f.Name])
		}
	}
	return data
}

// Decode reads a record from guest memory at addr
func (l *Layout) Decode(mem wii.Memory, addr uint32) (Record, error) {
	data, err := mem.ReadBytes(addr, l.size)
	if err != nil {
		return Record{}, fmt.Errorf("%s: %w", l.Name, err)
	}
	return l.Unmarshal(data)
}

// Encode writes a record to guest memory at addr
func (l *Layout) Encode(mem wii.Memory, addr uint32, r Record) error {
	if err := mem.WriteBytes(addr, l.Marshal(r)); err != nil {
		return fmt.Errorf("%s: %w", l.Name, err)
	}
	return nil
}

// Command records. Offsets follow from declaration order.
var (
	// GET_STATS output: seven words captured from hardware, meaning unknown
	statsLayout = NewLayout("GET_STATS",
		U32("word0"), U32("word1"), U32("word2"), U32("word3"),
		U32("word4"), U32("word5"), U32("word6"),
	)

	createDirLayout = NewLayout("CREATE_DIR",
		U32("owner_id"), U16("group_id"), Bytes("path", MaxPathLength),
		Pad(9), U8("attribs"),
	)

	// SET_ATTR and CREATE_FILE input
	attrLayout = NewLayout("ATTR",
		U32("owner_id"), U16("group_id"), Bytes("path", MaxPathLength),
		U8("owner_perm"), U8("group_perm"), U8("other_perm"), U8("attribs"),
	)

	// GET_ATTR output
	attrRecordLayout = NewLayout("GET_ATTR",
		U32("owner_id"), U16("group_id"), Bytes("path", MaxPathLength),
		U8("owner_perm"), U8("group_perm"), U8("other_perm"), U8("attribs"),
		Pad(2),
	)

	pathLayout = NewLayout("PATH", Bytes("path", MaxPathLength))

	renameLayout = NewLayout("RENAME_FILE",
		Bytes("src", MaxPathLength), Bytes("dst", MaxPathLength),
	)

	wordLayout = NewLayout("WORD", U32("value"))
)

var getStatsWords = [...]uint32{
	0x00004000, 0x00005717, 0x000024a9, 0x00000000,
	0x00000300, 0x0000163e, 0x000001c1,
}
