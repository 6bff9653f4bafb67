package classify

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/Craftserve/msgproxy/packets"
	"github.com/Craftserve/msgproxy/rules"
	"github.com/Craftserve/msgproxy/utils"
)

// cursor walks a packet body and records where text fields start and end.
type cursor struct {
	data []byte
	pos  int
}

func (c *cursor) remaining() int {
	return len(c.data) - c.pos
}

func (c *cursor) skip(n int) error {
	if n < 0 || n > c.remaining() {
		return io.ErrUnexpectedEOF
	}
	c.pos += n
	return nil
}

func (c *cursor) u8() (byte, error) {
	if c.remaining() < 1 {
		return 0, io.ErrUnexpectedEOF
	}
	b := c.data[c.pos]
	c.pos++
	return b, nil
}

func (c *cursor) bool() (bool, error) {
	b, err := c.u8()
	if err != nil {
		return false, err
	}
	if b > 1 {
		return false, fmt.Errorf("invalid bool %d", b)
	}
	return b == 1, nil
}

func (c *cursor) u16() (int, error) {
	if c.remaining() < 2 {
		return 0, io.ErrUnexpectedEOF
	}
	v := binary.BigEndian.Uint16(c.data[c.pos:])
	c.pos += 2
	return int(v), nil
}

func (c *cursor) i32() (int, error) {
	if c.remaining() < 4 {
		return 0, io.ErrUnexpectedEOF
	}
	v := int32(binary.BigEndian.Uint32(c.data[c.pos:]))
	c.pos += 4
	return int(v), nil
}

func (c *cursor) varint() (int, error) {
	v, n := binary.Uvarint(c.data[c.pos:])
	if n <= 0 || n > binary.MaxVarintLen32 || v > 0xFFFFFFFF {
		return 0, fmt.Errorf("invalid VarInt at %d", c.pos)
	}
	c.pos += n
	return int(int32(uint32(v))), nil
}

// count reads a VarInt element count that must fit in the remaining bytes.
func (c *cursor) count(minSize int) (int, error) {
	n, err := c.varint()
	if err != nil {
		return 0, err
	}
	if n < 0 || n*minSize > c.remaining() {
		return 0, fmt.Errorf("invalid count %d", n)
	}
	return n, nil
}

func (c *cursor) str(maxLength int) (string, error) {
	n, err := c.varint()
	if err != nil {
		return "", err
	}
	if n < 0 || n > maxLength*4 || n > c.remaining() {
		return "", fmt.Errorf("invalid string length %d", n)
	}
	s := string(c.data[c.pos : c.pos+n])
	c.pos += n
	if !utf8.ValidString(s) {
		return "", fmt.Errorf("string is not valid utf-8")
	}
	if packets.UTF16Len(s) > maxLength {
		return "", fmt.Errorf("string longer than %d", maxLength)
	}
	return s, nil
}

func (c *cursor) end() error {
	if c.remaining() != 0 {
		return fmt.Errorf("%d trailing bytes", c.remaining())
	}
	return nil
}

func (c *cursor) chat(kind rules.TextKind, maxLength int) (*Field, error) {
	start := c.pos
	raw, err := c.str(maxLength)
	if err != nil {
		return nil, err
	}
	if !json.Valid([]byte(raw)) {
		return nil, fmt.Errorf("invalid chat json at %d", start)
	}
	text, err := utils.Json2Para(raw)
	if err != nil {
		return nil, err
	}
	return &Field{Kind: kind, encoding: JSONChat, start: start, end: c.pos, raw: raw, text: text, maxLength: maxLength}, nil
}

func (c *cursor) legacy(kind rules.TextKind, maxLength int) (*Field, error) {
	start := c.pos
	raw, err := c.str(maxLength)
	if err != nil {
		return nil, err
	}
	return &Field{Kind: kind, encoding: LegacyString, start: start, end: c.pos, raw: raw, text: raw, maxLength: maxLength}, nil
}

func (c *cursor) nbtChat(kind rules.TextKind) (*Field, error) {
	start := c.pos
	n, err := c.u16()
	if err != nil {
		return nil, err
	}
	if n > c.remaining() {
		return nil, io.ErrUnexpectedEOF
	}
	raw, err := decodeMUTF8(c.data[c.pos : c.pos+n])
	if err != nil {
		return nil, err
	}
	c.pos += n
	if !json.Valid([]byte(raw)) {
		return nil, fmt.Errorf("invalid sign json at %d", start)
	}
	text, err := utils.Json2Para(raw)
	if err != nil {
		return nil, err
	}
	return &Field{Kind: kind, encoding: NBTString, start: start, end: c.pos, raw: raw, text: text, maxLength: 0xFFFF}, nil
}
