package classify

import (
	"fmt"
	"unicode/utf16"

	"github.com/Craftserve/msgproxy/rules"
)

const (
	tagEnd byte = iota
	tagByte
	tagShort
	tagInt
	tagLong
	tagFloat
	tagDouble
	tagByteArray
	tagString
	tagList
	tagCompound
	tagIntArray
	tagLongArray
)

const maxNBTDepth = 512

var signLines = map[string]bool{"Text1": true, "Text2": true, "Text3": true, "Text4": true}

// signFields walks the sign block entity compound and exposes the top level
// Text1..Text4 strings. Every other tag is skipped byte for byte.
func signFields(c *cursor) ([]*Field, error) {
	t, err := c.u8()
	if err != nil {
		return nil, err
	}
	if t == tagEnd {
		return nil, c.end()
	}
	if t != tagCompound {
		return nil, fmt.Errorf("root tag %d is not a compound", t)
	}
	if err = skipNBTName(c); err != nil {
		return nil, err
	}

	var fields []*Field
	for {
		t, err = c.u8()
		if err != nil {
			return nil, err
		}
		if t == tagEnd {
			break
		}
		n, err := c.u16()
		if err != nil {
			return nil, err
		}
		if n > c.remaining() {
			return nil, fmt.Errorf("tag name overflows packet")
		}
		name := string(c.data[c.pos : c.pos+n])
		c.pos += n

		if t == tagString && signLines[name] {
			f, err := c.nbtChat(rules.SignLine)
			if err != nil {
				return nil, err
			}
			fields = append(fields, f)
			continue
		}
		if err = skipNBTPayload(c, t, 1); err != nil {
			return nil, err
		}
	}
	return fields, c.end()
}

func skipNBTName(c *cursor) error {
	n, err := c.u16()
	if err != nil {
		return err
	}
	return c.skip(n)
}

func skipNBTPayload(c *cursor, t byte, depth int) error {
	if depth > maxNBTDepth {
		return fmt.Errorf("nbt nested too deep")
	}
	switch t {
	case tagByte:
		return c.skip(1)
	case tagShort:
		return c.skip(2)
	case tagInt, tagFloat:
		return c.skip(4)
	case tagLong, tagDouble:
		return c.skip(8)
	case tagByteArray, tagIntArray, tagLongArray:
		n, err := c.i32()
		if err != nil {
			return err
		}
		size := map[byte]int{tagByteArray: 1, tagIntArray: 4, tagLongArray: 8}[t]
		if n < 0 || n > c.remaining()/size {
			return fmt.Errorf("invalid array length %d", n)
		}
		return c.skip(n * size)
	case tagString:
		return skipNBTName(c)
	case tagList:
		elem, err := c.u8()
		if err != nil {
			return err
		}
		n, err := c.i32()
		if err != nil {
			return err
		}
		if n < 0 || n > c.remaining() {
			return fmt.Errorf("invalid list length %d", n)
		}
		for i := 0; i < n; i++ {
			if err = skipNBTPayload(c, elem, depth+1); err != nil {
				return err
			}
		}
		return nil
	case tagCompound:
		for {
			t, err := c.u8()
			if err != nil {
				return err
			}
			if t == tagEnd {
				return nil
			}
			if err = skipNBTName(c); err != nil {
				return err
			}
			if err = skipNBTPayload(c, t, depth+1); err != nil {
				return err
			}
		}
	}
	return fmt.Errorf("unknown nbt tag %d", t)
}

// NBT strings use Java's modified UTF-8: NUL is two bytes and characters
// outside the BMP are written as surrogate pairs.

func decodeMUTF8(b []byte) (string, error) {
	units := make([]uint16, 0, len(b))
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c < 0x80:
			units = append(units, uint16(c))
			i++
		case c&0xE0 == 0xC0 && i+1 < len(b):
			units = append(units, uint16(c&0x1F)<<6|uint16(b[i+1]&0x3F))
			i += 2
		case c&0xF0 == 0xE0 && i+2 < len(b):
			units = append(units, uint16(c&0x0F)<<12|uint16(b[i+1]&0x3F)<<6|uint16(b[i+2]&0x3F))
			i += 3
		default:
			return "", fmt.Errorf("invalid modified UTF-8 at %d", i)
		}
	}
	return string(utf16.Decode(units)), nil
}

func encodeMUTF8(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, u := range utf16.Encode([]rune(s)) {
		switch {
		case u != 0 && u < 0x80:
			out = append(out, byte(u))
		case u < 0x800:
			out = append(out, 0xC0|byte(u>>6), 0x80|byte(u&0x3F))
		default:
			out = append(out, 0xE0|byte(u>>12), 0x80|byte(u>>6&0x3F), 0x80|byte(u&0x3F))
		}
	}
	return out
}
