package packets

import (
	"encoding/binary"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"unicode/utf16"

	"github.com/google/uuid"
)

func ReadBool(reader io.Reader) (c bool, err error) {
	var v [1]byte
	_, err = io.ReadFull(reader, v[:])
	c = v[0] == 1
	return
}

func ReadUnsignedByte(reader io.Reader) (c byte, err error) {
	var v [1]byte
	_, err = io.ReadFull(reader, v[:])
	return v[0], err
}

func ReadUnsignedShort(reader io.Reader) (c uint16, err error) {
	err = binary.Read(reader, binary.BigEndian, &c)
	return
}

func ReadInt(reader io.Reader) (c int32, err error) {
	err = binary.Read(reader, binary.BigEndian, &c)
	return
}

func ReadLong(reader io.Reader) (c int64, err error) {
	err = binary.Read(reader, binary.BigEndian, &c)
	return
}

func ReadVarInt(reader io.Reader) (c VarInt, err error) {
	br, ok := reader.(io.ByteReader)
	if !ok {
		br = &dummyByteReader{reader, [1]byte{}}
	}
	x, err := binary.ReadUvarint(br)
	if err == nil && x > 0xFFFFFFFF {
		err = fmt.Errorf("VarInt too big: %d", x)
	}
	return VarInt(int32(uint32(x))), err
}

func ReadUUID(reader io.Reader) (u uuid.UUID, err error) {
	_, err = io.ReadFull(reader, u[:])
	return
}

// ReadMinecraftString reads a VarInt prefixed UTF-8 string. maxLength is
// counted in UTF-16 units like the game does, so up to 4 bytes per unit are
// accepted on the wire.
func ReadMinecraftString(reader io.Reader, maxLength int) (string, error) {
	length, err := ReadVarInt(reader)
	if err != nil {
		return "", err
	}
	if length < 0 {
		return "", fmt.Errorf("string length smaller than 0: %d", length)
	}
	if int(length) > maxLength*4 {
		return "", fmt.Errorf("string longer than maxLength: %d > %d", length, maxLength*4)
	}

	d := make([]byte, length)
	if _, err := io.ReadFull(reader, d); err != nil {
		return "", err
	}
	s := string(d)
	if n := UTF16Len(s); n > maxLength {
		return "", fmt.Errorf("string longer than maxLength: %d > %d", n, maxLength)
	}
	return s, nil
}

// UTF16Len is the string length as seen by the game client.
func UTF16Len(s string) (n int) {
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return
}

func WriteBool(writer io.Writer, c bool) error {
	var v [1]byte
	if c {
		v[0] = 1
	}
	_, err := writer.Write(v[0:])
	return err
}

func WriteUnsignedByte(writer io.Writer, c byte) error {
	_, err := writer.Write([]byte{c})
	return err
}

func WriteUnsignedShort(writer io.Writer, c uint16) error {
	return binary.Write(writer, binary.BigEndian, &c)
}

func WriteLong(writer io.Writer, c int64) error {
	return binary.Write(writer, binary.BigEndian, &c)
}

func WriteVarInt(writer io.Writer, c VarInt) error {
	var buf [binary.MaxVarintLen32]byte
	n := binary.PutUvarint(buf[:], uint64(uint32(c)))
	_, err := writer.Write(buf[:n])
	return err
}

func AppendVarInt(dst []byte, c VarInt) []byte {
	return binary.AppendUvarint(dst, uint64(uint32(c)))
}

func WriteMinecraftString(writer io.Writer, s string) (err error) {
	err = WriteVarInt(writer, VarInt(len(s)))
	if err != nil {
		return err
	}
	_, err = io.WriteString(writer, s)
	return
}

// dummyByteReader - used in ReadVarInt

type dummyByteReader struct {
	io.Reader
	buf [1]byte
}

func (b *dummyByteReader) ReadByte() (byte, error) {
	_, err := io.ReadFull(b.Reader, b.buf[:])
	return b.buf[0], err
}

// ReadMinecraftStruct, WriteMinecraftStruct handle the fixed layout
// handshake/login/status packets. Strings need a max_length tag.

func ReadMinecraftStruct(reader io.Reader, data interface{}) (err error) {
	elem := reflect.ValueOf(data).Elem()
	elemType := elem.Type()
	for i := 0; i < elem.NumField(); i++ {
		field := elem.Field(i)
		fieldType := elemType.Field(i)

		if fieldType.Tag.Get("mcignore") != "" {
			continue
		}

		switch field.Interface().(type) {
		case bool:
			var v bool
			if v, err = ReadBool(reader); err != nil {
				return
			}
			field.SetBool(v)
		case uint16:
			var v uint16
			if v, err = ReadUnsignedShort(reader); err != nil {
				return
			}
			field.SetUint(uint64(v))
		case int64:
			var v int64
			if v, err = ReadLong(reader); err != nil {
				return
			}
			field.SetInt(v)
		case VarInt:
			var v VarInt
			if v, err = ReadVarInt(reader); err != nil {
				return
			}
			field.SetInt(int64(v))
		case string:
			var maxlen int
			if maxlen, err = strconv.Atoi(fieldType.Tag.Get("max_length")); err != nil {
				panic("Invalid max_length tag in " + fieldType.Name + ": " + err.Error())
			}
			var str string
			if str, err = ReadMinecraftString(reader, maxlen); err != nil {
				return
			}
			field.SetString(str)
		case uuid.UUID:
			var v uuid.UUID
			if v, err = ReadUUID(reader); err != nil {
				return
			}
			field.Set(reflect.ValueOf(v))
		default:
			panic(fmt.Sprintf("Invalid field %d in minecraft struct %s", i, elemType.Name()))
		}
	}
	return
}

func WriteMinecraftStruct(writer io.Writer, data interface{}) (err error) {
	elem := reflect.ValueOf(data).Elem()
	elemType := elem.Type()
	for i := 0; i < elem.NumField(); i++ {
		fieldType := elemType.Field(i)
		if fieldType.Tag.Get("mcignore") != "" {
			continue
		}

		switch v := elem.Field(i).Interface().(type) {
		case bool:
			err = WriteBool(writer, v)
		case uint16:
			err = WriteUnsignedShort(writer, v)
		case int64:
			err = WriteLong(writer, v)
		case VarInt:
			err = WriteVarInt(writer, v)
		case string:
			err = WriteMinecraftString(writer, v)
		case uuid.UUID:
			_, err = writer.Write(v[:])
		default:
			panic("Invalid field in minecraft struct - " + fieldType.Name)
		}
		if err != nil {
			return
		}
	}
	return
}
