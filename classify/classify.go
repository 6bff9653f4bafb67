// Package classify locates the player visible text inside clientbound
// packets and writes rewritten text back without disturbing other bytes.
package classify

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/Craftserve/msgproxy/packets"
	"github.com/Craftserve/msgproxy/rules"
	"github.com/Craftserve/msgproxy/utils"
)

var (
	ErrMismatch = errors.New("packet does not match expected layout")
	ErrTooLong  = errors.New("text exceeds field limit")
)

type Encoding int

const (
	JSONChat Encoding = iota
	LegacyString
	NBTString
)

func (e Encoding) String() string {
	switch e {
	case JSONChat:
		return "json"
	case LegacyString:
		return "legacy"
	case NBTString:
		return "nbt"
	}
	return fmt.Sprintf("Encoding(%d)", int(e))
}

// Field is one text value inside a packet body. Get returns the text in
// section sign notation regardless of the wire encoding.
type Field struct {
	Kind rules.TextKind

	encoding   Encoding
	start, end int
	raw        string
	text       string
	maxLength  int

	encoded []byte
}

func (f *Field) Encoding() Encoding { return f.encoding }

func (f *Field) Get() string { return f.text }

// Raw is the text exactly as it was on the wire.
func (f *Field) Raw() string { return f.raw }

func (f *Field) Dirty() bool { return f.encoded != nil }

// Set encodes text for this field. On error the field keeps its previous value.
func (f *Field) Set(text string) error {
	var buf bytes.Buffer
	switch f.encoding {
	case LegacyString:
		if packets.UTF16Len(text) > f.maxLength {
			return fmt.Errorf("%w: %s is limited to %d characters", ErrTooLong, f.Kind, f.maxLength)
		}
		packets.WriteMinecraftString(&buf, text)
	case JSONChat:
		data, err := chatJSON(text)
		if err != nil {
			return err
		}
		if packets.UTF16Len(data) > f.maxLength {
			return fmt.Errorf("%w: %s is limited to %d characters", ErrTooLong, f.Kind, f.maxLength)
		}
		packets.WriteMinecraftString(&buf, data)
	case NBTString:
		component, err := chatJSON(text)
		if err != nil {
			return err
		}
		data := encodeMUTF8(component)
		if len(data) > f.maxLength {
			return fmt.Errorf("%w: %s is limited to %d bytes", ErrTooLong, f.Kind, f.maxLength)
		}
		buf.WriteByte(byte(len(data) >> 8))
		buf.WriteByte(byte(len(data)))
		buf.Write(data)
	default:
		return fmt.Errorf("unknown encoding %v", f.encoding)
	}
	f.text = text
	f.encoded = buf.Bytes()
	return nil
}

// chatJSON passes rule output that is already a chat component through
// untouched and converts everything else from section sign notation.
func chatJSON(text string) (string, error) {
	if utils.IsJsonChat(text) {
		return strings.TrimSpace(text), nil
	}
	data, err := utils.Para2Json(text)
	return string(data), err
}

type Packet struct {
	Name   packets.PacketName
	Fields []*Field

	pkt *packets.GenericPacket
}

// Commit writes dirty fields into the underlying packet. Bytes outside the
// rewritten fields are copied unchanged.
func (p *Packet) Commit() (bool, error) {
	dirty := false
	for _, f := range p.Fields {
		dirty = dirty || f.Dirty()
	}
	if !dirty {
		return false, nil
	}

	data := p.pkt.Data
	out := make([]byte, 0, len(data)+64)
	last := 0
	for _, f := range p.Fields {
		if !f.Dirty() {
			continue
		}
		out = append(out, data[last:f.start]...)
		out = append(out, f.encoded...)
		last = f.end
	}
	out = append(out, data[last:]...)

	if len(out)+len(packets.AppendVarInt(nil, p.pkt.ID)) > packets.MaxPacketSize {
		return false, fmt.Errorf("%w: %v would be %d bytes", ErrTooLong, p.Name, len(out))
	}
	p.pkt.Data = out
	return true, nil
}

// Classify returns the text fields of pkt, or nil when the packet carries
// no text. A packet that cannot be walked returns an error wrapping
// ErrMismatch and must be forwarded unchanged.
func Classify(pkt *packets.GenericPacket, state packets.ConnState, profile *packets.Profile) (*Packet, error) {
	if pkt.Dir != packets.ClientBound {
		return nil, nil
	}
	name := pkt.Name
	if name == packets.UnknownPacket {
		name = profile.Lookup(state, pkt.Dir, pkt.ID)
	}
	if name <= packets.UnknownPacket || name >= packets.PacketNameCount {
		return nil, nil
	}
	l := layouts[name]
	if l == nil {
		return nil, nil
	}

	c := &cursor{data: pkt.Data}
	fields, err := l(c, profile)
	if err != nil {
		return nil, fmt.Errorf("%w: %v (protocol %d): %v", ErrMismatch, name, profile.Protocol, err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return &Packet{Name: name, Fields: fields, pkt: pkt}, nil
}
