package packets

import (
	"fmt"
	"io"
)

// 3-byte VarInt length prefix is the protocol's hard limit
const MaxPacketSize = 2097151
const MaxPacketID = 256
const CompressThreshold = 512

type VarInt int32

type Packet interface {
	PacketID() VarInt
	Direction() Direction
	Parse(reader io.Reader) error
	Serialize(writer io.Writer) error
}

// GenericPacket is a parsed play/login packet whose body is kept as bytes.
// Filters may replace Data; Serialize writes it back verbatim.
type GenericPacket struct {
	ID   VarInt
	Dir  Direction
	Name PacketName
	Data []byte
}

func (packet *GenericPacket) PacketID() VarInt {
	return packet.ID
}

func (packet *GenericPacket) Direction() Direction {
	return packet.Dir
}

func (packet *GenericPacket) Parse(reader io.Reader) (err error) {
	packet.Data, err = io.ReadAll(reader)
	return
}

func (packet *GenericPacket) Serialize(writer io.Writer) error {
	_, err := writer.Write(packet.Data)
	return err
}

func ToString(packet Packet, direction Direction) string {
	var s string
	switch p := packet.(type) {
	case RawPacket:
		s = fmt.Sprintf("RAW %d", len(p.Payload))
	case *GenericPacket:
		if len(p.Data) < 48 {
			s = fmt.Sprintf("%s %X", p.Name, p.Data)
		} else {
			s = fmt.Sprintf("%s TOO_LARGE %d", p.Name, len(p.Data))
		}
	default:
		s = fmt.Sprintf("%#v", packet)
		if len(s) > 256 {
			s = fmt.Sprintf("%T", packet)
		}
	}
	return fmt.Sprintf("%s_%02X %s", direction, packet.PacketID(), s)
}
