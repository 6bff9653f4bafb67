package packets

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// C->S LoginStartPacket

type LoginStartPacket struct {
	Nickname string `max_length:"16"`
}

func (packet *LoginStartPacket) PacketID() VarInt {
	return 0x00
}

func (packet *LoginStartPacket) Parse(reader io.Reader) (err error) {
	return ReadMinecraftStruct(reader, packet)
}

func (packet *LoginStartPacket) Serialize(writer io.Writer) error {
	return WriteMinecraftStruct(writer, packet)
}

func (packet *LoginStartPacket) Direction() Direction {
	return ServerBound
}

// S->C LoginSuccessPacket, uuid is a dashed string before 1.16

type LoginSuccessPacket struct {
	UID      uuid.UUID
	Username string
	Legacy   bool
}

func (packet *LoginSuccessPacket) PacketID() VarInt {
	return 0x02
}

func (packet *LoginSuccessPacket) Parse(reader io.Reader) (err error) {
	if packet.Legacy {
		var s string
		if s, err = ReadMinecraftString(reader, 36); err != nil {
			return
		}
		if packet.UID, err = uuid.Parse(s); err != nil {
			return
		}
	} else if packet.UID, err = ReadUUID(reader); err != nil {
		return
	}
	packet.Username, err = ReadMinecraftString(reader, 16)
	return
}

func (packet *LoginSuccessPacket) Serialize(writer io.Writer) (err error) {
	if packet.Legacy {
		err = WriteMinecraftString(writer, packet.UID.String())
	} else {
		_, err = writer.Write(packet.UID[:])
	}
	if err != nil {
		return
	}
	return WriteMinecraftString(writer, packet.Username)
}

func (packet *LoginSuccessPacket) Direction() Direction {
	return ClientBound
}

// S->C LoginKickPacket

type LoginKickPacket struct {
	Message string `max_length:"262144"`
}

func (packet *LoginKickPacket) PacketID() VarInt {
	return 0x00
}

func (packet *LoginKickPacket) Parse(reader io.Reader) (err error) {
	return ReadMinecraftStruct(reader, packet)
}

func (packet *LoginKickPacket) Serialize(writer io.Writer) error {
	return WriteMinecraftStruct(writer, packet)
}

func (packet *LoginKickPacket) Direction() Direction {
	return ClientBound
}

func (packet *LoginKickPacket) Error() string {
	return fmt.Sprintf("login kick: %s", packet.Message)
}

// Generic returns the kick as a login state packet so it can pass the
// clientbound filters like any play packet.
func (packet *LoginKickPacket) Generic() *GenericPacket {
	var data []byte
	data = AppendVarInt(data, VarInt(len(packet.Message)))
	data = append(data, packet.Message...)
	return &GenericPacket{ID: packet.PacketID(), Dir: ClientBound, Name: LoginDisconnectCB, Data: data}
}

// Use only with hard-coded messages -> panics on error!
func NewLoginKick(text *ChatMessage) *LoginKickPacket {
	b, err := json.Marshal(text)
	if err != nil {
		panic(err)
	}
	return &LoginKickPacket{Message: string(b)}
}

// S->C LoginCompressionPacket

type LoginCompressionPacket struct {
	Threshold VarInt
}

func (packet *LoginCompressionPacket) PacketID() VarInt {
	return 0x03
}

func (packet *LoginCompressionPacket) Parse(reader io.Reader) (err error) {
	return ReadMinecraftStruct(reader, packet)
}

func (packet *LoginCompressionPacket) Serialize(writer io.Writer) error {
	return WriteMinecraftStruct(writer, packet)
}

func (packet *LoginCompressionPacket) Direction() Direction {
	return ClientBound
}
