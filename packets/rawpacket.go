package packets

import (
	"io"

	bufpool "github.com/libp2p/go-buffer-pool"
)

var BufferPool bufpool.BufferPool

// RawPacket is a packet the proxy has no filter for. Payload is the frame
// exactly as read, so it is only valid between peers with the same
// compression threshold.
type RawPacket struct {
	ID         VarInt
	DataLength VarInt
	Payload    []byte // includes uncompressed DataLength
}

func (packet RawPacket) PacketID() VarInt {
	return packet.ID
}

func (packet RawPacket) Direction() Direction {
	panic("RawPacket is just a dummy container type - valid directions are unknown!")
}

func (packet RawPacket) Parse(reader io.Reader) (err error) {
	panic("RawPacket is just a dummy container type - can't parse real data stream!")
}

func (packet RawPacket) Serialize(writer io.Writer) (err error) {
	panic("RawPacket is just a dummy container type - can't serialize!")
}
