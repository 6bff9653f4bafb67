package msgproxy

import (
	"fmt"
	"io"
	"time"

	"github.com/Craftserve/msgproxy/packets"
)

type HandlerCommand interface {
	Execute(handler *Handler) error
}

type HandlerCommandChan chan HandlerCommand

// injectPacketCommand -> injects packets to selected side of connection.
// Clientbound packets pass the filters like forwarded ones.

type injectPacketCommand struct {
	Direction packets.Direction
	Payload   []packets.Packet
	RaiseErr  error
}

func (cmd *injectPacketCommand) Execute(handler *Handler) (err error) {
	var w packets.PacketWriter
	switch cmd.Direction {
	case packets.ServerBound:
		w = handler.UpstreamW
	case packets.ClientBound:
		w = handler.DownstreamW
	default:
		panic(fmt.Sprintf("Unknown direction: %X", cmd.Direction))
	}
	if cmd.Payload == nil {
		panic("Nil payload!")
	}
	for _, packet := range cmd.Payload {
		if generic, ok := packet.(*packets.GenericPacket); ok && cmd.Direction == packets.ClientBound {
			if err = handler.dispatchPacket(generic); err == ErrDropPacket {
				continue
			} else if err != nil {
				return err
			}
		}
		if handler.PacketTrace != nil {
			_, err = io.WriteString(handler.PacketTrace, "inject: "+packets.ToString(packet, cmd.Direction)+"\n")
			if err != nil {
				return
			}
		}
		err = w.WritePacket(packet, false)
		if err != nil {
			return err
		}
	}

	err = w.Flush()
	if err != nil {
		return err
	}

	if cmd.RaiseErr == io.EOF {
		// wait for packet to be received by client... a little bit ugly.
		time.Sleep(time.Second)
	}
	return cmd.RaiseErr
}
