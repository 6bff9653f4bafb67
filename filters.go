package msgproxy

import (
	"errors"

	"github.com/Craftserve/msgproxy/packets"
	"github.com/Craftserve/msgproxy/utils"
)

// PacketFilter sees a parsed packet before it is forwarded and may change
// packet.Data in place.
type PacketFilter func(handler *Handler, packet *packets.GenericPacket) error

var ErrDropPacket = errors.New("ErrDropPacket") // can be returned from PacketFilter

// indexed by direction-1, then packet name
var packetFilters [2][packets.PacketNameCount][]PacketFilter

func init() {
	RegisterPacketFilter(packets.ClientSettingsSB, saveClientSettings)
}

// RegisterPacketFilter must be called before Serve.
func RegisterPacketFilter(name packets.PacketName, callback PacketFilter) {
	if name == packets.UnknownPacket || name >= packets.PacketNameCount {
		panic("invalid packet name")
	}
	d := name.Direction() - 1
	packetFilters[d][name] = append(packetFilters[d][name], callback)
}

// parsedPackets marks the play packet ids of profile that have filters, at
// index (direction-1)*MaxPacketID + id. Everything else is forwarded raw.
func parsedPackets(profile *packets.Profile) utils.Bitarray {
	b := utils.NewBitarray(packets.MaxPacketID * 2)
	for d := range packetFilters {
		for name, bucket := range packetFilters[d] {
			if len(bucket) == 0 {
				continue
			}
			if id := profile.ID(packets.PacketName(name)); id >= 0 {
				b.Set(d*packets.MaxPacketID+int(id), true)
			}
		}
	}
	return b
}

func saveClientSettings(handler *Handler, packet *packets.GenericPacket) error {
	locale, err := packets.ClientLocale(packet)
	if err != nil {
		handler.Log().WithError(err).Debug("Unreadable client settings")
		return nil
	}
	handler.Locale = locale
	return nil
}
