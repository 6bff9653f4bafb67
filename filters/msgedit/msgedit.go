// Package msgedit hooks the text rewrite pipeline into the proxy's
// clientbound packet filters.
package msgedit

import (
	"github.com/Craftserve/msgproxy"
	"github.com/Craftserve/msgproxy/classify"
	"github.com/Craftserve/msgproxy/intercept"
	"github.com/Craftserve/msgproxy/packets"
	"github.com/Craftserve/msgproxy/rewrite"
)

// RegisterFilters must be called before msgproxy.Serve.
func RegisterFilters(i *intercept.Interceptor) {
	filter := Filter(i)
	for _, name := range classify.TextPackets() {
		msgproxy.RegisterPacketFilter(name, filter)
	}
	msgproxy.RegisterPacketFilter(packets.LoginDisconnectCB, filter)
}

// Filter rewrites the packet in place. It never drops packets.
func Filter(i *intercept.Interceptor) msgproxy.PacketFilter {
	return func(handler *msgproxy.Handler, packet *packets.GenericPacket) error {
		if handler.Profile == nil {
			return nil
		}
		i.Intercept(packet, handler.State, handler.Profile, ViewerFor(handler))
		return nil
	}
}

func ViewerFor(handler *msgproxy.Handler) rewrite.ViewerContext {
	v := rewrite.ViewerContext{
		ConnectionID: handler.ID,
		PlayerUUID:   handler.UUID,
		PlayerName:   handler.Nickname,
		Locale:       handler.Locale,
	}
	if handler.Profile != nil {
		v.Protocol = handler.Profile.Protocol
	}
	return v
}
