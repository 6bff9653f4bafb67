// Package msgproxy is a Minecraft proxy that lets registered filters
// inspect and rewrite packets between players and upstream servers.
package msgproxy

import (
	"errors"
	"fmt"
	"net"
	"os"
	"sync"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/Craftserve/msgproxy/metrics"
	"github.com/Craftserve/msgproxy/packets"
)

var Players PlayerManager

// Metrics is optional, nil records nothing.
var Metrics *metrics.Metrics

type Upstream struct {
	Name string
	Addr string
}

var UpstreamServerMap map[string]*Upstream
var UpstreamLock sync.Mutex

// DefaultUpstream is where LoginHandler-less logins are sent.
var DefaultUpstream string

var PingHandler func(packet *packets.HandshakePacket) packets.ServerStatus = DefaultPingHandler

// LoginHandler may pick handler.UpstreamName or refuse the login with an
// error, which is shown to the player.
var LoginHandler func(handler *Handler) error

func Serve(listener *net.TCPListener) error {
	if PingHandler == nil {
		return fmt.Errorf("PingHandler is not set")
	}

	for {
		socket, err := listener.AcceptTCP()
		if errors.Is(err, net.ErrClosed) {
			return nil
		}
		if err != nil {
			log.WithError(err).Error("Error while accepting connection")
			continue
		}

		handler := NewHandler(socket)
		go handler.Handle()
	}
}

func DefaultPingHandler(packet *packets.HandshakePacket) packets.ServerStatus {
	profile := packets.LookupProfile(int(packet.Protocol))
	if profile == nil {
		profile = packets.DefaultProfile
	}
	p := Players.Len()
	return packets.ServerStatus{
		Version:     packets.ServerStatusVersion{Name: profile.Name, Protocol: profile.Protocol},
		Players:     packets.ServerStatusPlayers{Online: p, Max: p + 1},
		Description: packets.ChatMessage{Text: "msgproxy"},
	}
}

func LoadUpstreams(fName string) (err error) {
	var data []byte
	data, err = os.ReadFile(fName)
	if err != nil {
		return
	}

	var up = make(map[string]string)
	err = yaml.Unmarshal(data, up)
	if err != nil {
		return
	}

	ups := make(map[string]*Upstream)

	for name, addr := range up {
		if _, _, err = net.SplitHostPort(addr); err != nil {
			err = fmt.Errorf("upstream %q %q: %w", name, addr, err)
			return
		}

		ups[name] = &Upstream{Name: name, Addr: addr}
	}

	if len(ups) <= 0 {
		err = fmt.Errorf("upstreams map is empty")
		return
	}

	UpstreamLock.Lock()
	UpstreamServerMap = ups
	UpstreamLock.Unlock()

	return
}

func lookupUpstream(name string) (*Upstream, bool) {
	UpstreamLock.Lock()
	defer UpstreamLock.Unlock()
	u, ok := UpstreamServerMap[name]
	return u, ok
}
