package msgproxy

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/tomb.v1"

	"github.com/Craftserve/msgproxy/packets"
	"github.com/Craftserve/msgproxy/utils"
)

const maxIdle = 30 * time.Second

type Handler struct {
	tomb.Tomb

	// ID is unique per connection, also for reconnecting players
	ID string

	DownstreamC net.Conn
	DownstreamR packets.PacketReader
	DownstreamW packets.PacketWriter

	downstream_packets     chan packets.Packet
	downstream_tomb        *tomb.Tomb
	DownstreamAddr         string
	DownstreamPacketsCount uint64

	UpstreamW            packets.PacketWriter
	UpstreamC            io.Closer
	UpstreamPackets      chan packets.Packet
	UpstreamTomb         *tomb.Tomb
	UpstreamName         string
	UpstreamPacketsCount uint64

	Handshake packets.HandshakePacket
	Profile   *packets.Profile
	State     packets.ConnState
	Nickname  string
	UUID      uuid.UUID
	// Locale is empty until the client sends its settings
	Locale     string
	FilterData sync.Map

	parsed utils.Bitarray

	// packet dispatcher and other hooks
	commandChan HandlerCommandChan
	CloseHooks  []func()

	// logging
	PacketTrace io.WriteCloser
	t0          time.Time
}

func NewHandler(downsock *net.TCPConn) *Handler {
	h := &Handler{ID: uuid.NewString()}

	h.DownstreamC = downsock
	h.DownstreamR = packets.NewPacketReader(h.DownstreamC, 0)
	h.DownstreamW = packets.NewPacketWriter(h.DownstreamC, 0)
	h.DownstreamAddr = downsock.RemoteAddr().(*net.TCPAddr).IP.String()
	h.State = packets.HANDSHAKING

	h.commandChan = make(HandlerCommandChan, 10)

	h.t0 = time.Now()
	return h
}

func (handler *Handler) Handle() {
	_, err := packets.ParsePackets(handler.DownstreamR, &handler.Handshake)

	if err == nil {
		handler.State = packets.ConnState(handler.Handshake.NextState)
		switch handler.State {
		case packets.STATUS:
			err = handler.handleStatus()
		case packets.LOGIN:
			err = handler.handleProxy()
		default:
			err = fmt.Errorf("Invalid handshake.NextState! %d", handler.Handshake.NextState)
		}
	}

	handler.Tomb.Kill(err)

	if handler.UpstreamC != nil {
		handler.UpstreamC.Close()
		handler.UpstreamC = nil
		handler.UpstreamW = nil
	}
	if handler.DownstreamC != nil {
		handler.DownstreamC.Close()
		handler.DownstreamR = nil
		handler.DownstreamW = nil
		handler.DownstreamC = nil
	}

	handler.Tomb.Done()

	err = handler.Tomb.Err()
	if err != nil && err != io.EOF {
		handler.Log().WithError(err).Error("Handler last error")
	}

	for _, f := range handler.CloseHooks {
		f()
	}
}

func (handler *Handler) handleStatus() error {
	var request packets.StatusRequestPacketSB
	_, err := packets.ParsePackets(handler.DownstreamR, &request)
	if err != nil {
		return err
	}

	status := PingHandler(&handler.Handshake)
	json, err := status.Serialize()
	if err != nil {
		return err
	}
	err = handler.DownstreamW.WritePacket(&packets.StatusResponsePacketCB{Data: json}, true)
	if err != nil {
		return err
	}

	var ping packets.StatusPingPacketSB
	_, err = packets.ParsePackets(handler.DownstreamR, &ping)
	if err != nil {
		return nil
	}

	return handler.DownstreamW.WritePacket(&packets.StatusPingPacketCB{Time: ping.Time}, true)
}

// connectUpstream logs in to the upstream server in offline mode. An
// upstream refusal is returned as *packets.LoginKickPacket.
func (handler *Handler) connectUpstream(name string, addr string) (err error) {
	handler.Log().WithFields(logrus.Fields{
		"address": addr,
	}).Info("Connecting to upstream")
	upsock, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return err
	}
	handler.UpstreamW = packets.NewPacketWriter(upsock, 0)
	handler.UpstreamC = upsock
	handler.UpstreamName = name

	handshake := handler.Handshake
	// bungeecord style ip forwarding for offline mode servers
	handshake.Host = handshake.Host + "\u0000" + handler.DownstreamAddr + "\u0000" + handler.UUID.String()

	handler.UpstreamW.WritePacket(&handshake, false)
	err = handler.UpstreamW.WritePacket(&packets.LoginStartPacket{Nickname: handler.Nickname}, true)
	if err != nil {
		return
	}

	upstream_r := packets.NewPacketReader(upsock, 0)
	packet, err := packets.ParsePackets(upstream_r, &packets.LoginCompressionPacket{}, &packets.LoginKickPacket{})
	if err != nil {
		return err
	}
	switch p := packet.(type) {
	case *packets.LoginCompressionPacket:
		// raw packets are forwarded as read, so both sides must agree
		if int(p.Threshold) != packets.CompressThreshold {
			return fmt.Errorf("connectUpstream: bad compression threshold %d", p.Threshold)
		}
	case *packets.LoginKickPacket:
		handler.Log().WithFields(logrus.Fields{
			"address": addr,
			"message": p.Message,
		}).Info("Upstream connect kick")
		return p
	default:
		panic("unexpected packet type")
	}

	upstream_r = packets.NewPacketReader(bufio.NewReaderSize(upsock, packets.MaxPacketSize), packets.CompressThreshold)
	handler.UpstreamW = packets.NewPacketWriter(bufio.NewWriterSize(upsock, packets.MaxPacketSize), packets.CompressThreshold)

	success := packets.LoginSuccessPacket{Legacy: handler.Profile.Legacy}
	kick := packets.LoginKickPacket{}
	packet, err = packets.ParsePackets(upstream_r, &success, &kick)
	if err != nil {
		return
	}
	if packet == &kick {
		return &kick
	}

	handler.Log().WithFields(logrus.Fields{
		"name":    name,
		"address": addr,
		"uuid":    success.UID,
	}).Info("Upstream connected")

	handler.UpstreamPackets = make(chan packets.Packet)
	handler.UpstreamTomb = &tomb.Tomb{}
	atomic.StoreUint64(&handler.UpstreamPacketsCount, 0)
	go handler.read_packets(upstream_r, handler.UpstreamPackets, handler.UpstreamTomb, packets.ClientBound)

	return nil
}

func (handler *Handler) read_packets(reader packets.PacketReader, packet_chan chan<- packets.Packet, tmb *tomb.Tomb, direction packets.Direction) {
	var err error
	var raw packets.RawPacket

loop:
	for tmb.Err() == tomb.ErrStillAlive {
		raw, err = reader.ReadPacket()
		if err != nil {
			break
		}

		var packet packets.Packet
		if handler.parsed.Get(int(direction-1)*packets.MaxPacketID + int(raw.ID)) {
			generic := &packets.GenericPacket{
				ID:   raw.ID,
				Dir:  direction,
				Name: handler.Profile.Lookup(packets.PLAY, direction, raw.ID),
			}

			var payload io.Reader
			payload, err = reader.Payload()
			if err != nil {
				break
			}
			err = generic.Parse(payload)
			if err != nil {
				err = fmt.Errorf("Error reading packet %02X: %w", raw.ID, err)
				break
			}

			packets.BufferPool.Put(raw.Payload)
			raw.Payload = nil
			packet = generic
		} else {
			packet = raw
		}

		select {
		case packet_chan <- packet:
		case <-tmb.Dying():
			break loop
		}
	}
	close(packet_chan)
	if err == nil || err == io.EOF {
		tmb.Kill(err)
	} else {
		tmb.Killf("%s %w", direction, err)
	}
	tmb.Done()
}

func (handler *Handler) handlePacket(packet packets.Packet, direction packets.Direction, writer packets.PacketWriter, flush bool) error {
	var drop bool
	raw, is_raw := packet.(packets.RawPacket)

	if generic, ok := packet.(*packets.GenericPacket); ok {
		// run packet handlers
		err := handler.dispatchPacket(generic)
		switch err {
		case nil:
		case ErrDropPacket:
			drop = true
		default:
			return fmt.Errorf("[%s] dispatch error: %w", direction, err)
		}
	}

	// pass it to other side if needed
	if !drop {
		err := writer.WritePacket(packet, flush)
		if err != nil {
			return fmt.Errorf("[%s] write packet error %w", direction, err)
		}
	} else {
		handler.Log().WithFields(logrus.Fields{
			"direction": direction,
			"packet":    packets.ToString(packet, direction),
		}).Debug("dropping")
	}
	if is_raw {
		packets.BufferPool.Put(raw.Payload)
	}
	return nil
}

// loginKick sends a login state disconnect through the clientbound filters.
func (handler *Handler) loginKick(kick *packets.LoginKickPacket) error {
	generic := kick.Generic()
	if handler.Profile != nil {
		if err := handler.dispatchPacket(generic); err != nil && err != ErrDropPacket {
			handler.Log().WithError(err).Warn("Login kick filter error")
		}
	}
	return handler.DownstreamW.WritePacket(generic, true)
}

func (handler *Handler) loginKickTxt(msg string) error {
	return handler.loginKick(packets.NewLoginKick(&packets.ChatMessage{Text: msg}))
}

func (handler *Handler) handleProxy() (err error) {
	handler.Profile = packets.LookupProfile(int(handler.Handshake.Protocol))
	if handler.Profile == nil {
		return handler.loginKickTxt("Supported versions: " + packets.SupportedVersions())
	}

	var login_start packets.LoginStartPacket
	_, err = packets.ParsePackets(handler.DownstreamR, &login_start)
	if err != nil {
		return
	}
	if !ValidateNickname(login_start.Nickname) {
		return handler.loginKickTxt("Invalid nickname")
	}
	handler.Nickname = login_start.Nickname
	handler.UUID = OfflinePlayerUUID(handler.Nickname)
	handler.UpstreamName = DefaultUpstream

	compression := &packets.LoginCompressionPacket{Threshold: packets.VarInt(packets.CompressThreshold)}
	err = handler.DownstreamW.WritePacket(compression, true)
	if err != nil {
		return
	}
	handler.DownstreamW = packets.NewPacketWriter(handler.DownstreamC, packets.CompressThreshold)
	handler.DownstreamR = packets.NewPacketReader(handler.DownstreamC, packets.CompressThreshold)

	if LoginHandler != nil {
		if err = LoginHandler(handler); err != nil {
			if kick, ok := err.(*packets.LoginKickPacket); ok {
				return handler.loginKick(kick)
			}
			return handler.loginKickTxt(err.Error())
		}
	}

	target, ok := lookupUpstream(handler.UpstreamName)
	if !ok {
		return handler.loginKickTxt("Login error: unknown target " + handler.UpstreamName)
	}

	handler.parsed = parsedPackets(handler.Profile)
	err = handler.connectUpstream(target.Name, target.Addr)
	if kick, ok := err.(*packets.LoginKickPacket); ok {
		return handler.loginKick(kick)
	}
	if err != nil {
		return handler.loginKickTxt("Login error: upstream error: " + err.Error())
	}

	registered := Players.Register(handler)
	if !registered {
		handler.UpstreamTomb.Kill(nil)
		return handler.loginKickTxt("Login error: already connected")
	}
	defer Players.Unregister(handler)

	err = handler.DownstreamW.WritePacket(&packets.LoginSuccessPacket{
		UID:      handler.UUID,
		Username: handler.Nickname,
		Legacy:   handler.Profile.Legacy,
	}, true)
	if err != nil {
		handler.UpstreamTomb.Kill(nil)
		return
	}

	// STATE IS PLAY FROM NOW
	handler.State = packets.PLAY

	handler.downstream_packets = make(chan packets.Packet)
	handler.downstream_tomb = &tomb.Tomb{}
	go handler.read_packets(handler.DownstreamR, handler.downstream_packets, handler.downstream_tomb, packets.ServerBound)

	var last_packet_ts int64 = time.Now().Unix()
	idle_timeout := make(chan struct{})
	idle_stop := make(chan struct{})
	defer close(idle_stop)

	go func() {
		ticker := time.NewTicker(maxIdle / 10)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
			case <-idle_stop:
				return
			}
			if time.Now().Unix()-atomic.LoadInt64(&last_packet_ts) > int64(maxIdle/time.Second) {
				close(idle_timeout)
				return
			}
		}
	}()

	var upflush, downflush = time.Now(), time.Now()

MainLoop:
	for {
		atomic.StoreInt64(&last_packet_ts, time.Now().Unix())
		select {
		case command := <-handler.commandChan:
			t1 := time.Now()
			err = command.Execute(handler)
			handler.Log().WithFields(logrus.Fields{
				"command": fmt.Sprintf("%T", command),
				"time":    time.Since(t1),
			}).WithError(err).Debug("Executed command")
		case packet, ok := <-handler.downstream_packets:
			if ok {
				if handler.PacketTrace != nil {
					err = handler.packetTrace(packet, packets.ServerBound)
					if err != nil {
						break MainLoop
					}
				}
				atomic.AddUint64(&handler.DownstreamPacketsCount, 1)
				flush := len(handler.downstream_packets) == 0 || time.Since(downflush) > 50*time.Millisecond
				if flush {
					downflush = time.Now()
				}
				err = handler.handlePacket(packet, packets.ServerBound, handler.UpstreamW, flush)
			} else {
				handler.downstream_tomb.Wait()
				err = handler.downstream_tomb.Err()
			}
		case packet, ok := <-handler.UpstreamPackets:
			if ok {
				if handler.PacketTrace != nil {
					err = handler.packetTrace(packet, packets.ClientBound)
					if err != nil {
						break MainLoop
					}
				}
				atomic.AddUint64(&handler.UpstreamPacketsCount, 1)
				flush := len(handler.UpstreamPackets) == 0 || time.Since(upflush) > 50*time.Millisecond
				if flush {
					upflush = time.Now()
				}
				err = handler.handlePacket(packet, packets.ClientBound, handler.DownstreamW, flush)
			} else {
				handler.UpstreamTomb.Wait()
				err = handler.UpstreamTomb.Err()
			}
		case <-idle_timeout:
			handler.Log().Error("Idle timeout in handleProxy MainLoop")
			err = io.EOF
		}
		if err != nil {
			break MainLoop
		}
	}

	if err != nil && err != io.EOF {
		err = fmt.Errorf("Error in handler's MainLoop: %w", err)
	}
	if handler.PacketTrace != nil {
		if err_pt := handler.PacketTrace.Close(); err_pt != nil {
			handler.Log().WithError(err_pt).Error("PacketTrace close error")
		}
	}

	// end both read_packets goroutines
	handler.UpstreamTomb.Kill(nil)
	handler.downstream_tomb.Kill(nil)

	handler.Log().Info("Closing play handler")
	return err
}

func (handler *Handler) dispatchPacket(packet *packets.GenericPacket) error {
	if packet.Name == packets.UnknownPacket || packet.Name >= packets.PacketNameCount {
		return nil
	}
	var bucket = packetFilters[packet.Dir-1][packet.Name]
	for _, proc := range bucket {
		err := proc(handler, packet)
		if err != nil {
			return err
		}
	}
	return nil
}

func (handler *Handler) String() string {
	var uuid_str string = "nil"
	if handler.UUID != uuid.Nil {
		uuid_str = handler.UUID.String()
	}
	return fmt.Sprintf("Handler{%s, %s, %s, %s}", handler.Nickname, uuid_str, handler.DownstreamAddr, handler.UpstreamName)
}

func (handler *Handler) Log() logrus.FieldLogger {
	fields := logrus.Fields{
		"uuid":           handler.UUID,
		"nickname":       handler.Nickname,
		"upstream":       handler.UpstreamName,
		"downstreamAddr": handler.DownstreamAddr,
	}
	if handler.Profile != nil {
		fields["protocol"] = handler.Profile.Protocol
	}
	return logrus.WithFields(fields)
}

func (handler *Handler) PushCommand(cmd HandlerCommand, block bool) bool {
	if handler.commandChan == nil {
		return false
	}
	if block {
		handler.commandChan <- cmd
		return true
	}
	select {
	case handler.commandChan <- cmd:
		return true
	default:
		return false
	}
}

// Thread-safely inject packets into given direction. Raises error in main handler goroutine if raise != nil. Useful for kicking player etc.
// Error is returned if packets cannot be queued. Data sending is asynchronous, connection error are not returned here.
func (handler *Handler) InjectPackets(direction packets.Direction, raise error, payload ...packets.Packet) error {
	cmd := &injectPacketCommand{
		Direction: direction,
		Payload:   payload,
		RaiseErr:  raise,
	}
	if !handler.PushCommand(cmd, false) {
		return fmt.Errorf("commandChan is full")
	}
	return nil
}

// Kick disconnects the player with a play state kick message.
func (handler *Handler) Kick(msg string) error {
	kick := packets.NewKick(handler.Profile, &packets.ChatMessage{Text: msg})
	return handler.InjectPackets(packets.ClientBound, io.EOF, kick)
}

func (handler *Handler) packetTrace(packet packets.Packet, direction packets.Direction) error {
	_, err := fmt.Fprintf(handler.PacketTrace, "%4.4f %s\n", time.Since(handler.t0).Seconds(), packets.ToString(packet, direction))
	return err
}
