package packets

import (
	"sort"
	"strings"
)

// PacketName identifies a packet independently of the protocol version.
type PacketName uint8

const (
	UnknownPacket PacketName = iota
	LoginDisconnectCB
	ChatMessageCB
	KickCB
	BossBarCB
	ScoreboardObjectiveCB
	UpdateScoreCB
	TitleCB
	PlayerListHeaderFooterCB
	PlayerInfoCB
	OpenWindowCB
	BlockEntityDataCB
	KeepAliveCB
	ClientSettingsSB
	PacketNameCount
)

var packetNames = [PacketNameCount]string{
	UnknownPacket:            "Unknown",
	LoginDisconnectCB:        "LoginDisconnect",
	ChatMessageCB:            "ChatMessage",
	KickCB:                   "Kick",
	BossBarCB:                "BossBar",
	ScoreboardObjectiveCB:    "ScoreboardObjective",
	UpdateScoreCB:            "UpdateScore",
	TitleCB:                  "Title",
	PlayerListHeaderFooterCB: "PlayerListHeaderFooter",
	PlayerInfoCB:             "PlayerInfo",
	OpenWindowCB:             "OpenWindow",
	BlockEntityDataCB:        "BlockEntityData",
	KeepAliveCB:              "KeepAlive",
	ClientSettingsSB:         "ClientSettings",
}

func (name PacketName) String() string {
	if name >= PacketNameCount {
		return "Invalid"
	}
	return packetNames[name]
}

func (name PacketName) Direction() Direction {
	if name == ClientSettingsSB {
		return ServerBound
	}
	return ClientBound
}

// Profile holds the packet ids and layout switches of one protocol version.
type Profile struct {
	Protocol int
	Name     string
	// Legacy is set for pre-1.13 layouts: string window types, legacy
	// scoreboard objective text, chat without sender and string uuid in
	// login success.
	Legacy        bool
	ChatMaxLength int

	ids   [PacketNameCount]VarInt
	names [2][MaxPacketID]PacketName
}

func newProfile(protocol int, name string, legacy bool, chatMax int, ids map[PacketName]VarInt) *Profile {
	p := &Profile{Protocol: protocol, Name: name, Legacy: legacy, ChatMaxLength: chatMax}
	for i := range p.ids {
		p.ids[i] = -1
	}
	for n, id := range ids {
		p.ids[n] = id
		p.names[n.Direction()-1][id] = n
	}
	return p
}

// ID returns the packet id for name, or -1 when the version has no such packet.
func (p *Profile) ID(name PacketName) VarInt {
	return p.ids[name]
}

// Lookup maps a packet id seen in the given state back to its name.
func (p *Profile) Lookup(state ConnState, direction Direction, id VarInt) PacketName {
	if id < 0 || id >= MaxPacketID {
		return UnknownPacket
	}
	switch state {
	case LOGIN:
		if direction == ClientBound && id == 0x00 {
			return LoginDisconnectCB
		}
		return UnknownPacket
	case PLAY:
		return p.names[direction-1][id]
	}
	return UnknownPacket
}

var legacyIDs = map[PacketName]VarInt{
	BlockEntityDataCB:        0x09,
	BossBarCB:                0x0C,
	ChatMessageCB:            0x0F,
	OpenWindowCB:             0x13,
	KickCB:                   0x1A,
	KeepAliveCB:              0x1F,
	PlayerInfoCB:             0x2E,
	ScoreboardObjectiveCB:    0x42,
	UpdateScoreCB:            0x45,
	TitleCB:                  0x48,
	PlayerListHeaderFooterCB: 0x4A,
	ClientSettingsSB:         0x04,
}

// 1.16.2 to 1.16.5 share packet ids
var netherIDs = map[PacketName]VarInt{
	BlockEntityDataCB:        0x09,
	BossBarCB:                0x0C,
	ChatMessageCB:            0x0E,
	KickCB:                   0x19,
	KeepAliveCB:              0x1F,
	OpenWindowCB:             0x2D,
	PlayerInfoCB:             0x32,
	ScoreboardObjectiveCB:    0x4A,
	UpdateScoreCB:            0x4D,
	TitleCB:                  0x4F,
	PlayerListHeaderFooterCB: 0x53,
	ClientSettingsSB:         0x05,
}

var profiles = map[int]*Profile{
	340: newProfile(340, "1.12.2", true, 32767, legacyIDs),
	751: newProfile(751, "1.16.2", false, 262144, netherIDs),
	753: newProfile(753, "1.16.3", false, 262144, netherIDs),
	754: newProfile(754, "1.16.5", false, 262144, netherIDs),
}

// DefaultProfile is announced in status responses to unsupported clients.
var DefaultProfile = profiles[754]

// LookupProfile returns nil for unsupported protocol versions.
func LookupProfile(protocol int) *Profile {
	return profiles[protocol]
}

func Profiles() []*Profile {
	list := make([]*Profile, 0, len(profiles))
	for _, p := range profiles {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Protocol < list[j].Protocol })
	return list
}

func SupportedVersions() string {
	var names []string
	for _, p := range Profiles() {
		names = append(names, p.Name)
	}
	return strings.Join(names, ", ")
}
