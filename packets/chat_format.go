package packets

import (
	"bytes"
	"encoding/json"
	"errors"
)

// ChatMessage is the minimal chat component used for proxy generated kicks.
type ChatMessage struct {
	Text  string `json:"text"`
	Color string `json:"color,omitempty"`
}

const COLOR_RED = "§c"
const COLOR_GOLD = "§6"
const COLOR_RESET = "§r"

// NewKick builds a play state disconnect for the given version.
func NewKick(profile *Profile, text *ChatMessage) *GenericPacket {
	b, err := json.Marshal(text)
	if err != nil {
		panic(err)
	}
	var data []byte
	data = AppendVarInt(data, VarInt(len(b)))
	data = append(data, b...)
	return &GenericPacket{ID: profile.ID(KickCB), Dir: ClientBound, Name: KickCB, Data: data}
}

// NewChatMessage builds a clientbound chat packet carrying json text.
func NewChatMessage(profile *Profile, json string, position byte) *GenericPacket {
	var data []byte
	data = AppendVarInt(data, VarInt(len(json)))
	data = append(data, json...)
	data = append(data, position)
	if !profile.Legacy {
		data = append(data, make([]byte, 16)...) // nil sender
	}
	return &GenericPacket{ID: profile.ID(ChatMessageCB), Dir: ClientBound, Name: ChatMessageCB, Data: data}
}

var errNotClientSettings = errors.New("not a client settings packet")

// ClientLocale reads the locale, the first field of client settings in
// every supported version.
func ClientLocale(packet *GenericPacket) (string, error) {
	if packet.Name != ClientSettingsSB {
		return "", errNotClientSettings
	}
	return ReadMinecraftString(bytes.NewReader(packet.Data), 16)
}
