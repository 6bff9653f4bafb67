package packets

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUUID = uuid.MustParse("00e45140-b547-315c-90a2-74e494a239e1")

func TestLoginSuccess(t *testing.T) {
	for _, legacy := range []bool{true, false} {
		var buf bytes.Buffer
		in := &LoginSuccessPacket{UID: testUUID, Username: "Player1234", Legacy: legacy}
		require.NoError(t, in.Serialize(&buf))
		if legacy {
			assert.Equal(t, 1+36+1+10, buf.Len())
		} else {
			assert.Equal(t, 16+1+10, buf.Len())
		}

		out := &LoginSuccessPacket{Legacy: legacy}
		require.NoError(t, out.Parse(&buf))
		assert.Equal(t, in, out)
	}
}

func TestLoginKickGeneric(t *testing.T) {
	kick := NewLoginKick(&ChatMessage{Text: "Server is full", Color: "red"})
	generic := kick.Generic()
	assert.Equal(t, LoginDisconnectCB, generic.Name)
	assert.Equal(t, ClientBound, generic.Dir)
	assert.Equal(t, VarInt(0), generic.ID)

	parsed := &LoginKickPacket{}
	require.NoError(t, parsed.Parse(bytes.NewReader(generic.Data)))
	assert.Equal(t, kick.Message, parsed.Message)

	var msg ChatMessage
	require.NoError(t, json.Unmarshal([]byte(parsed.Message), &msg))
	assert.Equal(t, ChatMessage{Text: "Server is full", Color: "red"}, msg)
	assert.Contains(t, kick.Error(), "Server is full")
}

func TestReaderWriterRoundTrip(t *testing.T) {
	long := strings.Repeat("x", 2*CompressThreshold)
	for _, threshold := range []int{0, CompressThreshold} {
		var buf bytes.Buffer
		w := NewPacketWriter(&buf, threshold)
		require.NoError(t, w.WritePacket(NewChatMessage(DefaultProfile, `{"text":"hi"}`, 1), false))
		require.NoError(t, w.WritePacket(NewChatMessage(DefaultProfile, `{"text":"`+long+`"}`, 1), true))

		r := NewPacketReader(&buf, threshold)
		for _, text := range []string{"hi", long} {
			raw, err := r.ReadPacket()
			require.NoError(t, err)
			assert.Equal(t, DefaultProfile.ID(ChatMessageCB), raw.ID)

			payload, err := r.Payload()
			require.NoError(t, err)
			generic := &GenericPacket{}
			require.NoError(t, generic.Parse(payload))
			assert.Equal(t, NewChatMessage(DefaultProfile, `{"text":"`+text+`"}`, 1).Data, generic.Data)
		}
	}
}

func TestRawPacketForwarding(t *testing.T) {
	var src bytes.Buffer
	w := NewPacketWriter(&src, CompressThreshold)
	require.NoError(t, w.WritePacket(NewKick(DefaultProfile, &ChatMessage{Text: "bye"}), true))
	frame := append([]byte(nil), src.Bytes()...)

	raw, err := NewPacketReader(&src, CompressThreshold).ReadPacket()
	require.NoError(t, err)

	var dst bytes.Buffer
	require.NoError(t, NewPacketWriter(&dst, CompressThreshold).WritePacket(raw, true))
	assert.Equal(t, frame, dst.Bytes())
}

func TestParsePacketsUnexpected(t *testing.T) {
	var buf bytes.Buffer
	w := NewPacketWriter(&buf, 0)
	require.NoError(t, w.WritePacket(&LoginCompressionPacket{Threshold: 256}, true))

	_, err := ParsePackets(NewPacketReader(&buf, 0), &LoginKickPacket{})
	assert.Equal(t, ErrUnexpectedPacket{ID: 0x03}, err)
}

func TestChatHelpers(t *testing.T) {
	legacy := LookupProfile(340)
	assert.Len(t, NewChatMessage(legacy, "{}", 0).Data, 1+2+1)
	assert.Len(t, NewChatMessage(DefaultProfile, "{}", 0).Data, 1+2+1+16)

	var data bytes.Buffer
	require.NoError(t, WriteMinecraftString(&data, "de_de"))
	locale, err := ClientLocale(&GenericPacket{Name: ClientSettingsSB, Data: data.Bytes()})
	require.NoError(t, err)
	assert.Equal(t, "de_de", locale)

	_, err = ClientLocale(&GenericPacket{Name: ChatMessageCB})
	assert.Error(t, err)
}
