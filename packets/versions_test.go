package packets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProfileLookup(t *testing.T) {
	legacy := LookupProfile(340)
	nether := LookupProfile(754)
	assert.NotNil(t, legacy)
	assert.True(t, legacy.Legacy)
	assert.False(t, nether.Legacy)
	assert.Nil(t, LookupProfile(47))

	var table = []struct {
		profile *Profile
		state   ConnState
		dir     Direction
		id      VarInt
		name    PacketName
	}{
		{legacy, PLAY, ClientBound, 0x0F, ChatMessageCB},
		{nether, PLAY, ClientBound, 0x0E, ChatMessageCB},
		{nether, PLAY, ClientBound, 0x0F, UnknownPacket},
		{legacy, PLAY, ServerBound, 0x04, ClientSettingsSB},
		{legacy, PLAY, ClientBound, 0x04, UnknownPacket},
		{nether, LOGIN, ClientBound, 0x00, LoginDisconnectCB},
		{nether, LOGIN, ClientBound, 0x02, UnknownPacket},
		{nether, STATUS, ClientBound, 0x00, UnknownPacket},
		{nether, PLAY, ClientBound, -1, UnknownPacket},
		{nether, PLAY, ClientBound, MaxPacketID, UnknownPacket},
	}
	for _, c := range table {
		assert.Equal(t, c.name, c.profile.Lookup(c.state, c.dir, c.id), "%s %s %s %02X", c.profile.Name, c.state, c.dir, c.id)
	}

	for _, p := range Profiles() {
		for name := PacketName(1); name < PacketNameCount; name++ {
			id := p.ID(name)
			if id < 0 {
				continue
			}
			assert.Equal(t, name, p.Lookup(PLAY, name.Direction(), id), "%s %s", p.Name, name)
		}
		assert.Equal(t, VarInt(-1), p.ID(LoginDisconnectCB))
	}
}

func TestSupportedVersions(t *testing.T) {
	assert.Equal(t, "1.12.2, 1.16.2, 1.16.3, 1.16.5", SupportedVersions())
	assert.Equal(t, 754, DefaultProfile.Protocol)
	assert.Equal(t, "Invalid", PacketNameCount.String())
	assert.Equal(t, ServerBound, ClientSettingsSB.Direction())
	assert.Equal(t, ClientBound, KickCB.Direction())
}
