package classify

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Craftserve/msgproxy/packets"
	"github.com/Craftserve/msgproxy/rules"
)

var (
	legacy = packets.LookupProfile(340)
	nether = packets.LookupProfile(754)
)

func str(s string) []byte {
	return append(packets.AppendVarInt(nil, packets.VarInt(len(s))), s...)
}

func varint(v int) []byte {
	return packets.AppendVarInt(nil, packets.VarInt(v))
}

func join(parts ...[]byte) []byte {
	return bytes.Join(parts, nil)
}

func play(p *packets.Profile, name packets.PacketName, parts ...[]byte) *packets.GenericPacket {
	return &packets.GenericPacket{ID: p.ID(name), Dir: packets.ClientBound, Data: join(parts...)}
}

func classifyOne(t *testing.T, pkt *packets.GenericPacket, p *packets.Profile) *Packet {
	t.Helper()
	cp, err := Classify(pkt, packets.PLAY, p)
	require.NoError(t, err)
	require.NotNil(t, cp)
	return cp
}

func TestChatPositions(t *testing.T) {
	sender := make([]byte, 16)
	for pos, kind := range []rules.TextKind{rules.Chat, rules.SystemChat, rules.ActionBar} {
		cp := classifyOne(t, play(nether, packets.ChatMessageCB, str(`{"text":"Server restarting"}`), []byte{byte(pos)}, sender), nether)
		require.Len(t, cp.Fields, 1)
		assert.Equal(t, kind, cp.Fields[0].Kind)
		assert.Equal(t, "Server restarting", cp.Fields[0].Get())
		assert.Equal(t, packets.ChatMessageCB, cp.Name)

		cp = classifyOne(t, play(legacy, packets.ChatMessageCB, str(`{"text":"Server restarting"}`), []byte{byte(pos)}), legacy)
		assert.Equal(t, kind, cp.Fields[0].Kind)
	}
}

func TestChatLayoutMismatch(t *testing.T) {
	// a 1.16 packet without the sender uuid
	_, err := Classify(play(nether, packets.ChatMessageCB, str(`{"text":"x"}`), []byte{0}), packets.PLAY, nether)
	assert.True(t, errors.Is(err, ErrMismatch))

	_, err = Classify(play(nether, packets.ChatMessageCB, str(`{"text":`), []byte{0}, make([]byte, 16)), packets.PLAY, nether)
	assert.True(t, errors.Is(err, ErrMismatch))

	_, err = Classify(play(legacy, packets.ChatMessageCB, varint(500), []byte("short")), packets.PLAY, legacy)
	assert.True(t, errors.Is(err, ErrMismatch))
}

func TestNonTextPackets(t *testing.T) {
	keepAlive := play(nether, packets.KeepAliveCB, make([]byte, 8))
	cp, err := Classify(keepAlive, packets.PLAY, nether)
	assert.NoError(t, err)
	assert.Nil(t, cp)

	unknown := &packets.GenericPacket{ID: 0x7F, Dir: packets.ClientBound, Data: []byte{1, 2, 3}}
	cp, err = Classify(unknown, packets.PLAY, nether)
	assert.NoError(t, err)
	assert.Nil(t, cp)

	serverbound := &packets.GenericPacket{ID: nether.ID(packets.ChatMessageCB), Dir: packets.ServerBound, Data: str("hi")}
	cp, err = Classify(serverbound, packets.PLAY, nether)
	assert.NoError(t, err)
	assert.Nil(t, cp)
}

func TestCommitPreservesOtherBytes(t *testing.T) {
	sender := bytes.Repeat([]byte{0xAB}, 16)
	pkt := play(nether, packets.ChatMessageCB, str(`{"text":"Server restarting"}`), []byte{1}, sender)
	cp := classifyOne(t, pkt, nether)

	require.NoError(t, cp.Fields[0].Set("§c[ADMIN]§r soon"))
	changed, err := cp.Commit()
	require.NoError(t, err)
	assert.True(t, changed)

	c := &cursor{data: pkt.Data}
	raw, err := c.str(nether.ChatMaxLength)
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"","extra":[{"text":"[ADMIN]","color":"red"},{"text":" soon"}]}`, raw)
	assert.Equal(t, append([]byte{1}, sender...), pkt.Data[c.pos:])
}

func TestCommitWithoutChanges(t *testing.T) {
	pkt := play(nether, packets.KickCB, str(`{"text":"bye","bold":true}`))
	before := append([]byte(nil), pkt.Data...)
	cp := classifyOne(t, pkt, nether)
	changed, err := cp.Commit()
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, before, pkt.Data)
}

func TestSetJSONVerbatim(t *testing.T) {
	pkt := play(nether, packets.KickCB, str(`{"text":"bye"}`))
	cp := classifyOne(t, pkt, nether)
	require.NoError(t, cp.Fields[0].Set(` {"text":"custom","color":"gold"} `))
	_, err := cp.Commit()
	require.NoError(t, err)
	assert.Equal(t, str(`{"text":"custom","color":"gold"}`), pkt.Data)
}

func TestSetTooLong(t *testing.T) {
	pkt := play(legacy, packets.UpdateScoreCB, str("line"), []byte{0}, str("obj"), varint(3))
	before := append([]byte(nil), pkt.Data...)
	cp := classifyOne(t, pkt, legacy)
	f := cp.Fields[0]
	assert.Equal(t, rules.ScoreboardLine, f.Kind)
	assert.Equal(t, LegacyString, f.Encoding())

	err := f.Set(strings.Repeat("x", 41))
	assert.True(t, errors.Is(err, ErrTooLong))
	assert.False(t, f.Dirty())
	assert.Equal(t, "line", f.Get())

	changed, err := cp.Commit()
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, before, pkt.Data)
}

func TestLoginDisconnect(t *testing.T) {
	kick := packets.NewLoginKick(&packets.ChatMessage{Text: "Server is full"}).Generic()
	kick.Name = packets.UnknownPacket
	cp, err := Classify(kick, packets.LOGIN, nether)
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, packets.LoginDisconnectCB, cp.Name)
	assert.Equal(t, rules.Disconnect, cp.Fields[0].Kind)
	assert.Equal(t, "Server is full", cp.Fields[0].Get())

	// same id in play state is not a disconnect
	cp, err = Classify(&packets.GenericPacket{ID: 0, Dir: packets.ClientBound, Data: kick.Data}, packets.PLAY, nether)
	assert.NoError(t, err)
	assert.Nil(t, cp)
}

func TestBossBar(t *testing.T) {
	id := make([]byte, 16)
	health := make([]byte, 4)
	add := play(nether, packets.BossBarCB, id, varint(0), str(`"Dragon"`), health, varint(1), varint(0), []byte{0})
	cp := classifyOne(t, add, nether)
	assert.Equal(t, rules.BossBar, cp.Fields[0].Kind)
	assert.Equal(t, "Dragon", cp.Fields[0].Get())

	title := play(nether, packets.BossBarCB, id, varint(3), str(`"Wither"`))
	cp = classifyOne(t, title, nether)
	assert.Equal(t, "Wither", cp.Fields[0].Get())

	update := play(nether, packets.BossBarCB, id, varint(2), health)
	cp, err := Classify(update, packets.PLAY, nether)
	assert.NoError(t, err)
	assert.Nil(t, cp)
}

func TestScoreboardObjective(t *testing.T) {
	cp := classifyOne(t, play(legacy, packets.ScoreboardObjectiveCB, str("sidebar"), []byte{0}, str("§6Stats"), str("integer")), legacy)
	assert.Equal(t, rules.ScoreboardTitle, cp.Fields[0].Kind)
	assert.Equal(t, LegacyString, cp.Fields[0].Encoding())
	assert.Equal(t, "§6Stats", cp.Fields[0].Get())

	cp = classifyOne(t, play(nether, packets.ScoreboardObjectiveCB, str("sidebar"), []byte{2}, str(`{"text":"Stats","color":"gold"}`), varint(0)), nether)
	assert.Equal(t, JSONChat, cp.Fields[0].Encoding())
	assert.Equal(t, "§6Stats", cp.Fields[0].Get())

	cp, err := Classify(play(nether, packets.ScoreboardObjectiveCB, str("sidebar"), []byte{1}), packets.PLAY, nether)
	assert.NoError(t, err)
	assert.Nil(t, cp)
}

func TestUpdateScoreRemove(t *testing.T) {
	cp := classifyOne(t, play(nether, packets.UpdateScoreCB, str("Notch"), []byte{1}, str("obj")), nether)
	assert.Equal(t, "Notch", cp.Fields[0].Get())
}

func TestTitle(t *testing.T) {
	cp := classifyOne(t, play(nether, packets.TitleCB, varint(0), str(`"Welcome"`)), nether)
	assert.Equal(t, rules.Title, cp.Fields[0].Kind)
	cp = classifyOne(t, play(nether, packets.TitleCB, varint(2), str(`"Hotbar"`)), nether)
	assert.Equal(t, rules.ActionBar, cp.Fields[0].Kind)

	times := make([]byte, 12)
	cp, err := Classify(play(nether, packets.TitleCB, varint(3), times), packets.PLAY, nether)
	assert.NoError(t, err)
	assert.Nil(t, cp)
}

func TestHeaderFooter(t *testing.T) {
	pkt := play(legacy, packets.PlayerListHeaderFooterCB, str(`"Top"`), str(`"Bottom"`))
	cp := classifyOne(t, pkt, legacy)
	require.Len(t, cp.Fields, 2)
	assert.Equal(t, "Top", cp.Fields[0].Get())
	assert.Equal(t, "Bottom", cp.Fields[1].Get())

	require.NoError(t, cp.Fields[1].Set("Footer"))
	_, err := cp.Commit()
	require.NoError(t, err)
	assert.Equal(t, join(str(`"Top"`), str(`{"text":"Footer"}`)), pkt.Data)
}

func TestPlayerInfo(t *testing.T) {
	uid := bytes.Repeat([]byte{7}, 16)
	entry := join(uid, str("Notch"), varint(1), str("textures"), str("abc"), []byte{1}, str("sig"),
		varint(0), varint(42), []byte{1}, str(`"§aNotch"`))
	bare := join(uid, str("jeb_"), varint(0), varint(1), varint(10), []byte{0})
	cp := classifyOne(t, play(nether, packets.PlayerInfoCB, varint(0), varint(2), entry, bare), nether)
	require.Len(t, cp.Fields, 1)
	assert.Equal(t, rules.TabListEntry, cp.Fields[0].Kind)
	assert.Equal(t, "§aNotch", cp.Fields[0].Get())

	cp = classifyOne(t, play(legacy, packets.PlayerInfoCB, varint(3), varint(1), uid, []byte{1}, str(`"Admin"`)), legacy)
	assert.Equal(t, "Admin", cp.Fields[0].Get())

	latency := play(nether, packets.PlayerInfoCB, varint(2), varint(1), uid, varint(5))
	cp, err := Classify(latency, packets.PLAY, nether)
	assert.NoError(t, err)
	assert.Nil(t, cp)

	_, err = Classify(play(nether, packets.PlayerInfoCB, varint(0), varint(1000), uid), packets.PLAY, nether)
	assert.True(t, errors.Is(err, ErrMismatch))
}

func TestOpenWindow(t *testing.T) {
	cp := classifyOne(t, play(legacy, packets.OpenWindowCB, []byte{1}, str("minecraft:chest"), str(`"Chest"`), []byte{27}), legacy)
	assert.Equal(t, rules.InventoryTitle, cp.Fields[0].Kind)
	assert.Equal(t, "Chest", cp.Fields[0].Get())

	horse := play(legacy, packets.OpenWindowCB, []byte{2}, str("EntityHorse"), str(`"Horse"`), []byte{2, 0, 0, 0, 9})
	classifyOne(t, horse, legacy)

	cp = classifyOne(t, play(nether, packets.OpenWindowCB, varint(1), varint(2), str(`"Shop"`)), nether)
	assert.Equal(t, "Shop", cp.Fields[0].Get())
}

func nbtString(name, value string) []byte {
	var b []byte
	b = append(b, tagString)
	b = binary.BigEndian.AppendUint16(b, uint16(len(name)))
	b = append(b, name...)
	v := encodeMUTF8(value)
	b = binary.BigEndian.AppendUint16(b, uint16(len(v)))
	return append(b, v...)
}

func signPacket(lines ...string) *packets.GenericPacket {
	body := []byte{tagCompound, 0, 0}
	body = append(body, tagInt, 0, 1, 'x', 0, 0, 0, 5)
	body = append(body, nbtString("id", "minecraft:sign")...)
	for i, line := range lines {
		body = append(body, nbtString("Text"+string(rune('1'+i)), line)...)
	}
	// nested compound with a list, skipped untouched
	body = append(body, tagCompound, 0, 1, 'c', tagList, 0, 1, 'l', tagShort, 0, 0, 0, 2, 0, 1, 0, 2, tagEnd)
	body = append(body, tagEnd)
	return play(nether, packets.BlockEntityDataCB, make([]byte, 8), []byte{blockEntitySign}, body)
}

func TestSignLines(t *testing.T) {
	pkt := signPacket(`{"text":"Welcome"}`, `""`, `{"text":"to the"}`, `{"text":"server"}`)
	cp := classifyOne(t, pkt, nether)
	require.Len(t, cp.Fields, 4)
	assert.Equal(t, rules.SignLine, cp.Fields[0].Kind)
	assert.Equal(t, NBTString, cp.Fields[0].Encoding())
	assert.Equal(t, "Welcome", cp.Fields[0].Get())
	assert.Equal(t, "", cp.Fields[1].Get())

	require.NoError(t, cp.Fields[3].Set("§cspawn"))
	_, err := cp.Commit()
	require.NoError(t, err)

	expected := signPacket(`{"text":"Welcome"}`, `""`, `{"text":"to the"}`, `{"text":"spawn","color":"red"}`)
	assert.Equal(t, expected.Data, pkt.Data)

	again := classifyOne(t, pkt, nether)
	assert.Equal(t, "§cspawn", again.Fields[3].Get())
}

func TestSignEdgeCases(t *testing.T) {
	empty := play(nether, packets.BlockEntityDataCB, make([]byte, 8), []byte{blockEntitySign}, []byte{tagEnd})
	cp, err := Classify(empty, packets.PLAY, nether)
	assert.NoError(t, err)
	assert.Nil(t, cp)

	other := play(nether, packets.BlockEntityDataCB, make([]byte, 8), []byte{1}, []byte{tagCompound, 0, 0, tagEnd})
	cp, err = Classify(other, packets.PLAY, nether)
	assert.NoError(t, err)
	assert.Nil(t, cp)

	truncated := signPacket(`"a"`)
	truncated.Data = truncated.Data[:len(truncated.Data)-3]
	_, err = Classify(truncated, packets.PLAY, nether)
	assert.True(t, errors.Is(err, ErrMismatch))
}

func TestModifiedUTF8(t *testing.T) {
	for _, s := range []string{"plain", "zażółć", "nul\x00byte", "emoji 😀"} {
		b := encodeMUTF8(s)
		assert.NotContains(t, string(b), "\x00")
		back, err := decodeMUTF8(b)
		require.NoError(t, err)
		assert.Equal(t, s, back)
	}
	assert.Len(t, encodeMUTF8("😀"), 6)
}

func TestTextPackets(t *testing.T) {
	names := TextPackets()
	assert.Contains(t, names, packets.ChatMessageCB)
	assert.Contains(t, names, packets.BlockEntityDataCB)
	assert.NotContains(t, names, packets.KeepAliveCB)
	assert.NotContains(t, names, packets.LoginDisconnectCB)
}

func TestInvalidUTF8IsMismatch(t *testing.T) {
	pkt := play(nether, packets.UpdateScoreCB, str("\xffabc"), []byte{0}, str("obj"), varint(7))
	_, err := Classify(pkt, packets.PLAY, nether)
	assert.True(t, errors.Is(err, ErrMismatch))

	pkt = play(legacy, packets.ScoreboardObjectiveCB, str("sidebar"), []byte{0}, str("§6\xc3("), str("integer"))
	_, err = Classify(pkt, packets.PLAY, legacy)
	assert.True(t, errors.Is(err, ErrMismatch))
}
