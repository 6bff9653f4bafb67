package msgedit

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Craftserve/msgproxy"
	"github.com/Craftserve/msgproxy/classify"
	"github.com/Craftserve/msgproxy/intercept"
	"github.com/Craftserve/msgproxy/packets"
	"github.com/Craftserve/msgproxy/placeholders"
	"github.com/Craftserve/msgproxy/rewrite"
	"github.com/Craftserve/msgproxy/rules"
)

func newHandler(protocol int) *msgproxy.Handler {
	return &msgproxy.Handler{
		ID:       "conn-1",
		Nickname: "Player1234",
		UUID:     msgproxy.OfflinePlayerUUID("Player1234"),
		Locale:   "pl_pl",
		Profile:  packets.LookupProfile(protocol),
		State:    packets.PLAY,
	}
}

func newInterceptor(rs ...*rules.Rule) *intercept.Interceptor {
	store := rules.NewStore(rules.NewRuleSet(rs))
	engine := rewrite.NewEngine(&placeholders.Builtin{Online: func() int { return 3 }}, rewrite.DefaultResolverTimeout)
	return intercept.New(store, engine)
}

func rule(id string, kind rules.TextKind, literal, template string) *rules.Rule {
	return &rules.Rule{ID: id, Kind: kind, Matcher: rules.ExactText(literal),
		Template: rules.ParseTemplate(template), StopOnMatch: true}
}

func textOf(t *testing.T, pkt *packets.GenericPacket, state packets.ConnState, p *packets.Profile) string {
	t.Helper()
	cp, err := classify.Classify(pkt, state, p)
	require.NoError(t, err)
	require.NotNil(t, cp)
	return cp.Fields[0].Get()
}

func TestViewerFor(t *testing.T) {
	h := newHandler(340)
	v := ViewerFor(h)
	assert.Equal(t, rewrite.ViewerContext{
		ConnectionID: "conn-1",
		PlayerUUID:   h.UUID,
		PlayerName:   "Player1234",
		Locale:       "pl_pl",
		Protocol:     340,
	}, v)

	h.Profile = nil
	assert.Equal(t, 0, ViewerFor(h).Protocol)
}

func TestFilterRewritesKick(t *testing.T) {
	filter := Filter(newInterceptor(
		rule("kick", rules.Disconnect, "You have been kicked", "&cBye %player_name%, %online% online"),
	))

	for _, protocol := range []int{340, 754} {
		h := newHandler(protocol)
		kick := packets.NewKick(h.Profile, &packets.ChatMessage{Text: "You have been kicked"})
		require.NoError(t, filter(h, kick))
		assert.Equal(t, "§cBye Player1234, 3 online", textOf(t, kick, packets.PLAY, h.Profile))
	}
}

func TestFilterRewritesLoginKick(t *testing.T) {
	filter := Filter(newInterceptor(
		rule("full", rules.Disconnect, "Server is full", "Try again later"),
	))
	h := newHandler(754)
	h.State = packets.LOGIN

	kick := packets.NewLoginKick(&packets.ChatMessage{Text: "Server is full"}).Generic()
	require.NoError(t, filter(h, kick))
	assert.Equal(t, "Try again later", textOf(t, kick, packets.LOGIN, h.Profile))

	assert.True(t, json.Valid(kick.Data[1:]), "login kick body stays json")
}

func TestFilterLeavesOtherTextAlone(t *testing.T) {
	filter := Filter(newInterceptor(rule("kick", rules.Disconnect, "x", "y")))
	h := newHandler(754)

	chat := packets.NewChatMessage(h.Profile, `{"text":"x"}`, 0)
	before := append([]byte(nil), chat.Data...)
	require.NoError(t, filter(h, chat))
	assert.True(t, bytes.Equal(before, chat.Data))

	h.Profile = nil
	assert.NoError(t, filter(h, chat))
}
