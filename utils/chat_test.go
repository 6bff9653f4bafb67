package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPara2Json(t *testing.T) {
	var table = map[string]string{
		"":                         `{"text":""}`,
		"hello":                    `{"text":"hello"}`,
		"§chello":                  `{"text":"hello","color":"red"}`,
		"§c[ADMIN]§r soon":         `{"text":"","extra":[{"text":"[ADMIN]","color":"red"},{"text":" soon"}]}`,
		"§x§f§f§0§0§a§ahex":        `{"text":"hex","color":"#ff00aa"}`,
		"§lbold":                   `{"text":"bold","bold":true}`,
		"visit example.com now":    `{"text":"","extra":[{"text":"visit "},{"text":"example.com","clickEvent":{"action":"open_url","value":"http://example.com"}},{"text":" now"}]}`,
	}
	for input, expected := range table {
		result, err := Para2Json(input)
		require.NoError(t, err, input)
		assert.JSONEq(t, expected, string(result), input)
	}
}

func TestJson2Para(t *testing.T) {
	var table = []struct {
		in, out string
	}{
		{`"plain"`, "plain"},
		{`{"text":"hello"}`, "hello"},
		{`{"text":"a","extra":[{"text":"b","color":"red"},"c"]}`, "a§cb§rc"},
		{`{"text":"","extra":[{"text":"[ADMIN]","color":"red"},{"text":" soon"}]}`, "§c[ADMIN]§r soon"},
		{`["",{"text":"x","bold":true}]`, "§r§lx"},
		{`{"translate":"chat.type.text","with":[{"text":"Notch"},"hi"]}`, "<Notch> hi"},
		{`{"translate":"multiplayer.player.joined","with":["Notch"],"color":"yellow"}`, "§eNotch joined the game"},
		{`{"translate":"custom.%2$s.%1$s","with":["a","b"]}`, "custom.b.a"},
		{`{"translate":"unknown.key"}`, "unknown.key"},
		{`{"text":"hex","color":"#ff00aa"}`, "§x§f§f§0§0§a§ahex"},
	}
	for _, c := range table {
		result, err := Json2Para(c.in)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.out, result, c.in)
	}

	_, err := Json2Para(`{"text":`)
	assert.Error(t, err)
}

func TestChatRoundTrip(t *testing.T) {
	for _, text := range []string{"hello", "§c[ADMIN]§r soon", "§eNotch joined the game", "§x§f§f§0§0§a§ahex"} {
		data, err := Para2Json(text)
		require.NoError(t, err)
		back, err := Json2Para(string(data))
		require.NoError(t, err)
		assert.Equal(t, text, back)
	}
}

func TestIsJsonChat(t *testing.T) {
	assert.True(t, IsJsonChat(`{"text":"a"}`))
	assert.True(t, IsJsonChat(` ["a"]`))
	assert.False(t, IsJsonChat(`"a"`))
	assert.False(t, IsJsonChat(`{broken`))
	assert.False(t, IsJsonChat(`plain {text}`))
}

func TestBitarrayChat(t *testing.T) {
	b := NewBitarray(512)
	assert.Equal(t, 512, b.Len())
	b.Set(3, true)
	b.Set(300, true)
	assert.True(t, b.Get(3))
	assert.True(t, b.Get(300))
	assert.False(t, b.Get(4))
	b.Set(3, false)
	assert.False(t, b.Get(3))
	assert.False(t, b.Get(1000))
}
