package placeholders

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mediocregopher/radix/v3"
	"github.com/stretchr/testify/assert"

	"github.com/Craftserve/msgproxy/rewrite"
)

var notch = rewrite.ViewerContext{
	ConnectionID: "c1",
	PlayerUUID:   uuid.MustParse("069a79f4-44e9-4726-a5be-fca90e38aaf5"),
	PlayerName:   "Notch",
	Locale:       "en_us",
	Protocol:     754,
}

func TestBuiltin(t *testing.T) {
	b := &Builtin{
		Online: func() int { return 42 },
		Now:    func() time.Time { return time.Date(2020, 1, 1, 13, 5, 0, 0, time.UTC) },
	}
	var table = map[string]string{
		"%player_name%":     "Notch",
		"{player_name}":     "Notch",
		"%PLAYER_UUID%":     "069a79f4-44e9-4726-a5be-fca90e38aaf5",
		"%player_locale%":   "en_us",
		"%player_protocol%": "754",
		"%online%":          "42",
		"%server_time%":     "13:05",
		"%time_to_restart%": "%time_to_restart%",
	}
	for marker, expected := range table {
		assert.Equal(t, expected, b.Resolve(marker, notch), marker)
	}

	// unknown viewer data stays literal
	assert.Equal(t, "%player_name%", b.Resolve("%player_name%", rewrite.ViewerContext{}))
	assert.Equal(t, "%online%", (&Builtin{}).Resolve("%online%", notch))
}

func TestStatic(t *testing.T) {
	s := NewStatic(map[string]string{"Discord": "discord.gg/abc"})
	assert.Equal(t, "discord.gg/abc", s.Resolve("%discord%", notch))
	assert.Equal(t, "{website}", s.Resolve("{website}", notch))

	s.Replace(map[string]string{"website": "example.com"})
	assert.Equal(t, "example.com", s.Resolve("{website}", notch))
	assert.Equal(t, "%discord%", s.Resolve("%discord%", notch))

	var empty Static
	assert.Equal(t, "%x%", empty.Resolve("%x%", notch))
}

func TestRedis(t *testing.T) {
	var calls [][]string
	conn := radix.Stub("tcp", "127.0.0.1:6379", func(args []string) interface{} {
		calls = append(calls, args)
		switch args[1] + "/" + args[2] {
		case "mp:" + notch.PlayerUUID.String() + "/rank":
			return "VIP"
		case "mp:global/time_to_restart":
			return "5 minutes"
		}
		return nil
	})
	r := &Redis{Client: conn, Prefix: "mp"}

	assert.Equal(t, "VIP", r.Resolve("%rank%", notch))
	assert.Equal(t, "5 minutes", r.Resolve("%time_to_restart%", notch))
	assert.Equal(t, "%missing%", r.Resolve("%missing%", notch))
	assert.Equal(t, "5 minutes", r.Resolve("%time_to_restart%", rewrite.ViewerContext{}))

	assert.Equal(t, []string{"HGET", "mp:" + notch.PlayerUUID.String(), "rank"}, calls[0])
}

func TestChain(t *testing.T) {
	first := rewrite.ResolverFunc(func(m string, v rewrite.ViewerContext) string {
		if m == "%a%" {
			return "A"
		}
		return m
	})
	second := rewrite.ResolverFunc(func(m string, v rewrite.ViewerContext) string {
		return "B"
	})
	c := Chain{nil, first, second}
	assert.Equal(t, "A", c.Resolve("%a%", notch))
	assert.Equal(t, "B", c.Resolve("%b%", notch))
	assert.Equal(t, "%c%", Chain{first}.Resolve("%c%", notch))
}
