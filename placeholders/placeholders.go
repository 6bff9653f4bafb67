// Package placeholders expands %name% and {name} markers in rewritten text.
package placeholders

import (
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/mediocregopher/radix/v3"
	"github.com/sirupsen/logrus"

	"github.com/Craftserve/msgproxy/rewrite"
	"github.com/Craftserve/msgproxy/rules"
)

const TimeFormat = "15:04"

// Builtin knows the viewer and a few proxy wide values.
type Builtin struct {
	Online func() int
	Now    func() time.Time
}

func (b *Builtin) Resolve(marker string, viewer rewrite.ViewerContext) string {
	switch strings.ToLower(rules.PlaceholderName(marker)) {
	case "player_name", "player":
		if viewer.PlayerName != "" {
			return viewer.PlayerName
		}
	case "player_uuid":
		if viewer.PlayerUUID != uuid.Nil {
			return viewer.PlayerUUID.String()
		}
	case "player_locale", "locale":
		if viewer.Locale != "" {
			return viewer.Locale
		}
	case "player_protocol":
		if viewer.Protocol != 0 {
			return strconv.Itoa(viewer.Protocol)
		}
	case "online":
		if b.Online != nil {
			return strconv.Itoa(b.Online())
		}
	case "server_time":
		now := time.Now
		if b.Now != nil {
			now = b.Now
		}
		return now().Format(TimeFormat)
	}
	return marker
}

// Static serves values from the placeholders section of the rule files.
// Replace swaps the whole table on reload.
type Static struct {
	values atomic.Pointer[map[string]string]
}

func NewStatic(values map[string]string) *Static {
	s := &Static{}
	s.Replace(values)
	return s
}

func (s *Static) Replace(values map[string]string) {
	m := make(map[string]string, len(values))
	for k, v := range values {
		m[strings.ToLower(k)] = v
	}
	s.values.Store(&m)
}

func (s *Static) Resolve(marker string, viewer rewrite.ViewerContext) string {
	m := s.values.Load()
	if m == nil {
		return marker
	}
	if v, ok := (*m)[strings.ToLower(rules.PlaceholderName(marker))]; ok {
		return v
	}
	return marker
}

// Redis looks placeholders up in the hash <Prefix>:<player uuid> first and
// then in <Prefix>:global, so game servers can publish per player values.
type Redis struct {
	Client radix.Client
	Prefix string
}

const DefaultRedisPrefix = "msgproxy.placeholders"

func (r *Redis) Resolve(marker string, viewer rewrite.ViewerContext) string {
	prefix := r.Prefix
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	name := rules.PlaceholderName(marker)

	keys := []string{prefix + ":global"}
	if viewer.PlayerUUID != uuid.Nil {
		keys = []string{prefix + ":" + viewer.PlayerUUID.String(), prefix + ":global"}
	}
	for _, key := range keys {
		var value string
		mn := radix.MaybeNil{Rcv: &value}
		err := r.Client.Do(radix.Cmd(&mn, "HGET", key, name))
		if err != nil {
			logrus.WithError(err).WithField("key", key).Debug("placeholders: redis HGET error")
			return marker
		}
		if !mn.Nil {
			return value
		}
	}
	return marker
}

// Chain asks each resolver in turn and returns the first expansion.
type Chain []rewrite.Resolver

func (c Chain) Resolve(marker string, viewer rewrite.ViewerContext) string {
	for _, r := range c {
		if r == nil {
			continue
		}
		if s := r.Resolve(marker, viewer); s != marker {
			return s
		}
	}
	return marker
}
