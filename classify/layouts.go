package classify

import (
	"fmt"

	"github.com/Craftserve/msgproxy/packets"
	"github.com/Craftserve/msgproxy/rules"
)

// layout reads one packet body. Returning no fields means the packet
// carries no rewritable text in this variant (e.g. a boss bar health update).
type layout func(c *cursor, p *packets.Profile) ([]*Field, error)

var layouts = [packets.PacketNameCount]layout{
	packets.LoginDisconnectCB:        disconnectLayout,
	packets.KickCB:                   disconnectLayout,
	packets.ChatMessageCB:            chatLayout,
	packets.BossBarCB:                bossBarLayout,
	packets.ScoreboardObjectiveCB:    objectiveLayout,
	packets.UpdateScoreCB:            updateScoreLayout,
	packets.TitleCB:                  titleLayout,
	packets.PlayerListHeaderFooterCB: headerFooterLayout,
	packets.PlayerInfoCB:             playerInfoLayout,
	packets.OpenWindowCB:             openWindowLayout,
	packets.BlockEntityDataCB:        blockEntityLayout,
}

// TextPackets lists the packets that may carry text, for filter registration.
func TextPackets() []packets.PacketName {
	var names []packets.PacketName
	for name, l := range layouts {
		if l != nil && packets.PacketName(name) != packets.LoginDisconnectCB {
			names = append(names, packets.PacketName(name))
		}
	}
	return names
}

func one(f *Field, err error) ([]*Field, error) {
	if err != nil {
		return nil, err
	}
	return []*Field{f}, nil
}

func disconnectLayout(c *cursor, p *packets.Profile) ([]*Field, error) {
	f, err := c.chat(rules.Disconnect, p.ChatMaxLength)
	if err != nil {
		return nil, err
	}
	return one(f, c.end())
}

func chatLayout(c *cursor, p *packets.Profile) ([]*Field, error) {
	f, err := c.chat(rules.Chat, p.ChatMaxLength)
	if err != nil {
		return nil, err
	}
	position, err := c.u8()
	if err != nil {
		return nil, err
	}
	switch position {
	case 0:
		f.Kind = rules.Chat
	case 1:
		f.Kind = rules.SystemChat
	case 2:
		f.Kind = rules.ActionBar
	default:
		return nil, fmt.Errorf("chat position %d", position)
	}
	if !p.Legacy {
		if err = c.skip(16); err != nil { // sender
			return nil, err
		}
	}
	return one(f, c.end())
}

func bossBarLayout(c *cursor, p *packets.Profile) ([]*Field, error) {
	if err := c.skip(16); err != nil {
		return nil, err
	}
	action, err := c.varint()
	if err != nil {
		return nil, err
	}
	switch action {
	case 0: // add: title, health, color, division, flags
		f, err := c.chat(rules.BossBar, p.ChatMaxLength)
		if err != nil {
			return nil, err
		}
		if err = c.skip(4); err != nil {
			return nil, err
		}
		for i := 0; i < 2; i++ {
			if _, err = c.varint(); err != nil {
				return nil, err
			}
		}
		if _, err = c.u8(); err != nil {
			return nil, err
		}
		return one(f, c.end())
	case 3: // update title
		f, err := c.chat(rules.BossBar, p.ChatMaxLength)
		if err != nil {
			return nil, err
		}
		return one(f, c.end())
	}
	return nil, nil
}

func objectiveLayout(c *cursor, p *packets.Profile) ([]*Field, error) {
	if _, err := c.str(16); err != nil {
		return nil, err
	}
	mode, err := c.u8()
	if err != nil {
		return nil, err
	}
	switch mode {
	case 1: // remove
		return nil, nil
	case 0, 2:
	default:
		return nil, fmt.Errorf("objective mode %d", mode)
	}

	var f *Field
	if p.Legacy {
		if f, err = c.legacy(rules.ScoreboardTitle, 32); err != nil {
			return nil, err
		}
		_, err = c.str(16)
	} else {
		if f, err = c.chat(rules.ScoreboardTitle, p.ChatMaxLength); err != nil {
			return nil, err
		}
		_, err = c.varint()
	}
	if err != nil {
		return nil, err
	}
	return one(f, c.end())
}

func updateScoreLayout(c *cursor, p *packets.Profile) ([]*Field, error) {
	f, err := c.legacy(rules.ScoreboardLine, 40)
	if err != nil {
		return nil, err
	}
	action, err := c.u8()
	if err != nil {
		return nil, err
	}
	if _, err = c.str(16); err != nil {
		return nil, err
	}
	if action != 1 {
		if _, err = c.varint(); err != nil {
			return nil, err
		}
	}
	return one(f, c.end())
}

func titleLayout(c *cursor, p *packets.Profile) ([]*Field, error) {
	action, err := c.varint()
	if err != nil {
		return nil, err
	}
	kind := rules.Title
	switch action {
	case 0, 1:
	case 2:
		kind = rules.ActionBar
	default: // times, hide, reset
		return nil, nil
	}
	f, err := c.chat(kind, p.ChatMaxLength)
	if err != nil {
		return nil, err
	}
	return one(f, c.end())
}

func headerFooterLayout(c *cursor, p *packets.Profile) ([]*Field, error) {
	header, err := c.chat(rules.TabList, p.ChatMaxLength)
	if err != nil {
		return nil, err
	}
	footer, err := c.chat(rules.TabList, p.ChatMaxLength)
	if err != nil {
		return nil, err
	}
	return []*Field{header, footer}, c.end()
}

const (
	playerInfoAdd         = 0
	playerInfoDisplayName = 3
)

func playerInfoLayout(c *cursor, p *packets.Profile) ([]*Field, error) {
	action, err := c.varint()
	if err != nil {
		return nil, err
	}
	if action != playerInfoAdd && action != playerInfoDisplayName {
		return nil, nil
	}
	count, err := c.count(17)
	if err != nil {
		return nil, err
	}

	var fields []*Field
	for i := 0; i < count; i++ {
		if err = c.skip(16); err != nil {
			return nil, err
		}
		if action == playerInfoAdd {
			if err = skipPlayerProfile(c); err != nil {
				return nil, err
			}
		}
		has, err := c.bool()
		if err != nil {
			return nil, err
		}
		if has {
			f, err := c.chat(rules.TabListEntry, p.ChatMaxLength)
			if err != nil {
				return nil, err
			}
			fields = append(fields, f)
		}
	}
	return fields, c.end()
}

// name, properties, gamemode and ping of an add player entry
func skipPlayerProfile(c *cursor) error {
	if _, err := c.str(16); err != nil {
		return err
	}
	props, err := c.count(3)
	if err != nil {
		return err
	}
	for i := 0; i < props; i++ {
		if _, err = c.str(32767); err != nil {
			return err
		}
		if _, err = c.str(32767); err != nil {
			return err
		}
		signed, err := c.bool()
		if err != nil {
			return err
		}
		if signed {
			if _, err = c.str(32767); err != nil {
				return err
			}
		}
	}
	if _, err = c.varint(); err != nil {
		return err
	}
	_, err = c.varint()
	return err
}

func openWindowLayout(c *cursor, p *packets.Profile) ([]*Field, error) {
	if p.Legacy {
		if _, err := c.u8(); err != nil {
			return nil, err
		}
		if _, err := c.str(32); err != nil {
			return nil, err
		}
		f, err := c.chat(rules.InventoryTitle, p.ChatMaxLength)
		if err != nil {
			return nil, err
		}
		// slot count, then the entity id for horse windows
		if r := c.remaining(); r != 1 && r != 5 {
			return nil, fmt.Errorf("open window tail of %d bytes", r)
		}
		return one(f, nil)
	}

	for i := 0; i < 2; i++ {
		if _, err := c.varint(); err != nil {
			return nil, err
		}
	}
	f, err := c.chat(rules.InventoryTitle, p.ChatMaxLength)
	if err != nil {
		return nil, err
	}
	return one(f, c.end())
}

const blockEntitySign = 9

func blockEntityLayout(c *cursor, p *packets.Profile) ([]*Field, error) {
	if err := c.skip(8); err != nil { // position
		return nil, err
	}
	action, err := c.u8()
	if err != nil {
		return nil, err
	}
	if action != blockEntitySign {
		return nil, nil
	}
	return signFields(c)
}
