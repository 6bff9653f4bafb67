package rules

import (
	"errors"
	"fmt"
	"strings"
)

// TextKind is the purpose of a piece of player visible text. The set is
// closed; every kind has a case in the packet classifier.
type TextKind uint8

const (
	Chat TextKind = iota + 1
	SystemChat
	ActionBar
	Disconnect
	BossBar
	ScoreboardTitle
	ScoreboardLine
	Title
	TabList
	TabListEntry
	InventoryTitle
	SignLine
	kindEnd
)

// AnyKind is accepted in rule files and expands to one rule per kind.
const AnyKind = "any"

var ErrUnknownKind = errors.New("unknown text kind")

var kindNames = [kindEnd]string{
	Chat:            "chat",
	SystemChat:      "system_chat",
	ActionBar:       "action_bar",
	Disconnect:      "disconnect",
	BossBar:         "boss_bar",
	ScoreboardTitle: "scoreboard_title",
	ScoreboardLine:  "scoreboard_line",
	Title:           "title",
	TabList:         "tab_list",
	TabListEntry:    "tab_list_entry",
	InventoryTitle:  "inventory_title",
	SignLine:        "sign_line",
}

func (k TextKind) String() string {
	if k == 0 || k >= kindEnd {
		return fmt.Sprintf("TextKind(%d)", uint8(k))
	}
	return kindNames[k]
}

func (k TextKind) Valid() bool {
	return k > 0 && k < kindEnd
}

func ParseKind(name string) (TextKind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for k := Chat; k < kindEnd; k++ {
		if kindNames[k] == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

func AllKinds() []TextKind {
	kinds := make([]TextKind, 0, kindEnd-1)
	for k := Chat; k < kindEnd; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}
