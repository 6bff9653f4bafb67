package utils

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var URL_EXPR = regexp.MustCompile("(https?\\://)?[a-zA-Z0-9\\-\\.]+\\.[a-zA-Z]{2,3}(/\\S*)?")
var http_prefix_expr = regexp.MustCompile(`https?://`)

type ChatPart struct {
	Text  string      `json:"text"`
	Extra []*ChatPart `json:"extra,omitempty"`
	// styles and colors
	Color         string `json:"color,omitempty"`
	Bold          bool   `json:"bold,omitempty"`
	Italic        bool   `json:"italic,omitempty"`
	Underlined    bool   `json:"underlined,omitempty"`
	Strikethrough bool   `json:"strikethrough,omitempty"`
	Obfuscated    bool   `json:"obfuscated,omitempty"`
	// Executes action after click: open_url, open_file, run_command, suggest_command
	ClickEvent *ChatAction `json:"clickEvent,omitempty"`
}

type ChatAction struct {
	Action string `json:"action"`
	Value  string `json:"value"`
}

var colorNames = map[rune]string{
	'0': "black",
	'1': "dark_blue",
	'2': "dark_green",
	'3': "dark_aqua",
	'4': "dark_red",
	'5': "dark_purple",
	'6': "gold",
	'7': "gray",
	'8': "dark_gray",
	'9': "blue",
	'a': "green",
	'b': "aqua",
	'c': "red",
	'd': "light_purple",
	'e': "yellow",
	'f': "white",
}

var colorCodes = func() map[string]rune {
	m := make(map[string]rune, len(colorNames))
	for code, name := range colorNames {
		m[name] = code
	}
	return m
}()

// convert old §-based chat to json format with clickable urls; §x§r§r§g§g§b§b
// sequences become hex colors
func Para2Json(text string) (result []byte, err error) {
	rdr := strings.NewReader(text + "§r")
	var parts []*ChatPart
	var bold, italic, underline, strike, obfuscated bool
	var color, buf string = "", ""

	flush := func() {
		if loc := URL_EXPR.FindStringIndex(buf); loc != nil {
			a, b := loc[0], loc[1]
			if buf[:a] != "" {
				parts = append(parts, &ChatPart{Text: buf[:a], Bold: bold, Italic: italic, Underlined: underline, Strikethrough: strike, Obfuscated: obfuscated, Color: color})
			}
			url := buf[a:b]
			if !http_prefix_expr.MatchString(url) {
				url = `http://` + url
			}
			p := &ChatPart{Text: buf[a:b], Bold: bold, Italic: italic, Underlined: underline, Strikethrough: strike, Obfuscated: obfuscated, Color: color}
			p.ClickEvent = &ChatAction{"open_url", url}
			parts = append(parts, p)
			buf = buf[b:]
		}
		if buf != "" {
			parts = append(parts, &ChatPart{Text: buf, Bold: bold, Italic: italic, Underlined: underline, Strikethrough: strike, Obfuscated: obfuscated, Color: color})
			buf = ""
		}
	}

	for rdr.Len() > 0 {
		char, _, err := rdr.ReadRune()
		if err != nil {
			return nil, err // invalid rune
		}
		if char != '§' { // non-control character, add to buffer
			buf += string(char)
			continue
		}

		flush()

		mode, _, err := rdr.ReadRune()
		if err != nil {
			mode = 'r'
		}
		switch mode {
		case 'k', 'K':
			obfuscated = true
		case 'l', 'L':
			bold = true
		case 'm', 'M':
			strike = true
		case 'n', 'N':
			underline = true
		case 'o', 'O':
			italic = true
		case 'x', 'X':
			if hex, ok := readHexColor(rdr); ok {
				bold, strike, underline, italic, obfuscated = false, false, false, false, false
				color = hex
			}
		default: // reset all styles on color change
			bold, strike, underline, italic, obfuscated = false, false, false, false, false
			if name, ok := colorNames[toLowerCode(mode)]; ok {
				color = name
			} else if mode == 'r' || mode == 'R' {
				color = ""
			}
		}
	}

	switch len(parts) {
	case 0:
		return json.Marshal(&ChatPart{})
	case 1:
		return json.Marshal(parts[0])
	}
	return json.Marshal(&ChatPart{Extra: parts})
}

func toLowerCode(r rune) rune {
	if r >= 'A' && r <= 'F' {
		return r + ('a' - 'A')
	}
	return r
}

// reads the six §N pairs following §x
func readHexColor(rdr *strings.Reader) (string, bool) {
	start := rdr.Size() - int64(rdr.Len())
	digits := make([]rune, 0, 6)
	for len(digits) < 6 {
		c, _, err := rdr.ReadRune()
		if err != nil || c != '§' {
			break
		}
		d, _, err := rdr.ReadRune()
		if err != nil || !strings.ContainsRune("0123456789abcdefABCDEF", d) {
			break
		}
		digits = append(digits, toLowerCode(d))
	}
	if len(digits) != 6 {
		rdr.Seek(start, 0)
		return "", false
	}
	return "#" + string(digits), true
}

// chatComponent covers the json chat fields that matter for legacy rendering.
type chatComponent struct {
	Text          string            `json:"text"`
	Translate     string            `json:"translate"`
	With          []json.RawMessage `json:"with"`
	Keybind       string            `json:"keybind"`
	Extra         []json.RawMessage `json:"extra"`
	Color         string            `json:"color"`
	Bold          *bool             `json:"bold"`
	Italic        *bool             `json:"italic"`
	Underlined    *bool             `json:"underlined"`
	Strikethrough *bool             `json:"strikethrough"`
	Obfuscated    *bool             `json:"obfuscated"`
}

type chatStyle struct {
	color                                               string
	bold, italic, underlined, strikethrough, obfuscated bool
}

func (s chatStyle) codes() string {
	var b strings.Builder
	switch {
	case s.color == "":
		b.WriteString("§r")
	case strings.HasPrefix(s.color, "#") && len(s.color) == 7:
		b.WriteString("§x")
		for _, d := range s.color[1:] {
			b.WriteRune('§')
			b.WriteRune(d)
		}
	default:
		code, ok := colorCodes[s.color]
		if !ok {
			code = 'r'
		}
		b.WriteRune('§')
		b.WriteRune(code)
	}
	if s.obfuscated {
		b.WriteString("§k")
	}
	if s.bold {
		b.WriteString("§l")
	}
	if s.strikethrough {
		b.WriteString("§m")
	}
	if s.underlined {
		b.WriteString("§n")
	}
	if s.italic {
		b.WriteString("§o")
	}
	return b.String()
}

// small subset of vanilla translations seen in server sent text
var translations = map[string]string{
	"chat.type.text":                         "<%s> %s",
	"chat.type.emote":                        "* %s %s",
	"chat.type.announcement":                 "[%s] %s",
	"chat.type.admin":                        "[%s: %s]",
	"multiplayer.player.joined":              "%s joined the game",
	"multiplayer.player.left":                "%s left the game",
	"multiplayer.disconnect.kicked":          "Kicked by an operator",
	"multiplayer.disconnect.server_shutdown": "Server closed",
	"multiplayer.disconnect.idling":          "You have been idle for too long!",
	"multiplayer.disconnect.outdated_client": "Outdated client! Please use %s",
	"disconnect.timeout":                     "Timed out",
}

type legacyWriter struct {
	b     strings.Builder
	last  chatStyle
	depth int
}

func (w *legacyWriter) text(s string, style chatStyle) {
	if s == "" {
		return
	}
	if style != w.last {
		w.b.WriteString(style.codes())
		w.last = style
	}
	w.b.WriteString(s)
}

func (w *legacyWriter) component(raw json.RawMessage, parent chatStyle) error {
	w.depth++
	defer func() { w.depth-- }()
	if w.depth > 64 {
		return fmt.Errorf("chat component nested too deep")
	}

	raw = json.RawMessage(strings.TrimSpace(string(raw)))
	if len(raw) == 0 {
		return fmt.Errorf("empty chat component")
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		w.text(s, parent)
		return nil
	case '[':
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil {
			return err
		}
		// the first element styles the rest
		if len(list) == 0 {
			return nil
		}
		first := parent
		if err := w.componentStyled(list[0], parent, &first); err != nil {
			return err
		}
		for _, item := range list[1:] {
			if err := w.component(item, first); err != nil {
				return err
			}
		}
		return nil
	case '{':
		return w.componentStyled(raw, parent, nil)
	default:
		// bare numbers and booleans render as text
		w.text(string(raw), parent)
		return nil
	}
}

func (w *legacyWriter) componentStyled(raw json.RawMessage, parent chatStyle, out *chatStyle) error {
	raw = json.RawMessage(strings.TrimSpace(string(raw)))
	if len(raw) == 0 || raw[0] != '{' {
		if out != nil {
			*out = parent
		}
		return w.component(raw, parent)
	}

	var c chatComponent
	if err := json.Unmarshal(raw, &c); err != nil {
		return err
	}
	style := parent
	if c.Color != "" {
		style.color = c.Color
	}
	setFlag(&style.bold, c.Bold)
	setFlag(&style.italic, c.Italic)
	setFlag(&style.underlined, c.Underlined)
	setFlag(&style.strikethrough, c.Strikethrough)
	setFlag(&style.obfuscated, c.Obfuscated)
	if out != nil {
		*out = style
	}

	switch {
	case c.Translate != "":
		if err := w.translate(c.Translate, c.With, style); err != nil {
			return err
		}
	case c.Keybind != "":
		w.text(c.Keybind, style)
	default:
		w.text(c.Text, style)
	}
	for _, extra := range c.Extra {
		if err := w.component(extra, style); err != nil {
			return err
		}
	}
	return nil
}

func (w *legacyWriter) translate(key string, with []json.RawMessage, style chatStyle) error {
	format, ok := translations[key]
	if !ok {
		format = key
	}
	next := 0
	for len(format) > 0 {
		i := strings.IndexByte(format, '%')
		if i < 0 || i == len(format)-1 {
			w.text(format, style)
			return nil
		}
		w.text(format[:i], style)
		format = format[i+1:]

		if format[0] == '%' {
			w.text("%", style)
			format = format[1:]
			continue
		}
		arg := -1
		if format[0] == 's' {
			arg = next
			next++
			format = format[1:]
		} else if j := strings.Index(format, "$s"); j > 0 {
			if n, err := strconv.Atoi(format[:j]); err == nil && n > 0 {
				arg = n - 1
				format = format[j+2:]
			}
		}
		if arg < 0 {
			w.text("%", style)
			continue
		}
		if arg < len(with) {
			if err := w.component(with[arg], style); err != nil {
				return err
			}
		}
	}
	return nil
}

func setFlag(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

// Json2Para flattens a json chat component into §-formatted legacy text.
// Formatting codes are emitted only where the style changes, so plain text
// components render as plain strings.
func Json2Para(data string) (string, error) {
	if !json.Valid([]byte(data)) {
		return "", fmt.Errorf("invalid chat json")
	}
	var w legacyWriter
	if err := w.component(json.RawMessage(data), chatStyle{}); err != nil {
		return "", err
	}
	return w.b.String(), nil
}

// IsJsonChat reports whether text is already a json chat object or array.
func IsJsonChat(text string) bool {
	t := strings.TrimSpace(text)
	if t == "" || (t[0] != '{' && t[0] != '[') {
		return false
	}
	return json.Valid([]byte(t))
}
