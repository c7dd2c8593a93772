package entities

// ActionLineKind distinguishes plain characters from pre-rendered blocks.
type ActionLineKind string

const (
	ActionLineChars ActionLineKind = "Chars"
	ActionLineBlock ActionLineKind = "Block"
)

// ActionLine is one fragment of a displayed line.
type ActionLine struct {
	Type ActionLineKind `cbor:"type" yaml:"type"`
	Data string         `cbor:"data" yaml:"data"`
}

// Chars returns a plain text fragment.
func Chars(s string) ActionLine {
	return ActionLine{Type: ActionLineChars, Data: s}
}

// Block returns a pre-rendered fragment.
func Block(s string) ActionLine {
	return ActionLine{Type: ActionLineBlock, Data: s}
}

// Switch is one selectable choice.
type Switch struct {
	Text    string `cbor:"text" yaml:"text"`
	Enabled bool   `cbor:"enabled" yaml:"enabled"`
}

// Action is what the frontend displays for one step of a paragraph.
type Action struct {
	Line      []ActionLine `cbor:"line" yaml:"line"`
	Character *string      `cbor:"character" yaml:"character,omitempty"`
	ParaTitle *string      `cbor:"para_title" yaml:"para_title,omitempty"`
	Switches  []Switch     `cbor:"switches" yaml:"switches"`
	Bg        *string      `cbor:"bg" yaml:"bg,omitempty"`
	Bgm       *string      `cbor:"bgm" yaml:"bgm,omitempty"`
	Video     *string      `cbor:"video" yaml:"video,omitempty"`
}

// Text concatenates the data of every line fragment.
func (a Action) Text() string {
	var n int
	for _, l := range a.Line {
		n += len(l.Data)
	}
	buf := make([]byte, 0, n)
	for _, l := range a.Line {
		buf = append(buf, l.Data...)
	}
	return string(buf)
}

// ActionProcessContext is passed to process_action of Action plugins.
type ActionProcessContext struct {
	GameProps    VarMap `cbor:"game_props"`
	FrontendType string `cbor:"frontend"`
	Action       Action `cbor:"action"`
}

// TextProcessContext is passed to text command handlers.
type TextProcessContext struct {
	GameProps    VarMap `cbor:"game_props"`
	FrontendType string `cbor:"frontend"`
}

// TextProcessResult is the rendered output of a text command.
type TextProcessResult struct {
	Line ActionLine `cbor:"line"`
}

// GameProcessContext is passed to process_game of Game plugins.
type GameProcessContext struct {
	Title  string `cbor:"title"`
	Author string `cbor:"author"`
	Props  VarMap `cbor:"props"`
}

// GameProcessResult carries properties a Game plugin adds to the game.
type GameProcessResult struct {
	Props VarMap `cbor:"props"`
}
