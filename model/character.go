package model

// Character is an entry of the server's character list.
type Character struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Taken       bool   `json:"taken,omitempty"`
}

// Roster is the character list the server sent on join. It is built
// explicitly and handed to whoever needs it.
type Roster struct {
	chars []Character
}

func NewRoster(chars ...Character) *Roster {
	return &Roster{chars: append([]Character(nil), chars...)}
}

// Set replaces the list.
func (r *Roster) Set(chars []Character) {
	r.chars = append(r.chars[:0], chars...)
}

func (r *Roster) Len() int {
	return len(r.chars)
}

// Valid reports whether id indexes the list.
func (r *Roster) Valid(id int) bool {
	return id >= 0 && id < len(r.chars)
}

// Get returns the character at id, or false when out of range.
func (r *Roster) Get(id int) (Character, bool) {
	if !r.Valid(id) {
		return Character{}, false
	}
	return r.chars[id], true
}

// CharacterInfo is what a character sheet (char.yaml) declares.
type CharacterInfo struct {
	Name     string `yaml:"name" mapstructure:"name"`
	Showname string `yaml:"showname" mapstructure:"showname"`
	Gender   string `yaml:"gender" mapstructure:"gender"`
	Side     string `yaml:"side" mapstructure:"side"`
	Chat     string `yaml:"chat" mapstructure:"chat"`

	// Effects maps a 1-based effect index to a character-specific overlay.
	Effects map[int]EffectOverlay `yaml:"effects" mapstructure:"effects"`
	Emotes  []Emote               `yaml:"emotes" mapstructure:"emotes"`
}

// DisplayName is the showname, or the folder name when none is declared.
func (c CharacterInfo) DisplayName() string {
	if c.Showname != "" {
		return c.Showname
	}
	return c.Name
}

// EffectOverlay overrides the image and sound of a theme effect.
type EffectOverlay struct {
	Name  string `yaml:"name" mapstructure:"name"`
	Sound string `yaml:"sound" mapstructure:"sound"`
	X     int    `yaml:"x" mapstructure:"x"`
	Y     int    `yaml:"y" mapstructure:"y"`
}

// Emote is one selectable pose of a character.
type Emote struct {
	Comment  string        `yaml:"comment" mapstructure:"comment"`
	Anim     string        `yaml:"anim" mapstructure:"anim"`
	Dialog   string        `yaml:"dialog" mapstructure:"dialog"`
	Modifier EmoteModifier `yaml:"modifier" mapstructure:"modifier"`
	// Desk is "0" (hide), "1" (show) or empty to let the position decide.
	Desk       string `yaml:"desk" mapstructure:"desk"`
	Sound      string `yaml:"sound" mapstructure:"sound"`
	SoundDelay int    `yaml:"soundDelay" mapstructure:"soundDelay"`
	Video      string `yaml:"video" mapstructure:"video"`
}

// DeskField is the desk modifier as sent in an MS packet.
func (e Emote) DeskField() string {
	if e.Desk == "" {
		return "chat"
	}
	return e.Desk
}
