// Package scene resolves the background and desk images of a position.
//
// A background may ship a positions.yaml:
//
//	def:
//	  back: defenseempty
//	  front: defensedesk
//	wit:
//	  back: witnessempty
//	  front: stand
//
// Backgrounds without one use the legacy fixed table.
package scene

import (
	"fmt"
	"io/fs"
	"os"
	"path"

	"golang.org/x/exp/slog"
	"gopkg.in/yaml.v3"
)

// PositionsFile is looked up inside each background.
const PositionsFile = "positions.yaml"

// Finder resolves an asset, returning "" when it does not exist.
type Finder interface {
	Find(category, name string) string
}

// Position is the image pair of one position token.
type Position struct {
	Back  string `yaml:"back"`
	Front string `yaml:"front"`
}

// Scene is what the stage should show. Hidden elements have an empty
// path and a false Visible flag.
type Scene struct {
	Back         string `json:"back"`
	Front        string `json:"front"`
	BackVisible  bool   `json:"backVisible"`
	FrontVisible bool   `json:"frontVisible"`
}

var legacyPositions = map[string]Position{
	"def": {Back: "defenseempty", Front: "defensedesk"},
	"pro": {Back: "prosecutorempty", Front: "prosecutiondesk"},
	"jud": {Back: "judgestand", Front: "judgedesk"},
	"hld": {Back: "helperstand", Front: "helperdesk"},
	"hlp": {Back: "prohelperstand", Front: "prohelperdesk"},
	"wit": {Back: "witnessempty", Front: "stand"},
}

// LegacyPosition returns the fixed image pair of token. Unknown tokens
// are witnesses.
func LegacyPosition(token string) Position {
	if p, ok := legacyPositions[token]; ok {
		return p
	}
	return legacyPositions["wit"]
}

// Resolver caches the positions of the current background. It probes
// the disk only when the background name changes.
type Resolver struct {
	assets Finder

	background string
	loaded     bool
	legacy     bool
	positions  map[string]Position
}

func NewResolver(assets Finder) *Resolver {
	return &Resolver{assets: assets}
}

// Resolve returns the scene of position in background. A desk modifier
// of "0" hides the front whatever the position says.
func (r *Resolver) Resolve(position, background, desk string) Scene {
	r.load(background)

	var p Position
	if r.legacy {
		p = LegacyPosition(position)
	} else {
		p = r.positions[position]
	}

	s := Scene{
		Back: r.find(background, p.Back),
	}
	s.BackVisible = s.Back != ""

	if desk != "0" {
		s.Front = r.find(background, p.Front)
		s.FrontVisible = s.Front != ""
	}
	return s
}

// Legacy reports whether the current background has no positions file.
func (r *Resolver) Legacy() bool {
	return r.legacy
}

// Background is the name of the cached background.
func (r *Resolver) Background() string {
	return r.background
}

func (r *Resolver) find(background, image string) string {
	if image == "" {
		return ""
	}
	return r.assets.Find("background", path.Join(background, image))
}

func (r *Resolver) load(background string) {
	if r.loaded && background == r.background {
		return
	}
	r.background = background
	r.loaded = true
	r.legacy = true
	r.positions = nil

	file := r.assets.Find("background", path.Join(background, PositionsFile))
	if file == "" {
		slog.Debug("[scene] legacy background", "background", background)
		return
	}

	positions, err := r.readPositions(file)
	if err != nil {
		slog.Warn("[scene] bad positions file, using legacy table", "file", file, "err", err)
		return
	}
	r.legacy = false
	r.positions = positions
	slog.Debug("[scene] positions loaded", "background", background, "positions", len(positions))
}

// readPositions reads through the finder when it is also a file system.
func (r *Resolver) readPositions(file string) (map[string]Position, error) {
	fsys, ok := r.assets.(fs.FS)
	if !ok {
		return ReadPositions(file)
	}
	b, err := fs.ReadFile(fsys, file)
	if err != nil {
		return nil, err
	}
	return parsePositions(file, b)
}

// ReadPositions parses a positions file.
func ReadPositions(file string) (map[string]Position, error) {
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	return parsePositions(file, b)
}

func parsePositions(file string, b []byte) (map[string]Position, error) {
	var positions map[string]Position
	if err := yaml.Unmarshal(b, &positions); err != nil {
		return nil, fmt.Errorf("parse %s: %w", file, err)
	}
	return positions, nil
}
