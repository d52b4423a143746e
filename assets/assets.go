// Package assets finds courtroom files under a base folder:
//
//	base/
//	  background/<bg>/          backgrounds and their positions.yaml
//	  characters/<char>/        emotes, shouts and char.yaml
//	  sounds/general/           sound effects and blips
//	  sounds/music/             songs
//	  videos/<char>/            character videos
//	  themes/<theme>/           shouts, banners and effects of the theme
//
// Paths are returned relative to base, slash separated, so the views
// can fetch them from wherever base is served.
package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sync"

	"courtroomdriver/model"

	"golang.org/x/exp/slog"
	"gopkg.in/yaml.v3"
)

// CharacterFile is the character sheet inside a character folder.
const CharacterFile = "char.yaml"

var (
	imageExts = []string{".webp", ".apng", ".gif", ".png"}
	soundExts = []string{".opus", ".ogg", ".mp3", ".wav"}
	videoExts = []string{".webm", ".mp4"}
)

// category is where a kind of asset lives and what it may be named.
type category struct {
	dirs []string
	exts []string
}

// Finder is a filesystem asset finder. It is safe for concurrent use.
type Finder struct {
	fsys       fs.FS
	categories map[string]category

	mu    sync.Mutex
	chars map[string]model.CharacterInfo
}

// NewFinder finds assets in fsys with theme as the current theme.
func NewFinder(fsys fs.FS, theme string) *Finder {
	themeDirs := []string{path.Join("themes", theme), "themes/default"}
	return &Finder{
		fsys: fsys,
		categories: map[string]category{
			"background":    {[]string{"background"}, imageExts},
			"character":     {[]string{"characters"}, imageExts},
			"character_sfx": {[]string{"characters"}, soundExts},
			"sfx":           {[]string{"sounds/general"}, soundExts},
			"music":         {[]string{"sounds/music"}, soundExts},
			"video":         {[]string{"videos"}, videoExts},
			"theme":         {themeDirs, append(append([]string{}, imageExts...), soundExts...)},
			"effect":        {append(prefixed(themeDirs, "effects"), "misc/effects"), imageExts},
		},
		chars: map[string]model.CharacterInfo{},
	}
}

// Open finds assets under the base folder dir.
func Open(dir, theme string) (*Finder, error) {
	st, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("assets: %w", err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("assets: %s is not a directory", dir)
	}
	return NewFinder(os.DirFS(dir), theme), nil
}

func prefixed(dirs []string, sub string) []string {
	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		out = append(out, path.Join(d, sub))
	}
	return out
}

// Find returns the path of name in category, trying name as it is and
// then with each extension of the category. It returns "" when there is
// no such file.
func (f *Finder) Find(cat, name string) string {
	c, ok := f.categories[cat]
	if !ok {
		slog.Debug("[assets] unknown category", "category", cat)
		return ""
	}
	if name == "" || !fs.ValidPath(name) {
		return ""
	}
	for _, dir := range c.dirs {
		base := path.Join(dir, name)
		if f.isFile(base) {
			return base
		}
		for _, ext := range c.exts {
			if f.isFile(base + ext) {
				return base + ext
			}
		}
	}
	return ""
}

func (f *Finder) isFile(name string) bool {
	st, err := fs.Stat(f.fsys, name)
	return err == nil && !st.IsDir()
}

// Open opens an asset path returned by Find, making a Finder an fs.FS.
func (f *Finder) Open(name string) (fs.File, error) {
	return f.fsys.Open(name)
}

// Character reads the character sheet of name. A missing or broken
// sheet gives a bare character.
func (f *Finder) Character(name string) model.CharacterInfo {
	f.mu.Lock()
	defer f.mu.Unlock()

	if info, ok := f.chars[name]; ok {
		return info
	}
	info, err := f.readCharacter(name)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("[assets] bad character sheet", "character", name, "err", err)
		}
		info = model.CharacterInfo{Name: name}
	}
	f.chars[name] = info
	return info
}

func (f *Finder) readCharacter(name string) (model.CharacterInfo, error) {
	var info model.CharacterInfo
	if name == "" || !fs.ValidPath(name) {
		return info, fs.ErrNotExist
	}
	data, err := fs.ReadFile(f.fsys, path.Join("characters", name, CharacterFile))
	if err != nil {
		return info, err
	}
	if err := yaml.Unmarshal(data, &info); err != nil {
		return info, err
	}
	if info.Name == "" {
		info.Name = name
	}
	return info, nil
}

// Forget drops the cached character sheets.
func (f *Finder) Forget() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chars = map[string]model.CharacterInfo{}
}
