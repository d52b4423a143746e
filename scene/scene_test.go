package scene

import (
	"os"
	"path/filepath"
	"testing"
)

// fakeFinder knows a fixed set of "background/<name>" assets.
type fakeFinder struct {
	files  map[string]string
	probes map[string]int
}

func newFakeFinder(files map[string]string) *fakeFinder {
	return &fakeFinder{files: files, probes: map[string]int{}}
}

func (f *fakeFinder) Find(category, name string) string {
	key := category + "/" + name
	f.probes[key]++
	return f.files[key]
}

func TestResolver_legacy(t *testing.T) {
	assets := newFakeFinder(map[string]string{
		"background/gs4/prosecutorempty": "/bg/gs4/prosecutorempty.png",
		"background/gs4/prosecutiondesk": "/bg/gs4/prosecutiondesk.png",
		"background/gs4/witnessempty":    "/bg/gs4/witnessempty.png",
		"background/gs4/defenseempty":    "/bg/gs4/defenseempty.png",
		"background/gs4/judgestand":      "/bg/gs4/judgestand.png",
		"background/gs4/stand":           "/bg/gs4/stand.png",
		"background/gs4/prohelperstand":  "/bg/gs4/prohelperstand.png",
		"background/gs4/prohelperdesk":   "/bg/gs4/prohelperdesk.png",
		"background/gs4/helperdesk":      "/bg/gs4/helperdesk.png",
		"background/gs4/helperstand":     "/bg/gs4/helperstand.png",
		"background/gs4/judgedesk":       "/bg/gs4/judgedesk.png",
		"background/other/witnessempty":  "/bg/other/witnessempty.png",
		"background/other/defensedesk":   "/bg/other/defensedesk.png",
	})

	tests := []struct {
		name       string
		position   string
		background string
		desk       string
		want       Scene
	}{
		{
			name:     "proDeskHidden",
			position: "pro", background: "gs4", desk: "0",
			want: Scene{Back: "/bg/gs4/prosecutorempty.png", BackVisible: true},
		},
		{
			name:     "proDeskShown",
			position: "pro", background: "gs4", desk: "1",
			want: Scene{Back: "/bg/gs4/prosecutorempty.png", BackVisible: true,
				Front: "/bg/gs4/prosecutiondesk.png", FrontVisible: true},
		},
		{
			name:     "unknownIsWitness",
			position: "jury", background: "gs4", desk: "chat",
			want: Scene{Back: "/bg/gs4/witnessempty.png", BackVisible: true,
				Front: "/bg/gs4/stand.png", FrontVisible: true},
		},
		{
			name:     "hlp",
			position: "hlp", background: "gs4", desk: "",
			want: Scene{Back: "/bg/gs4/prohelperstand.png", BackVisible: true,
				Front: "/bg/gs4/prohelperdesk.png", FrontVisible: true},
		},
		{
			name:     "missingBack",
			position: "def", background: "other", desk: "1",
			want: Scene{Front: "/bg/other/defensedesk.png", FrontVisible: true},
		},
		{
			name:     "missingBoth",
			position: "pro", background: "other", desk: "1",
			want: Scene{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(assets)
			got := r.Resolve(tt.position, tt.background, tt.desk)
			if got != tt.want {
				t.Errorf("Resolve() = %+v, want %+v", got, tt.want)
			}
			if !r.Legacy() {
				t.Errorf("Legacy() = false without positions file")
			}
		})
	}
}

func TestResolver_modern(t *testing.T) {
	dir := t.TempDir()
	positions := filepath.Join(dir, "positions.yaml")
	err := os.WriteFile(positions, []byte(`
def:
  back: defbg
  front: defdesk
wit:
  back: witbg
  front: missingdesk
`), 0o644)
	if err != nil {
		t.Fatal(err)
	}

	assets := newFakeFinder(map[string]string{
		"background/court/positions.yaml": positions,
		"background/court/defbg":   "/bg/court/defbg.png",
		"background/court/defdesk": "/bg/court/defdesk.png",
		"background/court/witbg":   "/bg/court/witbg.png",
	})
	r := NewResolver(assets)

	tests := []struct {
		name     string
		position string
		desk     string
		want     Scene
	}{
		{"def", "def", "1", Scene{Back: "/bg/court/defbg.png", BackVisible: true,
			Front: "/bg/court/defdesk.png", FrontVisible: true}},
		{"defDeskOff", "def", "0", Scene{Back: "/bg/court/defbg.png", BackVisible: true}},
		{"missingFront", "wit", "1", Scene{Back: "/bg/court/witbg.png", BackVisible: true}},
		{"unknownPosition", "jud", "1", Scene{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Resolve(tt.position, "court", tt.desk); got != tt.want {
				t.Errorf("Resolve() = %+v, want %+v", got, tt.want)
			}
		})
	}
	if r.Legacy() {
		t.Error("Legacy() = true with a positions file")
	}
}

func TestResolver_probesOnlyOnBackgroundChange(t *testing.T) {
	assets := newFakeFinder(map[string]string{})
	r := NewResolver(assets)

	for i := 0; i < 5; i++ {
		r.Resolve("def", "gs4", "1")
	}
	if n := assets.probes["background/gs4/"+PositionsFile]; n != 1 {
		t.Errorf("positions probed %d times for one background, want 1", n)
	}

	r.Resolve("def", "aj", "1")
	r.Resolve("def", "gs4", "1")
	if n := assets.probes["background/gs4/"+PositionsFile]; n != 2 {
		t.Errorf("positions probed %d times after switching back, want 2", n)
	}
	if r.Background() != "gs4" {
		t.Errorf("Background() = %q", r.Background())
	}
}

func TestResolver_badPositionsFileFallsBack(t *testing.T) {
	dir := t.TempDir()
	positions := filepath.Join(dir, "positions.yaml")
	if err := os.WriteFile(positions, []byte("def: [not, a, position"), 0o644); err != nil {
		t.Fatal(err)
	}
	assets := newFakeFinder(map[string]string{
		"background/broken/positions.yaml": positions,
		"background/broken/defenseempty": "/bg/broken/defenseempty.png",
	})
	r := NewResolver(assets)
	got := r.Resolve("def", "broken", "1")
	if !r.Legacy() || got.Back != "/bg/broken/defenseempty.png" {
		t.Errorf("Resolve() = %+v, legacy = %v", got, r.Legacy())
	}
}

func TestLegacyPosition(t *testing.T) {
	tests := []struct {
		token string
		want  Position
	}{
		{"wit", Position{"witnessempty", "stand"}},
		{"def", Position{"defenseempty", "defensedesk"}},
		{"pro", Position{"prosecutorempty", "prosecutiondesk"}},
		{"jud", Position{"judgestand", "judgedesk"}},
		{"hld", Position{"helperstand", "helperdesk"}},
		{"hlp", Position{"prohelperstand", "prohelperdesk"}},
		{"", Position{"witnessempty", "stand"}},
		{"sea", Position{"witnessempty", "stand"}},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			if got := LegacyPosition(tt.token); got != tt.want {
				t.Errorf("LegacyPosition(%q) = %+v, want %+v", tt.token, got, tt.want)
			}
		})
	}
}
