package bot

import "testing"

type pickSource struct {
	ints []int
}

func (p *pickSource) Float() float64 { return 0.5 }

func (p *pickSource) IntRange(min, max int) int {
	if len(p.ints) > 0 {
		v := p.ints[0]
		p.ints = p.ints[1:]
		return v
	}
	return min
}

func (p *pickSource) Bool(prob float64) bool { return false }

func (p *pickSource) Shuffle(n int, swap func(i, j int)) {}

func immuneSet(ids ...string) func(string) bool {
	set := map[string]bool{}
	for _, id := range ids {
		set[id] = true
	}
	return func(id string) bool { return set[id] }
}

func TestRedrawVictimsKeepsNonImmune(t *testing.T) {
	got := redrawVictims([]string{"v1", "v2"}, []string{"s1"}, immuneSet(), &pickSource{})
	if len(got) != 2 || got[0] != "v1" || got[1] != "v2" {
		t.Fatalf("no immunity must keep the drawn victims, got %v", got)
	}
}

func TestRedrawVictimsSwapsImmuneForSurvivor(t *testing.T) {
	got := redrawVictims([]string{"v1", "v2"}, []string{"s1", "s2"}, immuneSet("v1", "s1"), &pickSource{})
	if len(got) != 2 {
		t.Fatalf("expected a replacement draw, got %v", got)
	}
	for _, id := range got {
		if id == "v1" || id == "s1" {
			t.Fatalf("immune member %s must never end up a victim: %v", id, got)
		}
	}
	if got[0] != "s2" || got[1] != "v2" {
		t.Fatalf("expected s2 drafted in place of v1, got %v", got)
	}
}

func TestRedrawVictimsWithoutReplacementWalks(t *testing.T) {
	got := redrawVictims([]string{"v1"}, nil, immuneSet("v1"), &pickSource{})
	if len(got) != 0 {
		t.Fatalf("an immune victim with no replacement must walk, got %v", got)
	}
}
