package clothing

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/bxcodec/faker/v4"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
)

type testGarment struct {
	id        string
	name      string
	typ       string
	style     string
	coveredBy string
}

func (g *testGarment) Tag(category string) string {
	if category == "clothing" {
		return g.typ
	}
	return ""
}

func (g *testGarment) GetId() string          { return g.id }
func (g *testGarment) GetName() string        { return g.name }
func (g *testGarment) GetWornStyle() string   { return g.style }
func (g *testGarment) SetWornStyle(s string)  { g.style = s }
func (g *testGarment) GetCoveredBy() string   { return g.coveredBy }
func (g *testGarment) SetCoveredBy(id string) { g.coveredBy = id }

type describedGarment struct {
	*testGarment
	desc string
}

func (g describedGarment) WornDesc() string {
	desc := strings.ToLower(g.desc[:1]) + strings.TrimRight(g.desc[1:], ".!?")
	if g.style != "" {
		return desc + " " + g.style
	}
	return desc
}

func garment(name, typ string) *testGarment {
	return &testGarment{id: strings.ReplaceAll(name, " ", "-"), name: name, typ: typ}
}

func ids(garments []Garment) []string {
	result := []string{}
	for _, g := range garments {
		result = append(result, g.GetId())
	}
	return result
}

func isViolation(t *testing.T, err error, want string) {
	t.Helper()
	if err == nil {
		t.Fatalf("got nil, want violation %q", want)
	}
	if !IsViolation(err) {
		t.Fatalf("got %v, want a Violation", err)
	}
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestHandler(t *testing.T) {
	shirtG := garment("test shirt", "top")
	shirt := describedGarment{testGarment: shirtG, desc: "An ordinary shirt."}
	pantsG := garment("test pants", "bottom")
	pants := describedGarment{testGarment: pantsG, desc: "A pair of pants."}
	ring := garment("test ring", "jewelry")

	h := New(DefaultConfig(), "Wearer")

	if got := h.Add(shirt, "", false); got != "Wearer puts on a test shirt." {
		t.Errorf("got %q", got)
	}
	if got := h.Add(shirt, "hanging loosely", false); got != "Wearer adjusts a test shirt." {
		t.Errorf("got %q", got)
	}
	if shirtG.style != "hanging loosely" {
		t.Errorf("got style %q", shirtG.style)
	}
	if err := h.CanAdd(ring); err != nil {
		t.Errorf("got %v, want nil", err)
	}

	h.Add(pants, "", false)

	if err := h.CanCover(pants, shirt); err != nil {
		t.Errorf("got %v, want nil", err)
	}
	isViolation(t, h.CanCover(pants, ring), "You can't cover anything with a test ring.")

	pantsG.coveredBy = shirt.GetId()
	isViolation(t, h.CanRemove(pants), "You can't remove that, it's covered by your test shirt.")
	if err := h.CanRemove(shirt); err != nil {
		t.Errorf("got %v, want nil", err)
	}
	isViolation(t, h.CanRemove(ring), "You're not wearing that.")

	h.Add(ring, "", false)

	if diff := cmp.Diff(ids(h.All()), []string{"test-shirt", "test-pants", "test-ring"}); diff != "" {
		t.Errorf("All: %s", diff)
	}
	if diff := cmp.Diff(ids(h.Visible()), []string{"test-shirt", "test-ring"}); diff != "" {
		t.Errorf("Visible: %s", diff)
	}
	if diff := cmp.Diff(h.Render(true), []string{"a test ring", "an ordinary shirt hanging loosely"}); diff != "" {
		t.Errorf("Render: %s", diff)
	}
	pantsG.coveredBy = ""
	if diff := cmp.Diff(h.Render(true), []string{"a test ring", "an ordinary shirt hanging loosely", "a pair of pants"}); diff != "" {
		t.Errorf("Render: %s", diff)
	}

	pantsG.coveredBy = shirt.GetId()
	if _, err := h.Remove(shirt, true); err != nil {
		t.Fatal(err)
	}
	if pantsG.coveredBy != "" {
		t.Errorf("pants still covered by %q", pantsG.coveredBy)
	}
	if shirtG.style != "" {
		t.Errorf("shirt still styled %q", shirtG.style)
	}
	if diff := cmp.Diff(ids(h.All()), []string{"test-pants", "test-ring"}); diff != "" {
		t.Errorf("All: %s", diff)
	}
	if got := h.CountType("jewelry"); got != 1 {
		t.Errorf("got %v, want 1", got)
	}

	h.Clear()
	if len(h.All()) != 0 {
		t.Errorf("got %v, want nothing", ids(h.All()))
	}
}

func TestCommandFlow(t *testing.T) {
	hat := garment("test hat", "hat")
	scarf := garment("test scarf", "accessory")
	h := New(DefaultConfig(), "Wearer")

	if got := h.Add(hat, "", false); got != "Wearer puts on a test hat." {
		t.Errorf("got %q", got)
	}
	h.Add(scarf, "stylishly", false)
	if scarf.style != "stylishly" {
		t.Errorf("got %q", scarf.style)
	}
	msg, err := h.Cover(hat, scarf)
	if err != nil {
		t.Fatal(err)
	}
	if msg != "Wearer covers a test hat with a test scarf." {
		t.Errorf("got %q", msg)
	}
	isViolation(t, h.CanRemove(hat), "You can't remove that, it's covered by your test scarf.")
	if msg, err = h.Remove(scarf, false); err != nil {
		t.Fatal(err)
	} else if msg != "Wearer removes a test scarf, revealing a test hat." {
		t.Errorf("got %q", msg)
	}

	h.Add(scarf, "", true)
	hat.coveredBy = scarf.id
	if msg, err = h.Uncover(hat); err != nil {
		t.Fatal(err)
	} else if msg != "Wearer uncovers a test hat." {
		t.Errorf("got %q", msg)
	}
	_, err = h.Uncover(hat)
	isViolation(t, err, "Your test hat isn't covered by anything.")
}

func TestScenarioTypeLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TypeLimits = map[Type]int{"hat": 1}
	h := New(cfg, "Wearer")
	hat := garment("hat", "hat")
	if err := h.CanAdd(hat); err != nil {
		t.Fatalf("got %v, want nil", err)
	}
	h.Add(hat, "", true)
	if got := h.CountType("hat"); got != 1 {
		t.Errorf("got %v, want 1", got)
	}
	isViolation(t, h.CanAdd(garment("other hat", "hat")), "You can't wear any more of those.")
	// Adjusting a worn item isn't a new item.
	if err := h.CanAdd(hat); err != nil {
		t.Errorf("got %v, want nil", err)
	}
}

func TestTotalLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TotalLimit = 2
	h := New(cfg, "Wearer", garment("a", "top"), garment("b", "top"))
	isViolation(t, h.CanAdd(garment("c", "top")), "You can't wear anything else.")
	cfg.TotalLimit = 0
	if err := h.CanAdd(garment("c", "top")); err != nil {
		t.Errorf("got %v, want nil", err)
	}
}

func TestNotClothes(t *testing.T) {
	h := New(DefaultConfig(), "Wearer")
	isViolation(t, h.CanAdd(garment("rock", "")), "You can't wear that.")

	cfg := DefaultConfig()
	cfg.Types = []Type{"hat"}
	h = New(cfg, "Wearer")
	isViolation(t, h.CanAdd(garment("cape", "cape")), "You can't wear that.")
	if err := h.CanAdd(garment("hat", "HAT ")); err != nil {
		t.Errorf("got %v, want nil", err)
	}
}

func TestScenarioAutoCover(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AutoCover = map[Type][]Type{"fullbody": {"top"}}
	h := New(cfg, "Wearer")
	shirt := garment("shirt", "top")
	jacket := garment("jacket", "fullbody")
	h.Add(shirt, "", true)
	if got := h.Add(jacket, "", false); got != "Wearer puts on a jacket, covering a shirt." {
		t.Errorf("got %q", got)
	}
	if shirt.coveredBy != jacket.id {
		t.Errorf("got %q, want %q", shirt.coveredBy, jacket.id)
	}
	if diff := cmp.Diff(ids(h.Visible()), []string{"jacket"}); diff != "" {
		t.Errorf("Visible: %s", diff)
	}
}

func TestAutoCoverMany(t *testing.T) {
	h := New(DefaultConfig(), "Wearer")
	undershirt := garment("undershirt", "undershirt")
	underpants := garment("underpants", "underpants")
	h.Add(undershirt, "", true)
	h.Add(underpants, "", true)
	if got := h.Add(garment("boiler suit", "fullbody"), "", false); got != "Wearer puts on a boiler suit, covering an undershirt and an underpants." {
		t.Errorf("got %q", got)
	}
}

func TestAutoCoverOnlyOnNewAdd(t *testing.T) {
	h := New(DefaultConfig(), "Wearer")
	top := garment("top", "top")
	h.Add(top, "", true)
	undershirt := garment("undershirt", "undershirt")
	h.Add(undershirt, "", true)
	if got := h.Add(top, "loosely", false); got != "Wearer adjusts a top." {
		t.Errorf("got %q", got)
	}
	if undershirt.coveredBy != "" {
		t.Errorf("adjusting covered %q", undershirt.id)
	}
}

func TestAutoCoverSkipsCoveringItems(t *testing.T) {
	h := New(DefaultConfig(), "Wearer")
	undershirt := garment("undershirt", "undershirt")
	pants := garment("pants", "bottom")
	h.Add(undershirt, "", true)
	h.Add(pants, "", true)
	if _, err := h.Cover(pants, undershirt); err != nil {
		t.Fatal(err)
	}
	top := garment("top", "top")
	if got := h.Add(top, "", false); got != "Wearer puts on a top." {
		t.Errorf("got %q", got)
	}
	if undershirt.coveredBy != "" {
		t.Errorf("undershirt covered by %q while covering pants", undershirt.coveredBy)
	}
	if err := h.Check(); err != nil {
		t.Error(err)
	}
}

func TestScenarioCoverWithUnworn(t *testing.T) {
	h := New(DefaultConfig(), "Wearer")
	pants := garment("pants", "bottom")
	shirt := garment("shirt", "top")
	h.Add(pants, "", true)
	if err := h.CanCover(pants, shirt); err != nil {
		t.Fatalf("got %v, want nil", err)
	}
	if _, err := h.Cover(pants, shirt); err != nil {
		t.Fatal(err)
	}
	if pants.coveredBy != shirt.id {
		t.Errorf("got %q, want %q", pants.coveredBy, shirt.id)
	}
	if diff := cmp.Diff(ids(h.All()), []string{"pants", "shirt"}); diff != "" {
		t.Errorf("All: %s", diff)
	}
}

func TestCoverWithUnwornRespectsLimits(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TotalLimit = 1
	h := New(cfg, "Wearer")
	pants := garment("pants", "bottom")
	h.Add(pants, "", true)
	_, err := h.Cover(pants, garment("shirt", "top"))
	isViolation(t, err, "You can't wear anything else.")
	if pants.coveredBy != "" {
		t.Errorf("pants covered by %q after rejection", pants.coveredBy)
	}
}

func TestScenarioCascadingRemove(t *testing.T) {
	h := New(DefaultConfig(), "Wearer")
	pants := garment("pants", "bottom")
	shirt := garment("shirt", "top")
	h.Add(pants, "", true)
	if _, err := h.Cover(pants, shirt); err != nil {
		t.Fatal(err)
	}
	if err := h.CanRemove(shirt); err != nil {
		t.Fatalf("got %v, want nil", err)
	}
	isViolation(t, h.CanRemove(pants), "You can't remove that, it's covered by your shirt.")
	msg, err := h.Remove(shirt, false)
	if err != nil {
		t.Fatal(err)
	}
	if msg != "Wearer removes a shirt, revealing a pants." {
		t.Errorf("got %q", msg)
	}
	if pants.coveredBy != "" {
		t.Errorf("got %q, want nothing", pants.coveredBy)
	}
}

func TestScenarioRenderOrder(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TypeOrder = []Type{"hat", "top"}
	h := New(cfg, "Wearer", garment("shirt", "top"), garment("cap", "hat"), garment("watch", "accessory"))
	if diff := cmp.Diff(h.Render(true), []string{"a cap", "a shirt", "a watch"}); diff != "" {
		t.Errorf("Render: %s", diff)
	}
	if diff := cmp.Diff(h.Render(false), []string{"a shirt", "a cap", "a watch"}); diff != "" {
		t.Errorf("Render unsorted: %s", diff)
	}
	cfg.TypeOrder = nil
	if diff := cmp.Diff(h.Render(true), []string{"a shirt", "a cap", "a watch"}); diff != "" {
		t.Errorf("Render without order: %s", diff)
	}
}

func TestCanCover(t *testing.T) {
	for _, tc := range []struct {
		name    string
		setup   func(h *Handler, a, b *testGarment)
		bType   string
		wantErr string
	}{
		{
			name:  "ok",
			bType: "top",
		},
		{
			name: "already covered",
			setup: func(h *Handler, a, b *testGarment) {
				c := garment("coat", "fullbody")
				h.Add(c, "", true)
				a.coveredBy = c.id
			},
			bType:   "top",
			wantErr: "Your a is already covered by a coat.",
		},
		{
			name:    "not clothes",
			bType:   "",
			wantErr: "Your b isn't clothes.",
		},
		{
			name:    "no cover type",
			bType:   "jewelry",
			wantErr: "You can't cover anything with a b.",
		},
		{
			name: "cover with covered",
			setup: func(h *Handler, a, b *testGarment) {
				c := garment("coat", "fullbody")
				h.Add(b, "", true)
				h.Add(c, "", true)
				b.coveredBy = c.id
			},
			bType:   "top",
			wantErr: "Your b is covered by a coat.",
		},
		{
			name: "cover an item that covers",
			setup: func(h *Handler, a, b *testGarment) {
				c := garment("socks", "socks")
				h.Add(c, "", true)
				c.coveredBy = a.id
			},
			bType:   "top",
			wantErr: "Your a is already covering something.",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			h := New(DefaultConfig(), "Wearer")
			a := garment("a", "bottom")
			b := garment("b", tc.bType)
			h.Add(a, "", true)
			if tc.setup != nil {
				tc.setup(h, a, b)
			}
			err := h.CanCover(a, b)
			if tc.wantErr == "" {
				if err != nil {
					t.Errorf("got %v, want nil", err)
				}
				return
			}
			isViolation(t, err, tc.wantErr)
		})
	}
	h := New(DefaultConfig(), "Wearer")
	a := garment("a", "bottom")
	h.Add(a, "", true)
	isViolation(t, h.CanCover(a, a), "You can't cover an item with itself.")
}

func TestUncoverTooManyLayers(t *testing.T) {
	h := New(DefaultConfig(), "Wearer")
	a := garment("a", "bottom")
	b := garment("b", "top")
	c := garment("c", "fullbody")
	h.Add(a, "", true)
	h.Add(b, "", true)
	h.Add(c, "", true)
	// Forced into a state the handler itself never produces.
	a.coveredBy = b.id
	b.coveredBy = c.id
	_, err := h.Uncover(a)
	isViolation(t, err, "Your a is under too many layers to uncover.")
	if h.Check() == nil {
		t.Errorf("Check accepted depth two")
	}
	touched := h.Repair()
	if diff := cmp.Diff(touched, []string{"a"}); diff != "" {
		t.Errorf("Repair: %s", diff)
	}
	if err := h.Check(); err != nil {
		t.Error(err)
	}
}

func TestRemoveNotWorn(t *testing.T) {
	h := New(DefaultConfig(), "Wearer")
	_, err := h.Remove(garment("ghost", "hat"), false)
	if !errors.Is(err, ErrNotWorn) {
		t.Errorf("got %v, want %v", err, ErrNotWorn)
	}
	if IsViolation(err) {
		t.Errorf("%v is a violation", err)
	}
}

func TestRepairDangling(t *testing.T) {
	a := garment("a", "top")
	a.coveredBy = "gone"
	h := New(DefaultConfig(), "Wearer", a, a)
	if diff := cmp.Diff(h.Repair(), []string{"a", "a"}); diff != "" {
		t.Errorf("Repair: %s", diff)
	}
	if diff := cmp.Diff(ids(h.All()), []string{"a"}); diff != "" {
		t.Errorf("All: %s", diff)
	}
}

func TestCanStyle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StyleMaxLength = 5
	h := New(cfg, "Wearer")
	if err := h.CanStyle("tight"); err != nil {
		t.Errorf("got %v", err)
	}
	isViolation(t, h.CanStyle("too long"), "Please keep your wear style message to less than 5 characters.")
	cfg.StyleMaxLength = 0
	isViolation(t, h.CanStyle("x"), "Wear styles are disabled.")
	if err := h.CanStyle(""); err != nil {
		t.Errorf("got %v", err)
	}
}

func TestAddRemoveRoundTrip(t *testing.T) {
	h := New(DefaultConfig(), "Wearer", garment("shirt", "top"), garment("pants", "bottom"))
	before := ids(h.All())
	g := garment("boots", "shoes")
	h.Add(g, "", true)
	if _, err := h.Remove(g, true); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(ids(h.All()), before); diff != "" {
		t.Errorf("All: %s", diff)
	}
}

func TestAdjustNeverDuplicates(t *testing.T) {
	h := New(DefaultConfig(), "Wearer")
	g := garment("scarf", "accessory")
	h.Add(g, "", true)
	h.Add(g, "loosely", true)
	h.Add(g, "loosely", true)
	if diff := cmp.Diff(ids(h.All()), []string{"scarf"}); diff != "" {
		t.Errorf("All: %s", diff)
	}
}

// TestRandomOperations applies random operations, wearing in random styles,
// and checks the layering invariants after each of them.
func TestRandomOperations(t *testing.T) {
	types := []string{"hat", "top", "undershirt", "fullbody", "bottom", "underpants", "socks", "shoes", "jewelry", "accessory"}
	rng := rand.New(rand.NewPCG(1, 2))
	for round := 0; round < 50; round++ {
		pool := []*testGarment{}
		for i := 0; i < 12; i++ {
			pool = append(pool, garment(fmt.Sprintf("g%d", i), types[rng.IntN(len(types))]))
		}
		h := New(DefaultConfig(), "Wearer")
		for step := 0; step < 200; step++ {
			a := pool[rng.IntN(len(pool))]
			b := pool[rng.IntN(len(pool))]
			switch rng.IntN(4) {
			case 0:
				if h.CanAdd(a) == nil {
					style := faker.Word()
					h.Add(a, style, true)
					if a.style != style {
						t.Fatalf("round %d step %d: %q worn %q, want %q", round, step, a.id, a.style, style)
					}
				}
			case 1:
				if h.CanRemove(a) == nil {
					if _, err := h.Remove(a, true); err != nil {
						t.Fatal(err)
					}
				}
			case 2:
				if _, err := h.Cover(a, b); err != nil && !IsViolation(err) {
					t.Fatal(err)
				}
			case 3:
				if _, err := h.Uncover(a); err != nil && !IsViolation(err) {
					t.Fatal(err)
				}
			}
			if err := h.Check(); err != nil {
				t.Fatalf("round %d step %d: %v", round, step, err)
			}
			for _, g := range pool {
				if !h.Has(g) && (g.coveredBy != "" || g.style != "") {
					t.Fatalf("round %d step %d: unworn %q has state %+v", round, step, g.id, g)
				}
			}
		}
	}
}
