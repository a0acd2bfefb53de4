package chassis

import (
	"math"
	"strings"
	"testing"
)

func TestOffsets(t *testing.T) {
	g := Geometry{TrackWidth: 20, Wheelbase: 30}
	expectOffset(t, g, FrontLeft, -10, 15)
	expectOffset(t, g, FrontRight, 10, 15)
	expectOffset(t, g, BackLeft, -10, -15)
	expectOffset(t, g, BackRight, 10, -15)

	for _, r := range AllRoles {
		x, y := g.Offset(r)
		if math.Abs(math.Hypot(x, y)-g.Radius()) > 1e-9 {
			t.Errorf("%v is not on the pivot circle", r)
		}
	}
}

func expectOffset(t *testing.T, g Geometry, r Role, ex, ey float64) {
	x, y := g.Offset(r)
	if x != ex || y != ey {
		t.Errorf("Offset(%v) = (%f, %f), expected (%f, %f)", r, x, y, ex, ey)
	}
}

func TestParseRole(t *testing.T) {
	for _, r := range AllRoles {
		for _, s := range []string{r.Short(), r.String(), strings.ToUpper(r.Short())} {
			parsed, err := ParseRole(s)
			if err != nil {
				t.Fatalf("ParseRole(%q) failed: %v", s, err)
			}
			if parsed != r {
				t.Errorf("ParseRole(%q) = %v, expected %v", s, parsed, r)
			}
		}
	}
	if _, err := ParseRole("middle"); err == nil {
		t.Error("ParseRole should reject unknown names")
	}
	if Role(7).Valid() {
		t.Error("Role(7) should not be valid")
	}
}
