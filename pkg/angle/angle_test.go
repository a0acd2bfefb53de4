package angle

import (
	"math"
	"testing"
)

func TestWrap360(t *testing.T) {
	expectWrap(t, 0, 0)
	expectWrap(t, 360, 0)
	expectWrap(t, 720, 0)
	expectWrap(t, 361, 1)
	expectWrap(t, -1, 359)
	expectWrap(t, -360, 0)
	expectWrap(t, -721, 359)
	expectWrap(t, math.Copysign(0, -1), 0)
	expectWrap(t, 359.5, 359.5)
}

func expectWrap(t *testing.T, in, expected float64) {
	out := Wrap360(in)
	if out < 0 || out >= 360 {
		t.Errorf("Wrap360(%f) = %f, out of [0, 360)", in, out)
	}
	if math.Signbit(out) {
		t.Errorf("Wrap360(%f) returned negative zero", in)
	}
	if math.Abs(out-expected) > 1e-9 {
		t.Errorf("Wrap360(%f) = %f, expected %f", in, out, expected)
	}
}

func TestMod(t *testing.T) {
	for _, m := range []float64{1, 7, 360, 4096} {
		for x := -3 * m; x <= 3*m; x += m / 8 {
			r := Mod(x, m)
			if r < 0 || r >= m {
				t.Fatalf("Mod(%f, %f) = %f, out of range", x, m, r)
			}
		}
	}
}

func TestFromFloat(t *testing.T) {
	expectPM180(t, 0, 0)
	expectPM180(t, 180, 180)
	expectPM180(t, -180, 180)
	expectPM180(t, 181, -179)
	expectPM180(t, -181, 179)
	expectPM180(t, 540, 180)
	expectPM180(t, 359, -1)
}

func expectPM180(t *testing.T, in, expected float64) {
	out := FromFloat(in).Float()
	if out <= -180 || out > 180 {
		t.Errorf("FromFloat(%f) = %f, out of (-180, 180]", in, out)
	}
	if math.Abs(out-expected) > 1e-9 {
		t.Errorf("FromFloat(%f) = %f, expected %f", in, out, expected)
	}
}

func TestShortestDelta(t *testing.T) {
	if d := ShortestDelta(10, 350); d != -20 {
		t.Errorf("10 -> 350 should be -20, got %f", d)
	}
	if d := ShortestDelta(350, 10); d != 20 {
		t.Errorf("350 -> 10 should be 20, got %f", d)
	}
	if d := ShortestDelta(170, 190); d != 20 {
		t.Errorf("170 -> 190 should be 20, got %f", d)
	}
	if d := ShortestDelta(0, 180); d != 180 {
		t.Errorf("0 -> 180 should be 180, got %f", d)
	}
}

func TestPlusMinus180Arithmetic(t *testing.T) {
	a := FromFloat(170)
	b := FromFloat(20)
	if s := a.Add(b).Float(); s != -170 {
		t.Errorf("170 + 20 should wrap to -170, got %f", s)
	}
	if s := b.Sub(a).Float(); s != -150 {
		t.Errorf("20 - 170 should be -150, got %f", s)
	}
	if w := FromFloat(-90).Wrap360(); w != 270 {
		t.Errorf("-90 should be 270 in [0, 360), got %f", w)
	}
}
