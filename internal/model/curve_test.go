package model

import (
	"math"
	"math/cmplx"
	"testing"
)

func TestGaussianIsAreaNormalised(t *testing.T) {
	var sum float64
	for i := -200; i <= 200; i++ {
		sum += Gaussian(float64(i)*0.1, 7, 0, 2) * 0.1
	}
	if math.Abs(sum-7) > 1e-6 {
		t.Fatalf("integral = %v, want 7", sum)
	}
}

func TestFaddeevaKnownValues(t *testing.T) {
	if got := Faddeeva(0); cmplx.Abs(got-1) > 1e-4 {
		t.Fatalf("w(0) = %v, want 1", got)
	}
	for _, y := range []float64{0.3, 1, 3, 8, 20} {
		want := math.Exp(y*y) * math.Erfc(y)
		got := Faddeeva(complex(0, y))
		if math.Abs(real(got)-want)/want > 1e-3 || math.Abs(imag(got)) > 1e-6 {
			t.Errorf("w(%vi) = %v, want %v", y, got, want)
		}
	}
	for _, x := range []float64{0.5, 1.5, 4, 10} {
		got := real(Faddeeva(complex(x, 0)))
		want := math.Exp(-x * x)
		if math.Abs(got-want) > 1e-4 {
			t.Errorf("Re w(%v) = %v, want %v", x, got, want)
		}
	}
}

func TestFaddeevaLowerHalfPlaneIdentity(t *testing.T) {
	z := complex(0.7, -0.4)
	got := Faddeeva(z)
	want := 2*cmplx.Exp(-z*z) - Faddeeva(-z)
	if cmplx.Abs(got-want) > 1e-12 {
		t.Fatalf("w(%v) = %v, want %v", z, got, want)
	}
}

func TestVoigtApproachesGaussian(t *testing.T) {
	for _, x := range []float64{-6, -2, 0, 1, 3, 8} {
		g := Gaussian(x, 100, 0, 3)
		v := Voigt(x, 100, 0, 3, 0)
		if math.Abs(g-v) > 1e-3*Gaussian(0, 100, 0, 3) {
			t.Errorf("x=%v gaussian %v voigt %v", x, g, v)
		}
	}
	if Voigt(0, 100, 0, 3, 2) >= Voigt(0, 100, 0, 3, 0) {
		t.Fatal("Lorentzian broadening should lower the apex")
	}
}

func TestEvalSplitsBackgroundAndPeaks(t *testing.T) {
	p := Params{
		Center: 50,
		Shape:  ShapeGaussian,
		Background: Background{
			Line: 2, Sigma: 20, Amplitude: 300,
			MeridianSigma1: 5, MeridianAmplitude1: 40,
			MeridianSigma2: 2, MeridianAmplitude2: 10,
		},
		Peaks: []Peak{{Offset: 20, Sigma: 3, Amplitude: 80}},
	}
	for _, x := range []float64{0, 30, 50, 70, 99} {
		if got, want := p.Eval(x), p.EvalBackground(x)+p.EvalPeaks(x); math.Abs(got-want) > 1e-12 {
			t.Fatalf("Eval(%v) = %v, want %v", x, got, want)
		}
	}
	if math.Abs(p.EvalPeaks(30)-p.EvalPeaks(70)) > 1e-12 {
		t.Fatal("peak pair should be symmetric about the centre")
	}
	curve := p.BackgroundCurve(100)
	if len(curve) != 100 || math.Abs(curve[50]-p.EvalBackground(50)) > 1e-12 {
		t.Fatalf("background curve mismatch")
	}
}

func TestPinnedBackgroundIsFlat(t *testing.T) {
	p := Params{Center: 10, Background: PinnedBackground()}
	for _, x := range []float64{0, 10, 20} {
		if v := p.EvalBackground(x); v != 0 {
			t.Fatalf("pinned background at %v = %v, want 0", x, v)
		}
	}
}

func TestParseShape(t *testing.T) {
	cases := map[string]Shape{"": ShapeGaussian, "Gaussian": ShapeGaussian, " voigt ": ShapeVoigt}
	for in, want := range cases {
		got, err := ParseShape(in)
		if err != nil || got != want {
			t.Errorf("ParseShape(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseShape("lorentz"); err == nil {
		t.Fatal("expected error for unknown shape")
	}
}

func TestCloneCopiesPeaks(t *testing.T) {
	p := Params{Peaks: []Peak{{Offset: 1}}}
	c := p.Clone()
	c.Peaks[0].Offset = 9
	if p.Peaks[0].Offset != 1 {
		t.Fatal("Clone shares peak storage")
	}
}
