package model

import (
	"math"
	"math/cmplx"
)

var (
	sqrt2   = math.Sqrt2
	sqrt2Pi = math.Sqrt(2 * math.Pi)
)

// Gaussian is the area-normalised Gaussian with integral amplitude.
func Gaussian(x, amplitude, center, sigma float64) float64 {
	d := x - center
	return amplitude / (sigma * sqrt2Pi) * math.Exp(-d*d/(2*sigma*sigma))
}

// Voigt is the area-normalised Voigt profile. A negative gamma mirrors the
// Lorentzian component and is used for the left-hand term of a peak pair.
func Voigt(x, amplitude, center, sigma, gamma float64) float64 {
	z := complex((x-center)/(sigma*sqrt2), gamma/(sigma*sqrt2))
	return amplitude * real(Faddeeva(z)) / (sigma * sqrt2Pi)
}

// Faddeeva approximates w(z) = exp(-z²) erfc(-iz) with Humlíček's W4
// rational approximation (relative accuracy around 1e-4). The lower
// half-plane uses w(z) = 2exp(-z²) - w(-z).
func Faddeeva(z complex128) complex128 {
	if imag(z) < 0 {
		return 2*cmplx.Exp(-z*z) - humlicek(-z)
	}
	return humlicek(z)
}

func humlicek(z complex128) complex128 {
	x, y := real(z), imag(z)
	t := complex(y, -x)
	s := math.Abs(x) + y

	switch {
	case s >= 15:
		return t * 0.5641896 / (0.5 + t*t)
	case s >= 5.5:
		u := t * t
		return t * (1.410474 + u*0.5641896) / (0.75 + u*(3+u))
	case y >= 0.195*math.Abs(x)-0.176:
		num := 16.4955 + t*(20.20933+t*(11.96482+t*(3.778987+t*0.5642236)))
		den := 16.4955 + t*(38.82363+t*(39.27121+t*(21.69274+t*(6.699398+t))))
		return num / den
	default:
		u := t * t
		num := t * (36183.31 - u*(3321.9905-u*(1540.787-u*(219.0313-u*(35.76683-u*(1.320522-u*0.56419))))))
		den := 32066.6 - u*(24322.84-u*(9022.228-u*(2186.181-u*(364.2191-u*(61.57037-u*(1.841439-u))))))
		return cmplx.Exp(u) - num/den
	}
}

// EvalBackground evaluates only the background terms at x.
func (p Params) EvalBackground(x float64) float64 {
	bg := p.Background
	return bg.Line +
		Gaussian(x, bg.Amplitude, p.Center, bg.Sigma) +
		Gaussian(x, bg.MeridianAmplitude1, p.Center, bg.MeridianSigma1) +
		Gaussian(x, bg.MeridianAmplitude2, p.Center, bg.MeridianSigma2)
}

// EvalPeaks evaluates only the peak pairs at x.
func (p Params) EvalPeaks(x float64) float64 {
	var sum float64
	for _, pk := range p.Peaks {
		if p.Shape == ShapeVoigt {
			sum += Voigt(x, pk.Amplitude, p.Center+pk.Offset, pk.Sigma, pk.Gamma)
			sum += Voigt(x, pk.Amplitude, p.Center-pk.Offset, pk.Sigma, -pk.Gamma)
			continue
		}
		sum += Gaussian(x, pk.Amplitude, p.Center+pk.Offset, pk.Sigma)
		sum += Gaussian(x, pk.Amplitude, p.Center-pk.Offset, pk.Sigma)
	}
	return sum
}

// Eval evaluates the full curve at x.
func (p Params) Eval(x float64) float64 {
	return p.EvalBackground(x) + p.EvalPeaks(x)
}

// Curve samples the full curve at 0..n-1.
func (p Params) Curve(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = p.Eval(float64(i))
	}
	return out
}

// BackgroundCurve samples the background terms at 0..n-1.
func (p Params) BackgroundCurve(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = p.EvalBackground(float64(i))
	}
	return out
}
