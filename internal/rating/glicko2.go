// Package rating scores guests against the computer opponent with Glicko-2.
package rating

import "math"

const (
	// GlickoScale converts between the 1500-based display scale and Glicko-2's mu.
	GlickoScale = 173.7178
	// DefaultElo is where every guest starts.
	DefaultElo = 1500.0
	// DefaultRD is the starting rating deviation.
	DefaultRD = 350.0
	// DefaultSigma is the starting volatility.
	DefaultSigma = 0.06
	// Tau constrains volatility changes.
	Tau = 0.5
	// Epsilon is the convergence tolerance of the volatility iteration.
	Epsilon = 0.000001
)

// Opponent is the fixed strength assigned to the rule-based opponent. It never
// changes, so a guest's rating measures them against one yardstick.
var Opponent = Rating{Elo: 1500, RD: 60, Sigma: DefaultSigma}

// Rating is a guest's standing on the display scale.
type Rating struct {
	Elo   float64 `json:"elo"`
	RD    float64 `json:"rd"`
	Sigma float64 `json:"sigma"`
}

// Default is the rating of a guest with no finished games.
func Default() Rating {
	return Rating{Elo: DefaultElo, RD: DefaultRD, Sigma: DefaultSigma}
}

// glicko2 holds a rating in Glicko-2 space.
type glicko2 struct {
	mu    float64
	phi   float64
	sigma float64
}

func (r Rating) toGlicko2() glicko2 {
	return glicko2{
		mu:    (r.Elo - DefaultElo) / GlickoScale,
		phi:   r.RD / GlickoScale,
		sigma: r.Sigma,
	}
}

func (r glicko2) toRating() Rating {
	return Rating{
		Elo:   r.mu*GlickoScale + DefaultElo,
		RD:    r.phi * GlickoScale,
		Sigma: r.sigma,
	}
}

// AfterGame returns r updated for one game against Opponent.
func AfterGame(r Rating, won bool) Rating {
	if r.RD <= 0 || r.Sigma <= 0 {
		r = Default()
	}
	score := 0.0
	if won {
		score = 1
	}
	return update(r.toGlicko2(), Opponent.toGlicko2(), score).toRating()
}

// Expected is the probability r beats Opponent.
func Expected(r Rating) float64 {
	p, o := r.toGlicko2(), Opponent.toGlicko2()
	return e(p.mu, o.mu, o.phi)
}

// update performs a single-match Glicko-2 step, including the volatility
// iteration (Illinois method).
func update(r, opp glicko2, score float64) glicko2 {
	gVal := g(opp.phi)
	eVal := e(r.mu, opp.mu, opp.phi)

	v := 1.0 / (gVal * gVal * eVal * (1 - eVal))
	delta := v * gVal * (score - eVal)

	a := math.Log(r.sigma * r.sigma)
	fx := func(x float64) float64 { return f(x, r.phi, v, delta, a) }

	A := a
	var B float64
	if delta*delta > r.phi*r.phi+v {
		B = math.Log(delta*delta - r.phi*r.phi - v)
	} else {
		k := 1.0
		for fx(a-k*Tau) < 0 {
			k++
		}
		B = a - k*Tau
	}

	fA, fB := fx(A), fx(B)
	for i := 0; i < 100 && math.Abs(B-A) > Epsilon; i++ {
		C := A + (A-B)*fA/(fB-fA)
		fC := fx(C)
		if fC*fB <= 0 {
			A, fA = B, fB
		} else {
			fA /= 2
		}
		B, fB = C, fC
	}

	sigma := math.Exp(A / 2)
	phiStar := math.Sqrt(r.phi*r.phi + sigma*sigma)
	phi := 1.0 / math.Sqrt(1.0/(phiStar*phiStar)+1.0/v)
	return glicko2{
		mu:    r.mu + phi*phi*gVal*(score-eVal),
		phi:   phi,
		sigma: sigma,
	}
}

// g is 1/sqrt(1+3phi^2/pi^2).
func g(phi float64) float64 {
	return 1.0 / math.Sqrt(1.0+3.0*phi*phi/math.Pi/math.Pi)
}

// e is the expected score 1/(1+exp[-g(phi2)*(mu-mu2)]).
func e(mu, mu2, phi2 float64) float64 {
	return 1.0 / (1.0 + math.Exp(-g(phi2)*(mu-mu2)))
}

// f is the volatility root-finding function.
func f(x, phi, v, delta, a float64) float64 {
	ex := math.Exp(x)
	num := ex * (delta*delta - phi*phi - v - ex)
	den := 2.0 * (phi*phi + v + ex) * (phi*phi + v + ex)
	return num/den - (x-a)/(Tau*Tau)
}
