package simulator

import (
	"math"
	"math/rand"

	"github.com/gammazero/deque"
)

// HawkesProcess draws event times from a self-exciting point process.
// Intensity only looks at the last window events, which bounds each step.
type HawkesProcess struct {
	mu, alpha, beta float64
	window          int

	history *deque.Deque[float64]
	t       float64
	lambda  float64
	rng     *rand.Rand
}

func NewHawkesProcess(mu, alpha, beta float64, window int, rng *rand.Rand) *HawkesProcess {
	return &HawkesProcess{
		mu:      mu,
		alpha:   alpha,
		beta:    beta,
		window:  window,
		history: &deque.Deque[float64]{},
		lambda:  mu,
		rng:     rng,
	}
}

// Intensity evaluates λ(t) = μ + α Σ exp(−β(t − tᵢ)) over the recent window, floored at μ.
func (h *HawkesProcess) Intensity(t float64) float64 {
	var excitation float64
	for i := 0; i < h.history.Len(); i++ {
		excitation += math.Exp(-h.beta * (t - h.history.At(i)))
	}
	return math.Max(h.mu+h.alpha*excitation, h.mu)
}

// Lambda is the intensity right after the latest event.
func (h *HawkesProcess) Lambda() float64 {
	return h.lambda
}

// Next advances to the next event and returns its time.
func (h *HawkesProcess) Next() float64 {
	h.t += h.rng.ExpFloat64() / h.lambda

	h.history.PushBack(h.t)
	for h.history.Len() > h.window {
		h.history.PopFront()
	}
	h.lambda = h.Intensity(h.t)
	return h.t
}

// Times draws the next n event times.
func (h *HawkesProcess) Times(n int) []float64 {
	out := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, h.Next())
	}
	return out
}
