package optim

import (
	"math"

	"github.com/tandem-ml/tandem/internal/nn"
)

// AdamConfig holds Adam hyperparameters. Zero values fall back to the
// conventional defaults.
type AdamConfig struct {
	Beta1 float64 // First moment decay (default 0.9)
	Beta2 float64 // Second moment decay (default 0.999)
	Eps   float64 // Denominator epsilon (default 1e-8)
}

func (c AdamConfig) withDefaults() AdamConfig {
	if c.Beta1 == 0 {
		c.Beta1 = 0.9
	}
	if c.Beta2 == 0 {
		c.Beta2 = 0.999
	}
	if c.Eps == 0 {
		c.Eps = 1e-8
	}
	return c
}

// Adam implements the Adam optimizer (Kingma & Ba, 2015).
//
// Update rule:
//
//	m = beta1 * m + (1 - beta1) * grad
//	v = beta2 * v + (1 - beta2) * grad^2
//	mHat = m / (1 - beta1^t)
//	vHat = v / (1 - beta2^t)
//	param = param - lr * mHat / (sqrt(vHat) + eps)
//
// The bias-corrected step counter t is shared across all parameters and
// persists through StateDict.
type Adam struct {
	base
	config AdamConfig
}

var _ Optimizer = (*Adam)(nil)

// NewAdam creates an Adam optimizer over the given parameter groups.
func NewAdam(groups []*Group, config AdamConfig) *Adam {
	return &Adam{
		base:   newBase(groups),
		config: config.withDefaults(),
	}
}

// Step applies one Adam update using the gradients attached to the
// parameters.
func (a *Adam) Step() error {
	t := a.step + 1
	bc1 := 1.0 - math.Pow(a.config.Beta1, float64(t))
	bc2 := 1.0 - math.Pow(a.config.Beta2, float64(t))

	for _, g := range a.groups {
		for _, p := range g.Params {
			if err := a.stepParam(g, p, bc1, bc2); err != nil {
				return err
			}
		}
	}
	a.step = t
	return nil
}

func (a *Adam) stepParam(g *Group, p *nn.Parameter, bc1, bc2 float64) error {
	grad := p.Grad()
	if grad == nil || !p.RequiresGrad() {
		return nil
	}
	if err := checkParam(p); err != nil {
		return err
	}

	values := p.Value().AsFloat32()
	grads := grad.AsFloat32()
	expAvg := a.slotOrZeros(p, "exp_avg").AsFloat32()
	expAvgSq := a.slotOrZeros(p, "exp_avg_sq").AsFloat32()

	beta1 := a.config.Beta1
	beta2 := a.config.Beta2
	eps := a.config.Eps
	lr := g.LR
	wd := g.WeightDecay

	for i := range values {
		gv := float64(grads[i])
		if wd != 0 {
			gv += wd * float64(values[i])
		}

		m := beta1*float64(expAvg[i]) + (1-beta1)*gv
		v := beta2*float64(expAvgSq[i]) + (1-beta2)*gv*gv
		expAvg[i] = float32(m)
		expAvgSq[i] = float32(v)

		mHat := m / bc1
		vHat := v / bc2
		values[i] -= float32(lr * mHat / (math.Sqrt(vHat) + eps))
	}
	return nil
}

// StateDict captures a deep snapshot of the optimizer state.
func (a *Adam) StateDict() (*StateDict, error) {
	return a.snapshot("adam")
}

// LoadStateDict restores a snapshot position-for-position onto the current
// parameters.
func (a *Adam) LoadStateDict(dict *StateDict) error {
	return a.restore("adam", dict)
}
