package optim

import (
	"github.com/tandem-ml/tandem/internal/nn"
)

// SGDConfig holds SGD hyperparameters.
type SGDConfig struct {
	Momentum float64 // Momentum coefficient (0 disables the velocity buffer)
}

// SGD implements stochastic gradient descent with optional momentum.
//
// Update rule with momentum:
//
//	v = momentum * v + grad
//	param = param - lr * v
//
// Without momentum the gradient is applied directly and no velocity buffer
// is allocated.
type SGD struct {
	base
	momentum float64
}

var _ Optimizer = (*SGD)(nil)

// NewSGD creates an SGD optimizer over the given parameter groups.
func NewSGD(groups []*Group, config SGDConfig) *SGD {
	return &SGD{
		base:     newBase(groups),
		momentum: config.Momentum,
	}
}

// Step applies one SGD update using the gradients attached to the
// parameters.
func (s *SGD) Step() error {
	for _, g := range s.groups {
		for _, p := range g.Params {
			if err := s.stepParam(g, p); err != nil {
				return err
			}
		}
	}
	s.step++
	return nil
}

func (s *SGD) stepParam(g *Group, p *nn.Parameter) error {
	grad := p.Grad()
	if grad == nil || !p.RequiresGrad() {
		return nil
	}
	if err := checkParam(p); err != nil {
		return err
	}

	values := p.Value().AsFloat32()
	grads := grad.AsFloat32()
	lr := float32(g.LR)
	wd := float32(g.WeightDecay)

	if s.momentum == 0 {
		for i := range values {
			gv := grads[i]
			if wd != 0 {
				gv += wd * values[i]
			}
			values[i] -= lr * gv
		}
		return nil
	}

	velocity := s.slotOrZeros(p, "velocity").AsFloat32()
	mu := float32(s.momentum)
	for i := range values {
		gv := grads[i]
		if wd != 0 {
			gv += wd * values[i]
		}
		velocity[i] = mu*velocity[i] + gv
		values[i] -= lr * velocity[i]
	}
	return nil
}

// StateDict captures a deep snapshot of the optimizer state.
func (s *SGD) StateDict() (*StateDict, error) {
	return s.snapshot("sgd")
}

// LoadStateDict restores a snapshot position-for-position onto the current
// parameters.
func (s *SGD) LoadStateDict(dict *StateDict) error {
	return s.restore("sgd", dict)
}
