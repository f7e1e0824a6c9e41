package assembly

import (
	"fmt"

	"github.com/notargets/feassembly/element"
	"github.com/notargets/feassembly/utils"
	"go.uber.org/zap"
)

// IntegrationPolicy decides what happens when an operation needs an
// integrated element matrix and gets one that is not.
type IntegrationPolicy int

const (
	// LogAndContinue logs at error level and uses the buffer as it is.
	LogAndContinue IntegrationPolicy = iota
	// FailFast returns utils.ErrNotIntegrated.
	FailFast
	// AutoIntegrate integrates the operand in place.
	AutoIntegrate
)

var policyNames = [...]string{"LogAndContinue", "FailFast", "AutoIntegrate"}

func (p IntegrationPolicy) String() string {
	if p < 0 || int(p) >= len(policyNames) {
		return fmt.Sprintf("Unknown(%d)", int(p))
	}
	return policyNames[p]
}

// ParseIntegrationPolicy is the inverse of String.
func ParseIntegrationPolicy(s string) (IntegrationPolicy, error) {
	for i, name := range policyNames {
		if name == s {
			return IntegrationPolicy(i), nil
		}
	}
	return LogAndContinue, fmt.Errorf("unknown integration policy %q", s)
}

type options struct {
	logger   *zap.Logger
	kernel   *utils.Kernel
	policy   IntegrationPolicy
	parallel int
}

type Option func(*options)

func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithKernel sets the dense kernel used for local products.
func WithKernel(k *utils.Kernel) Option {
	return func(o *options) { o.kernel = k }
}

func WithIntegrationPolicy(p IntegrationPolicy) Option {
	return func(o *options) { o.policy = p }
}

// WithParallel builds maps with n workers.
func WithParallel(n int) Option {
	return func(o *options) { o.parallel = n }
}

func newOptions(opts []Option) options {
	o := options{parallel: 1}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.kernel == nil {
		o.kernel = utils.NewKernel()
	}
	if o.parallel < 1 {
		o.parallel = 1
	}
	return o
}

func (o options) checkIntegrated(e *element.ElementMatrix, operand string) error {
	if e.Integrated() {
		return nil
	}
	switch o.policy {
	case FailFast:
		return fmt.Errorf("%s operand of cell %d: %w", operand, e.CellID(), utils.ErrNotIntegrated)
	case AutoIntegrate:
		o.logger.Debug("integrating operand",
			zap.String("operand", operand), zap.Int("cell", e.CellID()))
		e.Integrate()
	default:
		o.logger.Error("operand needs to be integrated",
			zap.String("operand", operand), zap.Int("cell", e.CellID()))
	}
	return nil
}
