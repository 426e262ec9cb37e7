package xcheckout

import (
	"sort"

	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
)

// Registry maps payment methods to strategies. It is populated once at
// construction and read-only afterwards, so concurrent Resolve calls need
// no locking.
type Registry struct {
	strategies map[PaymentMethod]Strategy
}

// NewRegistry copies the given table into an immutable registry.
func NewRegistry(strategies map[PaymentMethod]Strategy) *Registry {
	table := make(map[PaymentMethod]Strategy, len(strategies))
	for m, s := range strategies {
		if s != nil {
			table[m] = s
		}
	}
	return &Registry{strategies: table}
}

// DefaultRegistry wires the strategies this build ships with. DEBIT_CARD is
// a valid method tag but has no strategy yet; resolving it fails with an
// UnsupportedTypeError.
func DefaultRegistry(clock xclock.Clock, logger *xlog.Logger) *Registry {
	return NewRegistry(map[PaymentMethod]Strategy{
		CreditCard: NewCreditCardStrategy(clock, logger),
		Pix:        NewPixStrategy(clock, logger),
		Boleto:     NewBoletoStrategy(clock, logger),
	})
}

// Resolve returns the strategy registered for the method, or an
// UnsupportedTypeError naming the offending tag.
func (r *Registry) Resolve(method PaymentMethod) (Strategy, error) {
	s, ok := r.strategies[method]
	if !ok {
		return nil, &UnsupportedTypeError{Method: method}
	}
	return s, nil
}

// Supports reports whether a strategy is registered for the method.
func (r *Registry) Supports(method PaymentMethod) bool {
	_, ok := r.strategies[method]
	return ok
}

// Supported lists the registered methods in stable order.
func (r *Registry) Supported() []PaymentMethod {
	out := make([]PaymentMethod, 0, len(r.strategies))
	for m := range r.strategies {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
