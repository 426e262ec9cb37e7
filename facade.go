package xcheckout

import (
	"context"
	"sync"
)

var (
	defaultCheckout   *Checkout
	defaultCheckoutMu sync.Mutex
)

// SetDefault installs the process-wide default Checkout. Adapters' Use
// helpers call this after a successful build.
func SetDefault(c *Checkout) {
	if c == nil {
		panic("xcheckout: SetDefault called with nil Checkout")
	}
	defaultCheckoutMu.Lock()
	defaultCheckout = c
	defaultCheckoutMu.Unlock()
}

// Default returns the process-wide default Checkout, initializing it with
// the optional init function on first use.
func Default(init func(b *Builder)) (*Checkout, error) {
	defaultCheckoutMu.Lock()
	defer defaultCheckoutMu.Unlock()

	if defaultCheckout != nil {
		return defaultCheckout, nil
	}
	b := NewBuilder()
	if init != nil {
		init(b)
	}
	ck, err := b.Build()
	if err != nil {
		return nil, err
	}
	defaultCheckout = ck
	return defaultCheckout, nil
}

// Pay is the Facade that dispatches a payment on the default Checkout.
func Pay(ctx context.Context, req PaymentRequest) (PaymentResult, error) {
	ck, err := Default(nil)
	if err != nil {
		return PaymentResult{}, err
	}
	return ck.Pay(ctx, req)
}
