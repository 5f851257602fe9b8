package wakering

import (
	"github.com/joeycumines/logiface"
)

// ringOptions holds configuration options for Ring creation.
type ringOptions struct {
	logger *logiface.Logger[logiface.Event]
	sticky bool
}

// Option configures a Ring instance.
type Option interface {
	applyRing(*ringOptions) error
}

// ringOptionImpl implements Option.
type ringOptionImpl struct {
	applyRingFunc func(*ringOptions) error
}

func (o *ringOptionImpl) applyRing(opts *ringOptions) error {
	return o.applyRingFunc(opts)
}

// WithStickySignals sets whether signals delivered to a slot with no parked
// waiter are retained, to be consumed by the next wait on that slot.
// When disabled (default), such signals are dropped, matching condition
// variable semantics, and leaving the signal-before-wait race with the
// driver. When enabled, each slot counts undelivered signals, and waits
// consume them without parking.
func WithStickySignals(enabled bool) Option {
	return &ringOptionImpl{func(opts *ringOptions) error {
		opts.sticky = enabled
		return nil
	}}
}

// WithLogger sets the logger used for ring diagnostics, e.g. signal
// delivery, dropped signals, and close warnings. A nil logger disables
// logging, and is the default.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &ringOptionImpl{func(opts *ringOptions) error {
		opts.logger = logger
		return nil
	}}
}

// resolveRingOptions applies Option instances to ringOptions.
func resolveRingOptions(opts []Option) (*ringOptions, error) {
	cfg := &ringOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyRing(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
