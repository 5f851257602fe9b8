package wakering

import (
	"context"
	"fmt"
	"sync"

	"github.com/joeycumines/logiface"
)

type (
	// BrigadeConfig models configuration for Brigade.
	BrigadeConfig struct {
		// Slots is the ring size, and the number of worker goroutines.
		// Required, must be at least 1.
		Slots int

		// Start is the slot signaled to begin the pass, in [0, Slots).
		Start int

		// OnWake, if non-nil, is invoked by each woken worker, while it
		// still holds the ring lock, before the wakeup is relayed. It runs
		// serially, in wakeup order.
		//
		// WARNING: OnWake must not call back into the ring, other than via
		// methods documented as safe while holding the ring lock.
		OnWake func(slot int)

		// Logger receives worker lifecycle and ring diagnostics, if
		// non-nil.
		Logger *logiface.Logger[logiface.Event]
	}
)

// Brigade runs a single bucket-brigade pass over a new ring.
//
// It starts one worker goroutine per slot, waits until every worker is
// parked, then signals the start slot. Each woken worker records its slot,
// invokes OnWake (if any), and signals its successor, except the worker
// whose successor is the start slot, which ends the pass without signaling.
// The pass is a single traversal of the ring, visiting each slot exactly
// once, in ring order from the start slot, for a total of Slots signal
// operations, one external and Slots-1 internal.
//
// Brigade returns the wakeup order, which is slots
// [Start, Start+1 ... Start+Slots-1], modulo Slots, when undisturbed. If
// ctx is canceled before the pass completes, parked workers abandon their
// waits, and the first error is returned, alongside the partial order. A
// panic will occur if config or ctx is nil. The ring is closed before
// Brigade returns.
func Brigade(ctx context.Context, config *BrigadeConfig) ([]int, error) {
	if config == nil {
		panic(`wakering: nil config`)
	}
	if ctx == nil {
		panic(`wakering: nil context`)
	}
	if config.Slots < 1 {
		return nil, ErrInvalidSize
	}
	if config.Start < 0 || config.Start >= config.Slots {
		return nil, ErrSlotOutOfRange
	}

	ring, err := New(config.Slots, WithLogger(config.Logger))
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// the parked hook doubles as the driver's readiness barrier, so the
	// start signal cannot be dropped for want of a parked waiter
	ready := make(chan struct{}, config.Slots)
	ring.hooks = &ringHooks{parked: func(slot int) { ready <- struct{}{} }}

	logger := config.Logger
	logger.Debug().
		Int(`slots`, config.Slots).
		Int(`start`, config.Start).
		Log(`brigade starting`)

	var (
		done  sync.WaitGroup
		order = make([]int, 0, config.Slots)
		errs  = make(chan error, config.Slots+1)
	)

	done.Add(config.Slots)
	for slot := 0; slot < config.Slots; slot++ {
		go func(slot int) {
			defer done.Done()

			fail := func(err error) {
				logger.Err().Int(`slot`, slot).Err(err).Log(`worker failed`)
				errs <- err
				cancel()
			}

			defer func() {
				if r := recover(); r != nil {
					err := fmt.Errorf(`wakering: worker on slot %d panicked: %v`, slot, r)
					if ring.holder.Load() == goroutineID() {
						_ = ring.Release()
					}
					fail(err)
				}
			}()

			logger.Debug().Int(`slot`, slot).Log(`worker started`)

			if err := ring.WaitContext(ctx, slot); err != nil {
				fail(err)
				return
			}

			// the ring lock is held from here until the release
			seq := len(order)
			order = append(order, slot)
			logger.Debug().Int(`slot`, slot).Int(`seq`, seq).Log(`worker woken`)

			if config.OnWake != nil {
				config.OnWake(slot)
			}

			if successor := (slot + 1) % config.Slots; successor == config.Start {
				// single pass, never signal back toward the start slot
				if err := ring.Release(); err != nil {
					fail(err)
					return
				}
				logger.Debug().Int(`slot`, slot).Log(`worker released`)
			} else {
				if err := ring.Relay(slot); err != nil {
					fail(err)
					return
				}
				logger.Debug().Int(`slot`, slot).Int(`successor`, successor).Log(`worker relayed`)
			}
		}(slot)
	}

ReadyLoop:
	for i := 0; i < config.Slots; i++ {
		select {
		case <-ready:
		case <-ctx.Done():
			break ReadyLoop
		}
	}

	if ctx.Err() == nil {
		logger.Debug().Int(`slot`, config.Start).Log(`signaling start slot`)
		if err := ring.Signal(config.Start); err != nil {
			errs <- err
			cancel()
		}
	}

	done.Wait()

	// every worker has unwound, satisfying the close precondition
	_ = ring.Close()

	close(errs)
	for err := range errs {
		if err != nil {
			logger.Debug().Int(`wakeups`, len(order)).Err(err).Log(`brigade failed`)
			return order, err
		}
	}

	logger.Debug().Int(`wakeups`, len(order)).Log(`brigade complete`)
	return order, nil
}
