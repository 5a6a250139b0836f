package runtime

import (
	"github.com/wippyai/script-bridge/engine"
	"github.com/wippyai/script-bridge/errors"
)

// PromiseState mirrors the engine's settlement states.
type PromiseState uint8

const (
	Pending   PromiseState = PromiseState(engine.PromisePending)
	Fulfilled PromiseState = PromiseState(engine.PromiseFulfilled)
	Rejected  PromiseState = PromiseState(engine.PromiseRejected)
)

// Promise is a Value narrowed to a promise object.
type Promise struct {
	v *Value
}

// Promise narrows the value to a promise, sharing ownership.
func (v *Value) Promise() (*Promise, error) {
	if !v.ctx.realm.IsPromise(v.live()) {
		return nil, errors.TypeMismatch(errors.PhaseDecode, nil, "promise", v.Kind().String())
	}
	return &Promise{v: v}, nil
}

// Value returns the promise as a plain value, sharing ownership.
func (p *Promise) Value() *Value { return p.v }

// Free releases the promise's engine reference.
func (p *Promise) Free() { p.v.Free() }

// State reports the promise's settlement state.
func (p *Promise) State() PromiseState {
	st, _ := p.v.ctx.realm.PromiseState(p.v.live())
	return PromiseState(st)
}

// Result returns the settled result as a new owned value. Rejection results
// are returned the same way; check State first.
func (p *Promise) Result() (*Value, error) {
	raw, ok := p.v.ctx.realm.PromiseResult(p.v.live())
	if !ok {
		return nil, errors.InvalidInput(errors.PhaseRuntime, "promise is not settled")
	}
	return p.v.ctx.adoptRaw(raw), nil
}

// Await drains the job queue until the promise settles, then returns the
// fulfillment value or an error wrapping the rejection. Background work
// started through the runtime is waited for; a promise that can no longer
// settle (empty queue, nothing in flight) is reported as an error rather
// than spinning forever.
func (p *Promise) Await() (*Value, error) {
	rt := p.v.ctx.rt
	for p.State() == Pending {
		rt.flushInbox()
		if rt.eng.ExecutePendingJob() {
			continue
		}
		if rt.hasInflight() {
			<-rt.notify
			continue
		}
		return nil, errors.InvalidInput(errors.PhaseRuntime,
			"promise cannot settle: job queue is empty")
	}
	res, err := p.Result()
	if err != nil {
		return nil, err
	}
	if p.State() == Rejected {
		defer res.Free()
		msg, _ := res.ToString()
		name := ""
		if obj, err := res.Object(); err == nil {
			if v, err := obj.Get("message"); err == nil {
				if s, ok := v.AsString(); ok {
					msg = s
				}
				v.Free()
			}
			if v, err := obj.Get("name"); err == nil {
				if s, ok := v.AsString(); ok {
					name = s
				}
				v.Free()
			}
		}
		return nil, errors.Exception(msg, name)
	}
	return res, nil
}
