package engine

const (
	promisePending uint8 = iota
	promiseFulfilled
	promiseRejected
)

// ReactionFunc observes a promise settlement. The result is borrowed for the
// duration of the call.
type ReactionFunc func(fulfilled bool, result RawValue)

type promiseState struct {
	state     uint8
	dead      bool // promise cell was freed; settlement keeps no result
	result    RawValue
	reactions []ReactionFunc
}

// settledResult is safe to read from queued jobs even if the promise cell
// was freed before the job ran.
func (st *promiseState) settledResult() RawValue {
	if st.dead {
		return Undefined()
	}
	return st.result
}

// NewPromise creates a promise object plus its one-shot resolve and reject
// functions. All three are owned by the caller. Settling enqueues reaction
// jobs; nothing runs until the host drains the job queue.
func (r *Realm) NewPromise() (promise, resolve, reject RawValue, ok bool) {
	promise, ok = r.NewObject()
	if !ok {
		return RawValue{}, RawValue{}, RawValue{}, false
	}
	st := &promiseState{}
	r.eng.cells[promise.ref].promise = st

	settled := false
	settle := func(fulfilled bool) NativeFunc {
		return func(rm *Realm, this RawValue, args []RawValue) RawValue {
			if settled {
				return Undefined()
			}
			settled = true
			v := Undefined()
			if len(args) > 0 {
				v = args[0]
			}
			rm.settlePromise(st, fulfilled, v)
			return Undefined()
		}
	}

	resolve, ok = r.NewFunction("resolve", 1, settle(true))
	if !ok {
		r.eng.Release(promise)
		return RawValue{}, RawValue{}, RawValue{}, false
	}
	reject, ok = r.NewFunction("reject", 1, settle(false))
	if !ok {
		r.eng.Release(resolve)
		r.eng.Release(promise)
		return RawValue{}, RawValue{}, RawValue{}, false
	}
	return promise, resolve, reject, true
}

func (r *Realm) settlePromise(st *promiseState, fulfilled bool, v RawValue) {
	if st.state != promisePending {
		return
	}
	if fulfilled {
		st.state = promiseFulfilled
	} else {
		st.state = promiseRejected
	}
	if !st.dead {
		st.result = r.eng.Retain(v)
	}
	for _, reaction := range st.reactions {
		fn := reaction
		r.eng.EnqueueJob(func() {
			fn(st.state == promiseFulfilled, st.settledResult())
		})
	}
	st.reactions = nil
}

// IsPromise reports whether the value is a promise object.
func (r *Realm) IsPromise(v RawValue) bool {
	c := r.eng.cell(v.ref)
	return c != nil && c.promise != nil
}

// PromiseState reports a promise's settlement state.
func (r *Realm) PromiseState(v RawValue) (state uint8, ok bool) {
	c := r.eng.cell(v.ref)
	if c == nil || c.promise == nil {
		return 0, false
	}
	return c.promise.state, true
}

// PromiseResult returns a new owning reference to a settled promise's result.
func (r *Realm) PromiseResult(v RawValue) (RawValue, bool) {
	c := r.eng.cell(v.ref)
	if c == nil || c.promise == nil || c.promise.state == promisePending {
		return RawValue{}, false
	}
	return r.eng.Retain(c.promise.result), true
}

// OnSettled registers a reaction. If the promise already settled, the
// reaction is enqueued immediately.
func (r *Realm) OnSettled(v RawValue, fn ReactionFunc) bool {
	c := r.eng.cell(v.ref)
	if c == nil || c.promise == nil {
		r.ThrowTypeError("%s is not a promise", v.tag)
		return false
	}
	st := c.promise
	if st.state == promisePending {
		st.reactions = append(st.reactions, fn)
		return true
	}
	r.eng.EnqueueJob(func() {
		fn(st.state == promiseFulfilled, st.settledResult())
	})
	return true
}

// Promise state values, exported for the runtime wrapper.
const (
	PromisePending   = promisePending
	PromiseFulfilled = promiseFulfilled
	PromiseRejected  = promiseRejected
)
