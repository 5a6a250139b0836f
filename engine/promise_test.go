package engine

import "testing"

func TestPromiseSettlement(t *testing.T) {
	r := newTestRealm(t)
	e := r.Engine()

	promise, resolve, reject, ok := r.NewPromise()
	if !ok {
		t.Fatal("NewPromise failed")
	}
	defer e.Release(promise)
	defer e.Release(resolve)
	defer e.Release(reject)

	if !r.IsPromise(promise) {
		t.Fatal("IsPromise = false")
	}
	if st, _ := r.PromiseState(promise); st != PromisePending {
		t.Fatalf("state = %d, want pending", st)
	}

	var gotFulfilled bool
	var gotResult RawValue
	reacted := false
	r.OnSettled(promise, func(fulfilled bool, result RawValue) {
		reacted = true
		gotFulfilled = fulfilled
		gotResult = result
	})

	if _, ok := r.Call(resolve, Undefined(), []RawValue{Int(7)}); !ok {
		t.Fatal("resolve call failed")
	}
	if reacted {
		t.Fatal("reaction ran before the job queue was drained")
	}

	for e.ExecutePendingJob() {
	}
	if !reacted || !gotFulfilled {
		t.Fatalf("reacted=%v fulfilled=%v", reacted, gotFulfilled)
	}
	if gotResult.Tag() != TagInt || gotResult.Int() != 7 {
		t.Errorf("result = %v %d, want int 7", gotResult.Tag(), gotResult.Int())
	}

	if st, _ := r.PromiseState(promise); st != PromiseFulfilled {
		t.Errorf("state = %d, want fulfilled", st)
	}
}

func TestPromiseResolveIsOneShot(t *testing.T) {
	r := newTestRealm(t)
	e := r.Engine()

	promise, resolve, reject, _ := r.NewPromise()
	defer e.Release(promise)
	defer e.Release(resolve)
	defer e.Release(reject)

	r.Call(resolve, Undefined(), []RawValue{Int(1)})
	r.Call(reject, Undefined(), []RawValue{Int(2)})
	for e.ExecutePendingJob() {
	}

	if st, _ := r.PromiseState(promise); st != PromiseFulfilled {
		t.Errorf("state = %d, want fulfilled (first settlement wins)", st)
	}
	res, _ := r.PromiseResult(promise)
	defer e.Release(res)
	if res.Int() != 1 {
		t.Errorf("result = %d, want 1", res.Int())
	}
}

func TestPromiseLateReaction(t *testing.T) {
	r := newTestRealm(t)
	e := r.Engine()

	promise, resolve, reject, _ := r.NewPromise()
	defer e.Release(promise)
	defer e.Release(resolve)
	defer e.Release(reject)

	r.Call(reject, Undefined(), []RawValue{Int(9)})
	for e.ExecutePendingJob() {
	}

	var fulfilled = true
	var ran bool
	r.OnSettled(promise, func(f bool, result RawValue) {
		ran = true
		fulfilled = f
	})
	for e.ExecutePendingJob() {
	}

	if !ran {
		t.Fatal("late reaction never ran")
	}
	if fulfilled {
		t.Error("reaction saw fulfilled, want rejected")
	}
}
