package runtime

import (
	"strings"
	"testing"
)

func newPromise(t *testing.T, ctx *Context) (*Promise, *Object, *Object) {
	t.Helper()
	praw, resolve, reject, ok := ctx.Realm().NewPromise()
	if !ok {
		t.Fatal("NewPromise failed")
	}
	pv := ctx.AdoptRaw(praw)
	p, err := pv.Promise()
	if err != nil {
		t.Fatal(err)
	}
	resObj, _ := ctx.AdoptRaw(resolve).Object()
	rejObj, _ := ctx.AdoptRaw(reject).Object()
	return p, resObj, rejObj
}

func TestPromiseAwaitFulfilled(t *testing.T) {
	ctx := newTestContext(t)
	defer ctx.Close()

	p, resolve, reject := newPromise(t, ctx)
	defer p.Free()
	defer resolve.Free()
	defer reject.Free()

	if p.State() != Pending {
		t.Fatalf("state = %v, want pending", p.State())
	}

	r, err := resolve.Invoke(nil, ctx.Int(11))
	if err != nil {
		t.Fatal(err)
	}
	r.Free()

	res, err := p.Await()
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	defer res.Free()
	if n, _ := res.AsInt(); n != 11 {
		t.Errorf("result = %d, want 11", n)
	}
}

func TestPromiseAwaitRejected(t *testing.T) {
	ctx := newTestContext(t)
	defer ctx.Close()

	p, resolve, reject := newPromise(t, ctx)
	defer p.Free()
	defer resolve.Free()
	defer reject.Free()

	errVal, _ := ctx.Realm().NewError("Error", "denied")
	ev := ctx.AdoptRaw(errVal)
	r, err := reject.Invoke(nil, ev)
	if err != nil {
		t.Fatal(err)
	}
	r.Free()
	ev.Free()

	_, err = p.Await()
	if err == nil {
		t.Fatal("Await of rejected promise should fail")
	}
	if !strings.Contains(err.Error(), "denied") {
		t.Errorf("error = %v", err)
	}
}

func TestPromiseThatCannotSettle(t *testing.T) {
	ctx := newTestContext(t)
	defer ctx.Close()

	p, resolve, reject := newPromise(t, ctx)
	defer p.Free()
	defer resolve.Free()
	defer reject.Free()

	_, err := p.Await()
	if err == nil {
		t.Fatal("Await with an empty job queue should fail rather than spin")
	}
}
