package runtime

import (
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/script-bridge/engine"
	"github.com/wippyai/script-bridge/errors"
)

// Options configures a Runtime.
type Options struct {
	// MaxHeapCells caps the engine heap. Zero means unlimited.
	MaxHeapCells int
	// Logger overrides the package logger for this runtime.
	Logger *zap.Logger
}

// Runtime owns one engine instance and its job queue. Contexts created from
// it share the heap but are otherwise isolated.
type Runtime struct {
	eng *engine.Engine
	log *zap.Logger

	// The inbox is the only cross-goroutine surface. Background work posts
	// completion jobs here; they move onto the engine queue when the engine
	// goroutine next drains jobs.
	mu       sync.Mutex
	inbox    []func()
	inflight int
	notify   chan struct{}
}

// New creates a runtime with default options.
func New() *Runtime {
	return NewWithOptions(Options{})
}

// NewWithOptions creates a runtime with the given options.
func NewWithOptions(opts Options) *Runtime {
	log := opts.Logger
	if log == nil {
		log = Logger()
	}
	return &Runtime{
		eng:    engine.NewWithOptions(engine.Options{MaxHeapCells: opts.MaxHeapCells}),
		log:    log,
		notify: make(chan struct{}, 1),
	}
}

// Async runs work on its own goroutine. The returned job is posted back to
// the engine goroutine and runs during the next job drain; work itself must
// not touch the engine.
func (rt *Runtime) Async(work func() func()) {
	rt.mu.Lock()
	rt.inflight++
	rt.mu.Unlock()
	go func() {
		job := work()
		rt.mu.Lock()
		rt.inflight--
		if job != nil {
			rt.inbox = append(rt.inbox, job)
		}
		rt.mu.Unlock()
		select {
		case rt.notify <- struct{}{}:
		default:
		}
	}()
}

func (rt *Runtime) flushInbox() {
	rt.mu.Lock()
	posted := rt.inbox
	rt.inbox = nil
	rt.mu.Unlock()
	for _, job := range posted {
		rt.eng.EnqueueJob(job)
	}
}

func (rt *Runtime) hasInflight() bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.inflight > 0 || len(rt.inbox) > 0
}

// Engine exposes the raw engine. Intended for tests and diagnostics; the
// refcount primitives on it must not be called directly for values managed
// by this package.
func (rt *Runtime) Engine() *engine.Engine { return rt.eng }

// ExecutePendingJobs drains the job queue, returning the number of jobs run.
// Asynchronous binding settlements happen here, on the caller's goroutine.
func (rt *Runtime) ExecutePendingJobs() int {
	n := 0
	rt.flushInbox()
	for rt.eng.ExecutePendingJob() {
		n++
		rt.flushInbox()
	}
	return n
}

// NewContext creates an isolated execution scope.
func (rt *Runtime) NewContext() (*Context, error) {
	realm, ok := rt.eng.NewRealm()
	if !ok {
		return nil, errors.AllocationFailed(errors.PhaseRuntime, "context global")
	}
	rt.log.Debug("context created")
	return &Context{rt: rt, realm: realm}, nil
}

// Context is one isolated execution scope. All values are created under a
// context and must not outlive it.
type Context struct {
	rt    *Runtime
	realm *engine.Realm
}

// Runtime returns the owning runtime.
func (c *Context) Runtime() *Runtime { return c.rt }

// Realm exposes the raw realm for the binding layer. Ownership of raw
// values obtained through it must be handed back to a Value immediately.
func (c *Context) Realm() *engine.Realm { return c.realm }

// Close releases the context's roots. Values created under the context must
// already be freed.
func (c *Context) Close() {
	c.realm.Close()
	c.rt.log.Debug("context closed")
}

// Globals returns the context's global object.
func (c *Context) Globals() *Object {
	v := c.adoptRaw(c.realm.Global())
	return &Object{v: v}
}

// ExecutePendingJobs drains the runtime's job queue.
func (c *Context) ExecutePendingJobs() int {
	return c.rt.ExecutePendingJobs()
}
