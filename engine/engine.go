package engine

// Options configures engine behavior.
type Options struct {
	// MaxHeapCells caps the number of live heap cells. Zero means unlimited.
	// Allocation past the cap fails the constructing operation, which the
	// caller observes as an allocation failure (no pending exception).
	MaxHeapCells int
}

// Engine is one scripting engine instance: the value heap, the atom intern
// table, and the job queue. Realms created from it share all three.
//
// An Engine is confined to the goroutine that created it.
type Engine struct {
	cells     []cell
	freeCells []Handle

	atoms     map[string]Atom
	atomCells []atomEntry
	freeAtoms []Atom

	jobs []func()

	maxCells int
	live     int
}

// New creates an engine with default options.
func New() *Engine {
	return NewWithOptions(Options{})
}

// NewWithOptions creates an engine with the given options.
func NewWithOptions(opts Options) *Engine {
	return &Engine{
		cells:    make([]cell, 1), // cell 0 reserved, Handle 0 is invalid
		atoms:    make(map[string]Atom),
		maxCells: opts.MaxHeapCells,
	}
}

// EnqueueJob appends a job to the engine's queue. Jobs run on the engine
// goroutine when the host drains the queue.
func (e *Engine) EnqueueJob(job func()) {
	e.jobs = append(e.jobs, job)
}

// ExecutePendingJob runs the oldest queued job. It reports false when the
// queue is empty.
func (e *Engine) ExecutePendingJob() bool {
	if len(e.jobs) == 0 {
		return false
	}
	job := e.jobs[0]
	e.jobs = e.jobs[1:]
	job()
	return true
}

// PendingJobs reports the number of queued jobs.
func (e *Engine) PendingJobs() int { return len(e.jobs) }
