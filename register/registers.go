package register

// Registers is one Register per owning thread, each of those further
// partitioned internally by collating thread (see register.go) so
// every (owning thread, collating thread) pair has exactly one reader
// and one writer.
type Registers struct {
	perThread []*Register
}

// NewRegisters allocates one Register per thread, each sized for
// minDelay lag buckets and partitioned across numThreads collators
// (every thread in the process can collate for any other thread's
// register).
func NewRegisters(numThreads int, minDelay int32) *Registers {
	rs := &Registers{perThread: make([]*Register, numThreads)}
	for i := range rs.perThread {
		rs.perThread[i] = New(numThreads, minDelay)
	}
	return rs
}

// For returns the Register owned by thread tid.
func (rs *Registers) For(tid int32) *Register { return rs.perThread[int(tid)] }

// NumThreads reports how many per-thread registers are held.
func (rs *Registers) NumThreads() int { return len(rs.perThread) }

// ResetAll clears every thread's register.
func (rs *Registers) ResetAll() {
	for _, r := range rs.perThread {
		r.Reset()
	}
}

// AllEmpty reports whether every thread's register is fully drained.
func (rs *Registers) AllEmpty() bool {
	for _, r := range rs.perThread {
		if !r.Empty() {
			return false
		}
	}
	return true
}
