// Package sentlog tracks addresses that already received a message so that
// repeated runs never email the same recipient twice.
package sentlog

// Record is the in-memory sent-record. Addresses keep their insertion order
// and are compared case-sensitively.
type Record struct {
	addresses []string
	index     map[string]struct{}
}

// NewRecord creates a record seeded with previously sent addresses.
// Duplicates in the input are kept in order but count once.
func NewRecord(addresses []string) *Record {
	r := &Record{
		addresses: make([]string, 0, len(addresses)),
		index:     make(map[string]struct{}, len(addresses)),
	}
	for _, addr := range addresses {
		r.addresses = append(r.addresses, addr)
		r.index[addr] = struct{}{}
	}
	return r
}

// Contains reports whether addr was already emailed
func (r *Record) Contains(addr string) bool {
	_, ok := r.index[addr]
	return ok
}

// Add appends addr. Returns false if it was already present.
func (r *Record) Add(addr string) bool {
	if r.Contains(addr) {
		return false
	}
	r.addresses = append(r.addresses, addr)
	r.index[addr] = struct{}{}
	return true
}

// Addresses returns a copy of the recorded addresses in order
func (r *Record) Addresses() []string {
	out := make([]string, len(r.addresses))
	copy(out, r.addresses)
	return out
}

// Len returns the number of distinct addresses
func (r *Record) Len() int {
	return len(r.index)
}
