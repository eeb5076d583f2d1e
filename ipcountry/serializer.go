package ipcountry

import (
	"math/big"
	"net"
)

// CountryBlockSerializer packs a stream of CountryBlocks, sorted ascending
// by start address and already split by IP version, into two independent
// BitQueues. See spec.md section 4.1 for the wire layout.
type CountryBlockSerializer struct {
	v4 *versionSerializer
	v6 *versionSerializer
}

// NewCountryBlockSerializer returns a serializer ready to accept blocks via
// Add, in ascending start-address order, one IP version's blocks at a time
// (callers must not interleave v4 and v6 adds; split the input stream
// first).
func NewCountryBlockSerializer() *CountryBlockSerializer {
	return &CountryBlockSerializer{
		v4: newVersionSerializer(IPv4),
		v6: newVersionSerializer(IPv6),
	}
}

// Add encodes one more block into the matching version's queue, emitting a
// synthetic ZZ gap-filler first if it does not immediately follow the
// previous block.
func (s *CountryBlockSerializer) Add(block CountryBlock) {
	switch block.Version {
	case IPv4:
		s.v4.add(block)
	case IPv6:
		s.v6.add(block)
	default:
		panic("ipcountry: unknown IP version")
	}
}

// Finish closes out both streams, padding each with a trailing ZZ block up
// to the version's max address if the last real block didn't reach it, and
// returns the two packed queues.
func (s *CountryBlockSerializer) Finish() (ipv4, ipv6 *BitQueue) {
	s.v4.finish()
	s.v6.finish()
	return s.v4.queue, s.v6.queue
}

// versionSerializer holds the running per-IP-version encoding state.
type versionSerializer struct {
	version   IPVersion
	queue     *BitQueue
	prevStart net.IP
	prevEnd   *big.Int // nil until the first real block is added
}

func newVersionSerializer(v IPVersion) *versionSerializer {
	// The initial prev_start is chosen so the first real block differs
	// from it in every segment: 255.255.255.254 for v4, the v6
	// equivalent ending in ...FFFE. This guarantees the "at least one
	// difference" invariant even for the very first record.
	initial := maxAddress(v)
	raw := append([]byte(nil), octets(v, initial)...)
	raw[len(raw)-1]--
	return &versionSerializer{
		version:   v,
		queue:     NewBitQueue(),
		prevStart: net.IP(raw),
	}
}

func (s *versionSerializer) diffCountBits() int {
	if s.version == IPv4 {
		return ipv4DiffCountBits
	}
	return ipv6DiffCountBits
}

func (s *versionSerializer) indexBits() int {
	if s.version == IPv4 {
		return ipv4IndexBits
	}
	return ipv6IndexBits
}

func (s *versionSerializer) valueBits() int {
	if s.version == IPv4 {
		return ipv4ValueBits
	}
	return ipv6ValueBits
}

// add implements spec.md section 4.1 steps 1-4 for a single block.
func (s *versionSerializer) add(block CountryBlock) {
	start := addrToBig(s.version, block.Start)

	if s.prevEnd == nil || start.Cmp(new(big.Int).Add(s.prevEnd, big.NewInt(1))) != 0 {
		gapStart := big.NewInt(0)
		if s.prevEnd != nil {
			gapStart = new(big.Int).Add(s.prevEnd, big.NewInt(1))
		}
		gapEnd := new(big.Int).Sub(start, big.NewInt(1))
		if gapStart.Cmp(gapEnd) <= 0 {
			s.emit(bigToAddr(s.version, gapStart), ZZCountryIndex)
			s.prevStart = bigToAddr(s.version, gapStart)
		}
	}

	s.emit(block.Start, countryIndex(block.Country))

	s.prevEnd = addrToBig(s.version, block.End)
}

// emit writes one stream record (differences + country index) whose start
// is newStart, and advances prevStart.
func (s *versionSerializer) emit(newStart net.IP, countryIdx int) {
	prevSegs := segments(s.version, s.prevStart)
	newSegs := segments(s.version, newStart)

	type diff struct {
		index int
		value uint64
	}
	var diffs []diff
	for i := range newSegs {
		if newSegs[i] != prevSegs[i] {
			diffs = append(diffs, diff{index: i, value: newSegs[i]})
		}
	}
	if len(diffs) == 0 {
		panic("ipcountry: zero-length block encoded (no segment differs)")
	}

	s.queue.Push(uint64(len(diffs)-1), s.diffCountBits())
	for _, d := range diffs {
		s.queue.Push(uint64(d.index), s.indexBits())
		s.queue.Push(d.value, s.valueBits())
	}
	s.queue.Push(uint64(countryIdx), countryIndexBits)

	s.prevStart = newStart
}

func (s *versionSerializer) finish() {
	max := addrToBig(s.version, maxAddress(s.version))
	if s.prevEnd == nil || s.prevEnd.Cmp(max) != 0 {
		gapStart := big.NewInt(0)
		if s.prevEnd != nil {
			gapStart = new(big.Int).Add(s.prevEnd, big.NewInt(1))
		}
		s.emit(bigToAddr(s.version, gapStart), ZZCountryIndex)
		s.prevEnd = max
	}
}
