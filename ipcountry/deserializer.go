package ipcountry

import (
	"math/big"
	"net"
)

type streamRecord struct {
	start   net.IP
	country int
}

// CountryBlockDeserializer is a finite, non-restartable iterator over a
// packed BitQueue's blocks, reconstructed per spec.md section 4.1: a
// leading synthetic ZZ block is yielded if the stream's first stored block
// doesn't start at the zero address, and each block's end is the next
// block's start minus one (the max address, for the last block).
type CountryBlockDeserializer struct {
	version        IPVersion
	records        []streamRecord
	next           int
	done           bool
	leadingChecked bool
}

// NewCountryBlockDeserializer decodes every stream record out of queue up
// front (the queue itself is consumed) and returns an iterator over the
// reconstructed blocks. Truncated input simply stops producing records;
// there is no way to distinguish a cleanly-finished stream from one cut
// short by wire corruption other than the round-trip invariant failing.
func NewCountryBlockDeserializer(version IPVersion, queue *BitQueue) *CountryBlockDeserializer {
	d := &CountryBlockDeserializer{version: version}

	initial := maxAddress(version)
	raw := append([]byte(nil), octets(version, initial)...)
	raw[len(raw)-1]--
	prevStart := net.IP(raw)

	diffBits := ipv4DiffCountBits
	idxBits := ipv4IndexBits
	valBits := ipv4ValueBits
	if version == IPv6 {
		diffBits, idxBits, valBits = ipv6DiffCountBits, ipv6IndexBits, ipv6ValueBits
	}

	for {
		diffCountMinusOne, ok := queue.Pop(diffBits)
		if !ok {
			break
		}
		segs := segments(version, prevStart)
		diffCount := int(diffCountMinusOne) + 1
		okAll := true
		for i := 0; i < diffCount; i++ {
			idx, ok1 := queue.Pop(idxBits)
			val, ok2 := queue.Pop(valBits)
			if !ok1 || !ok2 || int(idx) >= len(segs) {
				okAll = false
				break
			}
			segs[int(idx)] = val
		}
		if !okAll {
			break
		}
		countryIdxU, ok := queue.Pop(countryIndexBits)
		if !ok {
			break
		}

		start := segmentsToIP(version, segs)
		d.records = append(d.records, streamRecord{start: start, country: int(countryIdxU)})
		prevStart = start
	}

	return d
}

// Next returns the next reconstructed CountryBlock, or ok=false once the
// stream (plus any synthesized leading/trailing ZZ fillers) is exhausted.
// The iterator cannot be restarted; build a new one from a fresh queue to
// iterate again.
func (d *CountryBlockDeserializer) Next() (CountryBlock, bool) {
	if d.done {
		return CountryBlock{}, false
	}
	if len(d.records) == 0 {
		d.done = true
		return CountryBlock{}, false
	}

	// Synthesize a leading ZZ block if the very first record doesn't
	// start at the zero address. Checked exactly once.
	if d.next == 0 && !d.leadingChecked {
		d.leadingChecked = true
		firstStart := addrToBig(d.version, d.records[0].start)
		if firstStart.Sign() != 0 {
			end := bigToAddr(d.version, new(big.Int).Sub(firstStart, big.NewInt(1)))
			return CountryBlock{
				Version: d.version,
				Start:   zeroAddress(d.version),
				End:     end,
				Country: zzCountryCode,
			}, true
		}
	}

	idx := d.next
	rec := d.records[idx]

	var end net.IP
	country, err := countryByIndex(rec.country)
	if err != nil {
		// Structurally impossible at the bit widths used (spec.md
		// section 4.1), but fail closed rather than panic mid-iteration.
		d.done = true
		return CountryBlock{}, false
	}

	if idx+1 < len(d.records) {
		nextStart := addrToBig(d.version, d.records[idx+1].start)
		end = bigToAddr(d.version, new(big.Int).Sub(nextStart, big.NewInt(1)))
	} else {
		end = maxAddress(d.version)
	}

	d.next++
	if d.next >= len(d.records) {
		d.done = true
	}

	return CountryBlock{
		Version: d.version,
		Start:   rec.start,
		End:     end,
		Country: country,
	}, true
}
