package ipcountry

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustIP(t *testing.T, s string) net.IP {
	t.Helper()
	ip := net.ParseIP(s)
	require.NotNil(t, ip, "invalid test IP %q", s)
	return ip
}

func v4(t *testing.T, s string) net.IP {
	ip := mustIP(t, s).To4()
	require.NotNil(t, ip, "%q is not an IPv4 address", s)
	return ip
}

func TestBitQueuePushPopRoundTrip(t *testing.T) {
	q := NewBitQueue()
	q.Push(0x3, 2)
	q.Push(0xABCD, 16)
	q.Push(1, 1)
	q.Push(0x7F, 7)

	assert.Equal(t, 26, q.Len())

	v, ok := q.Pop(2)
	require.True(t, ok)
	assert.Equal(t, uint64(0x3), v)

	v, ok = q.Pop(16)
	require.True(t, ok)
	assert.Equal(t, uint64(0xABCD), v)

	v, ok = q.Pop(1)
	require.True(t, ok)
	assert.Equal(t, uint64(1), v)

	v, ok = q.Pop(7)
	require.True(t, ok)
	assert.Equal(t, uint64(0x7F), v)

	_, ok = q.Pop(1)
	assert.False(t, ok, "popping past the end must yield false")
}

func TestBitQueueCrossesWordBoundary(t *testing.T) {
	q := NewBitQueue()
	for i := 0; i < 10; i++ {
		q.Push(uint64(i), 7)
	}
	for i := 0; i < 10; i++ {
		v, ok := q.Pop(7)
		require.True(t, ok)
		assert.Equal(t, uint64(i), v)
	}
}

// seed scenario 2 (spec.md section 8): three IPv4 blocks interleaved with
// ZZ-fillers at the gaps and at the tail of the address space.
func TestCountryBlockRoundTripSeedScenario(t *testing.T) {
	blocks := []CountryBlock{
		{Version: IPv4, Start: v4(t, "1.2.3.4"), End: v4(t, "1.2.3.5"), Country: "AS"},
		{Version: IPv4, Start: v4(t, "1.2.3.6"), End: v4(t, "6.7.8.9"), Country: "AD"},
		{Version: IPv4, Start: v4(t, "10.11.12.13"), End: v4(t, "11.11.12.13"), Country: "AO"},
	}

	ser := NewCountryBlockSerializer()
	for _, b := range blocks {
		ser.Add(b)
	}
	ipv4Queue, _ := ser.Finish()

	words, bitLen := ipv4Queue.Words()
	deser := NewCountryBlockDeserializer(IPv4, NewBitQueueFromWords(words, bitLen))

	var got []CountryBlock
	for {
		b, ok := deser.Next()
		if !ok {
			break
		}
		got = append(got, b)
	}

	require.Len(t, got, 6)
	expectStart := []string{"0.0.0.0", "1.2.3.4", "1.2.3.6", "6.7.8.10", "10.11.12.13", "11.11.12.14"}
	expectEnd := []string{"1.2.3.3", "1.2.3.5", "6.7.8.9", "10.11.12.12", "11.11.12.13", "255.255.255.255"}
	expectCountry := []string{"ZZ", "AS", "AD", "ZZ", "AO", "ZZ"}

	for i, b := range got {
		assert.True(t, b.Start.Equal(v4(t, expectStart[i])), "block %d start", i)
		assert.True(t, b.End.Equal(v4(t, expectEnd[i])), "block %d end", i)
		assert.Equal(t, expectCountry[i], b.Country, "block %d country", i)
	}
}

func TestCountryBlockRoundTripCoversFullAddressSpaceNoGaps(t *testing.T) {
	blocks := []CountryBlock{
		{Version: IPv4, Start: v4(t, "0.0.0.0"), End: v4(t, "255.255.255.255"), Country: "US"},
	}
	ser := NewCountryBlockSerializer()
	ser.Add(blocks[0])
	ipv4Queue, _ := ser.Finish()

	words, bitLen := ipv4Queue.Words()
	deser := NewCountryBlockDeserializer(IPv4, NewBitQueueFromWords(words, bitLen))

	b, ok := deser.Next()
	require.True(t, ok)
	assert.True(t, b.Start.Equal(v4(t, "0.0.0.0")))
	assert.True(t, b.End.Equal(v4(t, "255.255.255.255")))
	assert.Equal(t, "US", b.Country)

	_, ok = deser.Next()
	assert.False(t, ok, "iterator must be finite and non-restartable")
}
