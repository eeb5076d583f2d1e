// Command ipcountrygen reads a CSV of IP-range-to-country records
// (start_ip,end_ip,country_code) and emits a generated .go source file
// holding the packed v4/v6 country-block tables plus the country-code
// lookup slice. On any input or generation error it still writes a
// file, but one that deliberately fails to compile and says so, so a
// bad run can never be mistaken for a good one (spec.md section 6).
package main

import (
	"bufio"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"sort"
	"strings"

	"github.com/masq-node/accountant/ipcountry"
)

func main() {
	in := flag.String("in", "", "CSV input path; defaults to stdin")
	out := flag.String("out", "", "generated .go output path; defaults to stdout")
	pkg := flag.String("package", "ipcountrydata", "package name for the generated file")
	flag.Parse()

	if err := run(*in, *out, *pkg); err != nil {
		fmt.Fprintf(os.Stderr, "ipcountrygen: %v\n", err)
		os.Exit(1)
	}
}

func run(inPath, outPath, pkgName string) error {
	input, err := openInput(inPath)
	if err != nil {
		return err
	}
	defer input.Close()

	blocks, errs := readBlocks(input)

	serializer := ipcountry.NewCountryBlockSerializer()
	for _, version := range []ipcountry.IPVersion{ipcountry.IPv4, ipcountry.IPv6} {
		for _, b := range blocks {
			if b.Version == version {
				serializer.Add(b)
			}
		}
	}
	ipv4Queue, ipv6Queue := serializer.Finish()

	output, closeOutput, err := openOutput(outPath)
	if err != nil {
		return err
	}
	defer closeOutput()

	if len(errs) > 0 {
		writeBanner(output, errs)
		return fmt.Errorf("%d error(s) while reading CSV; see generated file for details", len(errs))
	}

	return generateCode(output, pkgName, ipv4Queue, ipv6Queue)
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

func openOutput(path string) (io.Writer, func() error, error) {
	if path == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

// readBlocks parses every CSV row into a CountryBlock, sorted ascending by
// start address within each IP version (the serializer requires ascending,
// non-interleaved input). Rows that fail to parse are reported by line
// number in errs rather than aborting the whole read.
func readBlocks(r io.Reader) (blocks []ipcountry.CountryBlock, errs []string) {
	reader := csv.NewReader(bufio.NewReader(r))
	reader.FieldsPerRecord = 3

	lineNo := 0
	for {
		lineNo++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("line %d: CSV format error: %v", lineNo, err))
			continue
		}

		block, err := parseBlock(record)
		if err != nil {
			errs = append(errs, fmt.Sprintf("line %d: %v", lineNo, err))
			continue
		}
		blocks = append(blocks, block)
	}

	sort.SliceStable(blocks, func(i, j int) bool {
		if blocks[i].Version != blocks[j].Version {
			return blocks[i].Version < blocks[j].Version
		}
		return compareIP(blocks[i].Start, blocks[j].Start) < 0
	})

	return blocks, errs
}

func parseBlock(record []string) (ipcountry.CountryBlock, error) {
	startStr := strings.TrimSpace(record[0])
	endStr := strings.TrimSpace(record[1])
	country := strings.ToUpper(strings.TrimSpace(record[2]))

	start := net.ParseIP(startStr)
	if start == nil {
		return ipcountry.CountryBlock{}, fmt.Errorf("invalid start address %q", startStr)
	}
	end := net.ParseIP(endStr)
	if end == nil {
		return ipcountry.CountryBlock{}, fmt.Errorf("invalid end address %q", endStr)
	}

	version, err := sameVersion(start, end)
	if err != nil {
		return ipcountry.CountryBlock{}, err
	}

	if len(country) != 2 {
		return ipcountry.CountryBlock{}, fmt.Errorf("country code %q is not a 2-letter ISO-3166 code", country)
	}
	if country == "ZZ" {
		return ipcountry.CountryBlock{}, fmt.Errorf("ZZ is reserved for gap-filler blocks and may not appear in input")
	}

	if compareIP(start, end) > 0 {
		return ipcountry.CountryBlock{}, fmt.Errorf("start address %s is after end address %s", startStr, endStr)
	}

	return ipcountry.CountryBlock{Version: version, Start: start, End: end, Country: country}, nil
}

func sameVersion(a, b net.IP) (ipcountry.IPVersion, error) {
	a4, b4 := a.To4(), b.To4()
	if a4 != nil && b4 != nil {
		return ipcountry.IPv4, nil
	}
	if a4 == nil && b4 == nil {
		return ipcountry.IPv6, nil
	}
	return 0, fmt.Errorf("start and end address are not the same IP version")
}

func compareIP(a, b net.IP) int {
	return strings.Compare(string(a.To16()), string(b.To16()))
}

func writeBanner(w io.Writer, errs []string) {
	fmt.Fprint(w, "// *** DO NOT USE THIS CODE ***\n")
	fmt.Fprint(w, "// It will produce incorrect results.\n")
	fmt.Fprint(w, "// The process that generated it found these errors:\n//\n")
	for _, e := range errs {
		fmt.Fprintf(w, "//   %s\n", e)
	}
	fmt.Fprint(w, "//\n// Fix the errors and regenerate the code.\n// *** DO NOT USE THIS CODE ***\n")
	fmt.Fprint(w, "package invalid\n")
}
