package main

import (
	"fmt"
	"io"

	"github.com/masq-node/accountant/ipcountry"
)

// generateCode renders the packed v4/v6 queues and the country table built
// up as a side effect of serializing them into one Go source file.
func generateCode(w io.Writer, pkgName string, ipv4, ipv6 *ipcountry.BitQueue) error {
	fmt.Fprintf(w, "// Code generated by ipcountrygen. DO NOT EDIT.\n\n")
	fmt.Fprintf(w, "package %s\n\n", pkgName)

	if err := writeWordTable(w, "ipv4CountryData", ipv4); err != nil {
		return err
	}
	if err := writeWordTable(w, "ipv6CountryData", ipv6); err != nil {
		return err
	}
	writeCountriesTable(w)

	return nil
}

func writeWordTable(w io.Writer, name string, q *ipcountry.BitQueue) error {
	words, bitLength := q.Words()

	fmt.Fprintf(w, "var %sWords = []uint64{", name)
	for i, word := range words {
		if i%4 == 0 {
			fmt.Fprint(w, "\n\t")
		} else {
			fmt.Fprint(w, " ")
		}
		fmt.Fprintf(w, "0x%016x,", word)
	}
	fmt.Fprint(w, "\n}\n\n")
	fmt.Fprintf(w, "const %sBitLength = %d\n\n", name, bitLength)

	return nil
}

func writeCountriesTable(w io.Writer) {
	fmt.Fprintf(w, "var CountriesTable = []string{\n")
	for _, code := range ipcountry.CountriesTable {
		fmt.Fprintf(w, "\t%q,\n", code)
	}
	fmt.Fprint(w, "}\n")
}
