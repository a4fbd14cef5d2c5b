// Command bpxserver runs a demo BPX polling server: three seeded
// resources, the BPX protocol endpoint, and a handful of operational
// routes, fronted by the httpkit transport.
package main

import (
	"fmt"
	"os"

	"github.com/buyukakyuz/bpx/cmd/bpxserver/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
