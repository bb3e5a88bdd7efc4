// Command ccsds-pipeline is a thin driver over the codec stages: it is
// not itself part of the specified pipeline (spec §1: "CLI/process
// surface is out of scope except as it feeds the core above"), only the
// wiring that lets the stages be exercised from files on disk.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
