package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joseph-ayodele/invoice-extractor/internal/sample"
)

func main() {
	var (
		out   = flag.String("out", "sample_statement.pdf", "output PDF path")
		blank = flag.Int("blank", 0, "render N text-less pages instead of the sample statement")
	)
	flag.Parse()

	var (
		data []byte
		err  error
	)
	if *blank > 0 {
		data, err = sample.Blank(*blank)
	} else {
		data, err = sample.Render(sample.DefaultStatement())
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error: write %s: %v\n", *out, err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s (%d bytes)\n", *out, len(data))
}
