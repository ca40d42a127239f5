// Offline chunk-store audit. Opens a constant's chunk database directly,
// recomputes every checksum and prints the damage report without going
// through a running server.
package main

import (
	"flag"
	"fmt"
	"os"

	"constantdb/pkg/logger"
	"constantdb/pkg/storage"
)

func main() {
	var path string
	flag.StringVar(&path, "path", "", "chunk database path (e.g. ./data/pi_chunks)")
	flag.Parse()
	if path == "" {
		fmt.Fprintln(os.Stderr, "--path required")
		os.Exit(2)
	}
	logger.Init()

	cs, err := storage.OpenChunkStore(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open failed: %v\n", err)
		os.Exit(1)
	}
	defer cs.Close()

	results, err := cs.VerifyAllChunks()
	if err != nil {
		fmt.Fprintf(os.Stderr, "verify failed: %v\n", err)
		os.Exit(1)
	}

	corrupt := 0
	for _, v := range results {
		if !v.OK {
			corrupt++
			fmt.Printf("CORRUPT chunk %d (%d-%d): %s\n", v.ID, v.Start, v.End, v.Error)
		}
	}
	if lo, hi, err := cs.CoverageRange(); err == nil {
		fmt.Printf("coverage: %d-%d (%d digits)\n", lo, hi, hi-lo)
	}
	fmt.Printf("chunks: %d, corrupt: %d\n", len(results), corrupt)
	if corrupt > 0 {
		os.Exit(1)
	}
}
