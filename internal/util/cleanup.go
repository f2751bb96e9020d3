package util

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// SetupInterruptHandler exits on SIGINT/SIGTERM. Downloaded pages are
// output artifacts, not temporaries, so nothing is removed on the way
// out; a re-run overwrites same-named files.
func SetupInterruptHandler(outputDir string) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sig
		fmt.Println("\nInterrupt received.")

		RemoveIfEmpty(outputDir)
		fmt.Println("Exiting due to interrupt.")

		os.Exit(1)
	}()
}
