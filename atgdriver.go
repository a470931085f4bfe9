// Package atgdriver is the incremental automatic-test-generation (ATG)
// driver: given a source repository and a test project, it determines
// which test environments are impacted by a change, regenerates tests
// only for those, and merges the results back into the project's
// persistent test archive.
package atgdriver

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// InterruptibleContext returns a context which is canceled when the
// program receives SIGINT or SIGTERM. A second signal terminates the
// process immediately, in case an in-flight baseline or build hangs.
func InterruptibleContext() (context.Context, context.CancelFunc) {
	ctx, canc := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 2)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		canc()
		<-sig
		os.Exit(1)
	}()
	return ctx, canc
}

// Archive identifies the persistent test-script archive a run writes
// back to.
type Archive struct {
	// Path is the archive root (Configuration.FinalTstPath), e.g.
	// /home/builder/myproject/environment.
	Path string
}

// FinalTstPath returns the path of the archived test script for the
// named environment.
func (a Archive) FinalTstPath(envName string) string {
	return a.Path + "/" + envName + "/final.tst"
}
