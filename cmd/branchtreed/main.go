// Command branchtreed runs a sample task tree and serves its live shape
// over HTTP, the way heim-backend serves a chat room: a small flag-based
// config, an HTTP server wrapping a Prometheus endpoint and a websocket
// feed, and an optional audit sink.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"euphoria.io/branch"
	"euphoria.io/branch/internal/audit"
	"euphoria.io/branch/internal/introspect"
)

var (
	addr      = flag.String("http", ":8080", "address to serve /trees and /metrics on")
	workers   = flag.Int64("credit", 4, "fan-out credit the sample tree's root is funded with")
	fanout    = flag.Int("fanout", 6, "number of leaves the sample tree's parallel action produces")
	runEvery  = flag.Duration("interval", 5*time.Second, "how often to re-run the sample tree")
	auditDSN  = flag.String("audit-dsn", "", "optional postgres DSN to record completed runs to")
	rootDrain = flag.Duration("drain", 10*time.Second, "bound on how long a run waits for stragglers")
)

func main() {
	flag.Parse()

	reg := introspect.NewRegistry(nil)
	server := introspect.NewServer(reg, log.Default())

	var sink *audit.Sink
	if *auditDSN != "" {
		var err error
		sink, err = audit.Open(*auditDSN)
		if err != nil {
			log.Fatalf("branchtreed: audit.Open: %v", err)
		}
		defer sink.Close()
	}

	go runLoop(reg, sink)

	fmt.Printf("serving on %s\n", *addr)
	log.Fatal(http.ListenAndServe(*addr, server))
}

// runLoop drives the sample tree on a timer, registering it for
// introspection while it runs and recording its outcome to the audit sink
// if configured.
func runLoop(reg *introspect.Registry, sink *audit.Sink) {
	ticker := time.NewTicker(*runEvery)
	defer ticker.Stop()

	for range ticker.C {
		runOnce(reg, sink)
	}
}

func runOnce(reg *introspect.Registry, sink *audit.Sink) {
	n := *fanout
	action := branch.WaitEvents(func() (int, error) {
		n--
		if n < 0 {
			return 0, io.EOF
		}
		return n, nil
	})

	root := branch.NewParallelRoot(action, *workers)
	reg.Register("sample", contextTree{root})
	defer reg.Unregister("sample")

	start := time.Now()
	deadline, cancel := context.WithTimeout(context.Background(), *rootDrain)
	defer cancel()

	values, err := branch.RunRoot(deadline, root)
	if err != nil {
		log.Printf("branchtreed: run failed: %v", err)
	} else {
		log.Printf("branchtreed: run produced %d leaves", len(values))
	}

	if sink != nil {
		run := audit.RunFromResult("sample", root.ID().String(), start, time.Now(), values, err)
		if recErr := sink.Record(run); recErr != nil {
			log.Printf("branchtreed: audit.Record: %v", recErr)
		}
	}
}

// contextTree adapts *branch.Context[int] to introspect.Tree.
type contextTree struct {
	ctx *branch.Context[int]
}

func (t contextTree) ID() string             { return t.ctx.ID().String() }
func (t contextTree) PendingCount() int      { return t.ctx.PendingCount() }
func (t contextTree) CreditAvailable() int64 { return t.ctx.CreditAvailable() }
