package cmd

import (
	"expvar"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/pkg/errors"
)

// monitor publishes live run progress over expvar/HTTP so a long sampling
// run can be watched from outside the process.
type monitor struct {
	info    *expvar.Map
	stopped chan struct{}
	server  *http.Server

	TotalChains    *expvar.Int
	TotalSteps     *expvar.Int
	Iterations     *expvar.Int
	SavedSamples   *expvar.Int
	RunTime        *expvar.Float
	LastAcceptRate *expvar.Float
	LastScale      *expvar.Float
}

// Start begins the monitor
func (m *monitor) Start(addr string) error {
	if m.info != nil {
		return errors.Errorf("BUG: You may only start the process monitor once")
	}

	m.info = expvar.NewMap("stoker-progress")
	m.stopped = make(chan struct{})
	m.server = &http.Server{
		Addr: addr,
	}

	// Help the user and redirect to the only thing currently available:
	// the handler from the expvar package
	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/debug/vars", http.StatusTemporaryRedirect)
	})

	m.TotalChains = expvar.NewInt("Total-Chains")
	m.TotalSteps = expvar.NewInt("Total-Steps")
	m.Iterations = expvar.NewInt("Iterations")
	m.SavedSamples = expvar.NewInt("Saved-Samples")
	m.RunTime = expvar.NewFloat("Run-Time")
	m.LastAcceptRate = expvar.NewFloat("Last-Accept-Rate")
	m.LastScale = expvar.NewFloat("Last-Scale")

	// Actual server that will close the stopped channel on exit
	started := make(chan struct{})
	go func() {
		defer close(m.stopped)
		fmt.Fprintf(os.Stderr, "HTTP now available at %v (see debug/vars/)\n", m.server.Addr)
		close(started)
		m.server.ListenAndServe()
	}()

	<-started
	return nil
}

func (m *monitor) Stop() {
	if m.info == nil {
		return
	}

	m.server.Close()

	select {
	case <-m.stopped:
		fmt.Fprintf(os.Stderr, "HTTP Info Stopped\n")
	case <-time.After(2 * time.Second):
		fmt.Fprintf(os.Stderr, "HTTP would NOT stop: just continuing on\n")
	}
}
