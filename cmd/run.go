package cmd

import (
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"

	"github.com/jmtrask/stoker/rand"
	"github.com/jmtrask/stoker/sampler"
)

// monitorEvery is how often (in steps) a driven chain refreshes the
// progress monitor.
const monitorEvery = 50

// runOneChain builds a complete Job from the run spec and drives it to
// completion. Each chain gets its own generator seeded with its own seed,
// so chains share nothing.
func runOneChain(rs *RunSpec, chainIdx int, seed int64, mon *monitor) (*sampler.Chain, error) {
	target, err := rs.BuildTarget()
	if err != nil {
		return nil, err
	}

	gen, err := rand.NewGenerator(seed)
	if err != nil {
		return nil, errors.Wrap(err, "Could not create generator")
	}

	alg, err := rs.BuildAlgorithm(gen, target)
	if err != nil {
		return nil, err
	}

	tuner, err := sampler.NewTuner(rs.Tuner.Rate, rs.Tuner.Window, rs.Tuner.Scale)
	if err != nil {
		return nil, err
	}

	sched, err := sampler.NewRange(rs.Range.Steps, rs.Range.BurnIn, rs.Range.Thinning)
	if err != nil {
		return nil, err
	}

	dest, err := rs.BuildDestination()
	if err != nil {
		return nil, err
	}

	outCfg := sampler.OutputConfig{Destination: dest}
	if dest == sampler.DestStream {
		f, err := os.Create(fmt.Sprintf("%s.%d", rs.Output.Path, chainIdx))
		if err != nil {
			return nil, errors.Wrapf(err, "Could not create stream file for chain %d", chainIdx)
		}
		defer f.Close()
		outCfg.Writer = f
	}

	mode, err := rs.BuildMode()
	if err != nil {
		return nil, err
	}

	job, err := sampler.NewJob(alg, tuner, sched, rs.InitialValue(target), outCfg, mode)
	if err != nil {
		return nil, errors.Wrapf(err, "Could not construct job for chain %d", chainIdx)
	}

	// Without a monitor the job can just own its loop. With one we drive
	// step by step (the suspendable surface) so progress stays fresh.
	if mon == nil {
		return job.Run()
	}

	for job.Iteration() < sched.TotalSteps {
		if _, err := job.Consume(); err != nil {
			return nil, err
		}
		mon.Iterations.Add(1)
		if job.Iteration()%monitorEvery == 0 {
			mon.LastAcceptRate.Set(job.AcceptRate())
			mon.LastScale.Set(job.Scale())
		}
	}

	ch, err := job.Close()
	if err != nil {
		return nil, err
	}
	mon.SavedSamples.Add(int64(len(ch.Samples)))
	mon.RunTime.Set(ch.RunTime)

	return ch, nil
}

// RunChains fans the configured chains out across goroutines (they share
// nothing, so no synchronization beyond the WaitGroup is needed) and
// collects the finished chains in order.
func RunChains(rs *RunSpec, mon *monitor) ([]*sampler.Chain, error) {
	chains := make([]*sampler.Chain, rs.Chains)
	errs := make([]error, rs.Chains)

	var wg sync.WaitGroup
	for i := 0; i < rs.Chains; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			chains[idx], errs[idx] = runOneChain(rs, idx, rs.Seed+int64(idx), mon)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, errors.Wrapf(err, "Chain %d failed", i)
		}
	}

	return chains, nil
}

// reportChains prints a per-chain, per-dimension summary of the finished
// run
func reportChains(out *log.Logger, rs *RunSpec, chains []*sampler.Chain) {
	for i, ch := range chains {
		out.Printf("Chain %d [%s] job %s: %d samples in %.3fs\n", i, ch.Algorithm, ch.JobID, len(ch.Samples), ch.RunTime)

		if len(ch.Samples) < 1 {
			if rs.Output.Destination == "stream" {
				out.Printf("  (streamed to %s.%d)\n", rs.Output.Path, i)
			}
			continue
		}

		dim := len(ch.Samples[0])
		col := make([]float64, len(ch.Samples))
		for d := 0; d < dim; d++ {
			for s, row := range ch.Samples {
				col[s] = row[d]
			}
			out.Printf("  dim %d: mean=%8.4f stddev=%8.4f\n", d, stat.Mean(col, nil), stat.StdDev(col, nil))
		}

		if acc, ok := ch.Diagnostics["accepted"]; ok {
			out.Printf("  accept rate (saved portion): %.3f\n", stat.Mean(acc, nil))
		}
	}
}

// RunSampling is the run command entry point
func RunSampling(specFile string, monitorAddr string, out *log.Logger) error {
	rs, err := ReadRunSpecFile(specFile)
	if err != nil {
		return err
	}

	var mon *monitor
	if len(monitorAddr) > 0 {
		mon = &monitor{}
		if err := mon.Start(monitorAddr); err != nil {
			return errors.Wrap(err, "Could not start progress monitor")
		}
		defer mon.Stop()

		mon.TotalChains.Set(int64(rs.Chains))
		mon.TotalSteps.Set(int64(rs.Range.Steps * rs.Chains))
	}

	out.Printf("stoker run: target=%s algorithm=%s chains=%d steps=%d\n",
		rs.Target.Name, rs.Algorithm.Name, rs.Chains, rs.Range.Steps)
	if verbose {
		out.Printf("  tuner: rate=%.3f window=%d scale=%.3f\n", rs.Tuner.Rate, rs.Tuner.Window, rs.Tuner.Scale)
		out.Printf("  range: burnin=%d thinning=%d mode=%s output=%s\n",
			rs.Range.BurnIn, rs.Range.Thinning, rs.Mode, rs.Output.Destination)
	}

	chains, err := RunChains(rs, mon)
	if err != nil {
		return err
	}

	reportChains(out, rs, chains)
	return nil
}
