package main

import "github.com/jmtrask/stoker/cmd"

// TODO: checkpointing for jobs (freeze a chain and continue it later) -
//       state/tuner/range all serialize already, the generator does not

func main() {
	cmd.Execute()
}
