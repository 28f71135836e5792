//go:build !tinygo

package hal

import (
	"io"
	"os"
)

// Board bundles the analog capabilities plus the console port for one target.
type Board struct {
	Source  AnalogSource
	Sink    DriveSink
	Console io.ReadWriter

	Sim *Sim // non-nil on simulated targets
}

type stdio struct{}

func (stdio) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdio) Write(p []byte) (int, error) { return os.Stdout.Write(p) }

// NewBoard on a host target wires the simulated plant and stdio console.
func NewBoard() (*Board, error) {
	sim := NewSim(DefaultSimConfig())
	return &Board{
		Source:  sim,
		Sink:    sim,
		Console: stdio{},
		Sim:     sim,
	}, nil
}
