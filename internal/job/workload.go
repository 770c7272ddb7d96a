// internal/job/workload.go

package job

import (
	"github.com/pkg/errors"

	"memsched/internal/ident"
	"memsched/internal/sched"
)

// Spec describes one process of a workload.
type Spec struct {
	Priority int `yaml:"priority"`
	Arrival  int `yaml:"arrival"`
	Burst    int `yaml:"burst"`
	Memory   int `yaml:"memory"`
}

// DefaultWorkload returns the stock three-process workload.
func DefaultWorkload() []Spec {
	return []Spec{
		{Priority: 2, Arrival: 0, Burst: 5, Memory: 512},
		{Priority: 1, Arrival: 2, Burst: 3, Memory: 256},
		{Priority: 3, Arrival: 1, Burst: 4, Memory: 128},
	}
}

// Build creates one process per spec, in order, drawing ids from ids.
func Build(ids *ident.Allocator, specs []Spec) ([]*sched.Process, error) {
	procs := make([]*sched.Process, 0, len(specs))
	for i, s := range specs {
		p, err := sched.NewProcess(ids, s.Priority, s.Arrival, s.Burst, s.Memory)
		if err != nil {
			return nil, errors.Wrapf(err, "process #%d", i)
		}
		procs = append(procs, p)
	}
	return procs, nil
}
