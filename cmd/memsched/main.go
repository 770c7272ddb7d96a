package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/uber-go/tally/v4"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"gopkg.in/alecthomas/kingpin.v2"

	"memsched/internal/config"
	"memsched/internal/ident"
	"memsched/internal/job"
	"memsched/internal/memory"
	"memsched/internal/sched"
)

var (
	app = kingpin.New("memsched", "Memory-gated CPU scheduling simulator")

	cfgFile = app.Flag("config", "YAML config file").Short('c').Envar("MEMSCHED_CONFIG").String()
	mode    = app.Flag("mode", "Dispatch mode, overrides the config").Enum(string(sched.ModeFCFS), string(sched.ModeRoundRobin))
	csvPath = app.Flag("csv", "Write every event to this CSV file").String()
	verbose = app.Flag("verbose", "Log waits and metrics").Short('v').Bool()
	tracing = app.Flag("trace", "Print dispatch spans to stdout").Bool()
)

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	log := logrus.StandardLogger()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	if err := run(log); err != nil {
		log.WithError(err).Fatal("simulation failed")
	}
}

func run(log *logrus.Logger) error {
	// Read the configuration
	cfg, err := config.Load(*cfgFile)
	if err != nil {
		return err
	}
	if *mode != "" {
		cfg.Mode = sched.Mode(*mode)
	}
	log.WithField("config", fmt.Sprintf("%+v", cfg)).Debug("loaded config")

	mem, err := memory.NewBestFit(cfg.Blocks)
	if err != nil {
		return err
	}
	fmt.Printf("\nMemory Block Status:\n%s\n\n", mem)

	procs, err := job.Build(ident.New(cfg.Seed), cfg.Processes)
	if err != nil {
		return err
	}

	scope, closer := tally.NewRootScope(tally.ScopeOptions{
		Prefix:   "memsched",
		Reporter: newLogReporter(log),
	}, time.Second)
	defer closer.Close()

	opts := []sched.Option{
		sched.WithMode(cfg.Mode),
		sched.WithQuantum(cfg.Quantum),
		sched.WithLogger(log),
		sched.WithScope(scope),
		sched.WithNotifier(sched.NewLogNotifier(logrus.NewEntry(log))),
	}

	if cfg.TickMS > 0 {
		clock := sched.NewTickClock(0)
		clock.Start(time.Duration(cfg.TickMS) * time.Millisecond)
		defer clock.Stop()
		opts = append(opts, sched.WithClock(clock))
	}

	if *csvPath != "" {
		n, err := sched.NewCSVNotifier(*csvPath)
		if err != nil {
			return err
		}
		defer n.Close()
		opts = append(opts, sched.WithNotifier(n))
	}

	if *tracing {
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return err
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
		defer func() { _ = tp.Shutdown(context.Background()) }()
		opts = append(opts, sched.WithTracer(tp.Tracer("memsched")))
	}

	s := sched.New(mem, opts...)
	for _, p := range procs {
		s.AddProcess(p)
	}
	s.ExecuteProcesses(context.Background())

	fmt.Printf("\nMemory Block Status:\n%s\n\n", mem)
	fmt.Print(sched.NewReport(s.DispatchOrder(), procs))
	return nil
}
