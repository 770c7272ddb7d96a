// internal/sched/notify.go

package sched

import (
	"encoding/csv"
	"os"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"
)

// LogNotifier writes one log entry per event.
type LogNotifier struct {
	log *logrus.Entry
}

// NewLogNotifier logs through entry.
func NewLogNotifier(entry *logrus.Entry) *LogNotifier {
	return &LogNotifier{log: entry}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(ev Event) {
	entry := n.log.WithFields(logrus.Fields{
		"time":       ev.Time,
		"event":      ev.Kind.String(),
		"process_id": ev.ProcessID,
	})

	switch ev.Kind {
	case EventAdmit:
		entry.WithField("block", ev.Block).Info("process added to the queue")
	case EventReject:
		entry.Info("process not added due to insufficient memory")
	case EventStart:
		entry.Info("process is starting")
	case EventQuantum:
		entry.WithFields(logrus.Fields{
			"slice":     ev.Slice,
			"remaining": ev.Remaining,
		}).Info("running process")
	case EventTerminate:
		entry.Info("process has terminated")
	case EventWait:
		entry.Debug("head of queue has not arrived yet")
	case EventInterrupt:
		entry.WithError(ev.Err).Debug("wait interrupted")
	}
}

// CSVNotifier appends one row per event to a CSV file.
type CSVNotifier struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVNotifier creates path and writes the header row.
func NewCSVNotifier(path string) (*CSVNotifier, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w := csv.NewWriter(f)

	// write header
	if err := w.Write([]string{"time", "event", "process_id", "remaining", "slice", "block"}); err != nil {
		f.Close()
		return nil, err
	}
	w.Flush()
	return &CSVNotifier{file: f, writer: w}, nil
}

// Notify implements Notifier.
func (n *CSVNotifier) Notify(ev Event) {
	n.mu.Lock()
	defer n.mu.Unlock()

	rec := []string{
		strconv.FormatInt(ev.Time, 10),
		ev.Kind.String(),
		strconv.Itoa(ev.ProcessID),
		strconv.Itoa(ev.Remaining),
		strconv.Itoa(ev.Slice),
		strconv.Itoa(ev.Block),
	}
	_ = n.writer.Write(rec)
	n.writer.Flush()
}

// Close flushes pending rows and closes the file.
func (n *CSVNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.writer.Flush()
	if err := n.writer.Error(); err != nil {
		n.file.Close()
		return err
	}
	return n.file.Close()
}

// Recorder keeps every event it is notified of.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Notify implements Notifier.
func (r *Recorder) Notify(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Filter returns the recorded events of the given kind.
func (r *Recorder) Filter(kind EventKind) []Event {
	var out []Event
	for _, ev := range r.Events() {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}
