package main

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/uber-go/tally/v4"
)

// logReporter writes tally metrics as debug log entries.
type logReporter struct {
	log *logrus.Logger
}

func newLogReporter(log *logrus.Logger) tally.StatsReporter {
	return &logReporter{log: log}
}

func (r *logReporter) ReportCounter(name string, tags map[string]string, value int64) {
	r.entry(name, tags).WithField("value", value).Debug("counter")
}

func (r *logReporter) ReportGauge(name string, tags map[string]string, value float64) {
	r.entry(name, tags).WithField("value", value).Debug("gauge")
}

func (r *logReporter) ReportTimer(name string, tags map[string]string, interval time.Duration) {
	r.entry(name, tags).WithField("value", interval).Debug("timer")
}

func (r *logReporter) ReportHistogramValueSamples(
	name string,
	tags map[string]string,
	buckets tally.Buckets,
	bucketLowerBound, bucketUpperBound float64,
	samples int64,
) {
	r.entry(name, tags).WithFields(logrus.Fields{
		"lower":   bucketLowerBound,
		"upper":   bucketUpperBound,
		"samples": samples,
	}).Debug("histogram")
}

func (r *logReporter) ReportHistogramDurationSamples(
	name string,
	tags map[string]string,
	buckets tally.Buckets,
	bucketLowerBound, bucketUpperBound time.Duration,
	samples int64,
) {
	r.entry(name, tags).WithFields(logrus.Fields{
		"lower":   bucketLowerBound,
		"upper":   bucketUpperBound,
		"samples": samples,
	}).Debug("histogram")
}

func (r *logReporter) Capabilities() tally.Capabilities { return r }
func (r *logReporter) Reporting() bool                   { return true }
func (r *logReporter) Tagging() bool                     { return true }
func (r *logReporter) Flush()                            {}

func (r *logReporter) entry(name string, tags map[string]string) *logrus.Entry {
	fields := logrus.Fields{"metric": name}
	for k, v := range tags {
		fields[k] = v
	}
	return r.log.WithFields(fields)
}
