// Package metrics counts service outcomes with Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "saythanks"

// Outcome label values.
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeCreated  = "created"
	OutcomeConflict = "conflict"
	OutcomeSkipped  = "skipped"
)

// Metrics groups the collectors shared by the services. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	NotesStored     *prometheus.CounterVec
	NotesArchived   prometheus.Counter
	Registrations   *prometheus.CounterVec
	Notifications   *prometheus.CounterVec
	FlagReadFaults  *prometheus.CounterVec
	IdentityLookups *prometheus.CounterVec
	Exports         *prometheus.CounterVec
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		NotesStored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notes_stored_total",
			Help:      "Notes passed to storage, by outcome.",
		}, []string{"outcome"}),
		NotesArchived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notes_archived_total",
			Help:      "Successful archive calls.",
		}),
		Registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inbox_registrations_total",
			Help:      "Inbox registrations, by outcome.",
		}, []string{"outcome"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Note emails, by outcome.",
		}, []string{"outcome"}),
		FlagReadFaults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flag_read_faults_total",
			Help:      "Flag reads that hit an aborted transaction, by flag.",
		}, []string{"flag"}),
		IdentityLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "identity_lookups_total",
			Help:      "Identity provider email lookups, by outcome.",
		}, []string{"outcome"}),
		Exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Note exports, by format.",
		}, []string{"format"}),
	}
	m.registry.MustRegister(
		m.NotesStored,
		m.NotesArchived,
		m.Registrations,
		m.Notifications,
		m.FlagReadFaults,
		m.IdentityLookups,
		m.Exports,
	)
	return m
}

// Gatherer exposes the registry, e.g. for promhttp or a textfile dump.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteTextfile dumps the current values in the text exposition format for
// the node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

func (m *Metrics) NoteStored(outcome string) {
	if m != nil {
		m.NotesStored.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) NoteArchived() {
	if m != nil {
		m.NotesArchived.Inc()
	}
}

func (m *Metrics) Registration(outcome string) {
	if m != nil {
		m.Registrations.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) Notification(outcome string) {
	if m != nil {
		m.Notifications.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) FlagReadFault(flag string) {
	if m != nil {
		m.FlagReadFaults.WithLabelValues(flag).Inc()
	}
}

func (m *Metrics) IdentityLookup(outcome string) {
	if m != nil {
		m.IdentityLookups.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) Export(format string) {
	if m != nil {
		m.Exports.WithLabelValues(format).Inc()
	}
}
