package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dc1-ops/nexus/pkg/log"
	"github.com/dc1-ops/nexus/pkg/mc"
)

// EventType represents the type of audit event
type EventType string

const (
	EventRecoveryStateTransition EventType = "recovery_state_transition"
	EventFailoverStarted         EventType = "failover_started"
	EventFailoverComplete        EventType = "failover_complete"
	EventFailoverFailed          EventType = "failover_failed"
	EventFailoverTestStarted     EventType = "failover_test_started"
	EventFailoverTestComplete    EventType = "failover_test_complete"
	EventCheckpointIntegrity     EventType = "checkpoint_integrity_failure"
	EventEscalationCritical      EventType = "escalation_critical"
)

// Event represents one audit trail entry
type Event struct {
	ID        string
	Type      EventType
	Severity  string
	Source    string
	Details   map[string]any
	Timestamp time.Time
}

// Recorder accepts audit events. Satisfied by *Trail; components hold
// the interface so tests can capture events synchronously.
type Recorder interface {
	Record(event Event)
}

// Sink receives audit events in record order
type Sink interface {
	Ship(ctx context.Context, event *Event) error
}

// Trail is an async, best-effort audit pipeline. Events are queued on
// a buffered channel and shipped to every sink from a single goroutine,
// which preserves record order (failover_started always lands before
// failover_complete).
type Trail struct {
	sinks   []Sink
	logger  zerolog.Logger
	eventCh chan *Event
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewTrail creates a new audit trail shipping to the given sinks
func NewTrail(sinks ...Sink) *Trail {
	return &Trail{
		sinks:   sinks,
		logger:  log.WithComponent("audit"),
		eventCh: make(chan *Event, 100), // Buffer up to 100 events
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start begins the trail's shipping loop
func (t *Trail) Start() {
	go t.run()
}

// Stop stops the trail after flushing queued events
func (t *Trail) Stop() {
	close(t.stopCh)
	<-t.doneCh
}

// Record queues an event for shipping. Missing ID, severity, and
// timestamp are filled in. Recording never blocks; if the queue is
// full the event is dropped with a warning.
func (t *Trail) Record(event Event) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Severity == "" {
		event.Severity = "high"
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	select {
	case t.eventCh <- &event:
	case <-t.stopCh:
	default:
		t.logger.Warn().
			Str("event_type", string(event.Type)).
			Msg("Audit queue full, event dropped")
	}
}

func (t *Trail) run() {
	defer close(t.doneCh)

	for {
		select {
		case event := <-t.eventCh:
			t.ship(event)
		case <-t.stopCh:
			// Flush whatever is already queued before exiting.
			for {
				select {
				case event := <-t.eventCh:
					t.ship(event)
				default:
					return
				}
			}
		}
	}
}

func (t *Trail) ship(event *Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, sink := range t.sinks {
		if err := sink.Ship(ctx, event); err != nil {
			t.logger.Warn().
				Err(err).
				Str("event_type", string(event.Type)).
				Str("source", event.Source).
				Msg("Audit sink failed")
		}
	}
}

// MCSink ships audit events to the Mission Control audit trail
type MCSink struct {
	client *mc.Client
}

// NewMCSink creates a sink backed by the Mission Control client
func NewMCSink(client *mc.Client) *MCSink {
	return &MCSink{client: client}
}

// Ship posts the event to POST /security/audit
func (s *MCSink) Ship(ctx context.Context, event *Event) error {
	return s.client.PostAudit(ctx, mc.AuditEvent{
		EventType: string(event.Type),
		Severity:  event.Severity,
		Details:   event.Details,
		Source:    event.Source,
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
	})
}

// LogSink mirrors audit events into the structured log so incidents
// can be reconstructed from the site host alone
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink creates a sink writing through pkg/log
func NewLogSink() *LogSink {
	return &LogSink{logger: log.WithComponent("audit")}
}

// Ship writes one log line per event
func (s *LogSink) Ship(_ context.Context, event *Event) error {
	s.logger.Info().
		Str("event_id", event.ID).
		Str("event_type", string(event.Type)).
		Str("severity", event.Severity).
		Str("source", event.Source).
		Interface("details", event.Details).
		Msg("Audit event")
	return nil
}
