package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types emitted by the placement workflow.
const (
	// Internship events
	EventInternshipCreated  EventType = "internship.created"
	EventInternshipApproved EventType = "internship.approved"
	EventInternshipRejected EventType = "internship.rejected"
	EventInternshipFilled   EventType = "internship.filled"

	// Application events
	EventApplicationSubmitted          EventType = "application.submitted"
	EventApplicationApproved           EventType = "application.approved"
	EventApplicationRejected           EventType = "application.rejected"
	EventApplicationAccepted           EventType = "application.accepted"
	EventWithdrawalRequested           EventType = "application.withdrawal_requested"
	EventApplicationWithdrawn          EventType = "application.withdrawn"
	EventApplicationWithdrawalRejected EventType = "application.withdrawal_rejected"

	// Representative events
	EventRepresentativeRegistered EventType = "representative.registered"
	EventRepresentativeApproved   EventType = "representative.approved"
)

// Event is a fact the placement workflow records after a successful change.
// AggregateID is the id of the internship, application or representative
// that changed. Payload must survive a JSON round trip.
type Event interface {
	EventType() EventType
	OccurredAt() time.Time
	AggregateID() string
	Payload() map[string]interface{}
}

// BaseEvent carries the fields every event shares. Embed it and add Payload.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

func (e BaseEvent) EventType() EventType  { return e.Type }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }
func (e BaseEvent) AggregateID() string   { return e.AggregateId }

// NewBaseEvent stamps the event with the current UTC time.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{Type: eventType, Timestamp: time.Now().UTC(), AggregateId: aggregateID}
}

// Correlation implements Correlated.
func (e BaseEvent) Correlation() string { return e.CorrelationID }

// Correlated is implemented by events that know which request caused them.
type Correlated interface {
	Correlation() string
}

// WithCorrelationID tags the event with the id of the request that caused it.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Internship Events
// ═══════════════════════════════════════════════════════════════════════════

// InternshipEvent is emitted when an internship posting changes status.
type InternshipEvent struct {
	BaseEvent
	Title            string `json:"title"`
	CompanyName      string `json:"company_name"`
	RepresentativeID string `json:"representative_id"`
	Status           string `json:"status"`
	ConfirmedSlots   int    `json:"confirmed_slots"`
	MaxSlots         int    `json:"max_slots"`
}

func (e InternshipEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"title":             e.Title,
		"company_name":      e.CompanyName,
		"representative_id": e.RepresentativeID,
		"status":            e.Status,
		"confirmed_slots":   e.ConfirmedSlots,
		"max_slots":         e.MaxSlots,
	}
}

// NewInternshipEvent creates a new InternshipEvent.
func NewInternshipEvent(eventType EventType, internshipID, title, companyName, repID, status string, confirmed, max int) InternshipEvent {
	return InternshipEvent{
		BaseEvent:        NewBaseEvent(eventType, internshipID),
		Title:            title,
		CompanyName:      companyName,
		RepresentativeID: repID,
		Status:           status,
		ConfirmedSlots:   confirmed,
		MaxSlots:         max,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Application Events
// ═══════════════════════════════════════════════════════════════════════════

// ApplicationEvent is emitted on every application state transition.
type ApplicationEvent struct {
	BaseEvent
	StudentID    string `json:"student_id"`
	InternshipID string `json:"internship_id"`
	Status       string `json:"status"`
	ActorID      string `json:"actor_id"`
	// Cascade is true when the transition was a side effect of another
	// application being accepted.
	Cascade bool `json:"cascade,omitempty"`
}

func (e ApplicationEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id":    e.StudentID,
		"internship_id": e.InternshipID,
		"status":        e.Status,
		"actor_id":      e.ActorID,
		"cascade":       e.Cascade,
	}
}

// NewApplicationEvent creates a new ApplicationEvent.
func NewApplicationEvent(eventType EventType, applicationID, studentID, internshipID, status, actorID string) ApplicationEvent {
	return ApplicationEvent{
		BaseEvent:    NewBaseEvent(eventType, applicationID),
		StudentID:    studentID,
		InternshipID: internshipID,
		Status:       status,
		ActorID:      actorID,
	}
}

// AsCascade marks the event as a side effect of an acceptance.
func (e ApplicationEvent) AsCascade() ApplicationEvent {
	e.Cascade = true
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Representative Events
// ═══════════════════════════════════════════════════════════════════════════

// RepresentativeEvent is emitted when a representative registers or is reviewed.
type RepresentativeEvent struct {
	BaseEvent
	Email       string `json:"email"`
	CompanyName string `json:"company_name"`
	Approved    bool   `json:"approved"`
}

func (e RepresentativeEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"email":        e.Email,
		"company_name": e.CompanyName,
		"approved":     e.Approved,
	}
}

// NewRepresentativeEvent creates a new RepresentativeEvent.
func NewRepresentativeEvent(eventType EventType, repID, email, companyName string, approved bool) RepresentativeEvent {
	return RepresentativeEvent{
		BaseEvent:   NewBaseEvent(eventType, repID),
		Email:       email,
		CompanyName: companyName,
		Approved:    approved,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Bus contracts
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler reacts to one event. Its error is logged by the bus and never
// reaches the publisher.
type EventHandler func(event Event) error

type EventPublisher interface {
	Publish(event Event) error
}

type EventSubscriber interface {
	Subscribe(eventType EventType, handler EventHandler) error
	SubscribeAll(handler EventHandler) error
}

type EventBus interface {
	EventPublisher
	EventSubscriber
}

// NopPublisher discards every event.
type NopPublisher struct{}

func (NopPublisher) Publish(Event) error { return nil }
