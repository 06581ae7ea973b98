package enum

// AuditSeverity grades audit log entries
type AuditSeverity string

const (
	AuditSeverityInfo     AuditSeverity = "info"
	AuditSeverityWarning  AuditSeverity = "warning"
	AuditSeverityCritical AuditSeverity = "critical"
)

func (s AuditSeverity) String() string {
	return string(s)
}

// TransactionEventType classifies entries in a transaction's event trail
type TransactionEventType string

const (
	TransactionEventCreated   TransactionEventType = "created"
	TransactionEventLabUpdate TransactionEventType = "lab_update"
	TransactionEventReleased  TransactionEventType = "released"
)

func (t TransactionEventType) String() string {
	return string(t)
}
