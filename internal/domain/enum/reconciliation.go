package enum

import (
	"database/sql/driver"
	"encoding/json"
)

// ReconciliationStatus is derived from the sign of the cash variance
type ReconciliationStatus string

const (
	ReconciliationBalanced ReconciliationStatus = "balanced"
	ReconciliationOverage  ReconciliationStatus = "overage"
	ReconciliationShortage ReconciliationStatus = "shortage"
)

func (s ReconciliationStatus) String() string {
	return string(s)
}

func (s ReconciliationStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

func (s *ReconciliationStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*s = ReconciliationStatus(str)
	return nil
}

func (s ReconciliationStatus) Value() (driver.Value, error) {
	return string(s), nil
}

func (s *ReconciliationStatus) Scan(value interface{}) error {
	if value == nil {
		*s = ReconciliationBalanced
		return nil
	}
	switch v := value.(type) {
	case string:
		*s = ReconciliationStatus(v)
	case []byte:
		*s = ReconciliationStatus(string(v))
	}
	return nil
}

// ReconciliationState is the workflow position of a persisted reconciliation.
// A date with no active record is open.
type ReconciliationState string

const (
	ReconciliationStateSubmitted           ReconciliationState = "submitted"
	ReconciliationStateCorrectionRequested ReconciliationState = "correction_requested"
	ReconciliationStateApproved            ReconciliationState = "approved"
)

func (s ReconciliationState) String() string {
	return string(s)
}

func (s ReconciliationState) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

func (s *ReconciliationState) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*s = ReconciliationState(str)
	return nil
}

func (s ReconciliationState) Value() (driver.Value, error) {
	return string(s), nil
}

func (s *ReconciliationState) Scan(value interface{}) error {
	if value == nil {
		*s = ReconciliationStateSubmitted
		return nil
	}
	switch v := value.(type) {
	case string:
		*s = ReconciliationState(v)
	case []byte:
		*s = ReconciliationState(string(v))
	}
	return nil
}
