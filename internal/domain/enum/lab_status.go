package enum

import (
	"database/sql/driver"
	"encoding/json"
)

// TestStatus is the result-entry status of a single ordered lab test
type TestStatus string

const (
	TestStatusPending    TestStatus = "pending"
	TestStatusInProgress TestStatus = "in_progress"
	TestStatusCompleted  TestStatus = "completed"
)

// Rank orders statuses so that a test can only move to a higher rank.
// Unknown statuses rank -1.
func (s TestStatus) Rank() int {
	switch s {
	case TestStatusPending:
		return 0
	case TestStatusInProgress:
		return 1
	case TestStatusCompleted:
		return 2
	}
	return -1
}

func (s TestStatus) IsValid() bool {
	return s.Rank() >= 0
}

// CanTransitionTo reports whether moving from s to next keeps the status moving forward.
// Staying on the same status is allowed.
func (s TestStatus) CanTransitionTo(next TestStatus) bool {
	return next.IsValid() && next.Rank() >= s.Rank()
}

func (s TestStatus) String() string {
	return string(s)
}

func (s TestStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

func (s *TestStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*s = TestStatus(str)
	return nil
}

func (s TestStatus) Value() (driver.Value, error) {
	return string(s), nil
}

func (s *TestStatus) Scan(value interface{}) error {
	if value == nil {
		*s = TestStatusPending
		return nil
	}
	switch v := value.(type) {
	case string:
		*s = TestStatus(v)
	case []byte:
		*s = TestStatus(string(v))
	}
	return nil
}

// LabStatus is the aggregate laboratory status of a transaction
type LabStatus string

const (
	LabStatusPending    LabStatus = "pending"
	LabStatusInProgress LabStatus = "in_progress"
	LabStatusCompleted  LabStatus = "completed"
	LabStatusReleased   LabStatus = "released"
)

func (s LabStatus) String() string {
	return string(s)
}

func (s LabStatus) IsValid() bool {
	switch s {
	case LabStatusPending, LabStatusInProgress, LabStatusCompleted, LabStatusReleased:
		return true
	}
	return false
}

func (s LabStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

func (s *LabStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*s = LabStatus(str)
	return nil
}

func (s LabStatus) Value() (driver.Value, error) {
	return string(s), nil
}

func (s *LabStatus) Scan(value interface{}) error {
	if value == nil {
		*s = LabStatusPending
		return nil
	}
	switch v := value.(type) {
	case string:
		*s = LabStatus(v)
	case []byte:
		*s = LabStatus(string(v))
	}
	return nil
}
