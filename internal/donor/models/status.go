package models

// Status is the lifecycle state of a donor record. The vocabulary matches the
// registration forms the service ingests.
type Status string

const (
	StatusActive   Status = "activo"
	StatusInactive Status = "inactivo"
	StatusDeleted  Status = "eliminado"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusDeleted:
		return true
	}
	return false
}

// CanTransitionTo reports whether the status state machine permits moving to
// target. Activo and inactivo are interchangeable and either may become
// eliminado. Deletion is terminal; reactivating a deleted donor is an
// external policy decision, not something this subsystem permits.
func (s Status) CanTransitionTo(target Status) bool {
	if !target.IsValid() || s == target {
		return false
	}
	return s != StatusDeleted
}
