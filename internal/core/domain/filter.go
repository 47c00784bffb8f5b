package domain

// DeviceFilter selects devices by type and status. Empty fields match any
// value and set fields are combined with AND.
type DeviceFilter struct {
	Type   DeviceType   `json:"type,omitempty"`
	Status DeviceStatus `json:"status,omitempty"`
}

// Validate checks the enum values of a filter.
func (f DeviceFilter) Validate() error {
	if f.Type != "" && !f.Type.Valid() {
		return NewValidationError("type", string(f.Type), ErrInvalidEnum)
	}
	if f.Status != "" && !f.Status.Valid() {
		return NewValidationError("status", string(f.Status), ErrInvalidEnum)
	}
	return nil
}

// Matches reports whether d satisfies every set criterion.
func (f DeviceFilter) Matches(d Device) bool {
	if f.Type != "" && d.Type != f.Type {
		return false
	}
	if f.Status != "" && d.Status != f.Status {
		return false
	}
	return true
}

// ScanFilter selects scans by state.
type ScanFilter struct {
	State ScanState `json:"status,omitempty"`
}

// Matches reports whether s satisfies the filter.
func (f ScanFilter) Matches(s Scan) bool {
	return f.State == "" || s.State == f.State
}
