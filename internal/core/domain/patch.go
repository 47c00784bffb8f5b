package domain

// DevicePatch is a sparse update: nil fields are left untouched.
type DevicePatch struct {
	Hostname     *string            `json:"hostname,omitempty"`
	DeviceName   *string            `json:"device_name,omitempty"`
	DeviceType   *DeviceType        `json:"device_type,omitempty"`
	Status       *DeviceStatus      `json:"status,omitempty"`
	Tags         *[]string          `json:"tags,omitempty"`
	Notes        *string            `json:"notes,omitempty"`
	CustomFields *map[string]string `json:"custom_fields,omitempty"`
}

// patchField applies one optional field. The table below is the only place a
// mutable field is wired to the patch.
type patchField struct {
	name  string
	set   func(p DevicePatch) bool
	apply func(p DevicePatch, d *Device)
}

var patchFields = []patchField{
	{
		name:  "hostname",
		set:   func(p DevicePatch) bool { return p.Hostname != nil },
		apply: func(p DevicePatch, d *Device) { d.Hostname = *p.Hostname },
	},
	{
		name:  "device_name",
		set:   func(p DevicePatch) bool { return p.DeviceName != nil },
		apply: func(p DevicePatch, d *Device) { d.DeviceName = *p.DeviceName },
	},
	{
		name:  "device_type",
		set:   func(p DevicePatch) bool { return p.DeviceType != nil },
		apply: func(p DevicePatch, d *Device) { d.Type = *p.DeviceType },
	},
	{
		name:  "status",
		set:   func(p DevicePatch) bool { return p.Status != nil },
		apply: func(p DevicePatch, d *Device) { d.Status = *p.Status },
	},
	{
		name:  "tags",
		set:   func(p DevicePatch) bool { return p.Tags != nil },
		apply: func(p DevicePatch, d *Device) { d.Tags = append([]string{}, (*p.Tags)...) },
	},
	{
		name:  "notes",
		set:   func(p DevicePatch) bool { return p.Notes != nil },
		apply: func(p DevicePatch, d *Device) { d.Notes = *p.Notes },
	},
	{
		name: "custom_fields",
		set:  func(p DevicePatch) bool { return p.CustomFields != nil },
		apply: func(p DevicePatch, d *Device) {
			fields := make(map[string]string, len(*p.CustomFields))
			for k, v := range *p.CustomFields {
				fields[k] = v
			}
			d.CustomFields = fields
		},
	},
}

// Validate rejects enum values outside the known sets.
func (p DevicePatch) Validate() error {
	if p.DeviceType != nil && !p.DeviceType.Valid() {
		return NewValidationError("device_type", string(*p.DeviceType), ErrInvalidEnum)
	}
	if p.Status != nil && !p.Status.Valid() {
		return NewValidationError("status", string(*p.Status), ErrInvalidEnum)
	}
	return nil
}

// IsEmpty reports whether the patch sets no field at all.
func (p DevicePatch) IsEmpty() bool {
	for _, f := range patchFields {
		if f.set(p) {
			return false
		}
	}
	return true
}

// Apply writes every set field onto d and returns the names of the fields
// that were applied.
func (p DevicePatch) Apply(d *Device) []string {
	var applied []string
	for _, f := range patchFields {
		if f.set(p) {
			f.apply(p, d)
			applied = append(applied, f.name)
		}
	}
	return applied
}
