package enums

// EffectiveStatus is the time-derived status reported by license evaluation.
// It is a superset of LicenseStatus: grace_period and not_found never appear
// in storage, only in evaluation results.
type EffectiveStatus string

const (
	EffectiveStatusActive      EffectiveStatus = "active"
	EffectiveStatusGracePeriod EffectiveStatus = "grace_period"
	EffectiveStatusExpired     EffectiveStatus = "expired"
	EffectiveStatusRevoked     EffectiveStatus = "revoked"
	EffectiveStatusSuspended   EffectiveStatus = "suspended"
	EffectiveStatusNotFound    EffectiveStatus = "not_found"
)

// String implements fmt.Stringer.
func (s EffectiveStatus) String() string {
	return string(s)
}

// Usable reports whether a license in this status may activate or admit users.
func (s EffectiveStatus) Usable() bool {
	return s == EffectiveStatusActive || s == EffectiveStatusGracePeriod
}
