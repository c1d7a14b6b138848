package types

// Settings is the per-meter-point configuration a user controls. It is stored
// as a JSON blob so adding fields is not a storage migration.
type Settings struct {
	// SubscribedKVA is the contracted maximum power draw; plans that are not
	// sold at this level are filtered out before simulation.
	SubscribedKVA int `json:"subscribedKVA"`
	// SubscribedPlanID, when set, is ranked as the reference plan.
	SubscribedPlanID string `json:"subscribedPlanID,omitempty"`
	// OffpeakHours is the meter point's off-peak description as supplied by
	// the provider or the user. Accepted shapes: a single string, a list of
	// strings, or a map of label to string/list. It is normalized into
	// canonical windows at the boundary; nothing past the server ever sees
	// this raw value.
	OffpeakHours any `json:"offpeakHours,omitempty"`
}

// MeterPoint is one physical electricity delivery point a user has granted
// access to.
type MeterPoint struct {
	ID     string `json:"id"`
	UserID string `json:"userID"`
	Label  string `json:"label,omitempty"`
}

// User represents a user of the system.
type User struct {
	ID            string   `json:"id"`
	Email         string   `json:"email"`
	MeterPointIDs []string `json:"meterPointIDs"`
	Admin         bool     `json:"-"`
}
