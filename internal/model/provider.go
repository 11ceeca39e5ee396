package model

// ProviderRole distinguishes the two kinds of bookable accounts.
type ProviderRole string

const (
	RoleVendor     ProviderRole = "vendor"
	RoleVenueOwner ProviderRole = "venue_owner"
)

// Valid reports whether r is a known role.
func (r ProviderRole) Valid() bool {
	return r == RoleVendor || r == RoleVenueOwner
}

// Provider is a vendor or venue-owner directory entry. Ref is the account
// email and is the value carried in a Selection.
type Provider struct {
	Ref      string       `json:"ref" yaml:"ref"`
	Name     string       `json:"name" yaml:"name"`
	Role     ProviderRole `json:"role" yaml:"role"`
	Services string       `json:"services,omitempty" yaml:"services,omitempty"`
	Phone    string       `json:"phone,omitempty" yaml:"phone,omitempty"`
	Address  string       `json:"address,omitempty" yaml:"address,omitempty"`
	Lat      string       `json:"lat,omitempty" yaml:"lat,omitempty"`
	Lng      string       `json:"lng,omitempty" yaml:"lng,omitempty"`
}

// Organizer identifies the user committing an event.
type Organizer struct {
	Ref  string
	Name string
}
