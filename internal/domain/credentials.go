package domain

// Credentials are the four immutable strings one tenant authenticates with.
// They are owned by the token lifecycle manager for the process lifetime and
// must never be logged or persisted.
type Credentials struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
}

// Complete reports whether all four fields are present.
func (c Credentials) Complete() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.Username != "" && c.Password != ""
}
