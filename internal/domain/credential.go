package domain

// Credential is the opaque bearer token proving an authenticated session.
type Credential string

func (c Credential) String() string {
	return string(c)
}
