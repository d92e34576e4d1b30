package core

// Credentials is the access/refresh pair held by an authenticated session.
//
// The access credential is a short-lived opaque token attached to outbound
// calls. The refresh credential is longer-lived and is used solely to mint a
// new access credential. An empty refresh credential means there is no
// session that can be kept alive.
type Credentials struct {
	Access  string
	Refresh string
}

// Empty reports whether neither credential is set.
func (c Credentials) Empty() bool {
	return c.Access == "" && c.Refresh == ""
}

// Renewable reports whether the pair can be exchanged for a fresh access
// credential.
func (c Credentials) Renewable() bool {
	return c.Refresh != ""
}

// Profile is the subset of account data the role guard needs.
type Profile struct {
	ID    string
	Email string
	Role  string
}
