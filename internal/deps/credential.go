package deps

// Credential authenticates requests to a host.
type Credential struct {
	Type     string
	Host     string
	Username string
	Password string
}

// Credentials is an ordered list of credentials.
type Credentials []*Credential

// ForHost returns the first credential for host that has a password, nil
// if none exists.
func (c Credentials) ForHost(host string) *Credential {
	for _, cred := range c {
		if cred.Host == host && cred.Password != "" {
			return cred
		}
	}

	return nil
}

// ByType returns the first credential of the given type that has a password,
// nil if none exists.
func (c Credentials) ByType(typ string) *Credential {
	for _, cred := range c {
		if cred.Type == typ && cred.Password != "" {
			return cred
		}
	}

	return nil
}
