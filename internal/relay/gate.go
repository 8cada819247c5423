package relay

// gateResult classifies a password attempt against a gated session.
type gateResult int

const (
	gateAllowed gateResult = iota
	gateTooMany
	gateMissing
	gateMismatch
)

// gateLocked checks one join attempt against the target's password.
// The attempt counter is per connection, not per target, and never
// decays: once a connection has burned its attempts it stays denied
// until it reconnects. Successful attempts do not consume a try.
func (e *Engine) gateLocked(c *Client, target *Session, supplied string) gateResult {
	if target.Password == "" {
		return gateAllowed
	}
	if c.passwordTries >= maxPasswordAttempts {
		return gateTooMany
	}
	if supplied == "" {
		c.passwordTries++
		return gateMissing
	}
	if supplied != target.Password {
		c.passwordTries++
		return gateMismatch
	}
	return gateAllowed
}
