package relay

// ShiftModerationOnDeparture arms the caller's session so that its
// eventual disconnect promotes the first remaining peer to moderator.
func (e *Engine) ShiftModerationOnDeparture(c *Client) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if s := e.sessions[c.userID]; s != nil {
		s.ShiftModerationOnDeparture = true
	}
}

// CloseSession tells every peer connected with the caller that the
// entire session is over and drops any moderation change still pending
// for the caller. The edges themselves stay; peers tear down their own
// connections in response.
func (e *Engine) CloseSession(c *Client) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.sessions[c.userID]
	if s == nil {
		return
	}
	for _, id := range s.sortedNeighbors() {
		emit(s.ConnectedWith[id], "closed-entire-session", c.userID, s.Extra)
	}
	delete(e.pending, c.userID)
}
