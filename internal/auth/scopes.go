package auth

// Scopes accepted by the roster API.
const (
	ScopeRosterRead  = "roster:read"
	ScopeRosterWrite = "roster:write"
)
