package api

import "github.com/dd0wney/cluso-zerotrust/pkg/audit"

// API Request/Response Types

// AttackRequest selects the security model for an attack simulation.
// A missing or empty model defaults to zero-trust.
type AttackRequest struct {
	Model string `json:"model"`
}

// AuditRecentResponse lists recent audit trail entries, newest first
type AuditRecentResponse struct {
	Events []*audit.Event `json:"events"`
	Count  int            `json:"count"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
