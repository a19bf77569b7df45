package model

import "encoding/json"

// ErrorInfo holds structured failure information for a sermon job.
type ErrorInfo struct {
	FailedStep string `json:"failed_step"`
	Kind       string `json:"kind"`
	Message    string `json:"message"`
	Attempts   int    `json:"attempts"`
	FailedAt   string `json:"failed_at"`
}

// ToJSON serializes ErrorInfo to a JSON string.
func (e ErrorInfo) ToJSON() string {
	b, _ := json.Marshal(e)
	return string(b)
}
