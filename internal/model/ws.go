package model

// WebSocket message types
const (
	WSMessageTypeLog      = "log"
	WSMessageTypeProgress = "progress"
	WSMessageTypeBoard    = "board"
	WSMessageTypeComplete = "complete"
	WSMessageTypeError    = "error"
	WSMessageTypePing     = "ping"
	WSMessageTypePong     = "pong"
)

type WSMessage struct {
	Type string `json:"type"`
}

// WSLogMessage carries a single pipeline log line.
type WSLogMessage struct {
	Type  string `json:"type"`
	RunID string `json:"runId"`
	Line  string `json:"line"`
}

// WSProgressMessage reports pipeline progress for a run.
type WSProgressMessage struct {
	Type    string    `json:"type"`
	RunID   string    `json:"runId"`
	Status  RunStatus `json:"status"`
	Current int       `json:"current"`
	Total   int       `json:"total"`
	Step    string    `json:"step,omitempty"`
}

// WSBoardMessage carries an account board snapshot during T2V runs.
type WSBoardMessage struct {
	Type     string         `json:"type"`
	RunID    string         `json:"runId"`
	Accounts []AccountStats `json:"accounts"`
}

type WSCompleteMessage struct {
	Type   string      `json:"type"`
	RunID  string      `json:"runId"`
	Result interface{} `json:"result"`
}

type WSError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type WSErrorMessage struct {
	Type  string  `json:"type"`
	RunID string  `json:"runId"`
	Error WSError `json:"error"`
}
