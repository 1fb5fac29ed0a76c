package model

// SyncStartRequest starts a video-to-audio duration sync run.
type SyncStartRequest struct {
	VoiceDir  string  `json:"voiceDir" validate:"required"`
	VideoDir  string  `json:"videoDir" validate:"required"`
	OutputDir string  `json:"outputDir" validate:"required"`
	HWAccel   HWAccel `json:"hwAccel" validate:"omitempty,oneof=cpu gpu both"`
	Force     bool    `json:"force"`
}

type SyncStartResponse struct {
	Success bool   `json:"success"`
	RunID   string `json:"runId"`
	Total   int    `json:"total"`
}

// SceneResult records the outcome for one scene number.
type SceneResult struct {
	Scene  int    `json:"scene"`
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

// SyncRunSnapshot is the observable state of a sync run.
type SyncRunSnapshot struct {
	RunID     string        `json:"runId"`
	Status    RunStatus     `json:"status"`
	Total     int           `json:"total"`
	Processed int           `json:"processed"`
	Skipped   int           `json:"skipped"`
	Missing   []int         `json:"missing,omitempty"`
	Errors    []SceneResult `json:"errors,omitempty"`
}

// MissingVideoCheckRequest reports scenes with audio but no matching video.
type MissingVideoCheckRequest struct {
	VoiceDir    string `json:"voiceDir" validate:"required"`
	VideoDir    string `json:"videoDir" validate:"required"`
	OutputDir   string `json:"outputDir"`
	PromptsFile string `json:"promptsFile"`
}

// MissingVideo pairs a scene number with its prompt text when known.
type MissingVideo struct {
	Scene  int    `json:"scene"`
	Prompt string `json:"prompt,omitempty"`
}

type MissingVideoReport struct {
	Success   bool           `json:"success"`
	Total     int            `json:"total"`
	Existing  int            `json:"existing"`
	Processed int            `json:"processed"`
	Missing   []MissingVideo `json:"missing"`
}
