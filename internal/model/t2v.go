package model

// PromptTask is one video-generation prompt owned by an account.
type PromptTask struct {
	Index       int          `json:"index"`
	Prompt      string       `json:"prompt"`
	Status      PromptStatus `json:"status"`
	RetryCount  int          `json:"retryCount"`
	MediaID     string       `json:"mediaId,omitempty"`
	DownloadURL string       `json:"downloadUrl,omitempty"`
	FilePath    string       `json:"filePath,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// Account is one provider account on the scheduler board.
type Account struct {
	Name    string       `json:"name"`
	State   AccountState `json:"state"`
	Prompts []PromptTask `json:"prompts"`
}

// AccountStats is the per-account summary exposed by the status endpoint.
type AccountStats struct {
	Name        string       `json:"name"`
	State       AccountState `json:"state"`
	Total       int          `json:"total"`
	Pending     int          `json:"pending"`
	Processing  int          `json:"processing"`
	Generated   int          `json:"generated"`
	Downloaded  int          `json:"downloaded"`
	Transferred int          `json:"transferred"`
	Errors      int          `json:"errors"`
	Retrying    bool         `json:"retrying"`
}

// T2VStatusSnapshot is the full board view.
type T2VStatusSnapshot struct {
	Success      bool           `json:"success"`
	Running      bool           `json:"running"`
	TotalPrompts int            `json:"totalPrompts"`
	Completed    int            `json:"completed"`
	Failed       int            `json:"failed"`
	Accounts     []AccountStats `json:"accounts"`
	Incomplete   []PromptTask   `json:"incomplete,omitempty"`
}

type AddAccountRequest struct {
	Name string `json:"name" validate:"required"`
}

// T2VStartRequest starts a distribution run over the current accounts.
type T2VStartRequest struct {
	Prompts     string `json:"prompts" validate:"required"`
	OutputDir   string `json:"outputDir" validate:"required"`
	AspectRatio string `json:"aspectRatio"`
}

type T2VStartResponse struct {
	Success      bool   `json:"success"`
	RunID        string `json:"runId"`
	TotalPrompts int    `json:"totalPrompts"`
	Accounts     int    `json:"accounts"`
}

// TransferRequest moves unfinished work between accounts.
type TransferRequest struct {
	From string `json:"from" validate:"required"`
	To   string `json:"to" validate:"required"`
}

type TransferResponse struct {
	Success     bool   `json:"success"`
	Transferred int    `json:"transferred"`
	From        string `json:"from"`
	To          string `json:"to"`
}

// EditPromptRequest replaces a prompt's text before a manual retry.
type EditPromptRequest struct {
	Account string `json:"account" validate:"required"`
	Prompt  string `json:"prompt" validate:"required"`
}

type RetryFailedRequest struct {
	OutputDir string `json:"outputDir" validate:"required"`
}

type DownloadGeneratedRequest struct {
	OutputDir string `json:"outputDir" validate:"required"`
}
