package model

// TTS providers
type Provider string

const (
	ProviderGenAI Provider = "genai"
	ProviderAI33  Provider = "ai33"
)

var ValidProviders = []Provider{ProviderGenAI, ProviderAI33}

// API tiers within a provider
type APITier string

const (
	TierLabs APITier = "labs"
	TierMax  APITier = "max"
)

// Segment status (TTS pipeline)
type SegmentStatus string

const (
	SegmentPending          SegmentStatus = "pending"
	SegmentCreating         SegmentStatus = "creating"
	SegmentAwaitingCallback SegmentStatus = "awaiting_callback"
	SegmentDownloading      SegmentStatus = "downloading"
	SegmentSucceeded        SegmentStatus = "succeeded"
	SegmentFailed           SegmentStatus = "failed"
)

// Prompt status (T2V pipeline)
type PromptStatus string

const (
	PromptPending     PromptStatus = "pending"
	PromptCreating    PromptStatus = "creating"
	PromptGenerated   PromptStatus = "generated"
	PromptDownloading PromptStatus = "downloading"
	PromptDownloaded  PromptStatus = "downloaded"
	PromptError       PromptStatus = "error"
	PromptTransferred PromptStatus = "transferred"
)

// IsComplete reports whether the prompt needs no further work.
func (s PromptStatus) IsComplete() bool {
	return s == PromptDownloaded || s == PromptTransferred
}

// Account aggregate state
type AccountState string

const (
	AccountIdle       AccountState = "idle"
	AccountProcessing AccountState = "processing"
	AccountCompleted  AccountState = "completed"
)

// Run status for long-running pipelines
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunStopped   RunStatus = "stopped"
	RunFailed    RunStatus = "failed"
)

// Hardware acceleration modes for the transcoder
type HWAccel string

const (
	HWAccelCPU  HWAccel = "cpu"
	HWAccelGPU  HWAccel = "gpu"
	HWAccelBoth HWAccel = "both"
)
