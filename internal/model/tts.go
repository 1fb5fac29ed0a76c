package model

import "time"

// TTSStartRequest starts a full text-to-speech batch run.
type TTSStartRequest struct {
	Provider    Provider `json:"provider" validate:"required,oneof=genai ai33"`
	Tier        APITier  `json:"tier" validate:"required,oneof=labs max"`
	Text        string   `json:"text" validate:"required"`
	Language    string   `json:"language"`
	OutputDir   string   `json:"outputDir" validate:"required"`
	VoiceID     string   `json:"voiceId"`
	Model       string   `json:"model"`
	CallbackURL string   `json:"callbackUrl" validate:"required"`
	Subtitles   bool     `json:"subtitles"`
}

// SplitPreviewRequest previews sentence segmentation without starting a run.
type SplitPreviewRequest struct {
	Text     string `json:"text" validate:"required"`
	Language string `json:"language"`
}

type SplitPreviewResponse struct {
	Success   bool     `json:"success"`
	Language  string   `json:"language"`
	Sentences []string `json:"sentences"`
}

// Segment is one sentence-derived unit of the TTS pipeline, numbered from 1.
type Segment struct {
	Number       int           `json:"number"`
	Text         string        `json:"text"`
	Status       SegmentStatus `json:"status"`
	RemoteTaskID string        `json:"remoteTaskId,omitempty"`
	AudioPath    string        `json:"audioPath,omitempty"`
	SRTPath      string        `json:"srtPath,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// TTSRunSnapshot is the observable state of a TTS run.
type TTSRunSnapshot struct {
	RunID       string    `json:"runId"`
	Status      RunStatus `json:"status"`
	Total       int       `json:"total"`
	Succeeded   int       `json:"succeeded"`
	Failed      int       `json:"failed"`
	FailedList  []int     `json:"failedList,omitempty"`
	JoinedFile  string    `json:"joinedFile,omitempty"`
	MergedSRT   string    `json:"mergedSrt,omitempty"`
	Segments    []Segment `json:"segments,omitempty"`
	StartedAt   time.Time `json:"startedAt"`
	CompletedAt time.Time `json:"completedAt,omitempty"`
}

type TTSStartResponse struct {
	Success bool   `json:"success"`
	RunID   string `json:"runId"`
}

// MissingCheckRequest asks which expected output files are absent.
type MissingCheckRequest struct {
	Text      string `json:"text" validate:"required"`
	Language  string `json:"language"`
	OutputDir string `json:"outputDir" validate:"required"`
}

// MissingSegment identifies one absent output file and its source text.
type MissingSegment struct {
	SegmentNumber int    `json:"segmentNumber"`
	Text          string `json:"text"`
}

type MissingFilesReport struct {
	Success  bool             `json:"success"`
	Total    int              `json:"total"`
	Existing int              `json:"existing"`
	Missing  int              `json:"missing"`
	List     []MissingSegment `json:"missingList"`
}

// MissingSRTReport also counts segments skipped because the MP3 itself
// is absent; those are not SRT candidates.
type MissingSRTReport struct {
	Success     bool             `json:"success"`
	Total       int              `json:"total"`
	Existing    int              `json:"existing"`
	Missing     int              `json:"missing"`
	List        []MissingSegment `json:"missingList"`
	MP3NotExist int              `json:"mp3NotExist"`
}

// RetryMissingRequest regenerates only the listed missing segments.
type RetryMissingRequest struct {
	Provider    Provider `json:"provider" validate:"required,oneof=genai ai33"`
	Tier        APITier  `json:"tier" validate:"required,oneof=labs max"`
	Text        string   `json:"text" validate:"required"`
	Language    string   `json:"language"`
	OutputDir   string   `json:"outputDir" validate:"required"`
	VoiceID     string   `json:"voiceId"`
	Model       string   `json:"model"`
	CallbackURL string   `json:"callbackUrl" validate:"required"`
}

// DirRequest targets operations that act on a single directory.
type DirRequest struct {
	Dir string `json:"dir" validate:"required"`
}

type JoinResponse struct {
	Success     bool      `json:"success"`
	OutputFile  string    `json:"outputFile"`
	FilesJoined int       `json:"filesJoined"`
	FileNumbers []float64 `json:"fileNumbers"`
	Method      string    `json:"method,omitempty"`
}

type MergeSRTResponse struct {
	Success        bool    `json:"success"`
	OutputFile     string  `json:"outputFile"`
	FilesProcessed int     `json:"filesProcessed"`
	TotalSubtitles int     `json:"totalSubtitles"`
	TotalDuration  float64 `json:"totalDuration"`
	FileNumbers    []int   `json:"fileNumbers"`
}
