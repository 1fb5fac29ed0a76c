package service

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/storyforge/api/internal/client"
	"github.com/storyforge/api/internal/config"
	"github.com/storyforge/api/internal/media"
	"github.com/storyforge/api/internal/model"
	"github.com/storyforge/api/internal/registry"
	"github.com/storyforge/api/internal/runner"
	"github.com/storyforge/api/internal/sidecache"
	"github.com/storyforge/api/internal/subtitle"
	"github.com/storyforge/api/internal/textsplit"
	ws "github.com/storyforge/api/internal/websocket"
)

// Transcoder is the slice of the media front end the TTS pipeline uses.
type Transcoder interface {
	Duration(ctx context.Context, path string) (float64, error)
	JoinAudio(ctx context.Context, dir string) (*media.JoinResult, error)
}

// TTSService drives the text-to-speech batch pipeline: split, fan out
// task creation over worker lanes, await webhooks, download, and chain
// join/subtitle/merge steps when the whole batch succeeded.
type TTSService struct {
	cfg        *config.Config
	genai      client.GenAISpeech
	ai33       client.AI33Speech
	fetcher    client.FileFetcher
	registry   *registry.Registry
	transcoder Transcoder
	hub        *ws.Hub

	runs *runStore[*ttsRun]
}

type ttsRun struct {
	baseRun
	req      model.TTSStartRequest
	segments []model.Segment
	flag     runner.Flag

	joinedFile string
	mergedSRT  string
}

func NewTTSService(
	cfg *config.Config,
	genai client.GenAISpeech,
	ai33 client.AI33Speech,
	fetcher client.FileFetcher,
	reg *registry.Registry,
	transcoder Transcoder,
	hub *ws.Hub,
) *TTSService {
	return &TTSService{
		cfg:        cfg,
		genai:      genai,
		ai33:       ai33,
		fetcher:    fetcher,
		registry:   reg,
		transcoder: transcoder,
		hub:        hub,
		runs:       newRunStore[*ttsRun](),
	}
}

// PreviewSplit segments text without starting a run.
func (s *TTSService) PreviewSplit(req model.SplitPreviewRequest) model.SplitPreviewResponse {
	sentences := textsplit.Split(req.Text, req.Language)
	return model.SplitPreviewResponse{
		Success:   true,
		Language:  req.Language,
		Sentences: sentences,
	}
}

// StartBatch begins a full TTS run and returns its id. The pipeline
// itself runs on a goroutine; progress flows through the hub.
func (s *TTSService) StartBatch(req model.TTSStartRequest) (string, int, error) {
	sentences := textsplit.Split(req.Text, req.Language)
	if len(sentences) == 0 {
		return "", 0, fmt.Errorf("text produced no sentences")
	}

	run := &ttsRun{req: req}
	run.id = uuid.New().String()
	run.status = model.RunRunning
	run.startedAt = time.Now()
	run.segments = make([]model.Segment, len(sentences))
	for i, text := range sentences {
		run.segments[i] = model.Segment{
			Number: i + 1,
			Text:   text,
			Status: model.SegmentPending,
		}
	}
	s.runs.put(run.id, run)

	go s.processBatch(run, sentences)
	return run.id, len(sentences), nil
}

// StopRun requests a cooperative stop; segments in flight finish.
func (s *TTSService) StopRun(runID string) error {
	run, ok := s.runs.get(runID)
	if !ok {
		return fmt.Errorf("run %s not found", runID)
	}
	run.flag.Stop()
	s.log(run, "⏹️ Stop requested; in-flight segments will finish")
	return nil
}

// Run returns a snapshot of a run's state.
func (s *TTSService) Run(runID string) (*model.TTSRunSnapshot, error) {
	run, ok := s.runs.get(runID)
	if !ok {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	return s.snapshot(run), nil
}

func (s *TTSService) snapshot(run *ttsRun) *model.TTSRunSnapshot {
	run.mu.Lock()
	defer run.mu.Unlock()

	snap := &model.TTSRunSnapshot{
		RunID:       run.id,
		Status:      run.status,
		Total:       len(run.segments),
		JoinedFile:  run.joinedFile,
		MergedSRT:   run.mergedSRT,
		StartedAt:   run.startedAt,
		CompletedAt: run.completedAt,
		Segments:    append([]model.Segment(nil), run.segments...),
	}
	for _, seg := range run.segments {
		switch seg.Status {
		case model.SegmentSucceeded:
			snap.Succeeded++
		case model.SegmentFailed:
			snap.Failed++
			snap.FailedList = append(snap.FailedList, seg.Number)
		}
	}
	return snap
}

func (s *TTSService) log(run *ttsRun, format string, args ...interface{}) {
	line := fmt.Sprintf(format, args...)
	log.Printf("[TTS %s] %s", run.id[:8], line)
	s.hub.BroadcastLog(run.id, line)
}

func (s *TTSService) setSegment(run *ttsRun, idx int, mutate func(*model.Segment)) {
	run.mu.Lock()
	mutate(&run.segments[idx])
	run.mu.Unlock()
}

func (s *TTSService) processBatch(run *ttsRun, sentences []string) {
	ctx := context.Background()
	req := run.req

	s.log(run, "🚀 Starting TTS processing (%d sentences, provider=%s/%s)", len(sentences), req.Provider, req.Tier)

	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		failRun(&run.baseRun, fmt.Sprintf("create output dir: %v", err))
		s.hub.BroadcastError(run.id, "RUN_FAILED", err.Error())
		return
	}

	concurrency := s.cfg.Processing.BatchSize
	s.log(run, "⚡ Processing with concurrency: %d", concurrency)

	var done atomicCounter
	runner.Run(ctx, len(sentences), concurrency, 0, &run.flag, func(ctx context.Context, idx int) {
		s.processSegment(ctx, run, idx)
		current := done.inc()
		s.hub.BroadcastProgress(run.id, model.RunRunning, current, len(sentences), "tts")
	})

	snap := s.snapshot(run)
	s.log(run, "📊 Total: %d | Success: %d | Failed: %d", snap.Total, snap.Succeeded, snap.Failed)

	// Task ids are cached for later SRT retries, GenAI Labs only.
	isGenAILabs := req.Provider == model.ProviderGenAI && req.Tier == model.TierLabs
	if isGenAILabs && snap.Succeeded > 0 {
		s.persistTaskIDs(run)
	}

	if isGenAILabs && req.Subtitles && snap.Succeeded > 0 {
		s.processSubtitles(ctx, run)
	}

	stopped := run.flag.Stopped()
	if snap.Succeeded > 0 && snap.Failed == 0 && !stopped {
		s.log(run, "🎵 Auto-joining MP3 files...")
		if res, err := s.transcoder.JoinAudio(ctx, req.OutputDir); err != nil {
			s.log(run, "⚠️ Auto-join failed: %v", err)
		} else {
			run.mu.Lock()
			run.joinedFile = res.OutputFile
			run.mu.Unlock()
			s.log(run, "✅ MP3 files joined: %s (%d files)", res.OutputFile, res.FilesJoined)
		}
	} else if snap.Failed > 0 {
		s.log(run, "🚫 Auto-join skipped: %d file(s) failed", snap.Failed)
	}

	if isGenAILabs && req.Subtitles && snap.Succeeded > 0 && snap.Failed == 0 && !stopped {
		s.log(run, "📋 Auto-merging SRT files...")
		if res, err := s.MergeSRT(req.OutputDir); err != nil {
			s.log(run, "⚠️ Auto-merge SRT failed: %v", err)
		} else {
			run.mu.Lock()
			run.mergedSRT = res.OutputFile
			run.mu.Unlock()
			s.log(run, "✅ SRT files merged: %s (%d subtitles)", res.OutputFile, res.TotalSubtitles)
		}
	}

	final := model.RunCompleted
	if stopped {
		final = model.RunStopped
	}
	finishRun(&run.baseRun, final)
	s.hub.BroadcastComplete(run.id, s.snapshot(run))
}

// createTask dispatches task creation to the right provider and tier.
func (s *TTSService) createTask(ctx context.Context, run *ttsRun, segmentNumber int, text string) (string, error) {
	req := run.req
	opts := client.TaskOptions{
		VoiceID:     req.VoiceID,
		Model:       req.Model,
		Language:    req.Language,
		CallbackURL: req.CallbackURL,
	}

	switch {
	case req.Provider == model.ProviderGenAI && req.Tier == model.TierLabs:
		if opts.VoiceID == "" {
			opts.VoiceID = s.cfg.GenAI.VoiceID
		}
		return s.genai.CreateLabsTask(ctx, text, opts)
	case req.Provider == model.ProviderGenAI && req.Tier == model.TierMax:
		if opts.VoiceID == "" {
			opts.VoiceID = s.cfg.GenAI.VoiceID
		}
		return s.genai.CreateMaxTask(ctx, segmentNumber, text, opts)
	case req.Provider == model.ProviderAI33 && req.Tier == model.TierLabs:
		if opts.VoiceID == "" {
			opts.VoiceID = s.cfg.AI33.VoiceID
		}
		return s.ai33.CreateLabsTask(ctx, text, opts)
	case req.Provider == model.ProviderAI33 && req.Tier == model.TierMax:
		if opts.VoiceID == "" {
			opts.VoiceID = s.cfg.AI33.VoiceID
		}
		return s.ai33.CreateMaxTask(ctx, text, opts)
	}
	return "", fmt.Errorf("unsupported provider/tier %s/%s", req.Provider, req.Tier)
}

func (s *TTSService) processSegment(ctx context.Context, run *ttsRun, idx int) {
	segmentNumber := idx + 1
	text := run.segments[idx].Text
	total := len(run.segments)

	fail := func(err error) {
		s.log(run, "❌ [%d/%d] Failed: %v", segmentNumber, total, err)
		s.setSegment(run, idx, func(seg *model.Segment) {
			seg.Status = model.SegmentFailed
			seg.Error = err.Error()
		})
	}

	s.log(run, "🔄 [%d/%d] Creating TTS task...", segmentNumber, total)
	s.setSegment(run, idx, func(seg *model.Segment) { seg.Status = model.SegmentCreating })

	taskID, err := s.createTask(ctx, run, segmentNumber, text)
	if err != nil {
		fail(err)
		return
	}

	pending, err := s.registry.Register(taskID, registry.Meta{
		SegmentNumber: segmentNumber,
		Provider:      string(run.req.Provider),
	})
	if err != nil {
		fail(err)
		return
	}

	s.log(run, "✅ [%d] Task created: %s, waiting for callback...", segmentNumber, taskID)
	s.setSegment(run, idx, func(seg *model.Segment) {
		seg.Status = model.SegmentAwaitingCallback
		seg.RemoteTaskID = taskID
	})

	audioURL, err := pending.Wait(ctx)
	if err != nil {
		fail(err)
		return
	}

	s.log(run, "📥 [%d] Callback received, downloading audio...", segmentNumber)
	s.setSegment(run, idx, func(seg *model.Segment) { seg.Status = model.SegmentDownloading })

	outputPath := filepath.Join(run.req.OutputDir, fmt.Sprintf("%d.mp3", segmentNumber))
	size, err := s.fetcher.Fetch(ctx, audioURL, outputPath)
	if err != nil {
		fail(err)
		return
	}

	s.log(run, "✅ [%d] SUCCESS - Downloaded (%.1f KB)", segmentNumber, float64(size)/1024)
	s.setSegment(run, idx, func(seg *model.Segment) {
		seg.Status = model.SegmentSucceeded
		seg.AudioPath = outputPath
	})
}

func (s *TTSService) persistTaskIDs(run *ttsRun) {
	run.mu.Lock()
	entries := map[int]string{}
	for _, seg := range run.segments {
		if seg.Status == model.SegmentSucceeded && seg.RemoteTaskID != "" {
			entries[seg.Number] = seg.RemoteTaskID
		}
	}
	run.mu.Unlock()

	if len(entries) == 0 {
		return
	}
	cache := sidecache.NewTaskIDCache(run.req.OutputDir)
	if err := cache.Merge(entries); err != nil {
		s.log(run, "⚠️ Failed to save task IDs: %v", err)
		return
	}
	s.log(run, "💾 Saved %d task IDs for future SRT retry", len(entries))
}

// processSubtitles runs the two-phase subtitle fetch: request SRT
// generation for every successful task, wait out the generation window,
// then pull URLs from task details and download. Delays between
// requests keep the provider's rate limiter quiet.
func (s *TTSService) processSubtitles(ctx context.Context, run *ttsRun) {
	run.mu.Lock()
	var targets []model.Segment
	for _, seg := range run.segments {
		if seg.Status == model.SegmentSucceeded && seg.RemoteTaskID != "" {
			targets = append(targets, seg)
		}
	}
	run.mu.Unlock()

	if len(targets) == 0 {
		s.log(run, "⚠️ No successful tasks found for subtitle processing")
		return
	}

	srtsDir := filepath.Join(run.req.OutputDir, "srts")
	if err := os.MkdirAll(srtsDir, 0o755); err != nil {
		s.log(run, "❌ Cannot create SRT directory: %v", err)
		return
	}

	delay := time.Duration(s.cfg.Processing.SubtitleDelaySec) * time.Second

	s.log(run, "Phase 1: Requesting subtitles for %d tasks...", len(targets))
	requested := map[int]bool{}
	for _, seg := range targets {
		if err := s.genai.RequestSubtitle(ctx, seg.RemoteTaskID); err != nil {
			s.log(run, "❌ Failed to request subtitle for segment %d: %v", seg.Number, err)
		} else {
			requested[seg.Number] = true
		}
		time.Sleep(delay)
	}

	wait := time.Duration(s.cfg.Processing.SubtitleWaitSec) * time.Second
	s.log(run, "⏳ Waiting %s for subtitle generation...", wait)
	time.Sleep(wait)

	s.log(run, "Phase 2: Downloading SRT files...")
	downloaded, failed := 0, 0
	for _, seg := range targets {
		if !requested[seg.Number] {
			failed++
			continue
		}

		url, err := s.genai.GetTaskDetails(ctx, seg.RemoteTaskID)
		if err != nil {
			s.log(run, "⚠️ [%d] No subtitle URL available: %v", seg.Number, err)
			failed++
			time.Sleep(delay)
			continue
		}

		srtPath := filepath.Join(srtsDir, fmt.Sprintf("%d.srt", seg.Number))
		if _, err := s.fetcher.Fetch(ctx, url, srtPath); err != nil {
			s.log(run, "❌ [%d] SRT download failed: %v", seg.Number, err)
			failed++
		} else {
			s.log(run, "✅ [%d] SRT downloaded", seg.Number)
			downloaded++
			idx := seg.Number - 1
			s.setSegment(run, idx, func(sg *model.Segment) { sg.SRTPath = srtPath })
		}
		time.Sleep(delay)
	}
	s.log(run, "📊 Subtitles: %d requested | %d downloaded | %d failed", len(targets), downloaded, failed)
}

// CheckMissingFiles reports which segments have no MP3 on disk.
func (s *TTSService) CheckMissingFiles(req model.MissingCheckRequest) (*model.MissingFilesReport, error) {
	sentences := textsplit.Split(req.Text, req.Language)
	if len(sentences) == 0 {
		return nil, fmt.Errorf("text produced no sentences")
	}

	report := &model.MissingFilesReport{Success: true, Total: len(sentences), List: []model.MissingSegment{}}
	for i, text := range sentences {
		n := i + 1
		if fileExists(filepath.Join(req.OutputDir, fmt.Sprintf("%d.mp3", n))) {
			report.Existing++
		} else {
			report.Missing++
			report.List = append(report.List, model.MissingSegment{SegmentNumber: n, Text: text})
		}
	}
	return report, nil
}

// CheckMissingSRT reports segments whose MP3 exists but SRT does not.
// Segments with no MP3 are not SRT candidates and are counted apart.
func (s *TTSService) CheckMissingSRT(req model.MissingCheckRequest) (*model.MissingSRTReport, error) {
	sentences := textsplit.Split(req.Text, req.Language)
	if len(sentences) == 0 {
		return nil, fmt.Errorf("text produced no sentences")
	}

	srtsDir := filepath.Join(req.OutputDir, "srts")
	report := &model.MissingSRTReport{Success: true, List: []model.MissingSegment{}}
	for i, text := range sentences {
		n := i + 1
		if !fileExists(filepath.Join(req.OutputDir, fmt.Sprintf("%d.mp3", n))) {
			report.MP3NotExist++
			continue
		}
		if fileExists(filepath.Join(srtsDir, fmt.Sprintf("%d.srt", n))) {
			report.Existing++
		} else {
			report.Missing++
			report.List = append(report.List, model.MissingSegment{SegmentNumber: n, Text: text})
		}
	}
	report.Total = len(sentences) - report.MP3NotExist
	return report, nil
}

// RetryMissingVoices regenerates only the segments whose MP3 is absent,
// then joins when the directory is complete afterwards.
func (s *TTSService) RetryMissingVoices(req model.RetryMissingRequest) (string, int, error) {
	missing, err := s.CheckMissingFiles(model.MissingCheckRequest{
		Text: req.Text, Language: req.Language, OutputDir: req.OutputDir,
	})
	if err != nil {
		return "", 0, err
	}
	if missing.Missing == 0 {
		return "", 0, fmt.Errorf("no missing files to retry")
	}

	sentences := textsplit.Split(req.Text, req.Language)
	run := &ttsRun{req: model.TTSStartRequest{
		Provider:    req.Provider,
		Tier:        req.Tier,
		Text:        req.Text,
		Language:    req.Language,
		OutputDir:   req.OutputDir,
		VoiceID:     req.VoiceID,
		Model:       req.Model,
		CallbackURL: req.CallbackURL,
	}}
	run.id = uuid.New().String()
	run.status = model.RunRunning
	run.startedAt = time.Now()
	run.segments = make([]model.Segment, len(sentences))
	for i, text := range sentences {
		status := model.SegmentSucceeded
		if !fileExists(filepath.Join(req.OutputDir, fmt.Sprintf("%d.mp3", i+1))) {
			status = model.SegmentPending
		}
		run.segments[i] = model.Segment{Number: i + 1, Text: text, Status: status}
	}
	s.runs.put(run.id, run)

	go s.processRetry(run, missing.List)
	return run.id, missing.Missing, nil
}

func (s *TTSService) processRetry(run *ttsRun, missing []model.MissingSegment) {
	ctx := context.Background()
	s.log(run, "🔁 Retrying %d missing segments", len(missing))

	var done atomicCounter
	runner.Run(ctx, len(missing), s.cfg.Processing.BatchSize, 0, &run.flag, func(ctx context.Context, i int) {
		idx := missing[i].SegmentNumber - 1
		s.processSegment(ctx, run, idx)
		s.hub.BroadcastProgress(run.id, model.RunRunning, done.inc(), len(missing), "tts-retry")
	})

	// Verify and only auto-join when the directory is now complete.
	report, err := s.CheckMissingFiles(model.MissingCheckRequest{
		Text: run.req.Text, Language: run.req.Language, OutputDir: run.req.OutputDir,
	})
	if err == nil && report.Missing == 0 && !run.flag.Stopped() {
		s.log(run, "🎵 All files present, auto-joining...")
		if res, err := s.transcoder.JoinAudio(ctx, run.req.OutputDir); err != nil {
			s.log(run, "⚠️ Auto-join failed: %v", err)
		} else {
			run.mu.Lock()
			run.joinedFile = res.OutputFile
			run.mu.Unlock()
			s.log(run, "✅ Joined: %s", res.OutputFile)
		}
	} else if err == nil && report.Missing > 0 {
		s.log(run, "🚫 Auto-join skipped: %d file(s) still missing", report.Missing)
	}

	final := model.RunCompleted
	if run.flag.Stopped() {
		final = model.RunStopped
	}
	finishRun(&run.baseRun, final)
	s.hub.BroadcastComplete(run.id, s.snapshot(run))
}

// RetryMissingSRT re-downloads missing subtitles using the cached task
// ids from the original run. Segments without a cached id are skipped
// with a warning; a skip suppresses the auto-merge.
func (s *TTSService) RetryMissingSRT(req model.MissingCheckRequest) (string, int, error) {
	missing, err := s.CheckMissingSRT(req)
	if err != nil {
		return "", 0, err
	}
	if missing.Missing == 0 {
		return "", 0, fmt.Errorf("no missing SRT files to retry")
	}

	cache, err := sidecache.NewTaskIDCache(req.OutputDir).Load()
	if err != nil {
		return "", 0, err
	}
	if len(cache) == 0 {
		return "", 0, fmt.Errorf("no task id cache found in %s; SRT retry needs the original run's task ids", req.OutputDir)
	}

	run := &ttsRun{req: model.TTSStartRequest{
		Provider:  model.ProviderGenAI,
		Tier:      model.TierLabs,
		Text:      req.Text,
		Language:  req.Language,
		OutputDir: req.OutputDir,
	}}
	run.id = uuid.New().String()
	run.status = model.RunRunning
	run.startedAt = time.Now()
	s.runs.put(run.id, run)

	go s.processSRTRetry(run, missing.List, cache)
	return run.id, missing.Missing, nil
}

func (s *TTSService) processSRTRetry(run *ttsRun, missing []model.MissingSegment, cache map[int]string) {
	ctx := context.Background()
	srtsDir := filepath.Join(run.req.OutputDir, "srts")
	if err := os.MkdirAll(srtsDir, 0o755); err != nil {
		failRun(&run.baseRun, fmt.Sprintf("create srts dir: %v", err))
		return
	}

	delay := time.Duration(s.cfg.Processing.SubtitleDelaySec) * time.Second
	skipped, failed, downloaded := 0, 0, 0

	s.log(run, "Phase 1: Requesting subtitles for %d segments...", len(missing))
	requested := map[int]bool{}
	for _, m := range missing {
		taskID, ok := cache[m.SegmentNumber]
		if !ok {
			s.log(run, "⚠️ [%d] No cached task id, skipping", m.SegmentNumber)
			skipped++
			continue
		}
		if err := s.genai.RequestSubtitle(ctx, taskID); err != nil {
			s.log(run, "❌ [%d] Subtitle request failed: %v", m.SegmentNumber, err)
			failed++
			continue
		}
		requested[m.SegmentNumber] = true
		time.Sleep(delay)
	}

	wait := time.Duration(s.cfg.Processing.SubtitleWaitSec) * time.Second
	s.log(run, "⏳ Waiting %s for subtitle generation...", wait)
	time.Sleep(wait)

	s.log(run, "Phase 2: Downloading SRT files...")
	for _, m := range missing {
		if !requested[m.SegmentNumber] {
			continue
		}
		url, err := s.genai.GetTaskDetails(ctx, cache[m.SegmentNumber])
		if err != nil {
			s.log(run, "⚠️ [%d] No subtitle URL: %v", m.SegmentNumber, err)
			failed++
			time.Sleep(delay)
			continue
		}
		srtPath := filepath.Join(srtsDir, fmt.Sprintf("%d.srt", m.SegmentNumber))
		if _, err := s.fetcher.Fetch(ctx, url, srtPath); err != nil {
			s.log(run, "❌ [%d] SRT download failed: %v", m.SegmentNumber, err)
			failed++
		} else {
			downloaded++
		}
		time.Sleep(delay)
	}

	s.log(run, "📊 SRT retry: %d downloaded | %d failed | %d skipped", downloaded, failed, skipped)

	if failed == 0 && skipped == 0 {
		s.log(run, "📋 Auto-merging SRT files...")
		if res, err := s.MergeSRT(run.req.OutputDir); err != nil {
			s.log(run, "⚠️ Auto-merge failed: %v", err)
		} else {
			run.mu.Lock()
			run.mergedSRT = res.OutputFile
			run.mu.Unlock()
			s.log(run, "✅ Merged: %s", res.OutputFile)
		}
	} else {
		s.log(run, "🚫 Auto-merge skipped: %d failed, %d skipped", failed, skipped)
	}

	finishRun(&run.baseRun, model.RunCompleted)
	s.hub.BroadcastComplete(run.id, s.snapshot(run))
}

// JoinVoices concatenates a directory's numbered mp3 files now.
func (s *TTSService) JoinVoices(dir string) (*model.JoinResponse, error) {
	res, err := s.transcoder.JoinAudio(context.Background(), dir)
	if err != nil {
		return nil, err
	}
	return &model.JoinResponse{
		Success:     true,
		OutputFile:  res.OutputFile,
		FilesJoined: res.FilesJoined,
		FileNumbers: res.FileNumbers,
		Method:      res.Method,
	}, nil
}

// MergeSRT merges the directory's per-segment subtitles onto one
// timeline. Only integer-numbered mp3/srt pairs participate; each
// track is rescaled to its audio file's measured duration.
func (s *TTSService) MergeSRT(dir string) (*model.MergeSRTResponse, error) {
	ctx := context.Background()
	srtsDir := filepath.Join(dir, "srts")
	if !fileExists(srtsDir) {
		return nil, fmt.Errorf("output directory or srts subdirectory not found")
	}

	mp3s, err := media.ScanNumberedMP3s(dir)
	if err != nil {
		return nil, err
	}

	var numbers []int
	for _, f := range mp3s {
		n := int(f.Number)
		if float64(n) != f.Number {
			continue
		}
		if fileExists(filepath.Join(srtsDir, fmt.Sprintf("%d.srt", n))) {
			numbers = append(numbers, n)
		}
	}
	if len(numbers) == 0 {
		return nil, fmt.Errorf("no matching MP3/SRT pairs found")
	}

	segments := make([]subtitle.Segment, 0, len(numbers))
	for _, n := range numbers {
		mp3Path := filepath.Join(dir, fmt.Sprintf("%d.mp3", n))
		duration, err := s.transcoder.Duration(ctx, mp3Path)
		if err != nil {
			return nil, fmt.Errorf("cannot get audio duration for file %d.mp3: %w", n, err)
		}

		f, err := os.Open(filepath.Join(srtsDir, fmt.Sprintf("%d.srt", n)))
		if err != nil {
			return nil, fmt.Errorf("cannot read SRT file %d.srt: %w", n, err)
		}
		cues, err := subtitle.Parse(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("cannot read SRT file %d.srt: %w", n, err)
		}

		segments = append(segments, subtitle.Segment{Number: n, Cues: cues, Duration: duration})
	}

	track, err := subtitle.Merge(segments)
	if err != nil {
		return nil, err
	}

	stamp := time.Now().Format("2006-01-02T15-04-05")
	outPath := filepath.Join(dir, fmt.Sprintf("merged_subtitles_%s.srt", stamp))
	out, err := os.Create(outPath)
	if err != nil {
		return nil, fmt.Errorf("create merged srt: %w", err)
	}
	if err := track.WriteTo(out); err != nil {
		out.Close()
		return nil, err
	}
	if err := out.Close(); err != nil {
		return nil, err
	}

	return &model.MergeSRTResponse{
		Success:        true,
		OutputFile:     outPath,
		FilesProcessed: len(segments),
		TotalSubtitles: len(track.Cues),
		TotalDuration:  track.TotalDuration,
		FileNumbers:    numbers,
	}, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
