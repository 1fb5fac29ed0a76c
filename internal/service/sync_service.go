package service

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/storyforge/api/internal/config"
	"github.com/storyforge/api/internal/media"
	"github.com/storyforge/api/internal/model"
	"github.com/storyforge/api/internal/runner"
	"github.com/storyforge/api/internal/sidecache"
	ws "github.com/storyforge/api/internal/websocket"
)

// SyncTranscoder is the slice of the media front end the sync pipeline
// uses.
type SyncTranscoder interface {
	Duration(ctx context.Context, path string) (float64, error)
	SyncVideoToAudio(ctx context.Context, videoPath string, audioDuration float64, outputPath string, hw model.HWAccel) error
}

// SyncService retimes scene videos to their voice-over durations. Each
// scene's mp3 is matched against a "Scene N. description.mp4" source
// video; the output keeps the plain numbered name so downstream tools
// can concatenate in order.
type SyncService struct {
	cfg        *config.Config
	transcoder SyncTranscoder
	hub        *ws.Hub

	runs *runStore[*syncRun]
}

type syncRun struct {
	baseRun
	total     int
	processed int
	skipped   int
	missing   []int
	errors    []model.SceneResult
	flag      runner.Flag
}

func NewSyncService(cfg *config.Config, transcoder SyncTranscoder, hub *ws.Hub) *SyncService {
	return &SyncService{
		cfg:        cfg,
		transcoder: transcoder,
		hub:        hub,
		runs:       newRunStore[*syncRun](),
	}
}

var sceneVideoRe = regexp.MustCompile(`(?i)^Scene (\d+)\..*\.mp4$`)

// StartSync begins a sync run over every integer-numbered mp3 in
// voiceDir and returns its id.
func (s *SyncService) StartSync(req model.SyncStartRequest) (*model.SyncStartResponse, error) {
	if !fileExists(req.VoiceDir) {
		return nil, fmt.Errorf("voice directory does not exist: %s", req.VoiceDir)
	}
	if !fileExists(req.VideoDir) {
		return nil, fmt.Errorf("video directory does not exist: %s", req.VideoDir)
	}
	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	scenes, err := scanScenes(req.VoiceDir)
	if err != nil {
		return nil, err
	}
	if len(scenes) == 0 {
		return nil, fmt.Errorf("no numbered mp3 files found in %s", req.VoiceDir)
	}

	if req.HWAccel == "" {
		req.HWAccel = model.HWAccel(s.cfg.Processing.HWAccel)
	}

	run := &syncRun{total: len(scenes)}
	run.id = uuid.New().String()
	run.status = model.RunRunning
	run.startedAt = time.Now()
	s.runs.put(run.id, run)

	go s.processSync(run, req, scenes)
	return &model.SyncStartResponse{Success: true, RunID: run.id, Total: len(scenes)}, nil
}

// StopRun requests a cooperative stop; the scene in flight finishes.
func (s *SyncService) StopRun(runID string) error {
	run, ok := s.runs.get(runID)
	if !ok {
		return fmt.Errorf("run %s not found", runID)
	}
	run.flag.Stop()
	s.log(run, "⏹️ Stop requested; current scene will finish")
	return nil
}

// Run returns a snapshot of a run's state.
func (s *SyncService) Run(runID string) (*model.SyncRunSnapshot, error) {
	run, ok := s.runs.get(runID)
	if !ok {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	return s.snapshot(run), nil
}

func (s *SyncService) snapshot(run *syncRun) *model.SyncRunSnapshot {
	run.mu.Lock()
	defer run.mu.Unlock()
	return &model.SyncRunSnapshot{
		RunID:     run.id,
		Status:    run.status,
		Total:     run.total,
		Processed: run.processed,
		Skipped:   run.skipped,
		Missing:   append([]int(nil), run.missing...),
		Errors:    append([]model.SceneResult(nil), run.errors...),
	}
}

func (s *SyncService) log(run *syncRun, format string, args ...interface{}) {
	line := fmt.Sprintf(format, args...)
	log.Printf("[Sync %s] %s", run.id[:8], line)
	s.hub.BroadcastLog(run.id, line)
}

// processSync runs scenes sequentially; ffmpeg already saturates the
// machine, so there is nothing to gain from overlapping transcodes.
func (s *SyncService) processSync(run *syncRun, req model.SyncStartRequest, scenes []int) {
	ctx := context.Background()
	s.log(run, "🚀 Starting video synchronization...")
	s.log(run, "📁 Found %d voice files", len(scenes))

	videos, err := scanSceneVideos(req.VideoDir)
	if err != nil {
		failRun(&run.baseRun, err.Error())
		s.hub.BroadcastError(run.id, "RUN_FAILED", err.Error())
		return
	}
	s.log(run, "📁 Found %d video files", len(videos))

	processedSet := sidecache.NewProcessedSet(req.OutputDir)
	if req.Force {
		if err := processedSet.Clear(); err != nil {
			s.log(run, "⚠️ Cannot clear processed list: %v", err)
		}
	} else if err := processedSet.Load(); err != nil {
		s.log(run, "⚠️ Cannot load processed list: %v", err)
	}

	for i, scene := range scenes {
		if run.flag.Stopped() {
			break
		}

		if processedSet.Contains(scene) {
			s.log(run, "⏭️ Skipping scene %d (already processed)", scene)
			run.mu.Lock()
			run.skipped++
			run.mu.Unlock()
			continue
		}

		videoFile, ok := videos[scene]
		if !ok {
			s.log(run, "❌ No video found for scene %d", scene)
			run.mu.Lock()
			run.missing = append(run.missing, scene)
			run.mu.Unlock()
			continue
		}

		s.log(run, "[%d/%d] Processing scene %d...", i+1, len(scenes), scene)
		if err := s.syncScene(ctx, run, req, scene, videoFile); err != nil {
			s.log(run, "❌ Scene %d failed: %v", scene, err)
			run.mu.Lock()
			run.errors = append(run.errors, model.SceneResult{Scene: scene, Error: err.Error()})
			run.mu.Unlock()
		} else {
			s.log(run, "✅ Scene %d synced successfully", scene)
			if err := processedSet.Add(scene); err != nil {
				s.log(run, "⚠️ Cannot persist processed list: %v", err)
			}
			run.mu.Lock()
			run.processed++
			run.mu.Unlock()
		}

		s.hub.BroadcastProgress(run.id, model.RunRunning, i+1, len(scenes), "sync")
	}

	snap := s.snapshot(run)
	s.log(run, "✅ Synchronization complete!")
	s.log(run, "📊 Total: %d | Processed: %d | Skipped: %d", snap.Total, snap.Processed, snap.Skipped)
	s.log(run, "📊 Missing: %d | Errors: %d", len(snap.Missing), len(snap.Errors))

	final := model.RunCompleted
	if run.flag.Stopped() {
		final = model.RunStopped
	}
	finishRun(&run.baseRun, final)
	s.hub.BroadcastComplete(run.id, s.snapshot(run))
}

func (s *SyncService) syncScene(ctx context.Context, run *syncRun, req model.SyncStartRequest, scene int, videoFile string) error {
	voicePath := filepath.Join(req.VoiceDir, fmt.Sprintf("%d.mp3", scene))
	audioDuration, err := s.transcoder.Duration(ctx, voicePath)
	if err != nil {
		return fmt.Errorf("get audio duration: %w", err)
	}
	s.log(run, "⏱️ Audio duration: %.2fs", audioDuration)

	videoPath := filepath.Join(req.VideoDir, videoFile)
	outputPath := filepath.Join(req.OutputDir, fmt.Sprintf("%d.mp4", scene))
	return s.transcoder.SyncVideoToAudio(ctx, videoPath, audioDuration, outputPath, req.HWAccel)
}

// CheckMissingVideos reports scenes whose voice-over has no matching
// source video. Scenes with a source video count as existing; a
// prompts file, when given, attaches the scene's prompt text so the
// operator can regenerate the missing video.
func (s *SyncService) CheckMissingVideos(req model.MissingVideoCheckRequest) (*model.MissingVideoReport, error) {
	scenes, err := scanScenes(req.VoiceDir)
	if err != nil {
		return nil, err
	}
	if len(scenes) == 0 {
		return nil, fmt.Errorf("no numbered mp3 files found in %s", req.VoiceDir)
	}

	videos, err := scanSceneVideos(req.VideoDir)
	if err != nil {
		return nil, err
	}

	prompts := map[int]string{}
	if req.PromptsFile != "" {
		prompts, err = loadScenePrompts(req.PromptsFile)
		if err != nil {
			log.Printf("[Sync] prompts file not readable: %v", err)
			prompts = map[int]string{}
		}
	}

	report := &model.MissingVideoReport{Success: true, Total: len(scenes), Missing: []model.MissingVideo{}}
	for _, scene := range scenes {
		if _, ok := videos[scene]; ok {
			report.Existing++
		} else {
			report.Missing = append(report.Missing, model.MissingVideo{Scene: scene, Prompt: prompts[scene]})
		}
		if req.OutputDir != "" && fileExists(filepath.Join(req.OutputDir, fmt.Sprintf("%d.mp4", scene))) {
			report.Processed++
		}
	}
	return report, nil
}

// scanScenes lists the integer scene numbers with a voice-over mp3,
// ascending. Fractional insert files like 2.5.mp3 belong to the audio
// join flow and are not scenes.
func scanScenes(voiceDir string) ([]int, error) {
	files, err := media.ScanNumberedMP3s(voiceDir)
	if err != nil {
		return nil, err
	}
	var scenes []int
	for _, f := range files {
		n := int(f.Number)
		if float64(n) == f.Number {
			scenes = append(scenes, n)
		}
	}
	return scenes, nil
}

// scanSceneVideos maps scene numbers to "Scene N. description.mp4"
// file names. The first match per scene wins.
func scanSceneVideos(videoDir string) (map[int]string, error) {
	entries, err := os.ReadDir(videoDir)
	if err != nil {
		return nil, fmt.Errorf("read video dir: %w", err)
	}
	videos := map[int]string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := sceneVideoRe.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if _, ok := videos[n]; !ok {
			videos[n] = e.Name()
		}
	}
	return videos, nil
}

var scenePromptRe = regexp.MustCompile(`^Scene\s+(\d+)\.`)

// loadScenePrompts parses a "Scene N. prompt text" file into a
// scene-to-prompt map.
func loadScenePrompts(path string) (map[int]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	prompts := map[int]string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		m := scenePromptRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		prompts[n] = line
	}
	return prompts, scanner.Err()
}
