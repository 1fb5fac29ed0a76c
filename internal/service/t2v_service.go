package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/storyforge/api/internal/client"
	"github.com/storyforge/api/internal/config"
	"github.com/storyforge/api/internal/model"
	"github.com/storyforge/api/internal/runner"
	ws "github.com/storyforge/api/internal/websocket"
)

// T2VService schedules text-to-video generation across provider
// accounts. Prompts are split into contiguous chunks, one chunk per
// account, and each account works its chunk on its own lanes. Failed
// prompts are retried in bounded rounds; unfinished work can be
// transferred to another account mid-run.
type T2VService struct {
	cfg      *config.Config
	videogen client.VideoGenerator
	fetcher  client.FileFetcher
	hub      *ws.Hub

	mu          sync.Mutex
	accounts    []*t2vAccount
	running     bool
	runID       string
	outputDir   string
	aspectRatio string
}

type t2vAccount struct {
	name         string
	state        model.AccountState
	prompts      []*model.PromptTask
	stop         runner.Flag
	retryAttempt int
}

func NewT2VService(cfg *config.Config, videogen client.VideoGenerator, fetcher client.FileFetcher, hub *ws.Hub) *T2VService {
	return &T2VService{
		cfg:      cfg,
		videogen: videogen,
		fetcher:  fetcher,
		hub:      hub,
	}
}

// AddAccount puts a new account on the board.
func (s *T2VService) AddAccount(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findAccount(name) != nil {
		return fmt.Errorf("account %s already exists", name)
	}
	s.accounts = append(s.accounts, &t2vAccount{name: name, state: model.AccountIdle})
	return nil
}

// RemoveAccount takes an account off the board. Accounts that are
// mid-run must be stopped or transferred first.
func (s *T2VService) RemoveAccount(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct := s.findAccount(name)
	if acct == nil {
		return fmt.Errorf("account %s not found", name)
	}
	if acct.state == model.AccountProcessing {
		return fmt.Errorf("account %s is processing; stop it first", name)
	}
	for i, a := range s.accounts {
		if a == acct {
			s.accounts = append(s.accounts[:i], s.accounts[i+1:]...)
			break
		}
	}
	return nil
}

// findAccount must be called with s.mu held.
func (s *T2VService) findAccount(name string) *t2vAccount {
	for _, a := range s.accounts {
		if a.name == name {
			return a
		}
	}
	return nil
}

// StartRun distributes the prompt list over the current accounts and
// begins processing. One run at a time.
func (s *T2VService) StartRun(req model.T2VStartRequest) (*model.T2VStartResponse, error) {
	prompts := parsePrompts(req.Prompts)
	if len(prompts) == 0 {
		return nil, errors.New("no valid prompts found")
	}

	aspectRatio := req.AspectRatio
	if aspectRatio == "" {
		aspectRatio = s.cfg.T2V.AspectRatio
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, errors.New("processing already in progress")
	}
	if len(s.accounts) == 0 {
		s.mu.Unlock()
		return nil, errors.New("no accounts added")
	}

	// Contiguous chunks of ceil(M/A); the last account absorbs the
	// remainder when prompts don't divide evenly.
	perAccount := (len(prompts) + len(s.accounts) - 1) / len(s.accounts)
	for _, acct := range s.accounts {
		acct.prompts = nil
		acct.retryAttempt = 0
		acct.state = model.AccountIdle
	}
	for i, text := range prompts {
		slot := i / perAccount
		if slot >= len(s.accounts) {
			slot = len(s.accounts) - 1
		}
		acct := s.accounts[slot]
		acct.prompts = append(acct.prompts, &model.PromptTask{
			Index:  i + 1,
			Prompt: text,
			Status: model.PromptPending,
		})
	}

	s.running = true
	s.runID = uuid.New().String()
	s.outputDir = req.OutputDir
	s.aspectRatio = aspectRatio
	runID := s.runID
	accounts := append([]*t2vAccount(nil), s.accounts...)
	s.mu.Unlock()

	s.logf("🎬 Starting Text-to-Video generation...")
	s.logf("📊 Total prompts: %d | Accounts: %d | Batch size: %d", len(prompts), len(accounts), s.cfg.Processing.T2VBatchSize)
	for _, acct := range accounts {
		s.logf("👤 %s: %d prompts", acct.name, len(acct.prompts))
	}

	go s.processRun(accounts, req.OutputDir, aspectRatio)

	return &model.T2VStartResponse{
		Success:      true,
		RunID:        runID,
		TotalPrompts: len(prompts),
		Accounts:     len(accounts),
	}, nil
}

func (s *T2VService) processRun(accounts []*t2vAccount, outputDir, aspectRatio string) {
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, acct := range accounts {
		wg.Add(1)
		go func(acct *t2vAccount) {
			defer wg.Done()
			s.processAccount(ctx, acct, outputDir, aspectRatio)
		}(acct)
	}
	wg.Wait()

	s.mu.Lock()
	s.running = false
	runID := s.runID
	s.mu.Unlock()

	snap := s.Status()
	if len(snap.Incomplete) == 0 {
		s.logf("✅ All prompts processed successfully!")
	} else {
		s.logf("⚠️ %d incomplete prompts", len(snap.Incomplete))
	}
	s.hub.BroadcastComplete(runID, snap)
}

// processAccount works an account's chunk, then keeps re-running the
// failed subset until it is clean, the stop flag is raised, or the
// retry budget runs out.
func (s *T2VService) processAccount(ctx context.Context, acct *t2vAccount, outputDir, aspectRatio string) {
	batch := s.cfg.Processing.T2VBatchSize
	delay := time.Duration(s.cfg.Processing.T2VTaskDelayMS) * time.Millisecond
	maxRetries := s.cfg.Processing.T2VMaxRetries

	acct.stop.Reset()
	s.setAccountState(acct, model.AccountProcessing)

	for attempt := 0; ; attempt++ {
		if attempt == 0 {
			s.logf("🎥 [%s] Starting batch processing with concurrency: %d", acct.name, batch)
		} else {
			s.logf("🔄 [%s] Auto-retry attempt %d/%d", acct.name, attempt, maxRetries)
			s.mu.Lock()
			acct.retryAttempt = attempt
			s.mu.Unlock()
		}

		tasks := s.accountTasks(acct)
		runner.Run(ctx, len(tasks), batch, delay, &acct.stop, func(ctx context.Context, i int) {
			s.processPrompt(ctx, acct, tasks[i], outputDir, aspectRatio)
		})

		if acct.stop.Stopped() {
			incomplete := s.countIncomplete(acct)
			s.logf("⏹️ [%s] Processing stopped by user", acct.name)
			if incomplete > 0 {
				s.logf("⚠️ [%s] %d prompts incomplete", acct.name, incomplete)
			}
			break
		}

		failed := s.countStatus(acct, model.PromptError)
		if failed == 0 {
			s.logf("✅ [%s] All prompts processed successfully", acct.name)
			break
		}
		if attempt >= maxRetries {
			s.logf("❌ [%s] %d prompts still failed after %d retries", acct.name, failed, maxRetries)
			break
		}
		s.logf("⚠️ [%s] %d prompts failed, auto-retrying...", acct.name, failed)
	}

	s.setAccountState(acct, model.AccountCompleted)
	s.broadcastBoard()
}

func (s *T2VService) processPrompt(ctx context.Context, acct *t2vAccount, task *model.PromptTask, outputDir, aspectRatio string) {
	if acct.stop.Stopped() {
		return
	}

	s.mu.Lock()
	if task.Status.IsComplete() {
		s.mu.Unlock()
		return
	}
	task.Status = model.PromptCreating
	task.Error = ""
	s.mu.Unlock()
	s.broadcastBoard()

	fail := func(err error) {
		s.mu.Lock()
		task.Status = model.PromptError
		task.Error = err.Error()
		task.RetryCount++
		s.mu.Unlock()
		s.logf("❌ [%s] Prompt #%d failed: %v", acct.name, task.Index, err)
		s.broadcastBoard()
	}

	s.logf("🎥 [%s] Processing prompt #%d: %s", acct.name, task.Index, truncate(task.Prompt, 50))

	res, err := s.videogen.CreateVideo(ctx, task.Prompt, acct.name, aspectRatio)
	if err != nil {
		fail(err)
		return
	}

	s.mu.Lock()
	task.MediaID = res.MediaID
	task.DownloadURL = res.DownloadURL
	task.Status = model.PromptGenerated
	s.mu.Unlock()
	s.logf("✅ [%s] Video ready (%s), starting download...", acct.name, res.MediaID)
	s.broadcastBoard()

	s.mu.Lock()
	task.Status = model.PromptDownloading
	s.mu.Unlock()

	path, err := s.downloadVideo(ctx, res.DownloadURL, outputDir, task.Prompt)
	if err != nil {
		fail(err)
		return
	}

	s.mu.Lock()
	task.Status = model.PromptDownloaded
	task.FilePath = path
	s.mu.Unlock()
	s.logf("💾 [%s] Downloaded: %s", acct.name, filepath.Base(path))
	s.broadcastBoard()
}

func (s *T2VService) downloadVideo(ctx context.Context, url, outputDir, promptText string) (string, error) {
	path := filepath.Join(outputDir, sanitizeFilename(promptText)+".mp4")
	if _, err := s.fetcher.Fetch(ctx, url, path); err != nil {
		return "", err
	}
	return path, nil
}

// StopAll raises the stop flag on every account. In-flight prompts
// finish; no new prompts are claimed.
func (s *T2VService) StopAll() {
	s.mu.Lock()
	for _, acct := range s.accounts {
		acct.stop.Stop()
	}
	s.mu.Unlock()
	s.logf("⏹️ Stopping all processing...")
}

// StopAccount stops one account's lanes.
func (s *T2VService) StopAccount(name string) error {
	s.mu.Lock()
	acct := s.findAccount(name)
	s.mu.Unlock()
	if acct == nil {
		return fmt.Errorf("account %s not found", name)
	}
	acct.stop.Stop()
	s.logf("⏹️ [%s] Stop requested", name)
	return nil
}

// Transfer moves an account's unfinished prompts to another account.
// The source is stopped first; its rows become transferred tombstones
// and the destination receives fresh pending copies.
func (s *T2VService) Transfer(req model.TransferRequest) (*model.TransferResponse, error) {
	if req.From == req.To {
		return nil, errors.New("cannot transfer an account to itself")
	}

	s.mu.Lock()
	src := s.findAccount(req.From)
	dst := s.findAccount(req.To)
	if src == nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("account %s not found", req.From)
	}
	if dst == nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("account %s not found", req.To)
	}

	src.stop.Stop()

	moved := 0
	for _, t := range src.prompts {
		if t.Status.IsComplete() {
			continue
		}
		dst.prompts = append(dst.prompts, &model.PromptTask{
			Index:  t.Index,
			Prompt: t.Prompt,
			Status: model.PromptPending,
		})
		t.Status = model.PromptTransferred
		t.Error = "Transferred to " + req.To
		moved++
	}
	s.mu.Unlock()

	if moved == 0 {
		return nil, fmt.Errorf("account %s has no incomplete prompts", req.From)
	}

	s.logf("🔄 Account replaced: %s → %s", req.From, req.To)
	s.logf("📦 Transferred %d incomplete prompt(s)", moved)
	s.broadcastBoard()

	return &model.TransferResponse{
		Success:     true,
		Transferred: moved,
		From:        req.From,
		To:          req.To,
	}, nil
}

// EditPrompt replaces the text of an unfinished prompt so a manual
// retry can pick up the corrected version.
func (s *T2VService) EditPrompt(index int, req model.EditPromptRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct := s.findAccount(req.Account)
	if acct == nil {
		return fmt.Errorf("account %s not found", req.Account)
	}
	for _, t := range acct.prompts {
		if t.Index != index {
			continue
		}
		if t.Status.IsComplete() {
			return fmt.Errorf("prompt #%d is already complete", index)
		}
		t.Prompt = req.Prompt
		t.Error = ""
		log.Printf("[T2V] ✏️ Prompt #%d updated", index)
		return nil
	}
	return fmt.Errorf("prompt #%d not found in account %s", index, req.Account)
}

// RetryFailed re-runs only error-status prompts, one pass per account.
func (s *T2VService) RetryFailed(req model.RetryFailedRequest) (int, error) {
	type retryJob struct {
		acct    *t2vAccount
		tasks   []*model.PromptTask
		attempt int
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return 0, errors.New("processing already in progress")
	}

	var jobs []retryJob
	total := 0
	for _, acct := range s.accounts {
		var failed []*model.PromptTask
		for _, t := range acct.prompts {
			if t.Status == model.PromptError {
				failed = append(failed, t)
			}
		}
		if len(failed) == 0 {
			continue
		}
		acct.retryAttempt++
		jobs = append(jobs, retryJob{acct: acct, tasks: failed, attempt: acct.retryAttempt})
		total += len(failed)
	}
	if len(jobs) == 0 {
		s.mu.Unlock()
		return 0, errors.New("no failed prompts to retry")
	}

	s.running = true
	if s.runID == "" {
		s.runID = uuid.New().String()
	}
	aspectRatio := s.aspectRatio
	if aspectRatio == "" {
		aspectRatio = s.cfg.T2V.AspectRatio
	}
	s.mu.Unlock()

	s.logf("🔄 Retrying failed prompts...")
	s.logf("📊 Total errors to retry: %d", total)

	go func() {
		ctx := context.Background()
		batch := s.cfg.Processing.T2VBatchSize
		delay := time.Duration(s.cfg.Processing.T2VTaskDelayMS) * time.Millisecond

		var wg sync.WaitGroup
		for _, job := range jobs {
			wg.Add(1)
			go func(job retryJob) {
				defer wg.Done()
				job.acct.stop.Reset()
				s.setAccountState(job.acct, model.AccountProcessing)
				s.logf("🔄 [%s] Retrying %d failed prompts (attempt %d/%d)",
					job.acct.name, len(job.tasks), job.attempt, s.cfg.Processing.T2VMaxRetries)

				runner.Run(ctx, len(job.tasks), batch, delay, &job.acct.stop, func(ctx context.Context, i int) {
					s.processPrompt(ctx, job.acct, job.tasks[i], req.OutputDir, aspectRatio)
				})
				s.setAccountState(job.acct, model.AccountCompleted)
			}(job)
		}
		wg.Wait()

		s.mu.Lock()
		s.running = false
		runID := s.runID
		s.mu.Unlock()

		s.logf("✅ Retry completed!")
		s.broadcastBoard()
		s.hub.BroadcastComplete(runID, s.Status())
	}()

	return total, nil
}

// DownloadGenerated downloads prompts stuck in generated. A failed
// download reverts the prompt to generated so it can be attempted
// again.
func (s *T2VService) DownloadGenerated(req model.DownloadGeneratedRequest) (success, failed int, err error) {
	type pendingDownload struct {
		acct *t2vAccount
		task *model.PromptTask
	}

	s.mu.Lock()
	var targets []pendingDownload
	for _, acct := range s.accounts {
		for _, t := range acct.prompts {
			if t.Status == model.PromptGenerated && t.DownloadURL != "" {
				targets = append(targets, pendingDownload{acct: acct, task: t})
			}
		}
	}
	s.mu.Unlock()

	if len(targets) == 0 {
		return 0, 0, errors.New("no generated videos waiting to be downloaded")
	}

	s.logf("📥 Downloading %d generated videos...", len(targets))

	ctx := context.Background()
	for _, pd := range targets {
		s.mu.Lock()
		pd.task.Status = model.PromptDownloading
		s.mu.Unlock()
		s.broadcastBoard()

		path, derr := s.downloadVideo(ctx, pd.task.DownloadURL, req.OutputDir, pd.task.Prompt)
		s.mu.Lock()
		if derr != nil {
			pd.task.Status = model.PromptGenerated
			failed++
		} else {
			pd.task.Status = model.PromptDownloaded
			pd.task.FilePath = path
			success++
		}
		s.mu.Unlock()

		if derr != nil {
			s.logf("❌ Download failed for #%d: %v", pd.task.Index, derr)
		} else {
			s.logf("✅ Downloaded: %s", truncate(pd.task.Prompt, 50))
		}
		s.broadcastBoard()
	}

	s.logf("✅ Download completed! Success: %d, Failed: %d", success, failed)
	return success, failed, nil
}

// Status returns the full board snapshot.
func (s *T2VService) Status() *model.T2VStatusSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := &model.T2VStatusSnapshot{
		Success:  true,
		Running:  s.running,
		Accounts: []model.AccountStats{},
	}
	for _, acct := range s.accounts {
		snap.Accounts = append(snap.Accounts, statsFor(acct))
		for _, t := range acct.prompts {
			switch t.Status {
			case model.PromptTransferred:
				// Tombstone; the live copy is counted on its new account.
				continue
			case model.PromptDownloaded:
				snap.Completed++
			case model.PromptError:
				snap.Failed++
			}
			snap.TotalPrompts++
			if !t.Status.IsComplete() {
				snap.Incomplete = append(snap.Incomplete, *t)
			}
		}
	}
	return snap
}

// statsFor must be called with s.mu held.
func statsFor(acct *t2vAccount) model.AccountStats {
	st := model.AccountStats{
		Name:     acct.name,
		State:    acct.state,
		Total:    len(acct.prompts),
		Retrying: acct.retryAttempt > 0,
	}
	for _, t := range acct.prompts {
		switch t.Status {
		case model.PromptPending:
			st.Pending++
		case model.PromptCreating, model.PromptDownloading:
			st.Processing++
		case model.PromptGenerated:
			st.Generated++
		case model.PromptDownloaded:
			st.Downloaded++
		case model.PromptTransferred:
			st.Transferred++
		case model.PromptError:
			st.Errors++
		}
	}
	return st
}

// countStatus must not be called with s.mu held.
func (s *T2VService) countStatus(acct *t2vAccount, status model.PromptStatus) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range acct.prompts {
		if t.Status == status {
			n++
		}
	}
	return n
}

func (s *T2VService) countIncomplete(acct *t2vAccount) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range acct.prompts {
		if !t.Status.IsComplete() {
			n++
		}
	}
	return n
}

func (s *T2VService) accountTasks(acct *t2vAccount) []*model.PromptTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*model.PromptTask(nil), acct.prompts...)
}

func (s *T2VService) setAccountState(acct *t2vAccount, state model.AccountState) {
	s.mu.Lock()
	acct.state = state
	s.mu.Unlock()
}

func (s *T2VService) broadcastBoard() {
	s.mu.Lock()
	runID := s.runID
	stats := make([]model.AccountStats, 0, len(s.accounts))
	for _, acct := range s.accounts {
		stats = append(stats, statsFor(acct))
	}
	s.mu.Unlock()

	if runID == "" {
		return
	}
	s.hub.BroadcastBoard(runID, stats)
}

func (s *T2VService) logf(format string, args ...interface{}) {
	line := fmt.Sprintf(format, args...)
	log.Printf("[T2V] %s", line)

	s.mu.Lock()
	runID := s.runID
	s.mu.Unlock()
	if runID != "" {
		s.hub.BroadcastLog(runID, line)
	}
}

func parsePrompts(text string) []string {
	var prompts []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			prompts = append(prompts, line)
		}
	}
	return prompts
}

var (
	filenameDisallowed = regexp.MustCompile(`[^a-zA-Z0-9\s\-_.\x{00C0}-\x{1EF9}\x{3040}-\x{309F}\x{30A0}-\x{30FF}\x{4E00}-\x{9FFF}]`)
	collapseSpaces     = regexp.MustCompile(`\s+`)
)

// sanitizeFilename turns prompt text into a safe mp4 base name,
// keeping Latin-extended, kana and CJK characters.
func sanitizeFilename(text string) string {
	s := filenameDisallowed.ReplaceAllString(text, "")
	s = strings.TrimSpace(collapseSpaces.ReplaceAllString(s, " "))
	if r := []rune(s); len(r) > 100 {
		s = strings.TrimSpace(string(r[:100]))
	}
	if s == "" {
		s = fmt.Sprintf("video_%d", time.Now().UnixMilli())
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
