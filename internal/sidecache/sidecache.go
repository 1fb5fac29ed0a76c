// Package sidecache persists the two JSON side files the pipelines keep
// next to their outputs: the segment-to-task-id cache used for subtitle
// retries, and the processed-scene set used to resume video sync runs.
package sidecache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const (
	TaskIDCacheFile  = ".task_ids_cache.json"
	ProcessedSetFile = "processed_files.json"
)

// TaskIDCache maps segment numbers to remote task ids, stored as a JSON
// object keyed by the segment number's decimal string.
type TaskIDCache struct {
	path string
}

func NewTaskIDCache(dir string) *TaskIDCache {
	return &TaskIDCache{path: filepath.Join(dir, TaskIDCacheFile)}
}

// Load reads the cache. A missing file is an empty cache, not an error.
func (c *TaskIDCache) Load() (map[int]string, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[int]string{}, nil
		}
		return nil, fmt.Errorf("read task id cache: %w", err)
	}

	raw := map[string]string{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse task id cache: %w", err)
	}

	out := make(map[int]string, len(raw))
	for k, v := range raw {
		n, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		out[n] = v
	}
	return out, nil
}

// Merge folds entries into the cache on disk, read-merge-write. New
// entries win over existing ones for the same segment.
func (c *TaskIDCache) Merge(entries map[int]string) error {
	existing, err := c.Load()
	if err != nil {
		return err
	}
	for k, v := range entries {
		existing[k] = v
	}

	raw := make(map[string]string, len(existing))
	for k, v := range existing {
		raw[strconv.Itoa(k)] = v
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("encode task id cache: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		return fmt.Errorf("write task id cache: %w", err)
	}
	return nil
}

// ProcessedSet tracks which scene numbers a sync run already produced,
// stored as a JSON array.
type ProcessedSet struct {
	path  string
	seen  map[int]bool
	order []int
}

func NewProcessedSet(dir string) *ProcessedSet {
	return &ProcessedSet{
		path: filepath.Join(dir, ProcessedSetFile),
		seen: map[int]bool{},
	}
}

// Load reads the set from disk. A missing file is an empty set.
func (s *ProcessedSet) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read processed set: %w", err)
	}

	var scenes []int
	if err := json.Unmarshal(data, &scenes); err != nil {
		return fmt.Errorf("parse processed set: %w", err)
	}
	for _, n := range scenes {
		if !s.seen[n] {
			s.seen[n] = true
			s.order = append(s.order, n)
		}
	}
	return nil
}

func (s *ProcessedSet) Contains(scene int) bool {
	return s.seen[scene]
}

// Add records a scene and persists the whole set immediately, so a
// crash mid-run loses at most the scene in flight.
func (s *ProcessedSet) Add(scene int) error {
	if !s.seen[scene] {
		s.seen[scene] = true
		s.order = append(s.order, scene)
	}
	return s.Save()
}

func (s *ProcessedSet) Save() error {
	scenes := s.order
	if scenes == nil {
		scenes = []int{}
	}
	data, err := json.MarshalIndent(scenes, "", "  ")
	if err != nil {
		return fmt.Errorf("encode processed set: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write processed set: %w", err)
	}
	return nil
}

// Clear forgets all scenes and removes the file, for force reprocessing.
func (s *ProcessedSet) Clear() error {
	s.seen = map[int]bool{}
	s.order = nil
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove processed set: %w", err)
	}
	return nil
}
