package media

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

var numberedMP3Re = regexp.MustCompile(`^(\d+(\.\d+)?)\.mp3$`)

// NumberedFile is an audio file whose name is its ordinal.
type NumberedFile struct {
	Name   string
	Number float64
}

// ScanNumberedMP3s lists dir's numeric-named mp3 files in ascending
// numeric order. Files like "2.5.mp3" slot between 2 and 3.
func ScanNumberedMP3s(dir string) ([]NumberedFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	var files []NumberedFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := numberedMP3Re.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		files = append(files, NumberedFile{Name: e.Name(), Number: n})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Number < files[j].Number })
	return files, nil
}

// JoinResult summarizes a completed join.
type JoinResult struct {
	OutputFile  string
	FilesJoined int
	FileNumbers []float64
	Method      string
}

// JoinAudio concatenates dir's numbered mp3 files into one track. The
// fast path stream-copies through the concat demuxer; when the inputs'
// encodings disagree and that fails, everything is decoded to WAV,
// concatenated and re-encoded. Temp files are removed on every path.
func (t *Transcoder) JoinAudio(ctx context.Context, dir string) (*JoinResult, error) {
	files, err := ScanNumberedMP3s(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no numbered mp3 files in %s", dir)
	}

	numbers := make([]float64, len(files))
	for i, f := range files {
		numbers[i] = f.Number
	}

	stamp := time.Now().Format("2006-01-02T15-04-05")
	outputFile := filepath.Join(dir, fmt.Sprintf("joined_%s.mp3", stamp))
	listFile := filepath.Join(dir, fmt.Sprintf("temp_concat_list_%s.txt", stamp))

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = filepath.Join(dir, f.Name)
	}
	if err := writeConcatList(listFile, paths); err != nil {
		return nil, err
	}

	copyErr := t.ffmpeg(ctx, "-f", "concat", "-safe", "0", "-i", listFile, "-c", "copy", "-y", outputFile)
	if rmErr := os.Remove(listFile); rmErr != nil {
		log.Printf("[Join] could not remove %s: %v", listFile, rmErr)
	}

	if copyErr == nil {
		return &JoinResult{
			OutputFile:  outputFile,
			FilesJoined: len(files),
			FileNumbers: numbers,
		}, nil
	}

	log.Printf("[Join] stream copy failed, falling back to WAV re-encode: %v", copyErr)
	if err := t.joinViaWAV(ctx, dir, paths, outputFile, stamp); err != nil {
		return nil, err
	}
	return &JoinResult{
		OutputFile:  outputFile,
		FilesJoined: len(files),
		FileNumbers: numbers,
		Method:      "fallback (WAV conversion)",
	}, nil
}

func (t *Transcoder) joinViaWAV(ctx context.Context, dir string, mp3Paths []string, outputFile, stamp string) error {
	wavs := make([]string, 0, len(mp3Paths))
	defer func() {
		for _, w := range wavs {
			os.Remove(w)
		}
	}()

	for i, mp3 := range mp3Paths {
		wav := filepath.Join(dir, fmt.Sprintf("temp_%03d.wav", i))
		wavs = append(wavs, wav)
		if err := t.ffmpeg(ctx, "-i", mp3, "-ar", "44100", "-ac", "2", "-y", wav); err != nil {
			return fmt.Errorf("convert %s to wav: %w", filepath.Base(mp3), err)
		}
	}

	wavList := filepath.Join(dir, fmt.Sprintf("temp_wav_list_%s.txt", stamp))
	if err := writeConcatList(wavList, wavs); err != nil {
		return err
	}
	defer os.Remove(wavList)

	if err := t.ffmpeg(ctx, "-f", "concat", "-safe", "0", "-i", wavList,
		"-c:a", "libmp3lame", "-b:a", "192k", "-y", outputFile); err != nil {
		return fmt.Errorf("concat wav files: %w", err)
	}
	return nil
}

func writeConcatList(listFile string, paths []string) error {
	var sb strings.Builder
	for _, p := range paths {
		// Single quotes must be escaped for the concat demuxer.
		escaped := strings.ReplaceAll(p, "'", `'\''`)
		fmt.Fprintf(&sb, "file '%s'\n", escaped)
	}
	if err := os.WriteFile(listFile, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}
	return nil
}
