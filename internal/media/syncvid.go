package media

import (
	"context"
	"fmt"

	"github.com/storyforge/api/internal/model"
)

// SyncVideoToAudio retimes a video so its duration matches the given
// audio duration, re-encoding with the selected acceleration mode. The
// video track is stretched via setpts and the audio track keeps pitch
// through a chained atempo filter.
func (t *Transcoder) SyncVideoToAudio(ctx context.Context, videoPath string, audioDuration float64, outputPath string, hw model.HWAccel) error {
	if audioDuration <= 0 {
		return fmt.Errorf("sync %s: non-positive audio duration %f", videoPath, audioDuration)
	}

	videoDuration, err := t.Duration(ctx, videoPath)
	if err != nil {
		return err
	}

	ratio := audioDuration / videoDuration
	audioFilter := AtempoChain(1 / ratio)

	args := []string{"-loglevel", "error"}

	if hw == model.HWAccelGPU || hw == model.HWAccelBoth {
		args = append(args, "-hwaccel", "cuda", "-hwaccel_output_format", "cuda", "-i", videoPath)
	} else {
		args = append(args, "-i", videoPath)
	}

	switch hw {
	case model.HWAccelGPU:
		args = append(args, "-filter:v", fmt.Sprintf("setpts=%g*PTS,hwdownload,format=nv12", ratio))
	case model.HWAccelBoth:
		args = append(args, "-filter:v", fmt.Sprintf("hwdownload,format=nv12,setpts=%g*PTS,hwupload_cuda", ratio))
	default:
		args = append(args, "-filter:v", fmt.Sprintf("setpts=%g*PTS", ratio))
	}

	args = append(args, "-filter:a", audioFilter)

	if hw == model.HWAccelGPU || hw == model.HWAccelBoth {
		args = append(args, "-c:v", "h264_nvenc", "-preset", "p4", "-cq", "23", "-b:v", "0")
	} else {
		args = append(args, "-c:v", "libx264", "-preset", "fast", "-crf", "23")
	}

	args = append(args, "-c:a", "aac", "-y", outputPath)

	return t.ffmpeg(ctx, args...)
}
