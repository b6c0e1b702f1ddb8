package deps

import "strings"

// MediaRequirements lists the binaries the split and trim stages execute.
// Empty names fall back to resolving "ffmpeg" and "ffprobe" from PATH.
func MediaRequirements(ffmpegBinary, ffprobeBinary string) []Requirement {
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     orDefault(ffmpegBinary, "ffmpeg"),
			Description: "Required for decoding and lossless clip extraction",
		},
		{
			Name:        "FFprobe",
			Command:     orDefault(ffprobeBinary, "ffprobe"),
			Description: "Required for recording inspection",
		},
	}
}

func orDefault(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}
