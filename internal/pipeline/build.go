package pipeline

import (
	"log/slog"

	"drillcut/internal/audio"
	"drillcut/internal/config"
	"drillcut/internal/media/ffmpeg"
	"drillcut/internal/segment"
	"drillcut/internal/stage"
	"drillcut/internal/trim"
)

// Stages holds the configured stage handlers.
type Stages struct {
	Split *segment.Stage
	Trim  *trim.Stage
}

// For returns the handlers a run named name executes, in order.
func (s Stages) For(name string) []stage.Handler {
	switch name {
	case stage.Split:
		return []stage.Handler{s.Split}
	case stage.Trim:
		return []stage.Handler{s.Trim}
	default:
		return []stage.Handler{s.Split, s.Trim}
	}
}

// BuildStages wires both stages to ffmpeg-backed decoding and extraction.
func BuildStages(cfg *config.Config, logger *slog.Logger, dryRun bool) Stages {
	client := ffmpeg.New(cfg.FFmpeg.Binary)
	decoder := &audio.Decoder{
		Transcoder:    client,
		FFprobeBinary: cfg.FFmpeg.FFprobeBinary,
	}
	split := segment.NewStage(cfg, decoder, segment.ExtractorFunc(client.CopyRange), logger)
	split.DryRun = dryRun
	trimmer := trim.NewStage(cfg, decoder, client, logger)
	trimmer.DryRun = dryRun
	return Stages{Split: split, Trim: trimmer}
}
