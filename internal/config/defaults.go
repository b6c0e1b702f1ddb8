package config

const (
	defaultSourceDir     = "."
	defaultClipsDir      = "output"
	defaultTrimmedDir    = "output_trimmed"
	defaultStateDir      = "~/.local/share/drillcut"
	defaultLogDir        = "~/.local/share/drillcut/logs"
	defaultLogFormat     = "console"
	defaultLogLevel      = "info"
	defaultRetentionDays = 30

	defaultSplitPaddingDB     = 15
	defaultSplitMinSilenceMs  = 1200
	defaultStartShiftMs       = 200
	defaultSegmentsPerItem    = 4
	defaultWordPosition       = 0
	defaultPhrasePosition     = 3
	defaultItemsPerRecording  = 9
	defaultTrimPaddingDB      = 20
	defaultTrimMinSilenceMs   = 300
	defaultTrimBufferMs       = 200
	defaultClipExtension      = ".mp3"
	defaultConcurrency        = 1
	defaultUnitTimeoutSeconds = 300
	defaultExtractionAttempts = 2
	defaultFFmpegBinary       = "ffmpeg"
	defaultFFprobeBinary      = "ffprobe"
	defaultConfigPathRelative = "~/.config/drillcut/config.toml"
	defaultProjectConfigName  = "drillcut.toml"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			SourceDir:  defaultSourceDir,
			ClipsDir:   defaultClipsDir,
			TrimmedDir: defaultTrimmedDir,
			StateDir:   defaultStateDir,
			LogDir:     defaultLogDir,
		},
		Segmenter: Segmenter{
			ThresholdPaddingDB: defaultSplitPaddingDB,
			MinSilenceMs:       defaultSplitMinSilenceMs,
			StartShiftMs:       defaultStartShiftMs,
			SegmentsPerItem:    defaultSegmentsPerItem,
			WordPosition:       defaultWordPosition,
			PhrasePosition:     defaultPhrasePosition,
			ItemsPerRecording:  defaultItemsPerRecording,
			SourceExtensions:   []string{defaultClipExtension},
		},
		Trimmer: Trimmer{
			ThresholdPaddingDB: defaultTrimPaddingDB,
			MinSilenceMs:       defaultTrimMinSilenceMs,
			BufferMs:           defaultTrimBufferMs,
			Extension:          defaultClipExtension,
		},
		Workers: Workers{
			Concurrency:        defaultConcurrency,
			UnitTimeoutSeconds: defaultUnitTimeoutSeconds,
			ExtractionAttempts: defaultExtractionAttempts,
		},
		FFmpeg: FFmpeg{
			Binary:        defaultFFmpegBinary,
			FFprobeBinary: defaultFFprobeBinary,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultRetentionDays,
		},
	}
}
