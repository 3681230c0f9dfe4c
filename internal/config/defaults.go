package config

const (
	defaultDataDir        = "~/.local/share/nightshift"
	defaultLogDir         = "~/.local/share/nightshift/logs"
	defaultPremadeRoot    = "~/.local/share/nightshift/premade"
	defaultBackgroundsDir = "~/.local/share/nightshift/backgrounds"

	defaultElevenLabsModelID      = "eleven_multilingual_v2"
	defaultElevenLabsOutputFormat = "pcm_24000"
	defaultElevenLabsTimeout      = 120

	defaultPostizPlatform       = "youtube"
	defaultPostizScheduleLead   = 5
	defaultPostizTimeoutSeconds = 600

	defaultEndBufferSeconds = 10.0

	defaultCaptionPreset   = "capcut_green"
	defaultCaptionFontName = "BowlbyOne-Regular"
	defaultCaptionFontSize = 72

	defaultThumbFontPath = "/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf"

	defaultPollIntervalSeconds         = 10
	defaultSplitterPollIntervalSeconds = 15
	defaultLeaseTTLMinutes             = 10

	defaultLogLevel  = "info"
	defaultLogFormat = "console"
)

func defaultEncoders() []string {
	return []string{"h264_v4l2m2m", "h264_omx", "libx264"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:        defaultDataDir,
			LogDir:         defaultLogDir,
			PremadeRoot:    defaultPremadeRoot,
			BackgroundsDir: defaultBackgroundsDir,
		},
		ElevenLabs: ElevenLabs{
			ModelID:        defaultElevenLabsModelID,
			OutputFormat:   defaultElevenLabsOutputFormat,
			TimeoutSeconds: defaultElevenLabsTimeout,
		},
		Postiz: Postiz{
			DefaultPlatform:     defaultPostizPlatform,
			ScheduleLeadMinutes: defaultPostizScheduleLead,
			TimeoutSeconds:      defaultPostizTimeoutSeconds,
		},
		Render: Render{
			EndBufferSeconds: defaultEndBufferSeconds,
			Encoders:         defaultEncoders(),
		},
		Captions: Captions{
			Preset:   defaultCaptionPreset,
			FontName: defaultCaptionFontName,
			FontSize: defaultCaptionFontSize,
		},
		Thumbnails: Thumbnails{
			FontPath: defaultThumbFontPath,
		},
		Workflow: Workflow{
			PollIntervalSeconds:         defaultPollIntervalSeconds,
			SplitterPollIntervalSeconds: defaultSplitterPollIntervalSeconds,
			LeaseTTLMinutes:             defaultLeaseTTLMinutes,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
