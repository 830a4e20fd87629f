package config

const (
	defaultWorkDir           = "~/.local/share/dubber/work"
	defaultOutputDir         = "~/.local/share/dubber/output"
	defaultMusicDir          = "~/.local/share/dubber/music"
	defaultLogDir            = "~/.local/share/dubber/logs"
	defaultFFmpegBinary      = "ffmpeg"
	defaultFFprobeBinary     = "ffprobe"
	defaultTranscribeModel   = "large-v3"
	defaultVADMethod         = "silero"
	defaultDiarizeModel      = "pyannote/speaker-diarization-3.1"
	defaultSeparateModel     = "htdemucs"
	defaultEmotionCommand    = "emotion-classify"
	defaultTranslateService  = "openrouter"
	defaultTranslateBaseURL  = "https://openrouter.ai/api/v1/chat/completions"
	defaultTranslateModel    = "mistralai/mistral-small"
	defaultTranslateTimeout  = 60
	defaultTTSCommand        = "chatterbox-tts"
	defaultConvertCommand    = "rvc-infer"
	defaultLipSyncCommand    = "wav2lip"
	defaultLipSyncCheckpoint = "~/.local/share/dubber/models/wav2lip_gan.pth"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:   defaultWorkDir,
			OutputDir: defaultOutputDir,
			MusicDir:  defaultMusicDir,
			LogDir:    defaultLogDir,
		},
		Tools: Tools{
			FFmpeg:  defaultFFmpegBinary,
			FFprobe: defaultFFprobeBinary,
		},
		Transcribe: Transcribe{
			Model:     defaultTranscribeModel,
			VADMethod: defaultVADMethod,
		},
		Diarize: Diarize{
			Enabled: true,
			Model:   defaultDiarizeModel,
		},
		Separate: Separate{
			Enabled: true,
			Model:   defaultSeparateModel,
		},
		Emotion: Emotion{
			Enabled: true,
			Command: defaultEmotionCommand,
		},
		Translate: Translate{
			Service:        defaultTranslateService,
			BaseURL:        defaultTranslateBaseURL,
			Model:          defaultTranslateModel,
			TimeoutSeconds: defaultTranslateTimeout,
		},
		TTS: TTS{
			Command: defaultTTSCommand,
		},
		Convert: Convert{
			Command: defaultConvertCommand,
		},
		LipSync: LipSync{
			Enabled:    true,
			Command:    defaultLipSyncCommand,
			Checkpoint: defaultLipSyncCheckpoint,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
