package config

const (
	defaultDataDir                = "~/.local/share/uxrmate"
	defaultVideoDir               = "~/.local/share/uxrmate/videos"
	defaultExportDir              = "~/.local/share/uxrmate/exports"
	defaultDriveCacheDir          = "~/.local/share/uxrmate/drive_videos"
	defaultLogDir                 = "~/.local/share/uxrmate/logs"
	defaultGeminiModel            = "gemini-2.5-flash-lite"
	defaultGeminiTimeoutSeconds   = 600
	defaultGeminiPollSeconds      = 2
	defaultRetryMaxAttempts       = 3
	defaultTransferMaxAttempts    = 5
	defaultRetryBaseDelaySeconds  = 2
	defaultRateLimitCapSeconds    = 64
	defaultServerErrorCapSeconds  = 32
	defaultRetryMaxTotalWait      = 180
	defaultRetryJitterSeconds     = 1
	defaultVideoMaxSizeMB         = 900
	defaultVideoMaxDurationSecond = 5400
	defaultProbeBinary            = "ffprobe"
	defaultDriveEndpoint          = "https://www.googleapis.com/drive/v3/"
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

var defaultVideoFormats = []string{".mp4", ".mov", ".avi", ".webm", ".mkv", ".flv"}

// DefaultSystemPrompt is the system instruction sent with every analysis when
// the configuration does not override it.
const DefaultSystemPrompt = `You are an expert UX Researcher. Your job is to evaluate user sessions against Critical User Journeys (CUJs).
You will be provided with a CUJ definition and a video of the user's behavior in a session.
Carefully analyze the video to determine if the user successfully completed the task.
Rate the "Friction" on a scale of 1 (Smooth) to 5 (Blocker).
Rate your "Confidence" in this verdict on a scale of 1 (Guessing) to 5 (Certain).
Provide a brief observation justifying your rating and list the key moments you relied on.

Output JSON format:
{
  "status": "Pass" | "Fail" | "Partial",
  "friction_score": number (1-5),
  "confidence_score": number (1-5),
  "observation": "string",
  "recommendation": "string",
  "key_moments": [{"timestamp": "mm:ss", "description": "string"}]
}`

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:       defaultDataDir,
			VideoDir:      defaultVideoDir,
			ExportDir:     defaultExportDir,
			DriveCacheDir: defaultDriveCacheDir,
			LogDir:        defaultLogDir,
		},
		Gemini: Gemini{
			Model:               defaultGeminiModel,
			TimeoutSeconds:      defaultGeminiTimeoutSeconds,
			PollIntervalSeconds: defaultGeminiPollSeconds,
			DeleteUploads:       true,
		},
		Retry: Retry{
			MaxAttempts:           defaultRetryMaxAttempts,
			TransferMaxAttempts:   defaultTransferMaxAttempts,
			BaseDelaySeconds:      defaultRetryBaseDelaySeconds,
			RateLimitCapSeconds:   defaultRateLimitCapSeconds,
			ServerErrorCapSeconds: defaultServerErrorCapSeconds,
			MaxTotalWaitSeconds:   defaultRetryMaxTotalWait,
			JitterSeconds:         defaultRetryJitterSeconds,
		},
		Video: Video{
			MaxSizeMB:          defaultVideoMaxSizeMB,
			MaxDurationSeconds: defaultVideoMaxDurationSecond,
			Formats:            append([]string(nil), defaultVideoFormats...),
			ProbeBinary:        defaultProbeBinary,
		},
		Drive: Drive{
			Endpoint: defaultDriveEndpoint,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
