package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"google.golang.org/genai"

	"uxrmate/internal/analysis"
	"uxrmate/internal/config"
	"uxrmate/internal/cost"
	"uxrmate/internal/logging"
	"uxrmate/internal/services"
)

const (
	defaultTimeout      = 10 * time.Minute
	defaultPollInterval = 2 * time.Second
	cleanupTimeout      = 30 * time.Second

	// Progress weights of the three phases of a call.
	uploadWeight  = 0.3
	processWeight = 0.4
)

// Progress stage names reported through analysis.Request.Progress.
const (
	StageUploading  = "uploading"
	StageProcessing = "processing"
	StageAnalyzing  = "analyzing"
)

var videoMIMETypes = map[string]string{
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".flv":  "video/x-flv",
}

// Config captures the runtime settings of the analyzer.
type Config struct {
	APIKey        string
	Model         string
	Timeout       time.Duration
	PollInterval  time.Duration
	DeleteUploads bool
}

// ConfigFrom builds a Config from the application configuration.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		APIKey:        cfg.Gemini.APIKey,
		Model:         cfg.Gemini.Model,
		Timeout:       cfg.RequestTimeout(),
		PollInterval:  time.Duration(cfg.Gemini.PollIntervalSeconds) * time.Second,
		DeleteUploads: cfg.Gemini.DeleteUploads,
	}
}

// api is the subset of the Gemini SDK the analyzer needs.
type api interface {
	Upload(ctx context.Context, path, mimeType string) (*genai.File, error)
	GetFile(ctx context.Context, name string) (*genai.File, error)
	DeleteFile(ctx context.Context, name string) error
	Generate(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error)
}

// Client analyzes session videos with Gemini.
type Client struct {
	cfg    Config
	api    api
	logger *slog.Logger
	sleep  func(context.Context, time.Duration) error
}

// Option customizes the client.
type Option func(*Client)

// WithLogger sets the logger used for upload bookkeeping.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, "gemini")
	}
}

// withAPI replaces the SDK binding (tests).
func withAPI(a api) Option {
	return func(c *Client) {
		c.api = a
	}
}

// withSleeper overrides how poll waits are performed (tests).
func withSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(c *Client) {
		c.sleep = sleep
	}
}

// NewClient constructs a Gemini analyzer. The SDK client is created lazily
// only when no API binding was injected.
func NewClient(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.Model == "" {
		cfg.Model = cost.DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}

	c := &Client{
		cfg:    cfg,
		logger: logging.NewComponentLogger(nil, "gemini"),
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.api == nil {
		if cfg.APIKey == "" {
			return nil, services.Wrap(services.ErrConfiguration, "gemini", "new client", "API key is required", nil)
		}
		sdk, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "gemini", "new client", "failed to create Gemini client", err)
		}
		c.api = sdkAPI{client: sdk}
	}
	return c, nil
}

// Model returns the default model used when a request names none.
func (c *Client) Model() string {
	return c.cfg.Model
}

// Analyze implements analysis.Analyzer.
func (c *Client) Analyze(ctx context.Context, req analysis.Request) (analysis.Verdict, error) {
	mimeType, err := videoMIMEType(req.AssetPath)
	if err != nil {
		return analysis.Verdict{}, err
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = c.cfg.Model
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req.Report(StageUploading, 0)
	file, err := c.api.Upload(ctx, req.AssetPath, mimeType)
	if err != nil {
		return analysis.Verdict{}, translateError("upload video", err)
	}
	if c.cfg.DeleteUploads {
		defer c.deleteUpload(ctx, file.Name)
	}
	req.Report(StageUploading, uploadWeight)

	file, err = c.waitActive(ctx, file, req)
	if err != nil {
		return analysis.Verdict{}, err
	}

	req.Report(StageAnalyzing, uploadWeight+processWeight)
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromURI(file.URI, file.MIMEType),
			genai.NewPartFromText(analysis.BuildPrompt(req.Task, req.Expectation)),
		}, genai.RoleUser),
	}
	genCfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}
	if instruction := strings.TrimSpace(req.SystemInstruction); instruction != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(instruction, genai.RoleUser)
	}
	text, err := c.api.Generate(ctx, model, contents, genCfg)
	if err != nil {
		return analysis.Verdict{}, translateError("generate content", err)
	}

	verdict, err := analysis.ParseVerdict(text)
	if err != nil {
		return analysis.Verdict{}, services.Wrap(services.ErrAnalysis, "gemini", "parse verdict",
			fmt.Sprintf("unexpected reply %q", analysis.Snippet(text)), err)
	}
	req.Report(StageAnalyzing, 1)
	return verdict, nil
}

// Complete implements analysis.Completer for prompts without a video.
func (c *Client) Complete(ctx context.Context, req analysis.Completion) (string, error) {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = c.cfg.Model
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	genCfg := &genai.GenerateContentConfig{ResponseMIMEType: "text/plain"}
	if req.JSON {
		genCfg.ResponseMIMEType = "application/json"
	}
	if instruction := strings.TrimSpace(req.SystemInstruction); instruction != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(instruction, genai.RoleUser)
	}
	contents := []*genai.Content{genai.NewContentFromText(req.Prompt, genai.RoleUser)}
	text, err := c.api.Generate(ctx, model, contents, genCfg)
	if err != nil {
		return "", translateError("generate text", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", services.Wrap(services.ErrAnalysis, "gemini", "generate text", "empty reply", nil)
	}
	return text, nil
}

func (c *Client) waitActive(ctx context.Context, file *genai.File, req analysis.Request) (*genai.File, error) {
	start := time.Now()
	for {
		switch file.State {
		case genai.FileStateActive:
			return file, nil
		case genai.FileStateFailed:
			msg := "video processing failed"
			if file.Error != nil && file.Error.Message != "" {
				msg += ": " + file.Error.Message
			}
			return nil, services.Wrap(services.ErrAnalysis, "gemini", "process video", msg, nil)
		}

		// Processing time is unknown; approach the phase end asymptotically.
		elapsed := time.Since(start).Seconds()
		req.Report(StageProcessing, uploadWeight+processWeight*(elapsed/(elapsed+30)))

		if err := c.sleep(ctx, c.cfg.PollInterval); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, services.Wrap(services.ErrTimeout, "gemini", "process video", "timed out waiting for video processing", err)
			}
			return nil, err
		}
		next, err := c.api.GetFile(ctx, file.Name)
		if err != nil {
			return nil, translateError("get file", err)
		}
		file = next
	}
}

func (c *Client) deleteUpload(ctx context.Context, name string) {
	if name == "" {
		return
	}
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	if err := c.api.DeleteFile(cleanupCtx, name); err != nil {
		logging.WithContext(ctx, c.logger).Warn("failed to delete uploaded video",
			logging.String("file", name),
			logging.Error(err),
		)
	}
}

func videoMIMEType(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if mimeType, ok := videoMIMETypes[ext]; ok {
		return mimeType, nil
	}
	return "", services.Wrap(services.ErrValidation, "gemini", "detect format",
		fmt.Sprintf("unsupported video format %q", ext), nil)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
