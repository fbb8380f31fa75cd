package drive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"uxrmate/internal/config"
	"uxrmate/internal/logging"
	"uxrmate/internal/retry"
	"uxrmate/internal/services"
)

const (
	listFields     googleapi.Field = "nextPageToken, files(id, name, mimeType, size, modifiedTime, webViewLink)"
	metadataFields googleapi.Field = "id, name, mimeType, size, modifiedTime, webViewLink, videoMediaMetadata"
	maxPageSize                    = 1000
)

var videoMIMETypes = []string{
	"video/mp4",
	"video/quicktime",
	"video/x-msvideo",
	"video/webm",
	"video/x-matroska",
	"video/x-flv",
}

// File is the Drive metadata the importer uses.
type File struct {
	ID              string
	Name            string
	MIMEType        string
	SizeBytes       int64
	ModifiedTime    string
	WebViewLink     string
	DurationSeconds float64
	Width           int64
	Height          int64
}

// SizeMB returns the size in megabytes.
func (f File) SizeMB() float64 {
	return float64(f.SizeBytes) / (1024 * 1024)
}

// Resolution renders "WxH" when known.
func (f File) Resolution() string {
	if f.Width <= 0 || f.Height <= 0 {
		return ""
	}
	return fmt.Sprintf("%dx%d", f.Width, f.Height)
}

// Config captures the runtime settings of the importer.
type Config struct {
	AccessToken        string
	Endpoint           string
	CacheDir           string
	MaxSizeMB          float64
	MaxDurationSeconds float64
	Retry              retry.Policy
}

// ConfigFrom builds a Config from the application configuration.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		AccessToken:        cfg.Drive.AccessToken,
		Endpoint:           cfg.Drive.Endpoint,
		CacheDir:           cfg.Paths.DriveCacheDir,
		MaxSizeMB:          float64(cfg.Video.MaxSizeMB),
		MaxDurationSeconds: float64(cfg.Video.MaxDurationSeconds),
		Retry:              cfg.TransferRetryPolicy(),
	}
}

// Client talks to the Drive v3 API.
type Client struct {
	cfg     Config
	svc     *drive.Service
	retrier *retry.Retrier
	logger  *slog.Logger
}

// Option customizes the client.
type Option func(*clientOptions)

type clientOptions struct {
	httpClient   *http.Client
	logger       *slog.Logger
	retryOptions []retry.Option
}

// WithHTTPClient overrides the HTTP client; authentication is then the
// caller's concern.
func WithHTTPClient(client *http.Client) Option {
	return func(o *clientOptions) {
		o.httpClient = client
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// WithRetryOptions customizes the transfer retrier.
func WithRetryOptions(opts ...retry.Option) Option {
	return func(o *clientOptions) {
		o.retryOptions = append(o.retryOptions, opts...)
	}
}

// NewClient constructs a Drive client.
func NewClient(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}

	cfg.AccessToken = strings.TrimSpace(cfg.AccessToken)
	if strings.TrimSpace(cfg.CacheDir) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "drive", "new client", "cache directory is required", nil)
	}
	if cfg.Retry == (retry.Policy{}) {
		cfg.Retry = retry.Transfer()
	}

	clientOpts := []option.ClientOption{}
	if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(endpoint))
	}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, option.WithHTTPClient(o.httpClient))
	} else {
		if cfg.AccessToken == "" {
			return nil, services.Wrap(services.ErrConfiguration, "drive", "new client", "access token is required", nil)
		}
		clientOpts = append(clientOpts, option.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: cfg.AccessToken,
			TokenType:   "Bearer",
		})))
	}

	svc, err := drive.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "drive", "new client", "failed to create Drive service", err)
	}

	logger := logging.NewComponentLogger(o.logger, "drive")
	retryOpts := append([]retry.Option{
		retry.WithRetryHook(func(evt retry.Event) {
			logger.Warn("drive request failed; retrying",
				logging.Int("attempt", evt.Attempt),
				logging.String("class", evt.Class.String()),
				logging.Duration("delay", evt.Delay),
				logging.Error(evt.Err),
			)
		}),
	}, o.retryOptions...)

	return &Client{
		cfg:     cfg,
		svc:     svc,
		retrier: retry.New(cfg.Retry, retryOpts...),
		logger:  logger,
	}, nil
}

// ListVideos returns up to limit video files, newest first.
func (c *Client) ListVideos(ctx context.Context, limit int) ([]File, error) {
	if limit <= 0 {
		limit = 50
	}
	query := make([]string, len(videoMIMETypes))
	for i, mime := range videoMIMETypes {
		query[i] = fmt.Sprintf("mimeType='%s'", mime)
	}
	q := "(" + strings.Join(query, " or ") + ") and trashed=false"

	var (
		files     []File
		pageToken string
	)
	for len(files) < limit {
		page := min(limit-len(files), maxPageSize)
		list, err := retry.DoValue(ctx, c.retrier, func(ctx context.Context) (*drive.FileList, error) {
			call := c.svc.Files.List().
				Q(q).
				PageSize(int64(page)).
				OrderBy("modifiedTime desc").
				Fields(listFields).
				Context(ctx)
			if pageToken != "" {
				call = call.PageToken(pageToken)
			}
			list, err := call.Do()
			return list, translateError("list files", err)
		})
		if err != nil {
			return nil, err
		}
		for _, f := range list.Files {
			files = append(files, fromDrive(f))
		}
		if list.NextPageToken == "" {
			break
		}
		pageToken = list.NextPageToken
	}
	if len(files) > limit {
		files = files[:limit]
	}
	return files, nil
}

// Metadata fetches one file including its video metadata.
func (c *Client) Metadata(ctx context.Context, fileID string) (File, error) {
	f, err := retry.DoValue(ctx, c.retrier, func(ctx context.Context) (*drive.File, error) {
		f, err := c.svc.Files.Get(fileID).Fields(metadataFields).Context(ctx).Do()
		return f, translateError("get file", err)
	})
	if err != nil {
		return File{}, err
	}
	return fromDrive(f), nil
}

func fromDrive(f *drive.File) File {
	out := File{
		ID:           f.Id,
		Name:         f.Name,
		MIMEType:     f.MimeType,
		SizeBytes:    f.Size,
		ModifiedTime: f.ModifiedTime,
		WebViewLink:  f.WebViewLink,
	}
	if m := f.VideoMediaMetadata; m != nil {
		out.DurationSeconds = float64(m.DurationMillis) / 1000
		out.Width = m.Width
		out.Height = m.Height
	}
	return out
}

// translateError maps googleapi failures to *services.StatusError so the
// retrier can classify them.
func translateError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return services.Wrap(services.ErrTransient, "drive", op, "request failed", err)
	}
	status := &services.StatusError{
		Code:       apiErr.Code,
		Status:     http.StatusText(apiErr.Code),
		Body:       apiErr.Message,
		RetryAfter: parseRetryAfter(apiErr.Header.Get("Retry-After")),
	}
	switch apiErr.Code {
	case http.StatusUnauthorized:
		return services.Wrap(services.ErrConfiguration, "drive", op, "access token rejected", status)
	case http.StatusNotFound:
		return services.Wrap(services.ErrNotFound, "drive", op, "file not found", status)
	}
	return services.Wrap(services.ErrExternalTool, "drive", op, "API returned an error", status)
}

func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := time.ParseDuration(value + "s"); err == nil && secs > 0 {
		return secs
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
