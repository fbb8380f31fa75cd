package gemini

import (
	"context"
	"path/filepath"

	"google.golang.org/genai"
)

type sdkAPI struct {
	client *genai.Client
}

func (s sdkAPI) Upload(ctx context.Context, path, mimeType string) (*genai.File, error) {
	return s.client.Files.UploadFromPath(ctx, path, &genai.UploadFileConfig{
		MIMEType:    mimeType,
		DisplayName: filepath.Base(path),
	})
}

func (s sdkAPI) GetFile(ctx context.Context, name string) (*genai.File, error) {
	return s.client.Files.Get(ctx, name, nil)
}

func (s sdkAPI) DeleteFile(ctx context.Context, name string) error {
	_, err := s.client.Files.Delete(ctx, name, nil)
	return err
}

func (s sdkAPI) Generate(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error) {
	resp, err := s.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}
