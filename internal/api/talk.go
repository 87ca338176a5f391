package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	fhttp "github.com/bogdanfinn/fhttp"
	"github.com/tidwall/gjson"

	apierrors "github.com/diogo/chatbridge/internal/errors"
	"github.com/diogo/chatbridge/internal/models"
)

const (
	MaxAudioSize = 25 * 1024 * 1024 // 25MB
)

// SupportedAudioTypes returns the list of MIME types accepted for transcription
func SupportedAudioTypes() []string {
	return []string{
		"audio/webm",
		"audio/wav",
		"audio/x-wav",
		"audio/mpeg",
		"audio/mp4",
		"audio/ogg",
		"audio/flac",
		"video/webm",
	}
}

var audioTypesByExt = map[string]string{
	".webm": "audio/webm",
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".mp4":  "audio/mp4",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".flac": "audio/flac",
}

// audioMIMEType detects the MIME type from the file extension
func audioMIMEType(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	if t, ok := audioTypesByExt[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}

func isSupportedAudio(mimeType string) bool {
	for _, supported := range SupportedAudioTypes() {
		if strings.HasPrefix(mimeType, supported) {
			return true
		}
	}
	return false
}

// TranscribeFile uploads an audio file from disk and returns the transcribed prompt
func (c *Client) TranscribeFile(ctx context.Context, token, filePath string) (*models.Transcription, error) {
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	if fileInfo.Size() > MaxAudioSize {
		return nil, fmt.Errorf("file size exceeds maximum %d bytes", MaxAudioSize)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	return c.Transcribe(ctx, token, filepath.Base(filePath), file)
}

// Transcribe uploads audio from a reader as the multipart field "audio"
func (c *Client) Transcribe(ctx context.Context, token, fileName string, reader io.Reader) (*models.Transcription, error) {
	mimeType := audioMIMEType(fileName)
	if !isSupportedAudio(mimeType) {
		return nil, fmt.Errorf("unsupported audio type: %s", mimeType)
	}

	data, err := io.ReadAll(io.LimitReader(reader, MaxAudioSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}
	if len(data) > MaxAudioSize {
		return nil, fmt.Errorf("data size exceeds maximum %d bytes", MaxAudioSize)
	}
	if len(data) == 0 {
		return nil, apierrors.NewValidationError("audio", "recording is empty")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="audio"; filename="%s"`, escapeQuotes(fileName)))
	header.Set("Content-Type", mimeType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write file data: %w", err)
	}
	_ = writer.Close()

	req, err := c.newRequest(ctx, fhttp.MethodPost, models.PathTalk, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	bearer(req, token)

	respBody, _, err := c.do(req, "transcribe", models.PathTalk, "Transcription failed")
	if err != nil {
		return nil, err
	}

	return parseTranscription(respBody)
}

func parseTranscription(body []byte) (*models.Transcription, error) {
	if !gjson.ValidBytes(body) {
		return nil, apierrors.NewParseError("transcription response is not valid JSON", "")
	}

	prompt := gjson.GetBytes(body, PathPrompt)
	if prompt.Type != gjson.String {
		return nil, apierrors.NewParseError("transcription response has no prompt", PathPrompt)
	}

	return &models.Transcription{Prompt: prompt.Str}, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
