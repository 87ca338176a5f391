package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	fhttp "github.com/bogdanfinn/fhttp"

	apierrors "github.com/diogo/chatbridge/internal/errors"
	"github.com/diogo/chatbridge/internal/models"
)

type speakRequest struct {
	Text string `json:"text"`
}

// Speak converts text to audio. The backend answers with raw audio bytes.
func (c *Client) Speak(ctx context.Context, text string) (*models.SpeechAudio, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apierrors.NewValidationError("text", "cannot be empty")
	}

	payload, err := json.Marshal(speakRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("failed to build payload: %w", err)
	}

	req, err := c.newRequest(ctx, fhttp.MethodPost, models.PathSpeak, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "audio/*")

	body, header, err := c.do(req, "speak", models.PathSpeak, "Failed to convert text to speech")
	if err != nil {
		return nil, err
	}

	if len(body) == 0 {
		return nil, apierrors.NewParseError("speech response is empty", "")
	}

	contentType := ""
	if header != nil {
		contentType = header.Get("Content-Type")
	}
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}

	return &models.SpeechAudio{Data: body, ContentType: contentType}, nil
}
