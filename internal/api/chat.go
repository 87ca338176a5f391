package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	fhttp "github.com/bogdanfinn/fhttp"
	"github.com/tidwall/gjson"

	apierrors "github.com/diogo/chatbridge/internal/errors"
	"github.com/diogo/chatbridge/internal/models"
)

// Chat sends one chat request on behalf of the signed-in user.
// It satisfies chat.ChatTransport.
func (c *Client) Chat(ctx context.Context, token string, chatReq models.ChatRequest) (*models.ChatResponse, error) {
	if chatReq.History == nil {
		chatReq.History = []models.TranscriptEntry{}
	}

	payload, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("failed to build payload: %w", err)
	}

	req, err := c.newRequest(ctx, fhttp.MethodPost, models.PathChat, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	bearer(req, token)

	body, _, err := c.do(req, "chat", models.PathChat, "Chat failed")
	if err != nil {
		return nil, err
	}

	return parseChatResponse(body)
}

// parseChatResponse reads {text, videos?, sessionRef?}.
// Missing or null videos and sessionRef are treated as absent.
func parseChatResponse(body []byte) (*models.ChatResponse, error) {
	if !gjson.ValidBytes(body) {
		return nil, apierrors.NewParseError("chat response is not valid JSON", "")
	}

	parsed := gjson.ParseBytes(body)
	if !parsed.IsObject() {
		return nil, apierrors.NewParseError("chat response is not an object", "")
	}

	text := parsed.Get(PathText)
	if !text.Exists() || text.Type != gjson.String {
		return nil, apierrors.NewParseError("chat response has no text", PathText)
	}

	out := &models.ChatResponse{
		Text:   text.Str,
		Videos: parseVideos(parsed.Get(PathVideos)),
	}

	if ref := parsed.Get(PathSessionRef); ref.Type == gjson.String {
		out.SessionRef = ref.Str
	}

	return out, nil
}

func parseVideos(v gjson.Result) []models.Suggestion {
	videos := []models.Suggestion{}
	if !v.IsArray() {
		return videos
	}

	v.ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			return true
		}
		videos = append(videos, models.Suggestion{
			URL:       item.Get(PathVideoURL).String(),
			Title:     item.Get(PathVideoTitle).String(),
			Thumbnail: item.Get(PathVideoThumbnail).String(),
		})
		return true
	})

	return videos
}
