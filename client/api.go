package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"fasteyes/models"
	"fasteyes/services"
)

// APIClient is the HTTP implementation of Backend.
type APIClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewAPIClient(baseURL, token string) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// NewSession asks the server for a fresh anonymous session and returns a
// client authenticated with it, plus the stable session ID.
func NewSession(ctx context.Context, baseURL string) (*APIClient, string, error) {
	c := NewAPIClient(baseURL, "")

	var resp struct {
		SessionID string `json:"session_id"`
		Token     string `json:"token"`
	}
	if err := c.post(ctx, "/api/session", nil, &resp); err != nil {
		return nil, "", err
	}

	c.token = resp.Token
	return c, resp.SessionID, nil
}

type joinedRoom struct {
	Room        *models.Room        `json:"room"`
	Participant *models.Participant `json:"participant"`
}

// CreateRoom creates a room with the caller as host.
func (c *APIClient) CreateRoom(ctx context.Context, name string, maxNumbers int) (*models.Room, *models.Participant, error) {
	var resp joinedRoom
	err := c.post(ctx, "/api/rooms", map[string]any{
		"name":        name,
		"max_numbers": maxNumbers,
	}, &resp)
	if err != nil {
		return nil, nil, err
	}
	return resp.Room, resp.Participant, nil
}

// JoinRoom joins (or rejoins) a room by code.
func (c *APIClient) JoinRoom(ctx context.Context, code, name string) (*models.Room, *models.Participant, error) {
	var resp joinedRoom
	err := c.post(ctx, "/api/rooms/"+code+"/join", map[string]any{"name": name}, &resp)
	if err != nil {
		return nil, nil, err
	}
	return resp.Room, resp.Participant, nil
}

func (c *APIClient) Room(ctx context.Context, code string) (*models.Room, error) {
	var room models.Room
	if err := c.get(ctx, "/api/rooms/"+code, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (c *APIClient) Participants(ctx context.Context, code string) ([]models.Participant, error) {
	var participants []models.Participant
	if err := c.get(ctx, "/api/rooms/"+code+"/participants", &participants); err != nil {
		return nil, err
	}
	return participants, nil
}

func (c *APIClient) Claims(ctx context.Context, code string) ([]services.ClaimView, error) {
	var claims []services.ClaimView
	if err := c.get(ctx, "/api/rooms/"+code+"/claims", &claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func (c *APIClient) ChatHistory(ctx context.Context, code string) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	if err := c.get(ctx, "/api/rooms/"+code+"/chat", &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (c *APIClient) Claim(ctx context.Context, code, participantID string, number int) (services.ClaimResult, error) {
	var result services.ClaimResult
	err := c.post(ctx, "/api/rooms/"+code+"/claim", map[string]any{
		"participant_id": participantID,
		"number":         number,
	}, &result)
	return result, err
}

func (c *APIClient) Start(ctx context.Context, code string) error {
	return c.post(ctx, "/api/rooms/"+code+"/start", map[string]any{}, nil)
}

func (c *APIClient) Reset(ctx context.Context, code string) error {
	return c.post(ctx, "/api/rooms/"+code+"/reset", map[string]any{}, nil)
}

func (c *APIClient) SendChat(ctx context.Context, code, participantID, text string) error {
	return c.post(ctx, "/api/rooms/"+code+"/chat", map[string]any{
		"participant_id": participantID,
		"text":           text,
	}, nil)
}

func (c *APIClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *APIClient) post(ctx context.Context, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *APIClient) do(req *http.Request, out any) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s", req.Method, req.URL.Path, apiErr.Error)
		}
		return fmt.Errorf("%s %s: status %d", req.Method, req.URL.Path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
