package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/naveenspark/parley/pkg/domain"
)

// CreateRoomRequest is the payload for creating a room.
type CreateRoomRequest struct {
	Name        string `json:"name"`
	CommunityID int    `json:"community_id,omitempty"`
	Type        string `json:"type"`
}

// Client is the chat backend's HTTP API client.
type Client struct {
	baseURL    string
	userID     int
	httpClient *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a new API client acting as userID.
func New(baseURL string, userID int, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		userID:  userID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListRooms returns the rooms userID participates in, in server order.
func (c *Client) ListRooms(ctx context.Context) ([]domain.Room, error) {
	params := url.Values{}
	params.Set("user_id", strconv.Itoa(c.userID))

	var rooms []domain.Room
	if err := c.get(ctx, "/users/rooms?"+params.Encode(), &rooms); err != nil {
		return nil, fmt.Errorf("client.ListRooms: %w", err)
	}
	return rooms, nil
}

// CreateRoom creates a room. An empty Type defaults to a group room.
func (c *Client) CreateRoom(ctx context.Context, req CreateRoomRequest) (*domain.Room, error) {
	if req.Type == "" {
		req.Type = domain.RoomGroup
	}
	var room domain.Room
	if err := c.post(ctx, "/rooms", req, &room); err != nil {
		return nil, fmt.Errorf("client.CreateRoom: %w", err)
	}
	return &room, nil
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	return c.doRequest(ctx, http.MethodPost, path, body, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.doRequest(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	if resp.StatusCode >= 400 {
		return readHTTPError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// readHTTPError builds an HTTPError from an error response. The server
// reports failures as {"message": "..."}; {"error": "..."} is accepted too.
func readHTTPError(resp *http.Response) error {
	httpErr := &HTTPError{StatusCode: resp.StatusCode}
	if resp.Request != nil {
		httpErr.Method = resp.Request.Method
		httpErr.Path = resp.Request.URL.Path
	}
	respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB max error body
	if readErr != nil {
		httpErr.Message = fmt.Sprintf("failed to read body: %v", readErr)
		return httpErr
	}
	var apiErr struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	httpErr.Message = strings.TrimSpace(string(respBody))
	if json.Unmarshal(respBody, &apiErr) == nil {
		switch {
		case apiErr.Message != "":
			httpErr.Message = apiErr.Message
		case apiErr.Error != "":
			httpErr.Message = apiErr.Error
		}
	}
	return httpErr
}
