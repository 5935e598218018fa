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

	"github.com/bookshelf/server/models"
)

// APIError is a non-2xx REST response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// RESTClient calls the /api endpoints with a bearer token.
type RESTClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewRESTClient uses a 15s timeout client when httpClient is nil.
// baseURL is the server root, e.g. "https://bookshelf.example".
func NewRESTClient(baseURL, token string, httpClient *http.Client) *RESTClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &RESTClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    httpClient,
	}
}

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func (c *RESTClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/api"+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var envelope apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		if resp.StatusCode >= 300 {
			return &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode >= 300 || !envelope.Success {
		return &APIError{Status: resp.StatusCode, Message: envelope.Error}
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}

func (c *RESTClient) UnreadCount(ctx context.Context) (*models.UnreadCountResult, error) {
	var out models.UnreadCountResult
	if err := c.do(ctx, http.MethodGet, "/notifications/unread-count", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RESTClient) ListNotifications(ctx context.Context, filter models.NotificationFilter, page, limit int) (*models.NotificationPage, error) {
	q := url.Values{}
	q.Set("filter", string(filter))
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))

	var out models.NotificationPage
	if err := c.do(ctx, http.MethodGet, "/notifications?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RESTClient) MarkOneRead(ctx context.Context, id string) (*models.NotificationStatus, error) {
	var out models.NotificationStatus
	if err := c.do(ctx, http.MethodPost, "/notifications/"+url.PathEscape(id)+"/mark-one-as-read", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RESTClient) MarkOneUnread(ctx context.Context, id string) (*models.NotificationStatus, error) {
	var out models.NotificationStatus
	if err := c.do(ctx, http.MethodPost, "/notifications/"+url.PathEscape(id)+"/mark-one-as-unread", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RESTClient) MarkAllRead(ctx context.Context) (*models.UnreadCountResult, error) {
	var out models.UnreadCountResult
	if err := c.do(ctx, http.MethodPost, "/notifications/mark-as-read", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RESTClient) DeleteNotification(ctx context.Context, id string) (*models.NotificationDeletion, error) {
	var out models.NotificationDeletion
	if err := c.do(ctx, http.MethodDelete, "/notifications/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RESTClient) DeleteAllNotifications(ctx context.Context) (*models.UnreadCountResult, error) {
	var out models.UnreadCountResult
	if err := c.do(ctx, http.MethodDelete, "/notifications", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RESTClient) ListComments(ctx context.Context, bookID string) ([]models.Comment, error) {
	var out []models.Comment
	err := c.do(ctx, http.MethodGet, "/books/"+url.PathEscape(bookID)+"/comments", nil, &out)
	return out, err
}

func (c *RESTClient) CreateComment(ctx context.Context, bookID, text string) (*models.Comment, error) {
	var out models.Comment
	if err := c.do(ctx, http.MethodPost, "/books/"+url.PathEscape(bookID)+"/comments", models.CommentRequest{Text: text}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RESTClient) DeleteComment(ctx context.Context, commentID string) error {
	return c.do(ctx, http.MethodDelete, "/comments/"+url.PathEscape(commentID), nil, nil)
}

func (c *RESTClient) Interaction(ctx context.Context, bookID string) (*models.BookInteraction, error) {
	var out models.BookInteraction
	if err := c.do(ctx, http.MethodGet, "/books/"+url.PathEscape(bookID)+"/interaction", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Like, Unlike, Dislike and RemoveDislike return the new snapshot.
func (c *RESTClient) Like(ctx context.Context, bookID string) (*models.BookInteraction, error) {
	return c.interact(ctx, http.MethodPost, bookID, "like")
}

func (c *RESTClient) Unlike(ctx context.Context, bookID string) (*models.BookInteraction, error) {
	return c.interact(ctx, http.MethodDelete, bookID, "like")
}

func (c *RESTClient) Dislike(ctx context.Context, bookID string) (*models.BookInteraction, error) {
	return c.interact(ctx, http.MethodPost, bookID, "dislike")
}

func (c *RESTClient) RemoveDislike(ctx context.Context, bookID string) (*models.BookInteraction, error) {
	return c.interact(ctx, http.MethodDelete, bookID, "dislike")
}

func (c *RESTClient) interact(ctx context.Context, method, bookID, kind string) (*models.BookInteraction, error) {
	var out models.BookInteraction
	if err := c.do(ctx, method, "/books/"+url.PathEscape(bookID)+"/"+kind, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
