// Package userdir предоставляет клиент каталога пользователей платформы.
// Через него сервис переводов превращает введённое имя получателя
// во внутренний идентификатор.
package userdir

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// ErrUserNotFound возвращается, если каталог не знает такого пользователя.
var ErrUserNotFound = errors.New("user not found in directory")

// Client инкапсулирует HTTP-взаимодействие с каталогом пользователей.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type directoryUser struct {
	ID       int64  `json:"id"`
	Username string `json:"uname"`
}

// NewClient создаёт клиент каталога по указанному адресу.
// Временные сбои каталога ретраятся с экспоненциальной паузой.
func NewClient(baseURL string) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.HTTPClient.Timeout = 5 * time.Second
	rc.Logger = nil

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: rc.StandardClient(),
	}
}

// ResolveUserID возвращает идентификатор пользователя по имени.
func (c *Client) ResolveUserID(ctx context.Context, identifier string) (int64, error) {
	if c == nil || c.baseURL == "" {
		return 0, fmt.Errorf("user directory client not configured")
	}

	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	reqURL := fmt.Sprintf("%s/api/users/%s", base, url.PathEscape(identifier))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNoContent {
		return 0, ErrUserNotFound
	}

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var u directoryUser
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}

	if u.ID <= 0 {
		return 0, ErrUserNotFound
	}

	return u.ID, nil
}
