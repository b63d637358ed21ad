package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vovakirdan/docflow-server/internal/proto"
)

// APIError is a non-2xx response from the REST API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// IsStatus reports whether err is an APIError with the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// API is a thin client for the REST surface under /api.
type API struct {
	base  *url.URL
	http  *http.Client
	token string
}

// NewAPI returns a client for the server at baseURL (for example http://localhost:8080).
// A nil httpClient uses a client with a 30 second timeout.
func NewAPI(baseURL string, httpClient *http.Client) (*API, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &API{base: u, http: httpClient}, nil
}

// Token returns the bearer token obtained by Login or Register.
func (a *API) Token() string { return a.token }

// SetToken installs a previously issued token.
func (a *API) SetToken(token string) { a.token = token }

// SocketURL returns the push channel endpoint matching the base url.
func (a *API) SocketURL() string {
	u := *a.base
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String()
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Token string     `json:"token"`
	User  proto.User `json:"user"`
}

// Register creates an account and keeps its token.
func (a *API) Register(ctx context.Context, email, name, password string) (*AuthResult, error) {
	body := map[string]string{"email": email, "name": name, "password": password}
	var res AuthResult
	if err := a.doJSON(ctx, http.MethodPost, "/api/auth/register", body, &res); err != nil {
		return nil, err
	}
	a.token = res.Token
	return &res, nil
}

// Login authenticates and keeps the token.
func (a *API) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	body := map[string]string{"email": email, "password": password}
	var res AuthResult
	if err := a.doJSON(ctx, http.MethodPost, "/api/auth/login", body, &res); err != nil {
		return nil, err
	}
	a.token = res.Token
	return &res, nil
}

// DocumentPage is one page of GET /api/documents.
type DocumentPage struct {
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
	Count int              `json:"count"`
	Data  []proto.Document `json:"data"`
}

// ListOptions filters ListDocuments. Zero values fall back to server defaults.
type ListOptions struct {
	Page       int
	Limit      int
	Search     string
	CategoryID string
}

func (a *API) ListDocuments(ctx context.Context, opts ListOptions) (*DocumentPage, error) {
	q := url.Values{}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Search != "" {
		q.Set("search", opts.Search)
	}
	if opts.CategoryID != "" {
		q.Set("category", opts.CategoryID)
	}
	path := "/api/documents"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var page DocumentPage
	if err := a.doJSON(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// SignedDocument is a document with a short-lived download url.
type SignedDocument struct {
	proto.Document
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (a *API) GetDocument(ctx context.Context, id string) (*SignedDocument, error) {
	var doc SignedDocument
	if err := a.doJSON(ctx, http.MethodGet, "/api/documents/"+url.PathEscape(id), nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// UploadRequest describes a multipart upload. OwnerID is honored for admins only.
type UploadRequest struct {
	Filename    string
	Body        io.Reader
	Description string
	CategoryID  string
	OwnerID     string
}

func (a *API) Upload(ctx context.Context, req UploadRequest) (*proto.Document, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", req.Filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(fw, req.Body); err != nil {
		return nil, fmt.Errorf("copy file: %w", err)
	}
	for k, v := range map[string]string{
		"description": req.Description,
		"category_id": req.CategoryID,
		"user_id":     req.OwnerID,
	} {
		if v == "" {
			continue
		}
		if err := mw.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("write field %s: %w", k, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	var doc proto.Document
	if err := a.do(ctx, http.MethodPost, "/api/documents/upload", mw.FormDataContentType(), &buf, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// DocumentPatch holds the fields to change; nil fields are left alone.
type DocumentPatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	CategoryID  *string `json:"category_id,omitempty"`
}

func (a *API) UpdateDocument(ctx context.Context, id string, patch DocumentPatch) (*proto.Document, error) {
	var doc proto.Document
	if err := a.doJSON(ctx, http.MethodPut, "/api/documents/"+url.PathEscape(id), patch, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (a *API) DeleteDocument(ctx context.Context, id string) error {
	return a.doJSON(ctx, http.MethodDelete, "/api/documents/"+url.PathEscape(id), nil, nil)
}

func (a *API) Categories(ctx context.Context) ([]proto.Category, error) {
	var cats []proto.Category
	if err := a.doJSON(ctx, http.MethodGet, "/api/categories", nil, &cats); err != nil {
		return nil, err
	}
	return cats, nil
}

// CreateCategory requires an admin token.
func (a *API) CreateCategory(ctx context.Context, name, color string) (*proto.Category, error) {
	var cat proto.Category
	body := map[string]string{"name": name, "color": color}
	if err := a.doJSON(ctx, http.MethodPost, "/api/categories", body, &cat); err != nil {
		return nil, err
	}
	return &cat, nil
}

func (a *API) Notifications(ctx context.Context) ([]proto.Notification, error) {
	var notes []proto.Notification
	if err := a.doJSON(ctx, http.MethodGet, "/api/notifications", nil, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

func (a *API) MarkRead(ctx context.Context, id string) error {
	return a.doJSON(ctx, http.MethodPut, "/api/notifications/"+url.PathEscape(id)+"/read", nil, nil)
}

// ActiveUsers requires an admin token.
func (a *API) ActiveUsers(ctx context.Context) ([]string, error) {
	var res struct {
		ActiveUsers []string `json:"activeUsers"`
	}
	if err := a.doJSON(ctx, http.MethodGet, "/api/active-users", nil, &res); err != nil {
		return nil, err
	}
	return res.ActiveUsers, nil
}

func (a *API) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
		contentType = "application/json"
	}
	return a.do(ctx, method, path, contentType, body, out)
}

func (a *API) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, a.base.String()+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(raw, &e) != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(raw))
		}
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
