package amocrm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"carcost-bot/internal/application"
	"carcost-bot/internal/domain"
)

// Client creates leads in amoCRM: a contact with the phone, a lead linked
// to that contact, and a note with the listing link. Access tokens rotate
// via the OAuth refresh flow; on a 401 the token is refreshed once and the
// request replayed.
type Client struct {
	BaseURL       string
	ClientID      string
	ClientSecret  string
	RedirectURI   string
	ResponsibleID int64
	HTTPClient    *http.Client

	mu           sync.Mutex
	accessToken  string
	refreshToken string
}

var _ application.LeadSender = (*Client)(nil)

func NewClient(subdomain, clientID, clientSecret string, opts ...func(*Client)) *Client {
	c := &Client{
		BaseURL:      fmt.Sprintf("https://%s.amocrm.ru", subdomain),
		ClientID:     clientID,
		ClientSecret: clientSecret,
		HTTPClient:   &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func WithTokens(access, refresh string) func(*Client) {
	return func(c *Client) {
		c.accessToken = access
		c.refreshToken = refresh
	}
}

func WithRedirectURI(uri string) func(*Client) {
	return func(c *Client) { c.RedirectURI = uri }
}

func WithResponsible(userID int64) func(*Client) {
	return func(c *Client) { c.ResponsibleID = userID }
}

func WithBaseURL(baseURL string) func(*Client) {
	return func(c *Client) {
		if strings.TrimSpace(baseURL) != "" {
			c.BaseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

type embeddedID struct {
	ID int64 `json:"id"`
}

type contactsResp struct {
	Embedded struct {
		Contacts []embeddedID `json:"contacts"`
	} `json:"_embedded"`
}

type leadsResp struct {
	Embedded struct {
		Leads []embeddedID `json:"leads"`
	} `json:"_embedded"`
}

type tokenResp struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// SendLead performs the three-step creation. Any failure leaves the lead
// undelivered so the caller can buffer it for retry.
func (c *Client) SendLead(ctx context.Context, lead domain.LeadDraft) error {
	contactID, err := c.createContact(ctx, lead)
	if err != nil {
		return fmt.Errorf("%w: create contact: %v", domain.ErrCrmUnavailable, err)
	}
	leadID, err := c.createLead(ctx, lead, contactID)
	if err != nil {
		return fmt.Errorf("%w: create lead: %v", domain.ErrCrmUnavailable, err)
	}
	if lead.ListingURL != "" {
		if err := c.addNote(ctx, leadID, "Ссылка на автомобиль: "+lead.ListingURL); err != nil {
			return fmt.Errorf("%w: add note: %v", domain.ErrCrmUnavailable, err)
		}
	}
	return nil
}

func (c *Client) createContact(ctx context.Context, lead domain.LeadDraft) (int64, error) {
	payload := []map[string]any{{
		"name": lead.Name,
		"custom_fields_values": []map[string]any{{
			"field_code": "PHONE",
			"values":     []map[string]any{{"value": lead.Phone, "enum_code": "WORK"}},
		}},
	}}
	var out contactsResp
	if err := c.postAuthed(ctx, "/api/v4/contacts", payload, &out); err != nil {
		return 0, err
	}
	if len(out.Embedded.Contacts) == 0 {
		return 0, fmt.Errorf("empty contacts response")
	}
	return out.Embedded.Contacts[0].ID, nil
}

func (c *Client) createLead(ctx context.Context, lead domain.LeadDraft, contactID int64) (int64, error) {
	entry := map[string]any{
		"name":  "Заявка из Telegram: " + lead.Name,
		"price": lead.BudgetRub,
		"_embedded": map[string]any{
			"contacts": []map[string]any{{"id": contactID}},
		},
	}
	if c.ResponsibleID != 0 {
		entry["responsible_user_id"] = c.ResponsibleID
	}
	var out leadsResp
	if err := c.postAuthed(ctx, "/api/v4/leads", []map[string]any{entry}, &out); err != nil {
		return 0, err
	}
	if len(out.Embedded.Leads) == 0 {
		return 0, fmt.Errorf("empty leads response")
	}
	return out.Embedded.Leads[0].ID, nil
}

func (c *Client) addNote(ctx context.Context, leadID int64, text string) error {
	payload := []map[string]any{{
		"note_type": "common",
		"params":    map[string]any{"text": text},
	}}
	return c.postAuthed(ctx, fmt.Sprintf("/api/v4/leads/%d/notes", leadID), payload, &json.RawMessage{})
}

// postAuthed sends an authenticated JSON POST, refreshing the access token
// exactly once if the first attempt comes back 401.
func (c *Client) postAuthed(ctx context.Context, path string, payload, out any) error {
	status, err := c.postJSON(ctx, path, payload, out, c.currentAccess())
	if err == nil {
		return nil
	}
	if status != http.StatusUnauthorized {
		return err
	}
	if err := c.refresh(ctx); err != nil {
		return fmt.Errorf("refresh token: %w", err)
	}
	_, err = c.postJSON(ctx, path, payload, out, c.currentAccess())
	return err
}

func (c *Client) currentAccess() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken
}

func (c *Client) refresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	payload := map[string]string{
		"client_id":     c.ClientID,
		"client_secret": c.ClientSecret,
		"grant_type":    "refresh_token",
		"refresh_token": c.refreshToken,
		"redirect_uri":  c.RedirectURI,
	}
	var out tokenResp
	if _, err := c.postJSON(ctx, "/oauth2/access_token", payload, &out, ""); err != nil {
		return err
	}
	if out.AccessToken == "" {
		return fmt.Errorf("empty access token in response")
	}
	c.accessToken = out.AccessToken
	if out.RefreshToken != "" {
		c.refreshToken = out.RefreshToken
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any, bearer string) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return resp.StatusCode, fmt.Errorf("amocrm %s: status %d: %s", path, resp.StatusCode, string(snippet))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}
