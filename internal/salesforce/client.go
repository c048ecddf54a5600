package salesforce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const apiVersion = "v59.0"

// Config carries the credentials for the username/password token flow.
type Config struct {
	LoginURL      string // e.g. https://login.salesforce.com
	ClientID      string
	ClientSecret  string
	Username      string
	Password      string
	SecurityToken string // appended to the password, per Salesforce convention
}

// Client talks to the Salesforce REST data API. Create one with Connect;
// the zero value is not usable.
type Client struct {
	httpClient  *http.Client
	instanceURL string
	accessToken string
}

// Connect performs the OAuth username/password token exchange and returns
// an authenticated client. A failure here is fatal to the run.
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	hc := http.DefaultClient
	form := url.Values{
		"grant_type":    {"password"},
		"client_id":     {cfg.ClientID},
		"client_secret": {cfg.ClientSecret},
		"username":      {cfg.Username},
		"password":      {cfg.Password + cfg.SecurityToken},
	}

	tokenURL := strings.TrimRight(cfg.LoginURL, "/") + "/services/oauth2/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("login failed: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var token struct {
		AccessToken string `json:"access_token"`
		InstanceURL string `json:"instance_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if token.AccessToken == "" || token.InstanceURL == "" {
		return nil, fmt.Errorf("login response missing access token or instance URL")
	}

	return &Client{
		httpClient:  hc,
		instanceURL: strings.TrimRight(token.InstanceURL, "/"),
		accessToken: token.AccessToken,
	}, nil
}

// Describe fetches the field metadata for an object type.
func (c *Client) Describe(ctx context.Context, objectType string) ([]Field, error) {
	path := fmt.Sprintf("/services/data/%s/sobjects/%s/describe", apiVersion, objectType)

	var meta struct {
		Fields []struct {
			Name       string `json:"name"`
			Label      string `json:"label"`
			Type       string `json:"type"`
			Nillable   bool   `json:"nillable"`
			Updateable bool   `json:"updateable"`
		} `json:"fields"`
	}
	if err := c.get(ctx, path, &meta); err != nil {
		return nil, fmt.Errorf("describe %s: %w", objectType, err)
	}

	fields := make([]Field, 0, len(meta.Fields))
	for _, f := range meta.Fields {
		field := Field{
			Name:       f.Name,
			Label:      f.Label,
			Type:       ParseFieldType(f.Type),
			Nillable:   f.Nillable,
			Updateable: f.Updateable,
		}
		if err := field.Validate(); err != nil {
			return nil, fmt.Errorf("describe %s: %w", objectType, err)
		}
		fields = append(fields, field)
	}
	return fields, nil
}

// Query runs a SOQL query for the given fields, optionally bounded to
// records modified strictly after modifiedAfter, always ordered by
// LastModifiedDate ascending. It follows nextRecordsUrl pagination until
// the result set is exhausted.
func (c *Client) Query(ctx context.Context, objectType string, fields []Field, modifiedAfter *time.Time) ([]Record, error) {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}

	soql := fmt.Sprintf("SELECT %s FROM %s", strings.Join(names, ", "), objectType)
	if modifiedAfter != nil {
		// SOQL datetime literals are unquoted ISO instants.
		soql += " WHERE LastModifiedDate > " + modifiedAfter.UTC().Format("2006-01-02T15:04:05Z")
	}
	soql += " ORDER BY LastModifiedDate ASC"

	path := fmt.Sprintf("/services/data/%s/query?q=%s", apiVersion, url.QueryEscape(soql))

	var records []Record
	for path != "" {
		var page struct {
			Records        []Record `json:"records"`
			Done           bool     `json:"done"`
			NextRecordsURL string   `json:"nextRecordsUrl"`
		}
		if err := c.get(ctx, path, &page); err != nil {
			return nil, fmt.Errorf("query %s: %w", objectType, err)
		}
		for _, rec := range page.Records {
			// The REST API decorates each row with an attributes object.
			delete(rec, "attributes")
			records = append(records, rec)
		}
		if page.Done {
			break
		}
		path = page.NextRecordsURL
	}
	return records, nil
}

// Upsert writes the given field values onto the record with the given Id,
// using a PATCH against the sobject row resource.
func (c *Client) Upsert(ctx context.Context, objectType, id string, values map[string]any) error {
	path := fmt.Sprintf("/services/data/%s/sobjects/%s/%s", apiVersion, objectType, id)

	body, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode upsert body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.instanceURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build upsert request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upsert %s %s: %w", objectType, id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK &&
		resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("upsert %s %s: %s: %s", objectType, id, resp.Status, strings.TrimSpace(string(msg)))
	}
	return nil
}

// get issues an authenticated GET against an API path and decodes the
// JSON response into out.
func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.instanceURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
