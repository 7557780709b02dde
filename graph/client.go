/*
 * Copyright 2026 The Preflight Authors
 * SPDX-License-Identifier: Apache-2.0
 */
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultBaseURL is the production Graph API endpoint.
const DefaultBaseURL = "https://graph.facebook.com/v18.0"

const requestTimeout = 45 * time.Second

// Code delivery methods accepted by request_code.
const (
	CodeMethodSMS   = "SMS"
	CodeMethodVoice = "VOICE"
)

const codeRequestLanguage = "en_US"

var (
	errMissingAddID   = errors.New("add phone number response missing id")
	errNoSuccessFlag  = errors.New("response missing success flag")
	errEmptyNumberID  = errors.New("phone number id is required")
	errEmptyWABAID    = errors.New("waba id is required")
	errInvalidMethod  = errors.New("code method must be SMS or VOICE")
	errEmptyPortfolio = errors.New("business portfolio id is required")
)

// PhoneNumberRecord is a pre-verified number as reported by the platform.
// CreatedAt is the local capture time, advisory only; it is never sent back.
type PhoneNumberRecord struct {
	ID                     string
	PhoneNumber            string
	Status                 string
	VerificationExpiryTime string
	CreatedAt              time.Time
}

// WABASource tells how a WABA entry was obtained.
type WABASource string

const (
	WABAOwned  WABASource = "owned"
	WABAClient WABASource = "client"
	WABAManual WABASource = "manual"
)

// WABA is a WhatsApp Business Account entry from the portfolio listings.
type WABA struct {
	ID     string
	Name   string
	Source WABASource
}

// WABAPhoneNumber is a phone number attached to a WABA.
type WABAPhoneNumber struct {
	ID                     string
	DisplayPhoneNumber     string
	CodeVerificationStatus string
}

// Client is a facade over the remote messaging-platform REST API. Each
// operation maps one user action to exactly one HTTP request and interprets
// the JSON response into a value or a classified failure. The facade
// enforces no verification state transitions; it executes whatever call the
// caller issues and reports the remote result.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	portfolioID string
	accessToken string
}

// NewClient builds a facade for one business portfolio. baseURL may be
// empty to target the production endpoint; tests point it elsewhere.
func NewClient(baseURL, portfolioID, accessToken string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		httpClient:  &http.Client{Timeout: requestTimeout},
		baseURL:     baseURL,
		portfolioID: portfolioID,
		accessToken: accessToken,
	}
}

type apiErrorBody struct {
	Code         int    `json:"code"`
	Message      string `json:"message"`
	ErrorUserMsg string `json:"error_user_msg"`
	Type         string `json:"type"`
	FBTraceID    string `json:"fbtrace_id"`
}

type apiEnvelope struct {
	Data    json.RawMessage `json:"data"`
	ID      string          `json:"id"`
	Success bool            `json:"success"`
	Error   *apiErrorBody   `json:"error"`
}

// ListPreverifiedNumbers rebuilds the number list from the platform. The
// console never mutates statuses locally; this call is the only source of
// status changes.
func (c *Client) ListPreverifiedNumbers(ctx context.Context) ([]PhoneNumberRecord, error) {
	if c.portfolioID == "" {
		return nil, errEmptyPortfolio
	}

	endpoint := fmt.Sprintf("%s/%s/preverified_numbers?fields=id,phone_number,code_verification_status,verification_expiry_time",
		c.baseURL, url.PathEscape(c.portfolioID))

	envelope, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		ID                     string `json:"id"`
		PhoneNumber            string `json:"phone_number"`
		CodeVerificationStatus string `json:"code_verification_status"`
		VerificationExpiryTime string `json:"verification_expiry_time"`
	}
	if err := json.Unmarshal(envelope.Data, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode preverified numbers: %w", err)
	}

	now := time.Now()
	records := make([]PhoneNumberRecord, 0, len(rows))

	for _, row := range rows {
		status := row.CodeVerificationStatus
		if status == "" {
			status = "unknown"
		}

		records = append(records, PhoneNumberRecord{
			ID:                     row.ID,
			PhoneNumber:            row.PhoneNumber,
			Status:                 status,
			VerificationExpiryTime: row.VerificationExpiryTime,
			CreatedAt:              now,
		})
	}

	return records, nil
}

// AddPhoneNumber submits a validated phone number to the portfolio and
// returns the platform-assigned ID. The caller must pass the Formatted
// output of NormalizePhoneNumber; this facade never sends a string that
// failed validation.
func (c *Client) AddPhoneNumber(ctx context.Context, formattedNumber string) (string, error) {
	if c.portfolioID == "" {
		return "", errEmptyPortfolio
	}

	endpoint := fmt.Sprintf("%s/%s/add_phone_numbers", c.baseURL, url.PathEscape(c.portfolioID))

	body := map[string]string{"phone_number": formattedNumber}

	envelope, err := c.do(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", err
	}

	if envelope.ID == "" {
		return "", errMissingAddID
	}

	return envelope.ID, nil
}

// RequestVerificationCode asks the platform to deliver a verification code
// to the number via SMS or voice call.
func (c *Client) RequestVerificationCode(ctx context.Context, numberID, method string) error {
	if numberID == "" {
		return errEmptyNumberID
	}
	if method != CodeMethodSMS && method != CodeMethodVoice {
		return errInvalidMethod
	}

	endpoint := fmt.Sprintf("%s/%s/request_code?code_method=%s&language=%s",
		c.baseURL, url.PathEscape(numberID), method, codeRequestLanguage)

	return c.doExpectSuccess(ctx, http.MethodPost, endpoint)
}

// VerifyCode submits a received verification code for the number.
func (c *Client) VerifyCode(ctx context.Context, numberID, code string) error {
	if numberID == "" {
		return errEmptyNumberID
	}

	endpoint := fmt.Sprintf("%s/%s/verify_code?code=%s",
		c.baseURL, url.PathEscape(numberID), url.QueryEscape(code))

	return c.doExpectSuccess(ctx, http.MethodPost, endpoint)
}

// RegisterNumber registers a WABA phone number for Cloud API use with a
// six-digit PIN.
func (c *Client) RegisterNumber(ctx context.Context, wabaPhoneNumberID, pin string) error {
	if wabaPhoneNumberID == "" {
		return errEmptyNumberID
	}

	endpoint := fmt.Sprintf("%s/%s/register", c.baseURL, url.PathEscape(wabaPhoneNumberID))

	body := map[string]string{
		"messaging_product": "whatsapp",
		"pin":               pin,
	}

	envelope, err := c.do(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return err
	}
	if !envelope.Success {
		return errNoSuccessFlag
	}

	return nil
}

// DeleteNumber removes a pre-verified number from the platform. Callers
// drop the local record only after this reports success.
func (c *Client) DeleteNumber(ctx context.Context, numberID string) error {
	if numberID == "" {
		return errEmptyNumberID
	}

	endpoint := fmt.Sprintf("%s/%s", c.baseURL, url.PathEscape(numberID))

	return c.doExpectSuccess(ctx, http.MethodDelete, endpoint)
}

// ListOwnedWABAs lists WhatsApp Business Accounts owned by the portfolio.
// This listing passes the token as a query parameter, matching the live
// endpoint's contract.
func (c *Client) ListOwnedWABAs(ctx context.Context) ([]WABA, error) {
	if c.portfolioID == "" {
		return nil, errEmptyPortfolio
	}

	endpoint := fmt.Sprintf("%s/%s/owned_whatsapp_business_accounts?access_token=%s",
		c.baseURL, url.PathEscape(c.portfolioID), url.QueryEscape(c.accessToken))

	return c.listWABAs(ctx, endpoint, WABAOwned)
}

// ListClientWABAs lists WABAs shared with the portfolio by clients,
// filtered to those partnered with this portfolio.
func (c *Client) ListClientWABAs(ctx context.Context) ([]WABA, error) {
	if c.portfolioID == "" {
		return nil, errEmptyPortfolio
	}

	filtering := fmt.Sprintf(`[{"field":"partners","operator":"ALL","value":["%s"]}]`, c.portfolioID)
	endpoint := fmt.Sprintf("%s/%s/client_whatsapp_business_accounts?filtering=%s&access_token=%s",
		c.baseURL, url.PathEscape(c.portfolioID), url.QueryEscape(filtering), url.QueryEscape(c.accessToken))

	return c.listWABAs(ctx, endpoint, WABAClient)
}

// ListWABAPhoneNumbers lists the phone numbers attached to a WABA.
func (c *Client) ListWABAPhoneNumbers(ctx context.Context, wabaID string) ([]WABAPhoneNumber, error) {
	if wabaID == "" {
		return nil, errEmptyWABAID
	}

	endpoint := fmt.Sprintf("%s/%s/phone_numbers?access_token=%s",
		c.baseURL, url.PathEscape(wabaID), url.QueryEscape(c.accessToken))

	envelope, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		ID                     string `json:"id"`
		DisplayPhoneNumber     string `json:"display_phone_number"`
		CodeVerificationStatus string `json:"code_verification_status"`
	}
	if err := json.Unmarshal(envelope.Data, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode waba phone numbers: %w", err)
	}

	numbers := make([]WABAPhoneNumber, 0, len(rows))
	for _, row := range rows {
		numbers = append(numbers, WABAPhoneNumber{
			ID:                     row.ID,
			DisplayPhoneNumber:     row.DisplayPhoneNumber,
			CodeVerificationStatus: row.CodeVerificationStatus,
		})
	}

	return numbers, nil
}

func (c *Client) listWABAs(ctx context.Context, endpoint string, source WABASource) ([]WABA, error) {
	envelope, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(envelope.Data, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode waba list: %w", err)
	}

	wabas := make([]WABA, 0, len(rows))
	for _, row := range rows {
		wabas = append(wabas, WABA{ID: row.ID, Name: row.Name, Source: source})
	}

	return wabas, nil
}

func (c *Client) doExpectSuccess(ctx context.Context, method, endpoint string) error {
	envelope, err := c.do(ctx, method, endpoint, nil)
	if err != nil {
		return err
	}
	if !envelope.Success {
		return errNoSuccessFlag
	}

	return nil
}

// do issues one request and classifies the response. Requests carry the
// bearer token; mutating requests carry a JSON content type. Rate limiting
// is classified before any other error handling.
func (c *Client) do(ctx context.Context, method, endpoint string, body interface{}) (*apiEnvelope, error) {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	if method != http.MethodGet {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Warn("Failed to close response body", "error", err)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if envelope.Error != nil {
		apiErr := &APIError{
			Code:        envelope.Error.Code,
			Message:     envelope.Error.Message,
			UserMessage: envelope.Error.ErrorUserMsg,
			Type:        envelope.Error.Type,
			FBTraceID:   envelope.Error.FBTraceID,
		}

		if apiErr.IsRateLimit() {
			apiErr.RetryAfter = parseRegainAccess(resp.Header.Get(usageHeader))
			logger.Warn("Graph API rate limited", "retry_after", apiErr.RetryAfter)
		} else {
			logger.Debug("Graph API error",
				"code", apiErr.Code, "type", apiErr.Type, "fbtrace_id", apiErr.FBTraceID)
		}

		return nil, apiErr
	}

	return &envelope, nil
}
