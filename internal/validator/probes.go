package validator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/creatorstack/keywarden/internal/models"
)

// maxProbeBody caps how much of a vendor error response is read for messages.
const maxProbeBody = 64 * 1024

// OpenAIProbe verifies a key against the OpenAI-compatible models endpoint.
type OpenAIProbe struct {
	Client  *http.Client
	BaseURL string
}

func (p *OpenAIProbe) Validate(ctx context.Context, in Input) models.ValidationResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+"/v1/models", nil)
	if err != nil {
		return invalid(err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+in.APIKey)

	resp, err := p.Client.Do(req)
	if err != nil {
		return invalid(fmt.Sprintf("could not reach OpenAI API: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return models.ValidationResult{Valid: true}
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxProbeBody))
	if msg := openAIErrorMessage(body); msg != "" {
		return invalid(msg)
	}
	return invalid(fmt.Sprintf("OpenAI API returned status %d", resp.StatusCode))
}

func openAIErrorMessage(body []byte) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Error.Message
}

// ElevenLabsProbe verifies a key against the ElevenLabs voices endpoint.
type ElevenLabsProbe struct {
	Client  *http.Client
	BaseURL string
}

func (p *ElevenLabsProbe) Validate(ctx context.Context, in Input) models.ValidationResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+"/v1/voices", nil)
	if err != nil {
		return invalid(err.Error())
	}
	req.Header.Set("xi-api-key", in.APIKey)

	resp, err := p.Client.Do(req)
	if err != nil {
		return invalid(fmt.Sprintf("could not reach ElevenLabs API: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return models.ValidationResult{Valid: true}
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxProbeBody))
	if msg := elevenLabsErrorMessage(body); msg != "" {
		return invalid(msg)
	}
	return invalid(http.StatusText(resp.StatusCode))
}

func elevenLabsErrorMessage(body []byte) string {
	var payload struct {
		Detail struct {
			Message string `json:"message"`
		} `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Detail.Message
}

// RunwayProbe verifies a key against a Runway-style user endpoint. The base
// URL is overridable per request for self-hosted deployments.
type RunwayProbe struct {
	Client         *http.Client
	DefaultBaseURL string
}

func (p *RunwayProbe) Validate(ctx context.Context, in Input) models.ValidationResult {
	base := strings.TrimRight(in.BaseURL, "/")
	if base == "" {
		base = p.DefaultBaseURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/v1/user", nil)
	if err != nil {
		return invalid(err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+in.APIKey)

	resp, err := p.Client.Do(req)
	if err != nil {
		return invalid(fmt.Sprintf("could not reach service at %s: %v", base, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return models.ValidationResult{Valid: true}
	}
	return invalid(fmt.Sprintf("service at %s returned status %d", base, resp.StatusCode))
}

func invalid(msg string) models.ValidationResult {
	return models.ValidationResult{Valid: false, Message: msg}
}
