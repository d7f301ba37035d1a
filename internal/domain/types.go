// Package domain defines the wire and identity types shared by the client core.
package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Envelope is the uniform response wrapper returned by every API endpoint.
// Data is left raw here; the domain services decode it into typed payloads.
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// DecodeData unmarshals the envelope payload into v.
func (e *Envelope) DecodeData(v any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("envelope has no data")
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decode envelope data: %w", err)
	}
	return nil
}

// APIError is the error body the backend attaches to failed (non-2xx) responses.
type APIError struct {
	Code    int    `json:"code"`
	File    string `json:"file"`
	Line    string `json:"line"`
	Message string `json:"message"`
	URL     string `json:"url"`
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("api error %d: %s", e.Code, e.Message)
	}
	return "api error: " + e.Message
}

// Business is the tenant a user owns.
type Business struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Slug    string `json:"slug"`
	Type    string `json:"type"`
	OwnerID string `json:"user_id"`
}

// User is the authenticated identity.
type User struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	Business Business `json:"business"`
}

// Review is a single customer review. The client only ever reads reviews.
type Review struct {
	ID           string    `json:"id"`
	Rating       float64   `json:"rating"`
	ReviewText   string    `json:"review_text"`
	BusinessID   string    `json:"business_id"`
	ReviewerName string    `json:"reviewer_name"`
	CreatedAt    time.Time `json:"created_at"`
}

// ReviewPage is one page of a business's review feed.
type ReviewPage struct {
	Reviews    []Review `json:"reviews"`
	Total      int      `json:"total"`
	Page       int      `json:"page"`
	Limit      int      `json:"limit"`
	TotalPages int      `json:"totalPages"`
}

// AuthData is the payload of a successful login or register response.
type AuthData struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
