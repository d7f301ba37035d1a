package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/revuly/revuly-go/internal/domain"
)

// ReviewsResult pairs the raw envelope with the decoded page payload. Page
// is nil unless the envelope reports success.
type ReviewsResult struct {
	domain.Envelope
	Page *domain.ReviewPage
}

// ReviewService translates review feed operations into API calls.
type ReviewService struct {
	http Doer
}

// NewReviewService creates a ReviewService on top of http.
func NewReviewService(http Doer) *ReviewService {
	return &ReviewService{http: http}
}

// FetchAllReviews loads one page of a business's reviews. Non-positive page
// or limit values are omitted and left to the backend's defaults.
func (s *ReviewService) FetchAllReviews(ctx context.Context, businessSlug string, page, limit int) (*ReviewsResult, error) {
	params := map[string]any{}
	if page > 0 {
		params["page"] = page
	}
	if limit > 0 {
		params["limit"] = limit
	}

	env, err := s.http.Get(ctx, "reviews/"+url.PathEscape(businessSlug), params, nil)
	if err != nil {
		return nil, err
	}

	res := &ReviewsResult{Envelope: *env}
	if !env.Success || len(env.Data) == 0 {
		return res, nil
	}

	var pageData domain.ReviewPage
	if err := json.Unmarshal(env.Data, &pageData); err != nil {
		return nil, fmt.Errorf("decode review page: %w", err)
	}
	res.Page = &pageData
	return res, nil
}
