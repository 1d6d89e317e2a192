package repo

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

	"github.com/pkordes/trip-countdown/internal/domain"
)

// restTable is the PostgREST path of the trips table.
const restTable = "/rest/v1/trips"

// restTripRepo talks to the trips table through a PostgREST endpoint such as
// the one Supabase exposes, authenticating with the project's API key.
type restTripRepo struct {
	base   string
	apiKey string
	client *http.Client
}

// NewRESTTripRepo constructs a TripRepo for the PostgREST endpoint at baseURL
// (e.g. "https://abc.supabase.co"). A nil client uses http.DefaultClient.
func NewRESTTripRepo(baseURL, apiKey string, client *http.Client) TripRepo {
	if client == nil {
		client = http.DefaultClient
	}
	return &restTripRepo{
		base:   strings.TrimRight(baseURL, "/") + restTable,
		apiKey: apiKey,
		client: client,
	}
}

// insertRow is the request body for Insert. id and created_at are left to
// the server.
type insertRow struct {
	Destination string                 `json:"destination"`
	TargetDate  string                 `json:"target_date"`
	Itinerary   []domain.ItineraryItem `json:"itinerary"`
}

// Latest fetches the newest row.
func (r *restTripRepo) Latest(ctx context.Context) (domain.TripRecord, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("order", "created_at.desc")
	q.Set("limit", "1")

	var rows []domain.TripRecord
	if _, err := r.do(ctx, http.MethodGet, q, nil, nil, &rows); err != nil {
		return domain.TripRecord{}, fmt.Errorf("repo.RESTTripRepo.Latest: %w", err)
	}
	if len(rows) == 0 {
		return domain.TripRecord{}, fmt.Errorf("repo.RESTTripRepo.Latest: %w", domain.ErrNotFound)
	}
	return normalizeRecord(rows[0]), nil
}

// Insert posts a new row and returns the server's representation of it.
func (r *restTripRepo) Insert(ctx context.Context, rec domain.TripRecord) (domain.TripRecord, error) {
	items := rec.Itinerary
	if items == nil {
		items = []domain.ItineraryItem{}
	}
	body := []insertRow{{
		Destination: rec.Destination,
		TargetDate:  domain.FormatInstant(rec.TargetDate),
		Itinerary:   items,
	}}

	header := http.Header{}
	header.Set("Prefer", "return=representation")

	var rows []domain.TripRecord
	if _, err := r.do(ctx, http.MethodPost, nil, header, body, &rows); err != nil {
		return domain.TripRecord{}, fmt.Errorf("repo.RESTTripRepo.Insert: %w", err)
	}
	if len(rows) == 0 {
		return domain.TripRecord{}, fmt.Errorf("repo.RESTTripRepo.Insert: empty representation")
	}
	return normalizeRecord(rows[0]), nil
}

// List fetches one page and reads the total from the Content-Range header.
func (r *restTripRepo) List(ctx context.Context, page domain.PaginationParams) ([]domain.TripRecord, int64, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("order", "created_at.desc")
	q.Set("limit", strconv.Itoa(page.Limit))
	q.Set("offset", strconv.Itoa(page.Offset()))

	header := http.Header{}
	header.Set("Prefer", "count=exact")

	var rows []domain.TripRecord
	resp, err := r.do(ctx, http.MethodGet, q, header, nil, &rows)
	if err != nil {
		return nil, 0, fmt.Errorf("repo.RESTTripRepo.List: %w", err)
	}

	for i := range rows {
		rows[i] = normalizeRecord(rows[i])
	}
	total := parseContentRangeTotal(resp.Header.Get("Content-Range"), int64(len(rows)))
	return rows, total, nil
}

// do sends one request and decodes a 2xx JSON response into out.
func (r *restTripRepo) do(ctx context.Context, method string, q url.Values, header http.Header, in, out any) (*http.Response, error) {
	target := r.base
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("apikey", r.apiKey)
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resp, fmt.Errorf("%s %s: status %d: %s", method, restTable, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp, nil
}

func normalizeRecord(rec domain.TripRecord) domain.TripRecord {
	rec.TargetDate = rec.TargetDate.UTC()
	rec.CreatedAt = rec.CreatedAt.UTC()
	if rec.Itinerary == nil {
		rec.Itinerary = []domain.ItineraryItem{}
	}
	return rec
}

// parseContentRangeTotal extracts N from "0-9/N". It falls back to the
// given value when the header is absent or the total is unknown ("*").
func parseContentRangeTotal(h string, fallback int64) int64 {
	i := strings.LastIndexByte(h, '/')
	if i < 0 {
		return fallback
	}
	n, err := strconv.ParseInt(h[i+1:], 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

// NewHTTPClient returns a client with the given request timeout for use
// with NewRESTTripRepo.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
