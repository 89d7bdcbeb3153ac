// Package http provides the JSON API server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request
// data: JSON request bodies, query string filters, pagination, sorting
// and reporting periods.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"finay/internal/core"
)

var errInvalidTimestamp = errors.New("invalid timestamp: use RFC 3339 or YYYY-MM-DD")

// parseTimestamp accepts RFC 3339 timestamps and plain dates.
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Time{}, errInvalidTimestamp
}

// createTransactionRequest is the JSON body for POST /transactions.
// Amount is a decimal in currency units, e.g. 40.50.
type createTransactionRequest struct {
	Kind          string      `json:"type"`
	Amount        json.Number `json:"amount"`
	Category      string      `json:"category"`
	Description   string      `json:"description"`
	PaymentMethod string      `json:"paymentMethod"`
	Status        string      `json:"status"`
	Currency      string      `json:"currency"`
	Tags          []string    `json:"tags"`
	Location      string      `json:"location"`
	OccurredAt    string      `json:"occurredAt"`
}

// decodeCreateRequest parses and sanitizes a transaction creation body.
// Defaults are not applied here; the service fills them in.
func decodeCreateRequest(r *http.Request) (core.Transaction, error) {
	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return core.Transaction{}, fmt.Errorf("decode request body: %w", err)
	}

	t := core.Transaction{
		Kind:          core.Kind(strings.TrimSpace(req.Kind)),
		Category:      core.Category(strings.TrimSpace(req.Category)),
		Description:   sanitizeInput(req.Description),
		PaymentMethod: core.PaymentMethod(strings.TrimSpace(req.PaymentMethod)),
		Status:        core.Status(strings.TrimSpace(req.Status)),
		Currency:      strings.TrimSpace(req.Currency),
		Location:      sanitizeInput(req.Location),
	}
	for _, tag := range req.Tags {
		if tag = sanitizeInput(tag); tag != "" {
			t.Tags = append(t.Tags, tag)
		}
	}

	if req.Amount != "" {
		cents, err := core.ParseDecimalToCents(req.Amount.String())
		if err != nil {
			return core.Transaction{}, err
		}
		t.Amount = core.Money{Cents: cents}
	}

	if req.OccurredAt != "" {
		occurred, err := parseTimestamp(req.OccurredAt)
		if err != nil {
			return core.Transaction{}, err
		}
		t.OccurredAt = occurred
	}

	return t, nil
}

// updateTransactionRequest is the JSON body for PUT /transactions/{id}.
// Absent fields leave the stored value untouched.
type updateTransactionRequest struct {
	Kind          *string      `json:"type"`
	Amount        *json.Number `json:"amount"`
	Category      *string      `json:"category"`
	Description   *string      `json:"description"`
	PaymentMethod *string      `json:"paymentMethod"`
	Status        *string      `json:"status"`
	Currency      *string      `json:"currency"`
	Tags          *[]string    `json:"tags"`
	Location      *string      `json:"location"`
	OccurredAt    *string      `json:"occurredAt"`
}

// decodeUpdateRequest parses an amendment body into a patch.
func decodeUpdateRequest(r *http.Request) (core.Patch, error) {
	var req updateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return core.Patch{}, fmt.Errorf("decode request body: %w", err)
	}

	var patch core.Patch
	if req.Kind != nil {
		k := core.Kind(strings.TrimSpace(*req.Kind))
		patch.Kind = &k
	}
	if req.Amount != nil {
		cents, err := core.ParseDecimalToCents(req.Amount.String())
		if err != nil {
			return core.Patch{}, err
		}
		patch.AmountCents = &cents
	}
	if req.Category != nil {
		c := core.Category(strings.TrimSpace(*req.Category))
		patch.Category = &c
	}
	if req.Description != nil {
		d := sanitizeInput(*req.Description)
		patch.Description = &d
	}
	if req.PaymentMethod != nil {
		pm := core.PaymentMethod(strings.TrimSpace(*req.PaymentMethod))
		patch.PaymentMethod = &pm
	}
	if req.Status != nil {
		st := core.Status(strings.TrimSpace(*req.Status))
		patch.Status = &st
	}
	if req.Currency != nil {
		cur := strings.TrimSpace(*req.Currency)
		patch.Currency = &cur
	}
	if req.Tags != nil {
		tags := make([]string, 0, len(*req.Tags))
		for _, tag := range *req.Tags {
			if tag = sanitizeInput(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
		patch.Tags = &tags
	}
	if req.Location != nil {
		loc := sanitizeInput(*req.Location)
		patch.Location = &loc
	}
	if req.OccurredAt != nil {
		occurred, err := parseTimestamp(*req.OccurredAt)
		if err != nil {
			return core.Patch{}, err
		}
		patch.OccurredAt = &occurred
	}

	return patch, nil
}

// parseListQuery extracts filter, pagination and sort from the query
// string of GET /transactions. Missing parameters fall back to the
// listing defaults.
func parseListQuery(query url.Values) (core.Filter, core.Page, core.Sort, error) {
	var filter core.Filter

	if v := strings.TrimSpace(query.Get("from")); v != "" {
		from, err := parseTimestamp(v)
		if err != nil {
			return filter, core.Page{}, core.Sort{}, err
		}
		filter.From = from
	}
	if v := strings.TrimSpace(query.Get("to")); v != "" {
		to, err := parseTimestamp(v)
		if err != nil {
			return filter, core.Page{}, core.Sort{}, err
		}
		filter.To = to
	}
	filter.Kind = core.Kind(strings.TrimSpace(query.Get("type")))
	filter.Category = core.Category(strings.TrimSpace(query.Get("category")))

	if v := strings.TrimSpace(query.Get("minAmount")); v != "" {
		cents, err := core.ParseDecimalToCents(v)
		if err != nil {
			return filter, core.Page{}, core.Sort{}, err
		}
		filter.MinAmount = &cents
	}
	if v := strings.TrimSpace(query.Get("maxAmount")); v != "" {
		cents, err := core.ParseDecimalToCents(v)
		if err != nil {
			return filter, core.Page{}, core.Sort{}, err
		}
		filter.MaxAmount = &cents
	}

	page := core.DefaultPage()
	if v := strings.TrimSpace(query.Get("page")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			page.Number = n
		}
	}
	if v := strings.TrimSpace(query.Get("pageSize")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			page.Size = n
		}
	}

	sort := core.DefaultSort()
	if v := strings.TrimSpace(query.Get("sort")); v != "" {
		sort.Field = core.SortField(v)
	}
	if v := strings.TrimSpace(query.Get("dir")); v != "" {
		switch strings.ToLower(v) {
		case "asc":
			sort.Direction = core.SortAsc
		case "desc":
			sort.Direction = core.SortDesc
		default:
			return filter, page, sort, core.ErrInvalidSort
		}
	}

	return filter, page, sort, nil
}

// parseSummaryQuery extracts the reporting window for the summary
// endpoint. An explicit startDate/endDate pair overrides the named
// period.
func parseSummaryQuery(query url.Values) (core.Period, *core.Range, error) {
	period := core.PeriodMonth
	if v := strings.TrimSpace(query.Get("period")); v != "" {
		period = core.Period(v)
	}

	fromStr := strings.TrimSpace(query.Get("startDate"))
	toStr := strings.TrimSpace(query.Get("endDate"))
	if fromStr == "" && toStr == "" {
		return period, nil, nil
	}
	if fromStr == "" || toStr == "" {
		return period, nil, errors.New("explicit range requires both startDate and endDate")
	}

	from, err := parseTimestamp(fromStr)
	if err != nil {
		return period, nil, err
	}
	to, err := parseTimestamp(toStr)
	if err != nil {
		return period, nil, err
	}
	if to.Before(from) {
		return period, nil, errors.New("explicit range requires startDate <= endDate")
	}
	return period, &core.Range{From: from, To: to}, nil
}
