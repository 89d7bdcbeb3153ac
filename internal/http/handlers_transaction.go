package http

import (
	"net/http"
	"time"

	"finay/internal/core"
)

// transactionDTO is the wire representation of a ledger entry. Amount
// carries both the decimal value and the exact cents so clients never
// have to round.
type transactionDTO struct {
	ID            string   `json:"id"`
	Kind          string   `json:"type"`
	Amount        float64  `json:"amount"`
	AmountCents   int64    `json:"amountCents"`
	Category      string   `json:"category"`
	Color         string   `json:"color"`
	Description   string   `json:"description"`
	PaymentMethod string   `json:"paymentMethod"`
	Status        string   `json:"status"`
	Currency      string   `json:"currency"`
	Tags          []string `json:"tags,omitempty"`
	Location      string   `json:"location,omitempty"`
	OccurredAt    string   `json:"occurredAt"`
	CreatedAt     string   `json:"createdAt"`
	UpdatedAt     string   `json:"updatedAt"`
}

func toTransactionDTO(t core.Transaction) transactionDTO {
	return transactionDTO{
		ID:            t.ID,
		Kind:          string(t.Kind),
		Amount:        t.Amount.Units(),
		AmountCents:   t.Amount.Cents,
		Category:      string(t.Category),
		Color:         t.Category.Color(),
		Description:   t.Description,
		PaymentMethod: string(t.PaymentMethod),
		Status:        string(t.Status),
		Currency:      t.Currency,
		Tags:          t.Tags,
		Location:      t.Location,
		OccurredAt:    t.OccurredAt.UTC().Format(time.RFC3339),
		CreatedAt:     t.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     t.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// listResponse is one page of transactions plus pagination metadata.
type listResponse struct {
	Items      []transactionDTO `json:"items"`
	Page       int              `json:"page"`
	PageSize   int              `json:"pageSize"`
	TotalCount int64            `json:"totalCount"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	owner := ownerFromRequest(r)
	if owner == "" {
		UnauthorizedError("missing " + ownerHeader + " header").Write(w)
		return
	}

	t, err := decodeCreateRequest(r)
	if err != nil {
		if isValidationError(err) {
			UnprocessableEntityError(err.Error()).Write(w)
		} else {
			BadRequestError(err.Error()).Write(w)
		}
		return
	}
	t.OwnerID = owner

	created, err := s.ledger.CreateTransaction(r.Context(), t)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.invalidateSummaries(owner)
	NewJSONResponse().
		Status(http.StatusCreated).
		Message("transaction recorded").
		Data(toTransactionDTO(created)).
		Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	owner := ownerFromRequest(r)
	if owner == "" {
		UnauthorizedError("missing " + ownerHeader + " header").Write(w)
		return
	}

	t, err := s.ledger.GetTransaction(r.Context(), r.PathValue("id"), owner)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	NewJSONResponse().Data(toTransactionDTO(t)).Write(w)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	owner := ownerFromRequest(r)
	if owner == "" {
		UnauthorizedError("missing " + ownerHeader + " header").Write(w)
		return
	}

	filter, page, sort, err := parseListQuery(r.URL.Query())
	if err != nil {
		if isValidationError(err) {
			UnprocessableEntityError(err.Error()).Write(w)
		} else {
			BadRequestError(err.Error()).Write(w)
		}
		return
	}

	result, err := s.ledger.ListTransactions(r.Context(), owner, filter, page, sort)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	page = page.Normalize()
	resp := listResponse{
		Items:      make([]transactionDTO, 0, len(result.Items)),
		Page:       page.Number,
		PageSize:   page.Size,
		TotalCount: result.TotalCount,
	}
	for _, t := range result.Items {
		resp.Items = append(resp.Items, toTransactionDTO(t))
	}

	NewJSONResponse().Data(resp).Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	owner := ownerFromRequest(r)
	if owner == "" {
		UnauthorizedError("missing " + ownerHeader + " header").Write(w)
		return
	}

	patch, err := decodeUpdateRequest(r)
	if err != nil {
		if isValidationError(err) {
			UnprocessableEntityError(err.Error()).Write(w)
		} else {
			BadRequestError(err.Error()).Write(w)
		}
		return
	}

	updated, err := s.ledger.UpdateTransaction(r.Context(), r.PathValue("id"), owner, patch)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.invalidateSummaries(owner)
	NewJSONResponse().
		Message("transaction updated").
		Data(toTransactionDTO(updated)).
		Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	owner := ownerFromRequest(r)
	if owner == "" {
		UnauthorizedError("missing " + ownerHeader + " header").Write(w)
		return
	}

	if err := s.ledger.DeleteTransaction(r.Context(), r.PathValue("id"), owner); err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.invalidateSummaries(owner)
	NewJSONResponse().Message("transaction deleted").Write(w)
}
