package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"finay/internal/core"
)

// accountDTO is the wire representation of an account balance.
type accountDTO struct {
	ID           string  `json:"id"`
	Balance      float64 `json:"balance"`
	BalanceCents int64   `json:"balanceCents"`
	CreatedAt    string  `json:"createdAt"`
}

func toAccountDTO(a core.Account) accountDTO {
	return accountDTO{
		ID:           a.ID,
		Balance:      a.Balance.Units(),
		BalanceCents: a.Balance.Cents,
		CreatedAt:    a.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type categoryAmountDTO struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
	Color    string  `json:"color"`
}

type seriesPointDTO struct {
	Label  string  `json:"label"`
	Kind   string  `json:"type"`
	Amount float64 `json:"amount"`
}

// summaryDTO is the aggregated report for one owner and window.
type summaryDTO struct {
	From         string              `json:"from"`
	To           string              `json:"to"`
	Income       float64             `json:"income"`
	Expense      float64             `json:"expense"`
	Savings      float64             `json:"savings"`
	ByCategory   []categoryAmountDTO `json:"byCategory"`
	TimeSeries   []seriesPointDTO    `json:"timeSeries"`
	IncomeCents  int64               `json:"incomeCents"`
	ExpenseCents int64               `json:"expenseCents"`
	SavingsCents int64               `json:"savingsCents"`
}

func toSummaryDTO(s core.Summary) summaryDTO {
	dto := summaryDTO{
		From:         s.Range.From.UTC().Format(time.RFC3339),
		To:           s.Range.To.UTC().Format(time.RFC3339),
		Income:       s.IncomeTotal.Units(),
		Expense:      s.ExpenseTotal.Units(),
		Savings:      s.Savings.Units(),
		ByCategory:   make([]categoryAmountDTO, 0, len(s.ByCategory)),
		TimeSeries:   make([]seriesPointDTO, 0, len(s.TimeSeries)),
		IncomeCents:  s.IncomeTotal.Cents,
		ExpenseCents: s.ExpenseTotal.Cents,
		SavingsCents: s.Savings.Cents,
	}
	for _, c := range s.ByCategory {
		dto.ByCategory = append(dto.ByCategory, categoryAmountDTO{
			Category: string(c.Category),
			Amount:   c.Amount.Units(),
			Color:    c.Color,
		})
	}
	for _, p := range s.TimeSeries {
		dto.TimeSeries = append(dto.TimeSeries, seriesPointDTO{
			Label:  p.Label,
			Kind:   string(p.Kind),
			Amount: p.Amount.Units(),
		})
	}
	return dto
}

func (s *Server) handleOpenAccount(w http.ResponseWriter, r *http.Request) {
	account, err := s.ledger.OpenAccount(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	NewJSONResponse().
		Status(http.StatusCreated).
		Message("account opened").
		Data(toAccountDTO(account)).
		Write(w)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	owner := ownerFromRequest(r)
	if owner == "" {
		UnauthorizedError("missing " + ownerHeader + " header").Write(w)
		return
	}

	account, err := s.ledger.GetAccount(r.Context(), owner)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	NewJSONResponse().Data(toAccountDTO(account)).Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	owner := ownerFromRequest(r)
	if owner == "" {
		UnauthorizedError("missing " + ownerHeader + " header").Write(w)
		return
	}

	period, explicit, err := parseSummaryQuery(r.URL.Query())
	if err != nil {
		if isValidationError(err) {
			UnprocessableEntityError(err.Error()).Write(w)
		} else {
			BadRequestError(err.Error()).Write(w)
		}
		return
	}

	key := summaryCacheKey(owner, period, explicit)
	if cached, found := s.summaryCache.Get(key); found {
		slog.DebugContext(r.Context(), "Summary cache hit", "owner_id", owner, "period", string(period))
		NewJSONResponse().Data(toSummaryDTO(cached)).Write(w)
		return
	}

	summary, err := s.summaries.Summarize(r.Context(), owner, period, explicit)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.summaryCache.Set(key, summary)
	NewJSONResponse().Data(toSummaryDTO(summary)).Write(w)
}

// summaryCacheKey is prefixed with the owner so a mutation can drop all
// of one owner's windows at once. Named periods are cached under their
// token; the TTL bounds how far the rolling window may lag.
func summaryCacheKey(owner string, period core.Period, explicit *core.Range) string {
	if explicit != nil {
		return owner + "|range:" + strconv.FormatInt(explicit.From.Unix(), 10) + "-" + strconv.FormatInt(explicit.To.Unix(), 10)
	}
	return owner + "|period:" + string(period)
}
