package core

import (
	"errors"
	"strings"
	"time"
)

// Kind is the closed set of transaction kinds.
type Kind string

const (
	KindIncome   Kind = "income"
	KindExpense  Kind = "expense"
	KindTransfer Kind = "transfer"
)

// Category is the closed set of transaction categories.
type Category string

const (
	CategoryFood          Category = "Food"
	CategoryHousing       Category = "Housing"
	CategoryTransport     Category = "Transport"
	CategoryEntertainment Category = "Entertainment"
	CategoryBills         Category = "Bills"
	CategoryShopping      Category = "Shopping"
	CategoryHealth        Category = "Health"
	CategoryEducation     Category = "Education"
	CategoryInvestment    Category = "Investment"
	CategorySalary        Category = "Salary"
	CategoryOther         Category = "Other"
)

// PaymentMethod describes how a transaction was settled. Metadata only,
// no balance effect.
type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "Cash"
	PaymentCreditCard   PaymentMethod = "Credit Card"
	PaymentDebitCard    PaymentMethod = "Debit Card"
	PaymentBankTransfer PaymentMethod = "Bank Transfer"
	PaymentOther        PaymentMethod = "Other"
)

// Status describes the settlement state of a transaction. Metadata only.
type Status string

const (
	StatusCompleted Status = "Completed"
	StatusPending   Status = "Pending"
	StatusCancelled Status = "Cancelled"
)

// DefaultCurrency is applied when a transaction carries no currency code.
const DefaultCurrency = "TRY"

type (
	Money struct {
		Cents int64
	}

	// Transaction is a single ledger entry owned by exactly one account.
	Transaction struct {
		ID            string
		OwnerID       string
		Kind          Kind
		Amount        Money
		Category      Category
		Description   string
		PaymentMethod PaymentMethod
		Status        Status
		Currency      string
		Tags          []string
		Location      string
		OccurredAt    time.Time
		CreatedAt     time.Time
		UpdatedAt     time.Time
	}

	// Account holds the derived balance for one owner. The balance is
	// mutated only together with a transaction write, never on its own.
	Account struct {
		ID        string
		Balance   Money
		CreatedAt time.Time
	}
)

var (
	ErrInvalidKind     = errors.New("invalid transaction kind")
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidPayment  = errors.New("invalid payment method")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrMissingOwner    = errors.New("missing owner id")

	ErrNotFound        = errors.New("transaction not found")
	ErrForbidden       = errors.New("transaction owned by a different account")
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountExists   = errors.New("account already exists")
)

var kinds = map[Kind]struct{}{
	KindIncome:   {},
	KindExpense:  {},
	KindTransfer: {},
}

// Categories lists every valid category in display order.
var Categories = []Category{
	CategoryFood, CategoryHousing, CategoryTransport, CategoryEntertainment,
	CategoryBills, CategoryShopping, CategoryHealth, CategoryEducation,
	CategoryInvestment, CategorySalary, CategoryOther,
}

var categorySet = func() map[Category]struct{} {
	m := make(map[Category]struct{}, len(Categories))
	for _, c := range Categories {
		m[c] = struct{}{}
	}
	return m
}()

// categoryColors maps each category to its stable display color.
var categoryColors = map[Category]string{
	CategoryFood:          "#4E7AF9",
	CategoryHousing:       "#2ED573",
	CategoryTransport:     "#FDCB6E",
	CategoryEntertainment: "#FF4757",
	CategoryBills:         "#8C69FF",
	CategoryShopping:      "#FF7043",
	CategoryHealth:        "#2196F3",
	CategoryEducation:     "#9C27B0",
	CategoryInvestment:    "#00BCD4",
	CategorySalary:        "#8BC34A",
	CategoryOther:         "#607D8B",
}

var paymentMethods = map[PaymentMethod]struct{}{
	PaymentCash:         {},
	PaymentCreditCard:   {},
	PaymentDebitCard:    {},
	PaymentBankTransfer: {},
	PaymentOther:        {},
}

var statuses = map[Status]struct{}{
	StatusCompleted: {},
	StatusPending:   {},
	StatusCancelled: {},
}

func (k Kind) Validate() error {
	if _, ok := kinds[k]; !ok {
		return ErrInvalidKind
	}
	return nil
}

// Delta returns the signed contribution of a transaction of this kind to
// the owning account's balance. Transfers have no defined balance effect
// and contribute zero.
func (k Kind) Delta(amount Money) Money {
	switch k {
	case KindIncome:
		return amount
	case KindExpense:
		return Money{Cents: -amount.Cents}
	default:
		return Money{}
	}
}

func (c Category) Validate() error {
	if _, ok := categorySet[c]; !ok {
		return ErrInvalidCategory
	}
	return nil
}

// Color returns the fixed display color for the category.
func (c Category) Color() string {
	if color, ok := categoryColors[c]; ok {
		return color
	}
	return categoryColors[CategoryOther]
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Validate checks every closed set and required field. It never touches
// storage; a transaction that fails here must not reach the balance
// computation.
func (t Transaction) Validate() error {
	if strings.TrimSpace(t.OwnerID) == "" {
		return ErrMissingOwner
	}
	if err := t.Kind.Validate(); err != nil {
		return err
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if err := t.Category.Validate(); err != nil {
		return err
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if t.PaymentMethod != "" {
		if _, ok := paymentMethods[t.PaymentMethod]; !ok {
			return ErrInvalidPayment
		}
	}
	if t.Status != "" {
		if _, ok := statuses[t.Status]; !ok {
			return ErrInvalidStatus
		}
	}
	return nil
}

// ApplyDefaults fills the metadata fields the caller left empty.
func (t *Transaction) ApplyDefaults(now time.Time) {
	if t.PaymentMethod == "" {
		t.PaymentMethod = PaymentOther
	}
	if t.Status == "" {
		t.Status = StatusCompleted
	}
	if t.Currency == "" {
		t.Currency = DefaultCurrency
	}
	if t.OccurredAt.IsZero() {
		t.OccurredAt = now
	}
}

// Delta returns the transaction's signed balance contribution.
func (t Transaction) Delta() Money {
	return t.Kind.Delta(t.Amount)
}

// Patch carries the fields of an amendment. Nil fields are left as they
// are; OwnerID and ID are immutable and have no patch field.
type Patch struct {
	Kind          *Kind
	AmountCents   *int64
	Category      *Category
	Description   *string
	PaymentMethod *PaymentMethod
	Status        *Status
	Currency      *string
	Tags          *[]string
	Location      *string
	OccurredAt    *time.Time
}

// Apply merges the patch into a copy of the transaction.
func (p Patch) Apply(t Transaction) Transaction {
	if p.Kind != nil {
		t.Kind = *p.Kind
	}
	if p.AmountCents != nil {
		t.Amount = Money{Cents: *p.AmountCents}
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.PaymentMethod != nil {
		t.PaymentMethod = *p.PaymentMethod
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Currency != nil {
		t.Currency = *p.Currency
	}
	if p.Tags != nil {
		t.Tags = *p.Tags
	}
	if p.Location != nil {
		t.Location = *p.Location
	}
	if p.OccurredAt != nil {
		t.OccurredAt = *p.OccurredAt
	}
	return t
}
