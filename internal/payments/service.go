package payments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vantagepos/licensing-backend/pkg/db/models"
	"github.com/vantagepos/licensing-backend/pkg/enums"
	pkgerrors "github.com/vantagepos/licensing-backend/pkg/errors"
	pkgpagination "github.com/vantagepos/licensing-backend/pkg/pagination"
)

// paymentSortColumns is the sortBy allow-list for the payments listing.
var paymentSortColumns = []string{"created_at", "payment_date", "amount", "payment_type"}

const defaultPaymentSort = "payment_date"

type paymentsRepository interface {
	Create(ctx context.Context, payment *models.Payment) (*models.Payment, error)
	List(ctx context.Context, opts ListQuery) ([]models.Payment, int64, error)
	SumByType(ctx context.Context) (map[enums.PaymentType]decimal.Decimal, error)
}

type licensesRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.License, error)
}

// Service records immutable payments and aggregates revenue.
type Service interface {
	RecordPayment(ctx context.Context, input RecordPaymentInput) (*models.Payment, error)
	ListPayments(ctx context.Context, params ListParams) (*ListResult, error)
	RevenueReport(ctx context.Context) (*RevenueReport, error)
}

// RecordPaymentInput captures the data a payment row requires.
type RecordPaymentInput struct {
	LicenseID            uuid.UUID
	Amount               decimal.Decimal
	IsAnnualSubscription bool
	PaymentType          enums.PaymentType
	AdditionalUsers      *int
}

// ListParams filters and pages the payment listing.
type ListParams struct {
	LicenseID *uuid.UUID
	Type      *enums.PaymentType
	pkgpagination.Params
}

// ListResult is a page of payments.
type ListResult struct {
	Items []models.Payment   `json:"items"`
	Meta  pkgpagination.Meta `json:"meta"`
}

// RevenueReport summarizes recorded revenue.
type RevenueReport struct {
	Total  decimal.Decimal                       `json:"total"`
	ByType map[enums.PaymentType]decimal.Decimal `json:"byType"`
}

type service struct {
	repo        paymentsRepository
	licenseRepo licensesRepository
	now         func() time.Time
}

// NewService wires a payment service with the provided repositories.
func NewService(repo paymentsRepository, licenseRepo licensesRepository, now func() time.Time) (Service, error) {
	if repo == nil {
		return nil, errors.New("payment repository required")
	}
	if licenseRepo == nil {
		return nil, errors.New("license repository required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{repo: repo, licenseRepo: licenseRepo, now: now}, nil
}

func (s *service) RecordPayment(ctx context.Context, input RecordPaymentInput) (*models.Payment, error) {
	if input.LicenseID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "license id is required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if !input.PaymentType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment type")
	}
	if input.PaymentType == enums.PaymentTypeUser {
		if input.AdditionalUsers == nil || *input.AdditionalUsers <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "user payments require a positive additional user count")
		}
	} else if input.AdditionalUsers != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "additional users only apply to user payments")
	}

	if _, err := s.licenseRepo.FindByID(ctx, input.LicenseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "license not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup license")
	}

	payment := &models.Payment{
		LicenseID:            input.LicenseID,
		Amount:               input.Amount,
		PaymentDate:          s.now().UTC(),
		IsAnnualSubscription: input.IsAnnualSubscription,
		PaymentType:          input.PaymentType,
		AdditionalUsers:      input.AdditionalUsers,
	}

	created, err := s.repo.Create(ctx, payment)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
	}
	return created, nil
}

func (s *service) ListPayments(ctx context.Context, params ListParams) (*ListResult, error) {
	page, err := params.Params.Normalize(defaultPaymentSort, paymentSortColumns)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid listing parameters")
	}
	if params.Type != nil && !params.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment type filter")
	}

	rows, total, err := s.repo.List(ctx, ListQuery{
		LicenseID: params.LicenseID,
		Type:      params.Type,
		Page:      page,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}
	return &ListResult{
		Items: rows,
		Meta:  pkgpagination.NewMeta(page.Page, page.PageSize, total),
	}, nil
}

func (s *service) RevenueReport(ctx context.Context) (*RevenueReport, error) {
	byType, err := s.repo.SumByType(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate payments")
	}
	total := decimal.Zero
	for _, amount := range byType {
		total = total.Add(amount)
	}
	return &RevenueReport{Total: total, ByType: byType}, nil
}
