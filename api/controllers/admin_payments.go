package controllers

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vantagepos/licensing-backend/api/responses"
	"github.com/vantagepos/licensing-backend/api/validators"
	"github.com/vantagepos/licensing-backend/internal/payments"
	"github.com/vantagepos/licensing-backend/pkg/enums"
	pkgerrors "github.com/vantagepos/licensing-backend/pkg/errors"
	"github.com/vantagepos/licensing-backend/pkg/logger"
)

type paymentRecordRequest struct {
	LicenseID            string          `json:"licenseId" validate:"required"`
	Amount               decimal.Decimal `json:"amount" validate:"required"`
	IsAnnualSubscription bool            `json:"isAnnualSubscription"`
	PaymentType          string          `json:"paymentType" validate:"required"`
	AdditionalUsers      *int            `json:"additionalUsers"`
}

// PaymentList pages through payments.
func PaymentList(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		page, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := payments.ListParams{Params: page}
		if raw := strings.TrimSpace(r.URL.Query().Get("licenseId")); raw != "" {
			id, err := validators.ParseUUIDParam(raw, "licenseId")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			params.LicenseID = &id
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("type")); raw != "" {
			paymentType, err := enums.ParsePaymentType(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment type filter"))
				return
			}
			params.Type = &paymentType
		}

		result, err := svc.ListPayments(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// PaymentRecord appends a payment row.
func PaymentRecord(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		var payload paymentRecordRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		licenseID, err := validators.ParseUUIDParam(payload.LicenseID, "licenseId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		paymentType, err := enums.ParsePaymentType(payload.PaymentType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment type"))
			return
		}

		created, err := svc.RecordPayment(r.Context(), payments.RecordPaymentInput{
			LicenseID:            licenseID,
			Amount:               payload.Amount,
			IsAnnualSubscription: payload.IsAnnualSubscription,
			PaymentType:          paymentType,
			AdditionalUsers:      payload.AdditionalUsers,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

// PaymentRevenue reports total revenue broken down by payment type.
func PaymentRevenue(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		report, err := svc.RevenueReport(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}
