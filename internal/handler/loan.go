package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/segyhp/microcredit-engine/internal/domain"
	"github.com/segyhp/microcredit-engine/internal/service"
	customError "github.com/segyhp/microcredit-engine/pkg/errors"
	"github.com/segyhp/microcredit-engine/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

type LoanHandler struct {
	service   *service.LoanService
	validator *validator.Validate
}

func NewLoanHandler(service *service.LoanService) *LoanHandler {
	return &LoanHandler{
		service:   service,
		validator: validator.New(),
	}
}

// writeError maps the business error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	code := customError.CodeOf(err)
	switch code {
	case customError.ErrCodeValidation:
		response.ErrorWithCode(w, http.StatusBadRequest, code, err)
	case customError.ErrCodeNotFound:
		response.ErrorWithCode(w, http.StatusNotFound, code, err)
	case customError.ErrCodeConflict:
		response.ErrorWithCode(w, http.StatusConflict, code, err)
	default:
		response.ErrorWithCode(w, http.StatusInternalServerError, code, err)
	}
}

func (h *LoanHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		response.BadRequest(w, "request validation failed", err)
		return false
	}
	return true
}

// CreateLoan handles POST /loans
func (h *LoanHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var request domain.CreateLoanRequest
	if !h.decode(w, r, &request) {
		return
	}

	result, err := h.service.Create(r.Context(), &request)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Created(w, result)
}

// UpdateLoan handles PUT /loans/{loanId}
func (h *LoanHandler) UpdateLoan(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	var request domain.UpdateLoanRequest
	if !h.decode(w, r, &request) {
		return
	}

	loan, err := h.service.Update(r.Context(), loanID, &request)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, loan)
}

// SimulateLoan handles POST /loans/simulate
func (h *LoanHandler) SimulateLoan(w http.ResponseWriter, r *http.Request) {
	var request domain.SimulateLoanRequest
	if !h.decode(w, r, &request) {
		return
	}

	result, err := h.service.Simulate(r.Context(), &request)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, result)
}

// SubmitLoan handles POST /loans/{loanId}/submit
func (h *LoanHandler) SubmitLoan(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Submit)
}

// RejectLoan handles POST /loans/{loanId}/reject
func (h *LoanHandler) RejectLoan(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Reject)
}

// CancelLoan handles POST /loans/{loanId}/cancel
func (h *LoanHandler) CancelLoan(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Cancel)
}

func (h *LoanHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	apply func(ctx context.Context, loanID string, request *domain.TransitionRequest) error,
) {
	loanID := mux.Vars(r)["loanId"]

	var request domain.TransitionRequest
	if !h.decode(w, r, &request) {
		return
	}

	if err := apply(r.Context(), loanID, &request); err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, map[string]string{"loan_id": loanID})
}

// ApproveLoan handles POST /loans/{loanId}/approve
func (h *LoanHandler) ApproveLoan(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	var request domain.TransitionRequest
	if !h.decode(w, r, &request) {
		return
	}

	result, err := h.service.Approve(r.Context(), loanID, &request)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Created(w, result)
}

// RecordPayment handles POST /loans/{loanId}/payments
func (h *LoanHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	var request domain.RecordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	result, err := h.service.RecordPayment(r.Context(), loanID, &request)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, result)
}

// GetLoan handles GET /loans/{loanId}
func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	loan, family, err := h.service.Get(r.Context(), loanID)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, map[string]interface{}{
		"loan":   loan,
		"family": family,
	})
}

// GetSchedule handles GET /loans/{loanId}/schedule
func (h *LoanHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	result, err := h.service.GetSchedule(r.Context(), loanID)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, result)
}

// GetStatus handles GET /loans/{loanId}/status
func (h *LoanHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	result, err := h.service.Status(r.Context(), loanID)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, result)
}
