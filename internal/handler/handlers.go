package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/yengrand82/Loan-Manager/internal/domain"
	"github.com/yengrand82/Loan-Manager/internal/infra/observability"
	"github.com/yengrand82/Loan-Manager/internal/service"
	"github.com/yengrand82/Loan-Manager/internal/stats"
	syncctl "github.com/yengrand82/Loan-Manager/internal/sync"
)

// Handler bundles the services behind the HTTP routes.
type Handler struct {
	auth         *service.AuthService
	borrowers    *service.BorrowerService
	loans        *service.LoanService
	payments     *service.PaymentService
	applications *service.ApplicationService
	messages     *service.MessageService
	stats        *stats.Aggregator
	sync         *syncctl.Controller
	metrics      *observability.Metrics
	logger       *zap.Logger
}

// NewHandler creates a Handler.
func NewHandler(
	auth *service.AuthService,
	borrowers *service.BorrowerService,
	loans *service.LoanService,
	payments *service.PaymentService,
	applications *service.ApplicationService,
	messages *service.MessageService,
	statsAgg *stats.Aggregator,
	sync *syncctl.Controller,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		auth:         auth,
		borrowers:    borrowers,
		loans:        loans,
		payments:     payments,
		applications: applications,
		messages:     messages,
		stats:        statsAgg,
		sync:         sync,
		metrics:      metrics,
		logger:       logger,
	}
}

// --- auth ---

type loginRequest struct {
	Role       string `json:"role"`
	Password   string `json:"password,omitempty"`
	BorrowerID string `json:"borrower_id,omitempty"`
}

type loginResponse struct {
	Token string `json:"token"`
	Role  string `json:"role"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var (
		token string
		err   error
	)
	switch req.Role {
	case service.RoleAdmin:
		token, err = h.auth.LoginAdmin(r.Context(), req.Password)
	case service.RoleBorrower:
		token, err = h.auth.LoginBorrower(r.Context(), req.BorrowerID)
	default:
		writeError(w, http.StatusBadRequest, "role must be admin or borrower")
		return
	}
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, Role: req.Role})
}

// --- borrowers ---

func (h *Handler) handleListBorrowers(w http.ResponseWriter, r *http.Request) {
	borrowers, err := h.borrowers.List(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, borrowers)
}

type createBorrowerRequest struct {
	Name        string                   `json:"name"`
	Email       string                   `json:"email,omitempty"`
	Contact     string                   `json:"contact,omitempty"`
	Address     string                   `json:"address,omitempty"`
	PhotoRef    string                   `json:"photo_ref,omitempty"`
	InitialLoan *createBorrowerLoanInput `json:"initial_loan,omitempty"`
}

type createBorrowerLoanInput struct {
	Principal decimal.Decimal `json:"principal"`
	Rate      decimal.Decimal `json:"rate"`
	Term      int             `json:"term"`
	Product   string          `json:"product"`
}

type createBorrowerResponse struct {
	Borrower domain.Borrower `json:"borrower"`
	Loan     *domain.Loan    `json:"loan,omitempty"`
}

func (h *Handler) handleCreateBorrower(w http.ResponseWriter, r *http.Request) {
	var req createBorrowerRequest
	if !decodeBody(w, r, &req) {
		return
	}

	in := service.CreateBorrowerInput{
		Name:     req.Name,
		Email:    req.Email,
		Contact:  req.Contact,
		Address:  req.Address,
		PhotoRef: req.PhotoRef,
	}
	if req.InitialLoan != nil {
		in.InitialLoan = &service.InitialLoanInput{
			Principal: req.InitialLoan.Principal,
			Rate:      req.InitialLoan.Rate,
			Term:      req.InitialLoan.Term,
			Product:   domain.ProductType(req.InitialLoan.Product),
		}
	}

	borrower, loan, err := h.borrowers.Create(r.Context(), in)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createBorrowerResponse{Borrower: borrower, Loan: loan})
}

func (h *Handler) handleGetBorrower(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, _ := sessionFrom(r.Context())
	if !canActFor(sess, id) {
		writeError(w, http.StatusForbidden, "not your borrower record")
		return
	}

	borrower, err := h.borrowers.Get(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, borrower)
}

type updateBorrowerRequest struct {
	Email    *string `json:"email,omitempty"`
	Contact  *string `json:"contact,omitempty"`
	Address  *string `json:"address,omitempty"`
	PhotoRef *string `json:"photo_ref,omitempty"`
}

func (h *Handler) handleUpdateBorrower(w http.ResponseWriter, r *http.Request) {
	var req updateBorrowerRequest
	if !decodeBody(w, r, &req) {
		return
	}

	err := h.borrowers.Update(r.Context(), chi.URLParam(r, "id"), service.UpdateBorrowerInput{
		Email:    req.Email,
		Contact:  req.Contact,
		Address:  req.Address,
		PhotoRef: req.PhotoRef,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSelectBorrower(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.borrowers.Get(r.Context(), id); err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.sync.SelectBorrower(id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSelectedBorrower(w http.ResponseWriter, r *http.Request) {
	borrower, ok := h.sync.Selected()
	if !ok {
		writeError(w, http.StatusNotFound, "no borrower selected")
		return
	}
	writeJSON(w, http.StatusOK, borrower)
}

// --- loans ---

func (h *Handler) handleListLoans(w http.ResponseWriter, r *http.Request) {
	borrowerID := r.URL.Query().Get("borrower_id")
	// Borrowers only ever see their own loans, whatever the query says.
	if sess, ok := sessionFrom(r.Context()); ok && sess.Role == service.RoleBorrower {
		borrowerID = sess.Subject
	}
	loans, err := h.loans.List(r.Context(), borrowerID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loans)
}

func (h *Handler) handleGetLoan(w http.ResponseWriter, r *http.Request) {
	loan, err := h.loans.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	sess, _ := sessionFrom(r.Context())
	if !canActFor(sess, loan.BorrowerID) {
		writeError(w, http.StatusForbidden, "not your loan")
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

func (h *Handler) handleLoanLedger(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	loan, err := h.loans.Get(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	sess, _ := sessionFrom(r.Context())
	if !canActFor(sess, loan.BorrowerID) {
		writeError(w, http.StatusForbidden, "not your loan")
		return
	}

	lgr, err := h.loans.Ledger(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lgr)
}

// --- payments ---

func (h *Handler) handleListPayments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	payments, err := h.payments.List(r.Context(), q.Get("loan_id"), q.Get("status"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payments)
}

type submitPaymentRequest struct {
	LoanID   string          `json:"loan_id"`
	Amount   decimal.Decimal `json:"amount"`
	Month    int             `json:"month"`
	ProofRef string          `json:"proof_ref,omitempty"`
}

func (r submitPaymentRequest) toInput() service.SubmitPaymentInput {
	return service.SubmitPaymentInput{
		LoanID:   r.LoanID,
		Amount:   r.Amount,
		Month:    r.Month,
		ProofRef: r.ProofRef,
	}
}

func (h *Handler) handleSubmitPayment(w http.ResponseWriter, r *http.Request) {
	var req submitPaymentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	loan, err := h.loans.Get(r.Context(), req.LoanID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	sess, _ := sessionFrom(r.Context())
	if !canActFor(sess, loan.BorrowerID) {
		writeError(w, http.StatusForbidden, "not your loan")
		return
	}

	payment, err := h.payments.Submit(r.Context(), req.toInput())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, payment)
}

func (h *Handler) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	var req submitPaymentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	payment, err := h.payments.Record(r.Context(), req.toInput())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, payment)
}

func (h *Handler) handleResolvePayment(w http.ResponseWriter, r *http.Request) {
	payment, err := h.payments.Resolve(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

// --- applications ---

func (h *Handler) handleListApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := h.applications.List(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apps)
}

type submitApplicationRequest struct {
	BorrowerID string          `json:"borrower_id"`
	Amount     decimal.Decimal `json:"amount"`
	Purpose    string          `json:"purpose,omitempty"`
	Term       int             `json:"term"`
	Income     decimal.Decimal `json:"income"`
	Employment string          `json:"employment,omitempty"`
}

func (h *Handler) handleSubmitApplication(w http.ResponseWriter, r *http.Request) {
	var req submitApplicationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	sess, _ := sessionFrom(r.Context())
	if !canActFor(sess, req.BorrowerID) {
		writeError(w, http.StatusForbidden, "cannot apply for another borrower")
		return
	}

	app, err := h.applications.Submit(r.Context(), service.SubmitApplicationInput{
		BorrowerID: req.BorrowerID,
		Amount:     req.Amount,
		Purpose:    req.Purpose,
		Term:       req.Term,
		Income:     req.Income,
		Employment: req.Employment,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, app)
}

type approveApplicationRequest struct {
	Rate    decimal.Decimal `json:"rate"`
	Product string          `json:"product"`
}

func (h *Handler) handleApproveApplication(w http.ResponseWriter, r *http.Request) {
	var req approveApplicationRequest
	if !decodeBody(w, r, &req) {
		return
	}

	loan, err := h.applications.Approve(r.Context(), chi.URLParam(r, "id"), req.Rate, domain.ProductType(req.Product))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, loan)
}

func (h *Handler) handleRejectApplication(w http.ResponseWriter, r *http.Request) {
	if err := h.applications.Reject(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- messages ---

func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	borrowerID := chi.URLParam(r, "id")
	sess, _ := sessionFrom(r.Context())
	if !canActFor(sess, borrowerID) {
		writeError(w, http.StatusForbidden, "not your thread")
		return
	}

	msgs, err := h.messages.List(r.Context(), borrowerID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

type sendMessageRequest struct {
	Body string `json:"body"`
}

func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	borrowerID := chi.URLParam(r, "id")
	sess, _ := sessionFrom(r.Context())
	if !canActFor(sess, borrowerID) {
		writeError(w, http.StatusForbidden, "not your thread")
		return
	}

	var req sendMessageRequest
	if !decodeBody(w, r, &req) {
		return
	}

	sender := domain.SenderBorrower
	if sess.Role == service.RoleAdmin {
		sender = domain.SenderAdmin
	}
	msg, err := h.messages.Send(r.Context(), borrowerID, sender, req.Body)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

// --- stats, sync, health ---

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	result := h.stats.Aggregate(h.sync.Snapshot(), time.Now().UTC())
	h.metrics.RecordRequestDuration("stats_aggregate", time.Since(start))
	writeJSON(w, http.StatusOK, result)
}

type refreshResponse struct {
	Applied bool `json:"applied"`
}

func (h *Handler) handleSyncRefresh(w http.ResponseWriter, r *http.Request) {
	composing := r.URL.Query().Get("composing") == "true"
	applied, err := h.sync.Refresh(r.Context(), composing)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, refreshResponse{Applied: applied})
}

func (h *Handler) handleSyncMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.metrics.GetSyncSnapshot())
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadyz reports ready once at least one snapshot has been applied.
func (h *Handler) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if h.sync.Snapshot().FetchedAt.IsZero() {
		writeError(w, http.StatusServiceUnavailable, "no snapshot applied yet")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
