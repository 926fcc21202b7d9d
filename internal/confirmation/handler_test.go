package confirmation_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/frahmantamala/subscription-billing/internal"
	"github.com/frahmantamala/subscription-billing/internal/confirmation"
	"github.com/frahmantamala/subscription-billing/internal/payment"
)

type stubService struct {
	result  *confirmation.Result
	err     error
	lastReq confirmation.Request
}

func (s *stubService) ConfirmPayment(_ context.Context, req confirmation.Request) (*confirmation.Result, error) {
	s.lastReq = req
	return s.result, s.err
}

type stubStatus struct {
	status *payment.Status
	err    error
}

func (s *stubStatus) Get(_ context.Context, id int64) (*payment.Status, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.status == nil || s.status.PaymentID != id {
		return nil, payment.ErrNotFound
	}
	return s.status, nil
}

var _ = Describe("Confirmation Handler", func() {
	var (
		service *stubService
		status  *stubStatus
		router  *chi.Mux
	)

	mount := func(expose bool) {
		handler := confirmation.NewHandler(service, status, expose)
		handler.Logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		router = chi.NewRouter()
		router.Post("/api/v1/payments/confirm", handler.ConfirmPayment)
		router.Get("/api/v1/payments/{id}", handler.GetPaymentStatus)
	}

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/confirm", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	decodeError := func(w *httptest.ResponseRecorder) map[string]interface{} {
		var body map[string]interface{}
		Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
		Expect(body).To(HaveKey("error"))
		return body
	}

	BeforeEach(func() {
		service = &stubService{}
		status = &stubStatus{}
		mount(false)
	})

	Describe("POST /payments/confirm", func() {
		It("returns the confirmation result", func() {
			// Given
			service.result = &confirmation.Result{
				Outcome:         confirmation.OutcomeCompleted,
				State:           confirmation.StateCompleted,
				PaymentID:       10,
				EntityID:        3,
				AccessLiberated: true,
				LoginLiberated:  true,
				Effects:         []confirmation.Effect{confirmation.EffectPaymentConfirmed},
			}

			// When
			w := post(`{"payment_id":10,"payment_method":"pix","installment_count":2}`)

			// Then
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("Content-Type")).To(ContainSubstring("application/json"))
			Expect(service.lastReq.PaymentID).To(Equal(int64(10)))
			Expect(service.lastReq.Method).To(Equal("pix"))
			Expect(service.lastReq.InstallmentCount).To(Equal(2))

			var body map[string]interface{}
			Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
			Expect(body).To(HaveKeyWithValue("payment_id", BeNumerically("==", 10)))
			Expect(body).To(HaveKeyWithValue("access_liberated", true))
		})

		It("defaults to a single installment", func() {
			service.result = &confirmation.Result{Outcome: confirmation.OutcomeCompleted}

			w := post(`{"payment_id":10}`)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(service.lastReq.InstallmentCount).To(Equal(1))
		})

		It("rejects a malformed body", func() {
			w := post(`{"payment_id":`)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
			body := decodeError(w)
			Expect(body["error"]).To(HaveKeyWithValue("code", string(internal.ErrCodeValidationFailed)))
		})

		DescribeTable("maps service errors to status codes",
			func(err error, expectedStatus int, expectedCode internal.ErrorCode) {
				service.err = err

				w := post(`{"payment_id":10}`)

				Expect(w.Code).To(Equal(expectedStatus))
				body := decodeError(w)
				Expect(body["error"]).To(HaveKeyWithValue("code", string(expectedCode)))
			},
			Entry("missing payment", internal.ErrPaymentNotFound, http.StatusNotFound, internal.ErrCodePaymentNotFound),
			Entry("cancelled payment", internal.ErrPaymentCancelled, http.StatusBadRequest, internal.ErrCodePaymentCancelled),
			Entry("compensated failure", internal.NewConfirmationFailedError(errors.New("disk full")), http.StatusInternalServerError, internal.ErrCodeConfirmationFailed),
		)

		It("keeps the failure cause out of the response by default", func() {
			service.err = internal.NewConfirmationFailedError(errors.New("disk full"))

			w := post(`{"payment_id":10}`)

			Expect(w.Code).To(Equal(http.StatusInternalServerError))
			Expect(w.Body.String()).NotTo(ContainSubstring("disk full"))
		})

		It("adds the failure cause when details are exposed", func() {
			mount(true)
			service.err = internal.NewConfirmationFailedError(errors.New("disk full"))

			w := post(`{"payment_id":10}`)

			Expect(w.Code).To(Equal(http.StatusInternalServerError))
			body := decodeError(w)
			Expect(body).To(HaveKeyWithValue("detail", "disk full"))
		})

		It("hides errors that are not application errors", func() {
			service.err = errors.New("connection reset by peer")

			w := post(`{"payment_id":10}`)

			Expect(w.Code).To(Equal(http.StatusInternalServerError))
			Expect(w.Body.String()).NotTo(ContainSubstring("connection reset"))
		})
	})

	Describe("GET /payments/{id}", func() {
		BeforeEach(func() {
			method := "pix"
			status.status = &payment.Status{
				PaymentID:        7,
				Status:           "paid",
				Amount:           decimal.RequireFromString("300.00"),
				Method:           &method,
				InstallmentCount: 3,
				EntityID:         2,
				EntityName:       "Clinica Boa Saude",
				PaymentConfirmed: true,
				EntityActive:     true,
			}
		})

		It("returns the payment status", func() {
			w := get("/api/v1/payments/7")

			Expect(w.Code).To(Equal(http.StatusOK))
			var body payment.Status
			Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
			Expect(body.Status).To(Equal("paid"))
			Expect(body.Amount.Equal(decimal.RequireFromString("300"))).To(BeTrue())
			Expect(body.EntityActive).To(BeTrue())
		})

		It("returns 404 for an unknown payment", func() {
			w := get("/api/v1/payments/8")

			Expect(w.Code).To(Equal(http.StatusNotFound))
			body := decodeError(w)
			Expect(body["error"]).To(HaveKeyWithValue("code", string(internal.ErrCodePaymentNotFound)))
		})

		It("rejects a non numeric id", func() {
			w := get("/api/v1/payments/abc")

			Expect(w.Code).To(Equal(http.StatusBadRequest))
			body := decodeError(w)
			Expect(body["error"]).To(HaveKeyWithValue("code", string(internal.ErrCodeValidationFailed)))
		})

		It("hides read failures", func() {
			status.err = errors.New("relation payments does not exist")

			w := get("/api/v1/payments/7")

			Expect(w.Code).To(Equal(http.StatusInternalServerError))
			Expect(w.Body.String()).NotTo(ContainSubstring("relation"))
		})
	})
})
