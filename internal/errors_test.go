package internal_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/subscription-billing/internal"
)

var _ = Describe("AppError", func() {
	It("should be found through wrapped errors", func() {
		wrapped := fmt.Errorf("confirm: %w", internal.ErrPaymentNotFound)

		appErr, ok := internal.IsAppError(wrapped)

		Expect(ok).To(BeTrue())
		Expect(appErr.StatusCode).To(Equal(http.StatusNotFound))
		Expect(appErr.Code).To(Equal(internal.ErrCodePaymentNotFound))
	})

	It("should keep the confirmation failure cause out of the JSON body", func() {
		appErr := internal.NewConfirmationFailedError(errors.New("pq: relation does not exist"))

		body, err := json.Marshal(appErr)

		Expect(err).NotTo(HaveOccurred())
		Expect(string(body)).NotTo(ContainSubstring("relation"))
		Expect(string(body)).To(ContainSubstring(string(internal.ErrCodeConfirmationFailed)))
		Expect(errors.Unwrap(appErr)).To(MatchError("pq: relation does not exist"))
	})

	It("should map cancelled payments to bad request", func() {
		status, _ := internal.ErrPaymentCancelled.ToHTTPResponse()

		Expect(status).To(Equal(http.StatusBadRequest))
	})
})
