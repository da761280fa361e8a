package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RozoAI/api-proxy-sub001/internal/domain"
)

type fakePaymentService struct {
	createCalls int
	getCalls    int
	resp        *domain.PaymentResponse
	err         error
}

func (f *fakePaymentService) CreatePayment(ctx context.Context, req *domain.PaymentRequest) (*domain.PaymentResponse, error) {
	f.createCalls++
	return f.resp, f.err
}

func (f *fakePaymentService) GetPayment(ctx context.Context, id string) (*domain.PaymentResponse, error) {
	f.getCalls++
	return f.resp, f.err
}

func (f *fakePaymentService) StartReconciliationLoop(ctx context.Context) error { return nil }

func setupPaymentRouter(svc *fakePaymentService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	registerValidations()

	router := gin.New()
	handler := NewPaymentHandler(svc, zerolog.Nop())
	router.POST("/v1/payments", handler.CreatePayment)
	router.GET("/v1/payments/:id", handler.GetPayment)
	return router
}

func postPayment(t *testing.T, router *gin.Engine, body map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/payments", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func paymentBody(amountUnits string) map[string]interface{} {
	return map[string]interface{}{
		"display": map[string]interface{}{"intent": "Coffee"},
		"destination": map[string]interface{}{
			"destinationAddress": "0x1111111111111111111111111111111111111111",
			"chainId":            "base",
			"amountUnits":        amountUnits,
		},
	}
}

func TestCreatePaymentBinding(t *testing.T) {
	t.Run("valid request reaches the service", func(t *testing.T) {
		svc := &fakePaymentService{resp: &domain.PaymentResponse{ID: "pay-1", Status: domain.PaymentStatusUnpaid}}
		router := setupPaymentRouter(svc)

		w := postPayment(t, router, paymentBody("10.50"))
		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, 1, svc.createCalls)
	})

	rejected := []struct {
		name   string
		amount string
	}{
		{"non-decimal amount", "ten dollars"},
		{"negative amount", "-5"},
		{"zero amount", "0"},
	}
	for _, tt := range rejected {
		t.Run(tt.name+" rejected at the binding", func(t *testing.T) {
			svc := &fakePaymentService{}
			router := setupPaymentRouter(svc)

			w := postPayment(t, router, paymentBody(tt.amount))
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Zero(t, svc.createCalls)
		})
	}

	t.Run("missing intent rejected at the binding", func(t *testing.T) {
		svc := &fakePaymentService{}
		router := setupPaymentRouter(svc)

		body := paymentBody("10.50")
		body["display"] = map[string]interface{}{}

		w := postPayment(t, router, body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Zero(t, svc.createCalls)
	})
}

func TestGetPaymentStatusMapping(t *testing.T) {
	svc := &fakePaymentService{err: domain.ErrPaymentNotFound}
	router := setupPaymentRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/v1/payments/ghost", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 1, svc.getCalls)
}
