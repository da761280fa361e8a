package paymentservice

import (
	"context"

	"github.com/RozoAI/api-proxy-sub001/internal/domain"
)

type IPaymentService interface {
	CreatePayment(ctx context.Context, req *domain.PaymentRequest) (*domain.PaymentResponse, error)
	GetPayment(ctx context.Context, id string) (*domain.PaymentResponse, error)
	StartReconciliationLoop(ctx context.Context) error
}
