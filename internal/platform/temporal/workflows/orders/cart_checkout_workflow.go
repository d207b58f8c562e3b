package orders

import (
	"go.temporal.io/sdk/workflow"

	orderstypes "github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/application/types"
	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/domain"
	"github.com/seboge-Atlegang/part3Cloud/internal/platform/temporal/sequences"
)

const (
	// CartCheckoutWorkflowName is the public identifier for registering the workflow.
	CartCheckoutWorkflowName = "orders.workflows.CartCheckout"
	// CartCheckoutTaskQueue is the queue consumed by the worker processing checkouts.
	CartCheckoutTaskQueue = "ORDER_CHECKOUT"
)

// CartCheckoutWorkflowInput captures the checkout request plus the caller's trace id.
type CartCheckoutWorkflowInput struct {
	Command orderstypes.PlaceCartOrderInput
	TraceID string
}

// CartCheckoutWorkflow runs an all-or-nothing cart checkout as a saga.
func CartCheckoutWorkflow(ctx workflow.Context, input CartCheckoutWorkflowInput) (*domain.Order, error) {
	logger := workflow.GetLogger(ctx)
	customerID := input.Command.CustomerID
	logger.Info("CartCheckoutWorkflow started", withTraceID(input.TraceID, "customerId", customerID)...)
	order, err := sequences.RunCartCheckoutSequence(ctx, input.Command)
	if err != nil {
		logger.Error("CartCheckoutWorkflow failed", withTraceID(input.TraceID, "customerId", customerID, "error", err)...)
		return nil, err
	}
	logger.Info("CartCheckoutWorkflow completed", withTraceID(input.TraceID, "orderId", order.ID)...)
	return order, nil
}

func withTraceID(traceID string, keyvals ...interface{}) []interface{} {
	if traceID == "" {
		return keyvals
	}
	return append(keyvals, "traceId", traceID)
}
