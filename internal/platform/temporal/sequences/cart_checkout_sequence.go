package sequences

import (
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	orderstypes "github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/application/types"
	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/domain"
	orderactivities "github.com/seboge-Atlegang/part3Cloud/internal/platform/temporal/activities/orders"
)

// RunCartCheckoutSequence reserves every cart line, records the order and announces it.
// A failure before the order is recorded releases all reservations in reverse order.
// Reservation keys and the order id derive from the workflow id, so activity
// retries never take stock or write an order twice.
func RunCartCheckoutSequence(ctx workflow.Context, input orderstypes.PlaceCartOrderInput) (*domain.Order, error) {
	logger := workflow.GetLogger(ctx)
	customerID := input.CustomerID
	workflowID := workflow.GetInfo(ctx).WorkflowExecution.ID
	logger.Info("cart checkout sequence started", "customerId", customerID, "lines", len(input.Items))
	stepOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    3,
		},
	}
	announceOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 15 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    5 * time.Second,
			MaximumAttempts:    2,
		},
	}
	stepCtx := workflow.WithActivityOptions(ctx, stepOptions)

	var items []orderstypes.CartItem
	if err := workflow.ExecuteActivity(stepCtx, orderactivities.PrepareCheckoutActivityName, input).Get(ctx, &items); err != nil {
		logger.Warn("cart checkout sequence rejected", "customerId", customerID, "error", err)
		return nil, err
	}

	reservations := make([]orderstypes.Reservation, 0, len(items))
	for _, item := range items {
		reserveInput := orderactivities.ReserveLineInput{ReservationKey: ReservationKey(workflowID, item.ProductID), Item: item}
		var reservation orderstypes.Reservation
		if err := workflow.ExecuteActivity(stepCtx, orderactivities.ReserveLineActivityName, reserveInput).Get(ctx, &reservation); err != nil {
			logger.Warn("cart checkout sequence reservation failed", "customerId", customerID, "productId", item.ProductID, "error", err)
			// A timed-out attempt may still have taken stock under this key.
			pending := orderstypes.Reservation{Key: reserveInput.ReservationKey, ProductID: item.ProductID, Quantity: item.Quantity}
			releaseReservations(ctx, append(reservations, pending))
			return nil, err
		}
		reservations = append(reservations, reservation)
	}

	var order domain.Order
	recordInput := orderactivities.RecordOrderInput{OrderID: CheckoutOrderID(workflowID), CustomerID: customerID, Reservations: reservations}
	if err := workflow.ExecuteActivity(stepCtx, orderactivities.RecordOrderActivityName, recordInput).Get(ctx, &order); err != nil {
		logger.Error("cart checkout sequence failed to record order", "customerId", customerID, "error", err)
		releaseReservations(ctx, reservations)
		return nil, err
	}
	logger.Info("cart checkout sequence recorded order", "orderId", order.ID)

	announceInput := orderactivities.AnnouncePlacementInput{OrderID: order.ID, Reservations: reservations}
	if err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, announceOptions), orderactivities.AnnouncePlacementActivityName, announceInput).Get(ctx, nil); err != nil {
		logger.Warn("cart checkout sequence announcement failed", "orderId", order.ID, "error", err)
	}
	return &order, nil
}

// releaseReservations runs on a disconnected context so a cancelled workflow still compensates.
func releaseReservations(ctx workflow.Context, reservations []orderstypes.Reservation) {
	if len(reservations) == 0 {
		return
	}
	logger := workflow.GetLogger(ctx)
	compensationCtx, _ := workflow.NewDisconnectedContext(ctx)
	compensationCtx = workflow.WithActivityOptions(compensationCtx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    10,
		},
	})
	for i := len(reservations) - 1; i >= 0; i-- {
		reservation := reservations[i]
		if err := workflow.ExecuteActivity(compensationCtx, orderactivities.ReleaseLineActivityName, reservation).Get(compensationCtx, nil); err != nil {
			logger.Error("stock compensation failed", "productId", reservation.ProductID, "quantity", reservation.Quantity, "error", err)
		}
	}
}

// ReservationKey names the stock hold one checkout takes on one product.
func ReservationKey(workflowID, productID string) string {
	return workflowID + "/" + productID
}

// CheckoutOrderID is the order id a checkout workflow records under.
func CheckoutOrderID(workflowID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("orders/checkout/"+workflowID)).String()
}
