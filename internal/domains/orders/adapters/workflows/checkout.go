package workflows

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	oteltrace "go.opentelemetry.io/otel/trace"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/converter"

	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/application"
	orderstypes "github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/application/types"
	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/domain"
	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/ports"
	orderactivities "github.com/seboge-Atlegang/part3Cloud/internal/platform/temporal/activities/orders"
	orderworkflows "github.com/seboge-Atlegang/part3Cloud/internal/platform/temporal/workflows/orders"
)

const requestHashMemo = "requestHash"

var (
	_ ports.CheckoutOrchestrator = (*TemporalCheckouts)(nil)
	_ ports.CheckoutOrchestrator = (*InlineCheckouts)(nil)
)

// TemporalCheckouts runs cart checkouts as durable sagas on a Temporal cluster.
type TemporalCheckouts struct {
	client    client.Client
	taskQueue string
}

func NewTemporalCheckouts(c client.Client) *TemporalCheckouts {
	return &TemporalCheckouts{client: c, taskQueue: orderworkflows.CartCheckoutTaskQueue}
}

// PlaceCartOrder starts the checkout workflow and waits for its result. Keyed
// requests map to one workflow id, so a retried request joins the earlier run.
func (o *TemporalCheckouts) PlaceCartOrder(ctx context.Context, input orderstypes.PlaceCartOrderInput) (*domain.Order, error) {
	if o == nil || o.client == nil {
		return nil, errors.New("temporal checkouts not configured")
	}
	key := strings.TrimSpace(input.IdempotencyKey)
	requestHash, err := application.FingerprintPlaceCartOrder(input)
	if err != nil {
		return nil, err
	}
	traceComponent := workflowTraceComponent(ctx)
	workflowID := buildCheckoutWorkflowID(key, traceComponent)
	options := client.StartWorkflowOptions{
		ID:                                       workflowID,
		TaskQueue:                                o.taskQueue,
		WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
		Memo:                                     map[string]interface{}{requestHashMemo: requestHash},
	}
	run, err := o.client.ExecuteWorkflow(
		ctx,
		options,
		orderworkflows.CartCheckoutWorkflowName,
		orderworkflows.CartCheckoutWorkflowInput{Command: input, TraceID: traceComponent},
	)
	if err != nil {
		var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &alreadyStarted) && key != "" {
			return o.joinExisting(ctx, workflowID, alreadyStarted.RunId, key, requestHash)
		}
		return nil, err
	}
	var order domain.Order
	if err := run.Get(ctx, &order); err != nil {
		return nil, orderactivities.FromApplicationError(err)
	}
	return &order, nil
}

func (o *TemporalCheckouts) joinExisting(ctx context.Context, workflowID, runID, key, requestHash string) (*domain.Order, error) {
	desc, err := o.client.DescribeWorkflowExecution(ctx, workflowID, runID)
	if err != nil {
		return nil, err
	}
	if payload, ok := desc.GetWorkflowExecutionInfo().GetMemo().GetFields()[requestHashMemo]; ok {
		var stored string
		if err := converter.GetDefaultDataConverter().FromPayload(payload, &stored); err != nil {
			return nil, err
		}
		if stored != requestHash {
			return nil, fmt.Errorf("%w: key %q was used for a different request", application.ErrIdempotencyConflict, key)
		}
	}
	var order domain.Order
	if err := o.client.GetWorkflow(ctx, workflowID, runID).Get(ctx, &order); err != nil {
		return nil, orderactivities.FromApplicationError(err)
	}
	return &order, nil
}

// InlineCheckouts runs checkouts in-process, useful for tests or when Temporal is unavailable.
type InlineCheckouts struct {
	service ports.Service
}

func NewInlineCheckouts(service ports.Service) *InlineCheckouts {
	return &InlineCheckouts{service: service}
}

func (o *InlineCheckouts) PlaceCartOrder(ctx context.Context, input orderstypes.PlaceCartOrderInput) (*domain.Order, error) {
	if o == nil || o.service == nil {
		return nil, errors.New("inline checkouts not configured")
	}
	return o.service.PlaceCartOrder(ctx, input)
}

func buildCheckoutWorkflowID(key, traceComponent string) string {
	if key != "" {
		return fmt.Sprintf("cart-checkout-idem-%s", hashIdempotencyKey(key))
	}
	return fmt.Sprintf("cart-checkout-%s-%s", uuid.NewString(), traceComponent)
}

func hashIdempotencyKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:8])
}

func workflowTraceComponent(ctx context.Context) string {
	if traceID := workflowTraceID(ctx); traceID != "" {
		return traceID
	}
	return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
}

func workflowTraceID(ctx context.Context) string {
	spanCtx := oteltrace.SpanFromContext(ctx).SpanContext()
	if !spanCtx.IsValid() {
		return ""
	}
	return spanCtx.TraceID().String()
}
