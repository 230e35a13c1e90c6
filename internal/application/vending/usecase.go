package vending

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	dombus "github.com/pivend/vend/internal/domain/bus"
	domhardware "github.com/pivend/vend/internal/domain/hardware"
	dominventory "github.com/pivend/vend/internal/domain/inventory"
	dompayment "github.com/pivend/vend/internal/domain/payment"
	domsale "github.com/pivend/vend/internal/domain/sale"
	"github.com/pivend/vend/internal/observability"
	"github.com/pivend/vend/internal/observability/logctx"
)

const (
	vendingService  = "vending-service"
	useCasePurchase = "vending.purchase"
	spanPrefix      = "UC."
)

var (
	// ErrValidation marks malformed caller input, rejected before any sale
	// record exists.
	ErrValidation = errors.New("validation")
	ErrRepository = errors.New("vending: repository failure")
)

// PurchaseUseCase coordinates one purchase attempt end to end:
// Validating -> Authorizing -> Reserving -> Dispensing -> Committed, with a
// compensation path (Compensating -> Failed) when dispensing fails after the
// stock was already reserved. Every attempt that passes input validation
// produces exactly one sale record.
type PurchaseUseCase struct {
	ledger     Ledger
	sales      domsale.Repository
	authorizer dompayment.Authorizer
	driver     domhardware.Driver
	idGen      IDGenerator
	publisher  dombus.Publisher
	tel        observability.Observability

	log observability.Logger

	reqCounter       observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram     observability.Histogram // usecase_duration_seconds{use_case}
	dispenseFailures observability.Counter   // dispense_failures_total{slot_code}
	compensations    observability.Counter   // stock_compensations_total{slot_code}

	// Serializes the check-then-decrement window per product so two
	// concurrent attempts cannot both pass the sufficiency check.
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func NewPurchaseUseCase(
	ledger Ledger,
	sales domsale.Repository,
	authorizer dompayment.Authorizer,
	driver domhardware.Driver,
	idGen IDGenerator,
	publisher dombus.Publisher,
	tel observability.Observability,
) *PurchaseUseCase {
	if tel == nil {
		tel = observability.Nop()
	}

	baseLog := tel.Logger().With(
		observability.F("service", vendingService),
	)
	metrics := tel.Metrics()

	return &PurchaseUseCase{
		ledger:           ledger,
		sales:            sales,
		authorizer:       authorizer,
		driver:           driver,
		idGen:            idGen,
		publisher:        publisher,
		tel:              tel,
		log:              baseLog,
		reqCounter:       metrics.Counter(observability.MUsecaseRequests),
		durHistogram:     metrics.Histogram(observability.MUsecaseDuration),
		dispenseFailures: metrics.Counter(observability.MDispenseFailures),
		compensations:    metrics.Counter(observability.MStockCompensations),
		locks:            make(map[string]*sync.Mutex),
	}
}

type PurchaseInput struct {
	ProductID     string
	Quantity      int
	PaymentMethod string
	AmountPaid    decimal.Decimal
}

// Execute runs one purchase attempt. Business failures (product unavailable,
// insufficient stock, payment rejected, hardware failure) are not errors: they
// come back as a recorded failed sale. An error return means the input was
// malformed or the ledger itself misbehaved.
func (uc *PurchaseUseCase) Execute(ctx context.Context, cmd PurchaseInput) (_ *domsale.Sale, err error) {
	logger := logctx.FromOr(ctx, uc.log).With(observability.F("use_case", useCasePurchase))

	ctx, span := uc.tel.Tracer().Start(ctx, spanPrefix+"Purchase",
		attribute.String("use_case", useCasePurchase),
		attribute.String("product.id", cmd.ProductID),
		attribute.Int("purchase.quantity", cmd.Quantity),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"

	defer func() {
		lat := time.Since(start).Seconds()

		if span != nil {
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, statusText)
			} else {
				span.SetStatus(codes.Ok, statusText)
			}
			span.End()
		}

		uc.reqCounter.Add(1,
			observability.L("use_case", useCasePurchase),
			observability.L("outcome", outcome),
		)
		uc.durHistogram.Observe(lat,
			observability.L("use_case", useCasePurchase),
		)

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", statusText),
			observability.F("latency_seconds", lat),
		}
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			fields = append(fields,
				observability.F("trace_id", sc.TraceID().String()),
				observability.F("span_id", sc.SpanID().String()),
			)
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
		}

		logger.Info("use_case_done", fields...)
	}()

	// Validating: input shape. Rejected before any mutation, no sale exists.
	if cmd.ProductID == "" {
		outcome, statusText = "error", "PRODUCT_ID_REQUIRED"
		return nil, newValidation("product id is required")
	}
	if cmd.Quantity <= 0 {
		outcome, statusText = "error", "QUANTITY_INVALID"
		return nil, newValidation("quantity must be greater than zero")
	}
	if strings.TrimSpace(cmd.PaymentMethod) == "" {
		outcome, statusText = "error", "PAYMENT_METHOD_REQUIRED"
		return nil, newValidation("payment method is required")
	}
	if !cmd.AmountPaid.IsPositive() {
		outcome, statusText = "error", "AMOUNT_PAID_INVALID"
		return nil, newValidation("amount paid must be greater than zero")
	}
	if err := ctx.Err(); err != nil {
		outcome, statusText = "error", "CONTEXT_CANCELED"
		return nil, err
	}

	// The product lock covers Validating through Reserving. It is released
	// before Dispensing: the decrement is the serialization point, the
	// hardware call must not extend it.
	mu := uc.productLock(cmd.ProductID)
	mu.Lock()
	locked := true
	unlock := func() {
		if locked {
			locked = false
			mu.Unlock()
		}
	}
	defer unlock()

	// Validating: product availability and stock sufficiency.
	product, err := uc.ledger.GetProduct(ctx, cmd.ProductID)
	switch {
	case errors.Is(err, dominventory.ErrNotFound):
		outcome, statusText = "failed", "PRODUCT_UNAVAILABLE"
		return uc.recordFailure(ctx, span, cmd, decimal.Zero, domsale.ReasonProductUnavailable)
	case err != nil:
		outcome, statusText = "error", "PRODUCT_LOAD_FAILED"
		return nil, fmt.Errorf("%w: %w", ErrRepository, err)
	}
	if !product.Active {
		outcome, statusText = "failed", "PRODUCT_UNAVAILABLE"
		return uc.recordFailure(ctx, span, cmd, decimal.Zero, domsale.ReasonProductUnavailable)
	}

	totalCost := product.Price.Mul(decimal.NewFromInt(int64(cmd.Quantity)))
	span.SetAttributes(attribute.String("product.slot_code", product.SlotCode))

	if product.Quantity < cmd.Quantity {
		outcome, statusText = "failed", "INSUFFICIENT_STOCK"
		return uc.recordFailure(ctx, span, cmd, totalCost, domsale.ReasonInsufficientStock)
	}

	// Authorizing: no mutation has happened yet, so a rejection needs no
	// compensation.
	if err := uc.authorizer.Authorize(ctx, totalCost, cmd.AmountPaid, cmd.PaymentMethod); err != nil {
		var rejection *dompayment.RejectionError
		if errors.As(err, &rejection) {
			outcome, statusText = "failed", "PAYMENT_REJECTED"
			return uc.recordFailure(ctx, span, cmd, totalCost, rejection.Reason)
		}
		outcome, statusText = "failed", "PAYMENT_FAULT"
		logger.Error("payment_authorizer_fault",
			observability.F("product_id", product.ID),
			observability.F("error", err.Error()),
		)
		return uc.recordFailure(ctx, span, cmd, totalCost, domsale.ReasonInternalError)
	}

	// Reserving: the single mutating step before the physical action. With the
	// product lock held this cannot legitimately fail on stock; if it does,
	// serialization is broken and we escalate instead of treating it as a
	// routine business outcome.
	if _, err := uc.ledger.AdjustQuantity(ctx, product.ID, -cmd.Quantity, dominventory.ReasonSale); err != nil {
		outcome, statusText = "failed", "RESERVE_FAULT"
		logger.Error("stock_reserve_internal_fault",
			observability.F("product_id", product.ID),
			observability.F("quantity", cmd.Quantity),
			observability.F("error", err.Error()),
		)
		return uc.recordFailure(ctx, span, cmd, totalCost, domsale.ReasonInternalError)
	}

	unlock()

	// Dispensing: the only step that can fail after a durable mutation, and
	// therefore the only compensation trigger.
	if err := uc.driver.Dispense(ctx, product.SlotCode, cmd.Quantity); err != nil {
		reason := hardwareReason(err)
		uc.dispenseFailures.Add(1, observability.L("slot_code", product.SlotCode))
		span.AddEvent("purchase.dispense_failed",
			trace.WithAttributes(attribute.String("reason", reason)),
		)

		// Compensating: restore the reservation before the failed sale is
		// recorded, so a failed sale never coexists with decremented stock.
		if _, rerr := uc.ledger.AdjustQuantity(ctx, product.ID, cmd.Quantity, dominventory.ReasonSaleRollback); rerr != nil {
			logger.Error("stock_compensation_failed",
				observability.F("product_id", product.ID),
				observability.F("quantity", cmd.Quantity),
				observability.F("error", rerr.Error()),
			)
		} else {
			uc.compensations.Add(1, observability.L("slot_code", product.SlotCode))
		}

		outcome, statusText = "failed", "DISPENSE_FAILED"
		return uc.recordFailure(ctx, span, cmd, totalCost, reason)
	}

	// Committed.
	recorded := domsale.NewSuccess(uc.idGen.NewID(), cmd.ProductID, cmd.Quantity, totalCost, cmd.PaymentMethod)
	if err := uc.record(ctx, recorded); err != nil {
		outcome, statusText = "error", "SALE_RECORD_FAILED"
		return nil, err
	}

	span.AddEvent("purchase.committed",
		trace.WithAttributes(attribute.String("sale.id", recorded.ID)),
	)
	return recorded, nil
}

func (uc *PurchaseUseCase) recordFailure(ctx context.Context, span trace.Span, cmd PurchaseInput, total decimal.Decimal, reason string) (*domsale.Sale, error) {
	failed := domsale.NewFailed(uc.idGen.NewID(), cmd.ProductID, cmd.Quantity, total, cmd.PaymentMethod, reason)
	if err := uc.record(ctx, failed); err != nil {
		return nil, err
	}
	span.AddEvent("purchase.failed",
		trace.WithAttributes(
			attribute.String("sale.id", failed.ID),
			attribute.String("reason", reason),
		),
	)
	return failed, nil
}

func (uc *PurchaseUseCase) record(ctx context.Context, s *domsale.Sale) error {
	if err := uc.sales.Record(ctx, s); err != nil {
		return fmt.Errorf("vending: record sale: %w", err)
	}
	if uc.publisher != nil {
		if err := uc.publisher.Publish(ctx, domsale.NewRecordedEvent(s)); err != nil {
			logctx.FromOr(ctx, uc.log).Warn("sale_event_publish_failed",
				observability.F("sale_id", s.ID),
				observability.F("error", err.Error()),
			)
		}
	}
	return nil
}

func (uc *PurchaseUseCase) productLock(productID string) *sync.Mutex {
	uc.locksMu.Lock()
	defer uc.locksMu.Unlock()

	mu, ok := uc.locks[productID]
	if !ok {
		mu = &sync.Mutex{}
		uc.locks[productID] = mu
	}
	return mu
}

func hardwareReason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "hardware timeout"
	}
	var hwErr *domhardware.Error
	if errors.As(err, &hwErr) {
		return hwErr.Reason
	}
	return err.Error()
}

func newValidation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}
