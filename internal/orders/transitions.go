package orders

import (
	"time"

	"github.com/angelmondragon/harvestlink-backend/pkg/db/models"
	"github.com/angelmondragon/harvestlink-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/harvestlink-backend/pkg/errors"
)

// Aggregate is an order together with the purchase request gating it. Every
// status change goes through the functions in this file and is persisted with
// Repository.SaveAggregate, which refuses aggregates that fail Validate.
// Request is nil only for legacy orders whose request was lost; Order is nil
// only when a request outlived its order.
type Aggregate struct {
	Order   *models.Order
	Request *models.PurchaseRequest
}

// Validate checks the cross-entity invariants.
func (a *Aggregate) Validate() error {
	if o := a.Order; o != nil {
		if !o.RequestStatus.IsValid() || !o.PaidStatus.IsValid() || !o.DeliveryStatus.IsValid() {
			return pkgerrors.New(pkgerrors.CodeInternal, "order carries an unknown status")
		}
		if o.DeliveryStatus == enums.DeliveryStatusDelivered && o.PaidStatus != enums.PaidStatusPaid {
			return pkgerrors.New(pkgerrors.CodeInternal, "delivered order must be paid")
		}
		if o.CanReview && !reviewable(o) {
			return pkgerrors.New(pkgerrors.CodeInternal, "only delivered and paid orders can be reviewable")
		}
	}
	if a.Order != nil && a.Request != nil {
		if a.Request.OrderID != a.Order.ID {
			return pkgerrors.New(pkgerrors.CodeInternal, "request does not belong to order")
		}
		if a.Request.Status != a.Order.RequestStatus {
			return pkgerrors.New(pkgerrors.CodeInternal, "request and order status disagree")
		}
	}
	return nil
}

func reviewable(o *models.Order) bool {
	return o.DeliveryStatus == enums.DeliveryStatusDelivered && o.PaidStatus == enums.PaidStatusPaid
}

func (a *Aggregate) setRequestStatus(status enums.RequestStatus, now time.Time) {
	if a.Order != nil {
		a.Order.RequestStatus = status
	}
	if a.Request != nil && a.Request.Status != status {
		a.Request.Status = status
		if status.IsTerminal() && a.Request.DecidedAt == nil {
			decided := now
			a.Request.DecidedAt = &decided
		}
	}
}

// Cancel withdraws the order before fulfillment. It reports false when the
// order was already cancelled, which callers treat as success.
func Cancel(a *Aggregate, now time.Time) (bool, error) {
	o := a.Order
	switch {
	case o.DeliveryStatus == enums.DeliveryStatusDelivered:
		return false, pkgerrors.New(pkgerrors.CodeInvalidState, "delivered orders cannot be cancelled")
	case o.DeliveryStatus == enums.DeliveryStatusCancelled:
		return false, nil
	case o.PaidStatus == enums.PaidStatusPaid && o.DeliveryStatus != enums.DeliveryStatusPending:
		return false, pkgerrors.New(pkgerrors.CodeInvalidState, "order is already in fulfillment")
	}

	o.DeliveryStatus = enums.DeliveryStatusCancelled
	o.PaidStatus = enums.PaidStatusRejected
	a.setRequestStatus(enums.RequestStatusRejected, now)
	return true, nil
}

// CheckDeletable rejects removal of completed orders, which are kept as history.
func CheckDeletable(o *models.Order) error {
	if o.PaidStatus == enums.PaidStatusPaid && o.DeliveryStatus == enums.DeliveryStatusDelivered {
		return pkgerrors.New(pkgerrors.CodeInvalidState, "completed orders cannot be deleted")
	}
	return nil
}

// ConfirmDelivery marks a paid order delivered and opens it for review.
func ConfirmDelivery(a *Aggregate, now time.Time) error {
	o := a.Order
	switch {
	case o.DeliveryStatus == enums.DeliveryStatusDelivered:
		return pkgerrors.New(pkgerrors.CodeAlreadyDelivered, "order already delivered")
	case o.DeliveryStatus == enums.DeliveryStatusCancelled:
		return pkgerrors.New(pkgerrors.CodeInvalidState, "cancelled orders cannot be delivered")
	case o.PaidStatus != enums.PaidStatusPaid:
		return pkgerrors.New(pkgerrors.CodeInvalidState, "order must be paid before delivery")
	}

	o.DeliveryStatus = enums.DeliveryStatusDelivered
	if o.DeliveredAt == nil {
		delivered := now
		o.DeliveredAt = &delivered
	}
	o.CanReview = true
	return nil
}

// Decide applies a seller decision. It fires only from pending; a request
// that already carries a decision is rejected whatever the new decision is.
func Decide(a *Aggregate, decision enums.RequestStatus, now time.Time) error {
	if !decision.IsTerminal() {
		return pkgerrors.New(pkgerrors.CodeValidation, "decision must be accepted or rejected")
	}
	if current := a.Request.Status; current != enums.RequestStatusPending {
		return pkgerrors.New(pkgerrors.CodeInvalidState, "request already decided").
			WithDetails(map[string]any{"status": current})
	}

	if o := a.Order; o != nil {
		if o.PaidStatus == enums.PaidStatusPaid && decision == enums.RequestStatusRejected {
			return pkgerrors.New(pkgerrors.CodeInvalidState, "paid orders cannot be rejected")
		}
		switch decision {
		case enums.RequestStatusAccepted:
			if o.PaidStatus != enums.PaidStatusPaid {
				o.PaidStatus = enums.PaidStatusPending
			}
			// A buyer may pay and confirm before the seller answers; acceptance
			// never moves delivery backwards.
			if o.DeliveryStatus == enums.DeliveryStatusPending {
				o.DeliveryStatus = enums.DeliveryStatusShipped
			}
		case enums.RequestStatusRejected:
			o.PaidStatus = enums.PaidStatusRejected
			o.DeliveryStatus = enums.DeliveryStatusCancelled
		}
	}
	a.setRequestStatus(decision, now)
	return nil
}

// PaymentEffect describes what a gateway outcome did to an order.
type PaymentEffect int

const (
	// PaymentApplied moved the order out of Pending.
	PaymentApplied PaymentEffect = iota + 1
	// PaymentDuplicate found the outcome already recorded.
	PaymentDuplicate
	// PaymentConflict found a different terminal outcome already recorded.
	PaymentConflict
)

// SettlePayment records a terminal payment outcome. Paid and Rejected are
// terminal; only Pending orders change.
func SettlePayment(o *models.Order, target enums.PaidStatus) PaymentEffect {
	switch {
	case o.PaidStatus == target:
		return PaymentDuplicate
	case o.PaidStatus != enums.PaidStatusPending:
		return PaymentConflict
	}
	o.PaidStatus = target
	return PaymentApplied
}

// CheckPayable guards payment initiation.
func CheckPayable(o *models.Order) error {
	switch o.PaidStatus {
	case enums.PaidStatusPaid:
		return pkgerrors.New(pkgerrors.CodeInvalidState, "order already paid")
	case enums.PaidStatusRejected:
		return pkgerrors.New(pkgerrors.CodeInvalidState, "order payment was rejected")
	}
	return nil
}

// CloseReview consumes the one-shot review permission.
func CloseReview(o *models.Order) {
	o.CanReview = false
}

// ReopenReview restores the review permission after a review is removed.
func ReopenReview(o *models.Order) {
	o.CanReview = reviewable(o)
}
