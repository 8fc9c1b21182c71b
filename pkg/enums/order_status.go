package enums

import (
	"fmt"
	"strings"
)

// RequestStatus is the seller-facing approval state shared by a purchase
// request and the order it gates.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusAccepted RequestStatus = "accepted"
	RequestStatusRejected RequestStatus = "rejected"
)

var validRequestStatuses = []RequestStatus{
	RequestStatusPending,
	RequestStatusAccepted,
	RequestStatusRejected,
}

func (s RequestStatus) String() string {
	return string(s)
}

func (s RequestStatus) IsValid() bool {
	for _, candidate := range validRequestStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the seller already decided.
func (s RequestStatus) IsTerminal() bool {
	return s == RequestStatusAccepted || s == RequestStatusRejected
}

// ParseRequestStatus converts raw input into RequestStatus. Matching is
// case-insensitive.
func ParseRequestStatus(value string) (RequestStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validRequestStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid request status %q", value)
}

// PaidStatus tracks the payment axis of an order.
type PaidStatus string

const (
	PaidStatusPending  PaidStatus = "Pending"
	PaidStatusPaid     PaidStatus = "Paid"
	PaidStatusRejected PaidStatus = "Rejected"
)

var validPaidStatuses = []PaidStatus{
	PaidStatusPending,
	PaidStatusPaid,
	PaidStatusRejected,
}

func (s PaidStatus) String() string {
	return string(s)
}

func (s PaidStatus) IsValid() bool {
	for _, candidate := range validPaidStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParsePaidStatus converts raw input into PaidStatus. Stored values are
// capitalized; lookups fold case so "paid" and "Paid" are the same status.
func ParsePaidStatus(value string) (PaidStatus, error) {
	trimmed := strings.TrimSpace(value)
	for _, candidate := range validPaidStatuses {
		if strings.EqualFold(string(candidate), trimmed) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid paid status %q", value)
}

// DeliveryStatus tracks the fulfillment axis of an order. Shipped is the
// ready-for-delivery stage set on acceptance, not a physical shipment.
type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "Pending"
	DeliveryStatusShipped   DeliveryStatus = "Shipped"
	DeliveryStatusDelivered DeliveryStatus = "Delivered"
	DeliveryStatusCancelled DeliveryStatus = "Cancelled"
)

var validDeliveryStatuses = []DeliveryStatus{
	DeliveryStatusPending,
	DeliveryStatusShipped,
	DeliveryStatusDelivered,
	DeliveryStatusCancelled,
}

func (s DeliveryStatus) String() string {
	return string(s)
}

func (s DeliveryStatus) IsValid() bool {
	for _, candidate := range validDeliveryStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

func ParseDeliveryStatus(value string) (DeliveryStatus, error) {
	trimmed := strings.TrimSpace(value)
	for _, candidate := range validDeliveryStatuses {
		if strings.EqualFold(string(candidate), trimmed) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid delivery status %q", value)
}
