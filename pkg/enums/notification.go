package enums

import "fmt"

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypeOrderConfirmed    NotificationType = "order_confirmed"
	NotificationTypeNewRequest        NotificationType = "new_request"
	NotificationTypeOrderCanceled     NotificationType = "order_canceled"
	NotificationTypeOrderDelivered    NotificationType = "order_delivered"
	NotificationTypeRequestAccepted   NotificationType = "request_accepted"
	NotificationTypeRequestRejected   NotificationType = "request_rejected"
	NotificationTypeDeliveryScheduled NotificationType = "delivery_scheduled"
	NotificationTypeDecisionRecorded  NotificationType = "decision_recorded"
	NotificationTypePaymentSuccess    NotificationType = "payment_success"
	NotificationTypePaymentReceived   NotificationType = "payment_received"
	NotificationTypePaymentFailed     NotificationType = "payment_failed"
	NotificationTypeNewReview         NotificationType = "new_review"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeOrderConfirmed,
	NotificationTypeNewRequest,
	NotificationTypeOrderCanceled,
	NotificationTypeOrderDelivered,
	NotificationTypeRequestAccepted,
	NotificationTypeRequestRejected,
	NotificationTypeDeliveryScheduled,
	NotificationTypeDecisionRecorded,
	NotificationTypePaymentSuccess,
	NotificationTypePaymentReceived,
	NotificationTypePaymentFailed,
	NotificationTypeNewReview,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
