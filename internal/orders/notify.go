package orders

import (
	"fmt"

	"github.com/angelmondragon/harvestlink-backend/internal/notifications"
	"github.com/angelmondragon/harvestlink-backend/pkg/db/models"
	"github.com/angelmondragon/harvestlink-backend/pkg/enums"
)

// MessageData is the payload attached to every order notification so clients
// can deep link into the order.
func MessageData(o *models.Order) map[string]any {
	data := map[string]any{
		"order_id":     o.ID.String(),
		"reference_no": o.ReferenceNo,
		"product_name": o.ProductName,
	}
	if o.RequestID != nil {
		data["request_id"] = o.RequestID.String()
	}
	return data
}

func toBuyer(o *models.Order, typ enums.NotificationType, title, body string) notifications.Message {
	return notifications.Message{
		UserID: o.BuyerID,
		Role:   enums.UserRoleBuyer,
		Type:   typ,
		Title:  title,
		Body:   body,
		Data:   MessageData(o),
	}
}

func toSeller(o *models.Order, typ enums.NotificationType, title, body string) notifications.Message {
	return notifications.Message{
		UserID: o.SellerID,
		Role:   enums.UserRoleSeller,
		Type:   typ,
		Title:  title,
		Body:   body,
		Data:   MessageData(o),
	}
}

func createdMessages(o *models.Order) []notifications.Message {
	return []notifications.Message{
		toBuyer(o, enums.NotificationTypeOrderConfirmed, "Order placed",
			fmt.Sprintf("Your order %s for %d %s of %s was sent to the seller.", o.ReferenceNo, o.Quantity, o.Unit, o.ProductName)),
		toSeller(o, enums.NotificationTypeNewRequest, "New purchase request",
			fmt.Sprintf("You have a new request for %d %s of %s.", o.Quantity, o.Unit, o.ProductName)),
	}
}

func cancelledMessages(o *models.Order) []notifications.Message {
	return []notifications.Message{
		toSeller(o, enums.NotificationTypeOrderCanceled, "Order cancelled",
			fmt.Sprintf("The buyer cancelled order %s.", o.ReferenceNo)),
	}
}

func deliveredMessages(o *models.Order) []notifications.Message {
	return []notifications.Message{
		toBuyer(o, enums.NotificationTypeOrderDelivered, "Delivery confirmed",
			fmt.Sprintf("You confirmed delivery of order %s. You can now leave a review.", o.ReferenceNo)),
		toSeller(o, enums.NotificationTypeOrderDelivered, "Order delivered",
			fmt.Sprintf("The buyer confirmed delivery of order %s.", o.ReferenceNo)),
	}
}

// BuyerMessage addresses a notification about o to its buyer.
func BuyerMessage(o *models.Order, typ enums.NotificationType, title, body string) notifications.Message {
	return toBuyer(o, typ, title, body)
}

// SellerMessage addresses a notification about o to its seller.
func SellerMessage(o *models.Order, typ enums.NotificationType, title, body string) notifications.Message {
	return toSeller(o, typ, title, body)
}
