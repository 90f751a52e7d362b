package services

import (
	"log"

	"fleetwatch-backend/internal/models"
	"fleetwatch-backend/internal/websocket"

	"github.com/jmoiron/sqlx"
)

// AlertNotifier fans a freshly persisted alert out to connected dashboard
// clients over the WebSocket hub and to registered dispatcher devices via
// FCM. Delivery failures are logged and dropped: the alert is already in the
// store and stays unread until someone sees it.
type AlertNotifier struct {
	Hub *websocket.Hub
	FCM *FCMService // nil when push is not configured
	DB  *sqlx.DB
}

func NewAlertNotifier(hub *websocket.Hub, fcm *FCMService, db *sqlx.DB) *AlertNotifier {
	return &AlertNotifier{Hub: hub, FCM: fcm, DB: db}
}

func (n *AlertNotifier) NotifyNewAlert(alert models.Alert) {
	event := models.AlertEvent{Type: "new_alert", Alert: alert}
	n.Hub.BroadcastToRole("dispatcher", event)
	n.Hub.BroadcastToRole("admin", event)

	if n.FCM == nil {
		return
	}

	var tokens []string
	if err := n.DB.Select(&tokens, `SELECT token FROM fcm_tokens`); err != nil {
		log.Printf("⚠️ Failed to load FCM tokens: %v", err)
		return
	}
	if err := n.FCM.SendAlertMulticast(tokens, alert); err != nil {
		log.Printf("⚠️ FCM delivery failed for alert %s: %v", alert.ID, err)
	}
}
