// Package queue carries reservation events to and from the message brokers.
package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/yeremiapane/restaurant-reservation/models"
	"github.com/yeremiapane/restaurant-reservation/services"
)

// Event is the envelope published for every notification.
type Event struct {
	Topic      string          `json:"topic"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

func encodeEvent(topic string, payload interface{}, now time.Time) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", topic, err)
	}
	return json.Marshal(Event{Topic: topic, OccurredAt: now.UTC(), Data: data})
}

// eventKey picks the partition key so events about one reservation stay ordered.
func eventKey(payload interface{}) string {
	switch p := payload.(type) {
	case *models.Reservation:
		return p.ID
	case *models.Order:
		if p.ReservationID != nil {
			return *p.ReservationID
		}
		return p.ID
	case services.GuestArrival:
		return p.ReservationID
	case *services.TableStatusChange:
		return fmt.Sprintf("table-%d", p.TableID)
	case map[string]interface{}:
		if id, ok := p["reservation_id"].(string); ok {
			return id
		}
		if ref, ok := p["payment_reference"].(string); ok {
			return ref
		}
	}
	return ""
}
