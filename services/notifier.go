package services

// Topics published by the reservation core.
const (
	TopicReservationHeld      = "reservation.held"
	TopicReservationConfirmed = "reservation.confirmed"
	TopicReservationCancelled = "reservation.cancelled"
	TopicReservationCompleted = "reservation.completed"
	TopicGuestArrived         = "kitchen.guest_arrived"
	TopicTableStatus          = "table.status"
	TopicOrderCreated         = "order.created"
	TopicPaymentAnomaly       = "payment.anomaly"
)

// Notifier delivers fire-and-forget messages to staff displays and other
// services. Implementations must not block the caller.
type Notifier interface {
	Notify(topic string, payload interface{})
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(topic string, payload interface{})

func (f NotifierFunc) Notify(topic string, payload interface{}) { f(topic, payload) }

// MultiNotifier fans a message out to every notifier in order.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(topic string, payload interface{}) {
	for _, n := range m {
		if n != nil {
			n.Notify(topic, payload)
		}
	}
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, interface{}) {}

// GuestArrival is the payload of TopicGuestArrived.
type GuestArrival struct {
	TableID       *uint  `json:"table_id"`
	ReservationID string `json:"reservation_id"`
	PartySize     int    `json:"party_size"`
}

// TableStatusChange is the payload of TopicTableStatus.
type TableStatusChange struct {
	TableID uint   `json:"table_id"`
	Status  string `json:"status"`
}
