package websocket

import "time"

// Event is a storefront activity message pushed to every connected client
type Event struct {
	Type    string `json:"type"`
	OrderID string `json:"order_id,omitempty"`
	Items   int    `json:"items,omitempty"`
	Count   int    `json:"count,omitempty"`
	TS      string `json:"ts"`
}

// NewOrderPlacedEvent announces a confirmed order and how many line items it has
func NewOrderPlacedEvent(orderID string, items int) Event {
	return Event{
		Type:    "order_placed",
		OrderID: orderID,
		Items:   items,
		TS:      time.Now().UTC().Format(time.RFC3339),
	}
}

// NewCatalogSeededEvent announces that the demo catalog was (re)seeded
func NewCatalogSeededEvent(count int) Event {
	return Event{
		Type:  "catalog_seeded",
		Count: count,
		TS:    time.Now().UTC().Format(time.RFC3339),
	}
}
