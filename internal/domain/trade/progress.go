package trade

import (
	"fmt"

	"github.com/commerce/backoffice/internal/domain/catalog"
	"github.com/commerce/backoffice/internal/domain/shared"
	"github.com/google/uuid"
)

// timelines lists the stages each delivery type walks through, in order
var timelines = map[catalog.DeliveryType][]OrderTimeline{
	catalog.DeliveryFulfillment:  {TimelineApproved, TimelinePickup, TimelineInvoice, TimelineShipping, TimelineDelivered},
	catalog.DeliveryDropshipping: {TimelineApproved, TimelinePurchase, TimelinePickup, TimelineInvoice, TimelineShipping, TimelineDelivered},
	catalog.DeliveryWholesaler:   {TimelineApproved, TimelineInvoice, TimelineShipping, TimelineDelivered},
}

// completes maps the events that close a stage to that stage. Other events
// are recorded in the history without moving the timeline.
var completes = map[OrderEvent]OrderTimeline{
	EventConfirmPurchase:     TimelinePurchase,
	EventCreateShippingLabel: TimelinePickup,
	EventSaveCustomerInvoice: TimelineInvoice,
	EventConfirmShipping:     TimelineShipping,
	EventOrderDelivered:      TimelineDelivered,
}

// Timeline returns the ordered stages of a delivery type
func Timeline(deliveryType catalog.DeliveryType) []OrderTimeline {
	return append([]OrderTimeline(nil), timelines[deliveryType]...)
}

func stageIndex(deliveryType catalog.DeliveryType, stage OrderTimeline) int {
	for i, s := range timelines[deliveryType] {
		if s == stage {
			return i
		}
	}
	return -1
}

// advance moves the group's timeline forward for event. It never moves backwards.
func (g *ShippingGroup) advance(event OrderEvent) error {
	target, ok := completes[event]
	if !ok {
		return nil
	}
	to := stageIndex(g.DeliveryType, target)
	if to < 0 {
		return shared.NewDomainError("EVENT_NOT_APPLICABLE",
			fmt.Sprintf("Event %s does not apply to %s shipping", event, g.DeliveryType))
	}
	if to > stageIndex(g.DeliveryType, g.Timeline) {
		g.Timeline = target
	}
	return nil
}

// HasEvent reports whether event is already in the group's history
func (g *ShippingGroup) HasEvent(event OrderEvent) bool {
	for _, h := range g.History {
		if h.Event == event {
			return true
		}
	}
	return false
}

// shippingMessage is the latest carrier update, if any
func (g *ShippingGroup) shippingMessage() string {
	for i := len(g.History) - 1; i >= 0; i-- {
		if g.History[i].Event == EventShippingStatus && g.History[i].Description != "" {
			return g.History[i].Description
		}
	}
	return string(LabelWaitingCarrier)
}

// Party is who has to act next on a shipping group
type Party string

const (
	PartyOperator Party = "operator"
	PartySeller   Party = "seller"
	PartyCarrier  Party = "carrier"
	PartyNone     Party = ""
)

// NextAction is what a caller can or is waiting to do on a shipping group.
// Action is nil when it is the counter-party's turn.
type NextAction struct {
	GroupID  uuid.UUID     `json:"group_id"`
	Action   *OrderEvent   `json:"action"`
	Label    string        `json:"label"`
	Timeline OrderTimeline `json:"timeline"`
	Party    Party         `json:"party"`
}

type step struct {
	event   OrderEvent
	party   Party
	doLabel ActionLabel
	waiting ActionLabel
}

var (
	stepSendPurchase    = step{EventSendPurchase, PartyOperator, LabelSendPurchase, LabelWaitingPurchase}
	stepConfirmPurchase = step{EventConfirmPurchase, PartySeller, LabelConfirmPurchase, LabelWaitingConfirm}
	stepCreateInvoice   = step{EventCreateCustomerInvoice, PartyOperator, LabelCreateInvoice, LabelWaitingInvoice}
	stepSaveInvoice     = step{EventSaveCustomerInvoice, PartySeller, LabelSaveInvoice, LabelWaitingSaveInvoice}
)

func stepShippingLabel(party Party) step {
	return step{EventCreateShippingLabel, party, LabelCreateShippingLabel, LabelWaitingShipping}
}

// first returns the first step whose event is not in the history
func (g *ShippingGroup) first(steps ...step) *step {
	for i := range steps {
		if !g.HasEvent(steps[i].event) {
			return &steps[i]
		}
	}
	return nil
}

// NextAction computes the next unperformed step for role given the order status
func (g *ShippingGroup) NextAction(orderStatus OrderStatus, role Role) NextAction {
	na := NextAction{GroupID: g.ID}
	var next *step

	switch g.Timeline {
	case TimelineApproved:
		switch g.DeliveryType {
		case catalog.DeliveryFulfillment:
			next = g.first(stepShippingLabel(PartyOperator))
			na.Timeline = TimelinePickup
		case catalog.DeliveryDropshipping:
			next = g.first(stepSendPurchase, stepConfirmPurchase)
			na.Timeline = TimelinePurchase
		case catalog.DeliveryWholesaler:
			next = g.first(stepCreateInvoice, stepSaveInvoice)
			na.Timeline = TimelineInvoice
		}
	case TimelinePurchase:
		next = g.first(stepShippingLabel(PartySeller))
		na.Timeline = TimelinePickup
	case TimelinePickup:
		next = g.first(stepCreateInvoice, stepSaveInvoice)
		na.Timeline = TimelineInvoice
	case TimelineInvoice:
		na.Label = g.shippingMessage()
		na.Timeline = TimelineShipping
		na.Party = PartyCarrier
	case TimelineShipping, TimelineDelivered:
		na.Label = string(LabelDelivered)
		na.Timeline = TimelineDelivered
	}

	if next != nil {
		na.Party = next.party
		allowed := (next.party == PartyOperator && role.IsOperator()) ||
			(next.party == PartySeller && role.IsSeller())
		if allowed {
			event := next.event
			na.Action = &event
			na.Label = string(next.doLabel)
		} else {
			na.Label = string(next.waiting)
		}
	}

	switch orderStatus {
	case OrderStatusDelivered:
		na.Action = nil
		na.Label = string(LabelDelivered)
		na.Timeline = TimelineDelivered
		na.Party = PartyNone
	case OrderStatusShipping:
		na.Action = nil
		na.Label = g.shippingMessage()
		na.Timeline = TimelineShipping
		na.Party = PartyCarrier
	case OrderStatusCanceled:
		na.Action = nil
		na.Label = string(LabelCanceled)
		na.Party = PartyNone
	}
	return na
}

// Status maps the group's progress to an order status
func (g *ShippingGroup) Status() OrderStatus {
	switch g.Timeline {
	case TimelineApproved:
		switch g.DeliveryType {
		case catalog.DeliveryDropshipping:
			if g.HasEvent(EventSendPurchase) {
				return OrderStatusConfirmPurchase
			}
			return OrderStatusPurchase
		case catalog.DeliveryWholesaler:
			if g.HasEvent(EventCreateCustomerInvoice) {
				return OrderStatusSaveInvoice
			}
			return OrderStatusInvoice
		default:
			return OrderStatusPickup
		}
	case TimelinePurchase:
		return OrderStatusPickup
	case TimelinePickup:
		if g.HasEvent(EventCreateCustomerInvoice) {
			return OrderStatusSaveInvoice
		}
		return OrderStatusInvoice
	case TimelineInvoice:
		return OrderStatusShipping
	case TimelineShipping, TimelineDelivered:
		return OrderStatusDelivered
	}
	return OrderStatusApproved
}

// CalculateStatus aggregates the group statuses into one order status. Delivered
// and canceled orders keep their status; otherwise the least advanced group wins.
func CalculateStatus(o *Order) OrderStatus {
	if o.Status.IsTerminal() || len(o.ShippingGroups) == 0 {
		return o.Status
	}

	var statuses []OrderStatus
	seen := make(map[OrderStatus]struct{})
	for i := range o.ShippingGroups {
		s := o.ShippingGroups[i].Status()
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		statuses = append(statuses, s)
	}

	result := statuses[0]
	for _, s := range statuses[1:] {
		if s.Severity() < result.Severity() {
			result = s
		}
	}
	return result
}
