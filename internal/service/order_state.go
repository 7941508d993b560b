package service

import (
	"sitesupply/internal/apperror"
	"sitesupply/internal/authz"
	"sitesupply/internal/model"
)

type Action string

const (
	ActionApprove         Action = "approve"
	ActionReject          Action = "reject"
	ActionAssignTransport Action = "assign_transport"
	ActionStartTransit    Action = "start_transit"
	ActionMarkDelivered   Action = "mark_delivered"
	ActionComplete        Action = "complete"
	ActionCancel          Action = "cancel"
)

// transition is one edge of the order graph. Assigning transport keeps the
// order approved and only moves the delivery sub-state.
type transition struct {
	from       string
	to         string
	capability authz.Capability
}

var transitions = map[Action]transition{
	ActionApprove:         {model.OrderStatusPending, model.OrderStatusApproved, authz.CapOrderReview},
	ActionReject:          {model.OrderStatusPending, model.OrderStatusRejected, authz.CapOrderReview},
	ActionAssignTransport: {model.OrderStatusApproved, model.OrderStatusApproved, authz.CapTransportAssign},
	ActionStartTransit:    {model.OrderStatusApproved, model.OrderStatusInTransit, authz.CapDeliveryUpdate},
	ActionMarkDelivered:   {model.OrderStatusInTransit, model.OrderStatusOutOfDelivery, authz.CapDeliveryUpdate},
	ActionComplete:        {model.OrderStatusOutOfDelivery, model.OrderStatusCompleted, authz.CapOrderComplete},
}

// deliveryStatusFor is the delivery sub-state an action moves the order to.
var deliveryStatusFor = map[Action]string{
	ActionAssignTransport: model.DeliveryStatusAssigned,
	ActionStartTransit:    model.DeliveryStatusInTransit,
	ActionMarkDelivered:   model.DeliveryStatusDelivered,
}

func ParseAction(raw string) (Action, bool) {
	a := Action(raw)
	if a == ActionCancel {
		return a, true
	}
	_, ok := transitions[a]
	return a, ok
}

// checkTransition decides whether action may run from the order's current
// status and returns the target status.
func checkTransition(order *model.Order, action Action) (string, error) {
	if action == ActionCancel {
		if err := checkCancel(order); err != nil {
			return "", err
		}
		return model.OrderStatusCancelled, nil
	}

	t, ok := transitions[action]
	if !ok {
		return "", apperror.New(apperror.KindValidation, "", "unknown action "+string(action))
	}

	if action == ActionApprove || action == ActionReject {
		switch order.Status {
		case model.OrderStatusApproved:
			return "", apperror.AlreadyInState(apperror.CodeAlreadyApproved, "order is already approved")
		case model.OrderStatusRejected:
			return "", apperror.AlreadyInState(apperror.CodeAlreadyRejected, "order is already rejected")
		}
	}
	if action == ActionAssignTransport && order.Status == t.from && order.TransportManagerID != nil {
		return "", apperror.AlreadyInState(apperror.CodeAlreadyAssigned, "a transport manager is already assigned")
	}

	if order.Status != t.from {
		return "", apperror.InvalidTransition(order.Status, string(action))
	}
	if action == ActionStartTransit && order.TransportManagerID == nil {
		return "", apperror.InvalidTransition(order.Status, string(action))
	}
	return t.to, nil
}

func checkCancel(order *model.Order) error {
	switch order.Status {
	case model.OrderStatusCompleted:
		return apperror.New(apperror.KindInvalidTransition, apperror.CodeCancelCompletedOrder, "a completed order cannot be cancelled")
	case model.OrderStatusInTransit, model.OrderStatusOutOfDelivery:
		return apperror.New(apperror.KindInvalidTransition, apperror.CodeCancelDeliveredOrder, "an order in delivery cannot be cancelled")
	case model.OrderStatusRejected:
		return apperror.New(apperror.KindInvalidTransition, apperror.CodeCancelRejectedOrder, "a rejected order cannot be cancelled")
	case model.OrderStatusCancelled:
		return apperror.AlreadyInState(apperror.CodeCancelAlreadyCancelled, "order is already cancelled")
	case model.OrderStatusPending, model.OrderStatusApproved:
		if order.DeliveryStatus == model.DeliveryStatusInTransit || order.DeliveryStatus == model.DeliveryStatusDelivered {
			return apperror.New(apperror.KindInvalidTransition, apperror.CodeCancelDeliveredOrder, "an order in delivery cannot be cancelled")
		}
		return nil
	}
	return apperror.InvalidTransition(order.Status, string(ActionCancel))
}

func requiredCapability(action Action) authz.Capability {
	if action == ActionCancel {
		return authz.CapOrderCancel
	}
	return transitions[action].capability
}
