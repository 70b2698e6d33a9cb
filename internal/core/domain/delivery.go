package domain

import (
	"fmt"

	"github.com/google/uuid"
)

type DeliveryStatus string

const (
	DeliveryStatusReady     DeliveryStatus = "READY"
	DeliveryStatusShipped   DeliveryStatus = "SHIPPED"
	DeliveryStatusCompleted DeliveryStatus = "COMPLETED"
)

// Delivery belongs to exactly one order and is created and stored with it.
type Delivery struct {
	ID      string
	Address Address
	Status  DeliveryStatus
}

func NewDelivery(address Address) Delivery {
	return Delivery{
		ID:      uuid.NewString(),
		Address: address,
		Status:  DeliveryStatusReady,
	}
}

func (d *Delivery) Ship() error {
	if d.Status != DeliveryStatusReady {
		return fmt.Errorf("%w: delivery %s is %s, cannot ship", ErrIllegalStateTransition, d.ID, d.Status)
	}
	d.Status = DeliveryStatusShipped
	return nil
}

func (d *Delivery) Complete() error {
	if d.Status == DeliveryStatusCompleted {
		return fmt.Errorf("%w: delivery %s already completed", ErrIllegalStateTransition, d.ID)
	}
	d.Status = DeliveryStatusCompleted
	return nil
}
