package order

// Status is shared by orders and line items. Only StatusCreated is assigned
// here; later transitions belong to fulfillment.
type Status string

const (
	StatusCreated   Status = "Created"
	StatusConfirmed Status = "Confirmed"
	StatusShipped   Status = "Shipped"
	StatusDelivered Status = "Delivered"
	StatusCancelled Status = "Cancelled"
)

type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "COD"
	PaymentEcoCash        PaymentMethod = "EcoCash"
	PaymentZIPIT          PaymentMethod = "ZIPIT"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCashOnDelivery, PaymentEcoCash, PaymentZIPIT:
		return true
	default:
		return false
	}
}
