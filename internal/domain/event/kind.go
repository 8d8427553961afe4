package event

import (
	"errors"
	"fmt"
)

var ErrUnknownKind = errors.New("event: unknown kind")

// Kind identifies an entry in the event catalog. Its value is the stable code
// shared with every consumer of events.
type Kind string

// Category groups kinds by the part of the system that emits them.
type Category string

const (
	CategoryOrder     Category = "order"
	CategoryInventory Category = "inventory"
	CategoryPayment   Category = "payment"
	CategoryUser      Category = "user"
	CategorySystem    Category = "system"
)

const (
	OrderCreated   Kind = "ORDER_CREATED"
	OrderPaid      Kind = "ORDER_PAID"
	OrderCancelled Kind = "ORDER_CANCELLED"
	OrderShipped   Kind = "ORDER_SHIPPED"
	OrderDelivered Kind = "ORDER_DELIVERED"

	StockLow       Kind = "STOCK_LOW"
	StockDepleted  Kind = "STOCK_DEPLETED"
	ProductAdded   Kind = "PRODUCT_ADDED"
	ProductRemoved Kind = "PRODUCT_REMOVED"
	StockUpdated   Kind = "STOCK_UPDATED"

	PaymentInitiated Kind = "PAYMENT_INITIATED"
	PaymentSucceeded Kind = "PAYMENT_SUCCEEDED"
	PaymentFailed    Kind = "PAYMENT_FAILED"

	UserRegistered Kind = "USER_REGISTERED"
	UserLogin      Kind = "USER_LOGIN"
	UserLogout     Kind = "USER_LOGOUT"

	SystemError       Kind = "SYSTEM_ERROR"
	SystemMaintenance Kind = "SYSTEM_MAINTENANCE"
)

type kindInfo struct {
	description string
	category    Category
}

var catalog = map[Kind]kindInfo{
	OrderCreated:   {"A new order has been created", CategoryOrder},
	OrderPaid:      {"An order has been paid", CategoryOrder},
	OrderCancelled: {"An order has been cancelled", CategoryOrder},
	OrderShipped:   {"An order has been shipped", CategoryOrder},
	OrderDelivered: {"An order has been delivered", CategoryOrder},

	StockLow:       {"A product is running low on stock", CategoryInventory},
	StockDepleted:  {"A product is out of stock", CategoryInventory},
	ProductAdded:   {"A new product has been added", CategoryInventory},
	ProductRemoved: {"A product has been removed", CategoryInventory},
	StockUpdated:   {"The stock of a product has been updated", CategoryInventory},

	PaymentInitiated: {"A payment process has started", CategoryPayment},
	PaymentSucceeded: {"A payment has completed successfully", CategoryPayment},
	PaymentFailed:    {"A payment has failed", CategoryPayment},

	UserRegistered: {"A new user has registered", CategoryUser},
	UserLogin:      {"A user has logged in", CategoryUser},
	UserLogout:     {"A user has logged out", CategoryUser},

	SystemError:       {"A system error has occurred", CategorySystem},
	SystemMaintenance: {"The system is entering maintenance", CategorySystem},
}

// ordered mirrors the catalog declaration order.
var ordered = []Kind{
	OrderCreated, OrderPaid, OrderCancelled, OrderShipped, OrderDelivered,
	StockLow, StockDepleted, ProductAdded, ProductRemoved, StockUpdated,
	PaymentInitiated, PaymentSucceeded, PaymentFailed,
	UserRegistered, UserLogin, UserLogout,
	SystemError, SystemMaintenance,
}

// Kinds returns the full catalog in declaration order.
func Kinds() []Kind {
	return append([]Kind(nil), ordered...)
}

// KindsIn returns the catalog entries belonging to c.
func KindsIn(c Category) []Kind {
	var out []Kind
	for _, k := range ordered {
		if catalog[k].category == c {
			out = append(out, k)
		}
	}
	return out
}

// ParseKind resolves a stable code back to its Kind.
func ParseKind(code string) (Kind, error) {
	k := Kind(code)
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, code)
	}
	return k, nil
}

func (k Kind) Valid() bool {
	_, ok := catalog[k]
	return ok
}

func (k Kind) Code() string { return string(k) }

func (k Kind) Description() string { return catalog[k].description }

func (k Kind) Category() Category { return catalog[k].category }

func (k Kind) String() string {
	if !k.Valid() {
		return string(k)
	}
	return string(k) + ": " + k.Description()
}
