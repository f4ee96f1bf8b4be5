package models

import "time"

// User represents a registered buyer
type User struct {
	TelegramID   int64     `db:"telegram_id" json:"telegram_id"`
	Name         string    `db:"name" json:"name"`
	Phone        string    `db:"phone" json:"phone"`
	Username     string    `db:"username" json:"username,omitempty"`
	Region       string    `db:"region" json:"region"`
	District     string    `db:"district" json:"district"`
	Village      string    `db:"village" json:"village"`
	RegisteredAt time.Time `db:"registered_at" json:"registered_at"`
}

// Registered reports whether every field checkout depends on is present.
func (u User) Registered() bool {
	return u.Name != "" && u.Phone != ""
}

// Book represents a catalog entry. Price is kept as display text; the
// currency is implicit and no arithmetic is ever done on it.
type Book struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Price    string `json:"price"`
}

// PaymentCard is the single card shown to buyers during card checkout.
// Both fields are empty until an admin configures it.
type PaymentCard struct {
	Number string `json:"card_number"`
	Owner  string `json:"card_owner"`
}

// Order represents a submitted order. Buyer and book fields are snapshots
// taken at submission time and are never re-synced with their sources.
type Order struct {
	Number        int         `json:"order_number"`
	UserID        int64       `json:"user_id"`
	UserName      string      `json:"user_name"`
	UserPhone     string      `json:"user_phone"`
	UserRegion    string      `json:"user_region"`
	UserDistrict  string      `json:"user_district"`
	UserVillage   string      `json:"user_village"`
	BookID        string      `json:"book_id"`
	BookName      string      `json:"book_name"`
	BookPrice     string      `json:"book_price"`
	PaymentMethod string      `json:"payment_method"`
	ReceiptFileID string      `json:"receipt_file_id,omitempty"`
	ReceiptKind   ReceiptKind `json:"receipt_file_type,omitempty"`
	Feedback      string      `json:"feedback"`
	Status        OrderStatus `json:"status"`
	CreatedAt     time.Time   `json:"order_date"`
}

// HasReceipt reports whether a receipt was captured for this order.
func (o Order) HasReceipt() bool {
	return o.PaymentMethod == PaymentCardTransfer && o.ReceiptFileID != ""
}

// OrderStatus is the moderation state of an order.
type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "pending"
	OrderStatusApproved OrderStatus = "approved"
	OrderStatusRejected OrderStatus = "rejected"
)

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusApproved, OrderStatusRejected:
		return true
	}
	return false
}

// Payment methods
const (
	PaymentCardTransfer = "card"
	PaymentCash         = "cash"
)

// ReceiptKind is the transport file kind of an uploaded receipt.
type ReceiptKind string

const (
	ReceiptPhoto    ReceiptKind = "photo"
	ReceiptDocument ReceiptKind = "document"
)

// FeedbackNone is stored when a buyer submits without leaving feedback.
const FeedbackNone = "none"
