package tool

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	contractx "github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/contract"
)

const dateLayout = "2006-01-02"

// Order statuses as the order backend reports them.
const (
	OrderPending    = "pending"
	OrderProcessing = "processing"
	OrderShipped    = "shipped"
	OrderDelivered  = "delivered"
	OrderCancelled  = "cancelled"
)

type Order struct {
	OrderID            string   `json:"order_id"`
	CustomerID         string   `json:"customer_id"`
	Status             string   `json:"status"`
	Items              []string `json:"items"`
	Total              float64  `json:"total"`
	CreatedDate        string   `json:"created_date"`
	ShippedDate        string   `json:"shipped_date,omitempty"`
	CancelledDate      string   `json:"cancelled_date,omitempty"`
	CancellationReason string   `json:"cancellation_reason,omitempty"`
	ShippingAddress    string   `json:"shipping_address,omitempty"`
	ModifiedDate       string   `json:"modified_date,omitempty"`
}

type CancelOutcome struct {
	Message      string  `json:"message"`
	RefundAmount float64 `json:"refund_amount"`
}

type ModifyOutcome struct {
	Message string `json:"message"`
	Order   Order  `json:"order"`
}

// OrderBackend simulates the order management service. Safe for concurrent
// turns; every harness query gets its own seeded instance.
type OrderBackend struct {
	mu     sync.Mutex
	orders map[string]*Order
	now    func() time.Time
}

func NewOrderBackend(now func() time.Time) *OrderBackend {
	if now == nil {
		now = time.Now
	}
	return &OrderBackend{
		now: now,
		orders: map[string]*Order{
			"12345": {
				OrderID:     "12345",
				CustomerID:  "CUST001",
				Status:      OrderShipped,
				Items:       []string{"Laptop", "Mouse"},
				Total:       1299.99,
				CreatedDate: "2024-11-20",
				ShippedDate: "2024-11-22",
			},
			"67890": {
				OrderID:     "67890",
				CustomerID:  "CUST002",
				Status:      OrderProcessing,
				Items:       []string{"Phone Case"},
				Total:       29.99,
				CreatedDate: "2024-11-28",
			},
		},
	}
}

func (b *OrderBackend) Status(orderID string) (Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[orderID]
	if !ok {
		return Order{}, fmt.Errorf("%w: order %s", contractx.ErrNotFound, orderID)
	}
	return *o, nil
}

func (b *OrderBackend) Cancel(orderID, reason string) (CancelOutcome, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[orderID]
	if !ok {
		return CancelOutcome{}, fmt.Errorf("%w: order %s", contractx.ErrNotFound, orderID)
	}
	if o.Status == OrderDelivered {
		return CancelOutcome{}, fmt.Errorf("%w: cannot cancel a delivered order, request a return instead", contractx.ErrInvalidState)
	}
	if o.Status == OrderCancelled {
		return CancelOutcome{}, fmt.Errorf("%w: order %s is already cancelled", contractx.ErrInvalidState, orderID)
	}
	o.Status = OrderCancelled
	o.CancellationReason = reason
	o.CancelledDate = b.now().Format(dateLayout)
	return CancelOutcome{
		Message:      fmt.Sprintf("Order %s has been cancelled", orderID),
		RefundAmount: o.Total,
	}, nil
}

func (b *OrderBackend) Modify(orderID, shippingAddress string) (ModifyOutcome, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[orderID]
	if !ok {
		return ModifyOutcome{}, fmt.Errorf("%w: order %s", contractx.ErrNotFound, orderID)
	}
	if o.Status != OrderProcessing && o.Status != OrderPending {
		return ModifyOutcome{}, fmt.Errorf("%w: cannot modify order with status %s", contractx.ErrInvalidState, o.Status)
	}
	o.ShippingAddress = shippingAddress
	o.ModifiedDate = b.now().Format(dateLayout)
	return ModifyOutcome{
		Message: fmt.Sprintf("Order %s has been modified", orderID),
		Order:   *o,
	}, nil
}

type Refund struct {
	RefundID            string  `json:"refund_id"`
	OrderID             string  `json:"order_id"`
	Amount              float64 `json:"amount"`
	Reason              string  `json:"reason"`
	Status              string  `json:"status"`
	InitiatedDate       string  `json:"initiated_date"`
	EstimatedCompletion string  `json:"estimated_completion"`
}

type RefundOutcome struct {
	RefundID string `json:"refund_id"`
	Message  string `json:"message"`
	Refund   Refund `json:"refund"`
}

// RefundBackend simulates refund processing. Refund ids are sequential so
// replays with the same call order produce the same ids.
type RefundBackend struct {
	mu      sync.Mutex
	refunds map[string]*Refund
	nextID  int
	now     func() time.Time
}

func NewRefundBackend(now func() time.Time) *RefundBackend {
	if now == nil {
		now = time.Now
	}
	return &RefundBackend{
		refunds: make(map[string]*Refund, 4),
		nextID:  10001,
		now:     now,
	}
}

func (b *RefundBackend) Initiate(orderID string, amount float64, reason string) (RefundOutcome, error) {
	if amount <= 0 {
		return RefundOutcome{}, fmt.Errorf("%w: refund amount must be positive", contractx.ErrValidationFailed)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	id := fmt.Sprintf("REF%d", b.nextID)
	b.nextID++
	now := b.now()
	r := &Refund{
		RefundID:            id,
		OrderID:             orderID,
		Amount:              amount,
		Reason:              reason,
		Status:              "pending",
		InitiatedDate:       now.Format(dateLayout),
		EstimatedCompletion: now.AddDate(0, 0, 5).Format(dateLayout),
	}
	b.refunds[id] = r
	return RefundOutcome{
		RefundID: id,
		Message:  fmt.Sprintf("Refund of $%.2f initiated. Expected in 5-7 business days.", amount),
		Refund:   *r,
	}, nil
}

func (b *RefundBackend) Status(refundID string) (Refund, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.refunds[refundID]
	if !ok {
		return Refund{}, fmt.Errorf("%w: refund %s", contractx.ErrNotFound, refundID)
	}
	return *r, nil
}

type Account struct {
	CustomerID string `json:"customer_id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
}

type AddressOutcome struct {
	Message    string `json:"message"`
	NewAddress string `json:"new_address"`
}

type PasswordOutcome struct {
	Message string `json:"message"`
}

// AccountBackend simulates the customer account service.
type AccountBackend struct {
	mu       sync.Mutex
	accounts map[string]*Account
}

func NewAccountBackend() *AccountBackend {
	return &AccountBackend{
		accounts: map[string]*Account{
			"CUST001": {
				CustomerID: "CUST001",
				Email:      "customer1@example.com",
				Name:       "John Doe",
				Phone:      "+1-555-0001",
				Address:    "123 Main St, City, State 12345",
			},
		},
	}
}

func (b *AccountBackend) UpdateAddress(customerID, newAddress string) (AddressOutcome, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.accounts[customerID]
	if !ok {
		return AddressOutcome{}, fmt.Errorf("%w: customer %s", contractx.ErrNotFound, customerID)
	}
	a.Address = newAddress
	return AddressOutcome{Message: "Address updated successfully", NewAddress: newAddress}, nil
}

func (b *AccountBackend) ResetPassword(customerID string) (PasswordOutcome, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.accounts[customerID]
	if !ok {
		return PasswordOutcome{}, fmt.Errorf("%w: customer %s", contractx.ErrNotFound, customerID)
	}
	return PasswordOutcome{Message: fmt.Sprintf("Password reset link sent to %s", a.Email)}, nil
}

func (b *AccountBackend) Info(customerID string) (Account, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.accounts[customerID]
	if !ok {
		return Account{}, fmt.Errorf("%w: customer %s", contractx.ErrNotFound, customerID)
	}
	return *a, nil
}

type Product struct {
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Brand       string  `json:"brand"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	InStock     bool    `json:"in_stock"`
}

type ProductMatch struct {
	Product Product `json:"product"`
	Score   int     `json:"score"`
}

// ProductBackend is a read-only product catalog with keyword search.
type ProductBackend struct {
	products []Product
}

func NewProductBackend() *ProductBackend {
	return &ProductBackend{
		products: []Product{
			{Name: "ProBook 15 Laptop", Category: "Laptops & Computers", Brand: "TechGear", Price: 1199.99, Description: "15 inch laptop for work and gaming", InStock: true},
			{Name: "AirLite Wireless Headphones", Category: "Audio & Headphones", Brand: "TechGear", Price: 149.99, Description: "Noise cancelling wireless headphones", InStock: true},
			{Name: "SwiftMouse Pro", Category: "Accessories", Brand: "TechGear", Price: 49.99, Description: "Ergonomic wireless mouse", InStock: true},
			{Name: "VisionCam 4K Webcam", Category: "Accessories", Brand: "TechGear", Price: 89.99, Description: "4K webcam for streaming and calls", InStock: false},
			{Name: "PowerHub USB-C Dock", Category: "Accessories", Brand: "TechGear", Price: 129.99, Description: "USB-C docking station with dual display support", InStock: true},
			{Name: "GamerPad Mechanical Keyboard", Category: "Accessories", Brand: "TechGear", Price: 99.99, Description: "Mechanical gaming keyboard with RGB lighting", InStock: true},
		},
	}
}

// Search scores products by keyword hits (name strongest, then description,
// category, brand) and returns matches best first.
func (b *ProductBackend) Search(query, category string, maxResults int) []ProductMatch {
	q := strings.ToLower(strings.TrimSpace(query))
	if maxResults <= 0 {
		maxResults = 5
	}
	var matches []ProductMatch
	for _, p := range b.products {
		if category != "" && !strings.EqualFold(p.Category, category) {
			continue
		}
		score := 0
		if q != "" {
			if strings.Contains(strings.ToLower(p.Name), q) {
				score += 10
			}
			if strings.Contains(strings.ToLower(p.Description), q) {
				score += 5
			}
			if strings.Contains(strings.ToLower(p.Category), q) {
				score += 3
			}
			if strings.Contains(strings.ToLower(p.Brand), q) {
				score += 3
			}
			for _, word := range strings.Fields(q) {
				if len(word) <= 3 {
					continue
				}
				if strings.Contains(strings.ToLower(p.Name), word) || strings.Contains(strings.ToLower(p.Description), word) {
					score += 2
				}
			}
		}
		if score > 0 {
			matches = append(matches, ProductMatch{Product: p, Score: score})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > maxResults {
		matches = matches[:maxResults]
	}
	return matches
}

type CompanyInfo struct {
	Name           string `json:"name"`
	ShippingPolicy string `json:"shipping_policy"`
	ReturnPolicy   string `json:"return_policy"`
	SupportHours   string `json:"support_hours"`
	Contact        string `json:"contact"`
}

// Backends bundles every simulated service behind the default catalog.
type Backends struct {
	Orders   *OrderBackend
	Refunds  *RefundBackend
	Accounts *AccountBackend
	Products *ProductBackend
	Company  CompanyInfo
}

func NewBackends(now func() time.Time) *Backends {
	return &Backends{
		Orders:   NewOrderBackend(now),
		Refunds:  NewRefundBackend(now),
		Accounts: NewAccountBackend(),
		Products: NewProductBackend(),
		Company: CompanyInfo{
			Name:           "TechGear",
			ShippingPolicy: "Standard shipping takes 3-5 business days; express shipping 1-2 business days.",
			ReturnPolicy:   "Items can be returned within 30 days of delivery for a full refund.",
			SupportHours:   "Monday to Friday, 9am-6pm EST",
			Contact:        "support@techgear.example",
		},
	}
}
