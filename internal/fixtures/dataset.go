// Package fixtures builds the deterministic retail dataset behind the four
// stores and writes it to SQL databases or parquet objects.
package fixtures

import "fmt"

type User struct {
	UserID        int64  `parquet:"UserID"`
	Name          string `parquet:"Name"`
	Email         string `parquet:"Email"`
	PremiumStatus string `parquet:"PremiumStatus"`
}

type Product struct {
	ProductID int64   `parquet:"ProductID"`
	Name      string  `parquet:"Name"`
	Category  string  `parquet:"Category"`
	Price     float64 `parquet:"Price"`
}

type Order struct {
	OrderID   int64  `parquet:"OrderID"`
	UserID    int64  `parquet:"UserID"`
	ProductID int64  `parquet:"ProductID"`
	OrderDate string `parquet:"OrderDate"`
	Status    string `parquet:"Status"`
}

type Shipment struct {
	ShipmentID       int64  `parquet:"ShipmentID"`
	OrderID          int64  `parquet:"OrderID"`
	TrackingNumber   string `parquet:"TrackingNumber"`
	EstimatedArrival string `parquet:"EstimatedArrival"`
}

type Warehouse struct {
	WarehouseID int64  `parquet:"WarehouseID"`
	Location    string `parquet:"Location"`
	ManagerName string `parquet:"ManagerName"`
}

type TrackingEvent struct {
	EventID      int64  `parquet:"EventID"`
	ShipmentID   int64  `parquet:"ShipmentID"`
	WarehouseID  int64  `parquet:"WarehouseID"`
	Timestamp    string `parquet:"Timestamp"`
	StatusUpdate string `parquet:"StatusUpdate"`
}

type Wallet struct {
	WalletID int64   `parquet:"WalletID"`
	UserID   int64   `parquet:"UserID"`
	Balance  float64 `parquet:"Balance"`
	Currency string  `parquet:"Currency"`
}

type Transaction struct {
	TransactionID int64   `parquet:"TransactionID"`
	WalletID      int64   `parquet:"WalletID"`
	OrderID       int64   `parquet:"OrderID"`
	Amount        float64 `parquet:"Amount"`
	Type          string  `parquet:"Type"`
}

type PaymentMethod struct {
	MethodID   int64  `parquet:"MethodID"`
	WalletID   int64  `parquet:"WalletID"`
	Provider   string `parquet:"Provider"`
	ExpiryDate string `parquet:"ExpiryDate"`
}

type Ticket struct {
	TicketID    int64  `parquet:"TicketID"`
	UserID      int64  `parquet:"UserID"`
	ReferenceID int64  `parquet:"ReferenceID"`
	IssueType   string `parquet:"IssueType"`
	Status      string `parquet:"Status"`
}

type TicketMessage struct {
	MessageID int64  `parquet:"MessageID"`
	TicketID  int64  `parquet:"TicketID"`
	Sender    string `parquet:"Sender"`
	Content   string `parquet:"Content"`
	Timestamp string `parquet:"Timestamp"`
}

type SatisfactionSurvey struct {
	SurveyID int64  `parquet:"SurveyID"`
	TicketID int64  `parquet:"TicketID"`
	Rating   int64  `parquet:"Rating"`
	Comments string `parquet:"Comments"`
}

type Dataset struct {
	Users          []User
	Products       []Product
	Orders         []Order
	Shipments      []Shipment
	Warehouses     []Warehouse
	TrackingEvents []TrackingEvent
	Wallets        []Wallet
	Transactions   []Transaction
	PaymentMethods []PaymentMethod
	Tickets        []Ticket
	Messages       []TicketMessage
	Surveys        []SatisfactionSurvey
}

// TableData is one table flattened for INSERT statements. Column order
// matches the migration DDL.
type TableData struct {
	Name    string
	Columns []string
	Rows    [][]any
}

// Tables returns the tables that belong to storeName.
func (d Dataset) Tables(storeName string) ([]TableData, error) {
	switch storeName {
	case "ShopCore":
		return []TableData{
			flatten("Users", []string{"UserID", "Name", "Email", "PremiumStatus"}, d.Users, func(r User) []any {
				return []any{r.UserID, r.Name, r.Email, r.PremiumStatus}
			}),
			flatten("Products", []string{"ProductID", "Name", "Category", "Price"}, d.Products, func(r Product) []any {
				return []any{r.ProductID, r.Name, r.Category, r.Price}
			}),
			flatten("Orders", []string{"OrderID", "UserID", "ProductID", "OrderDate", "Status"}, d.Orders, func(r Order) []any {
				return []any{r.OrderID, r.UserID, r.ProductID, r.OrderDate, r.Status}
			}),
		}, nil
	case "ShipStream":
		return []TableData{
			flatten("Shipments", []string{"ShipmentID", "OrderID", "TrackingNumber", "EstimatedArrival"}, d.Shipments, func(r Shipment) []any {
				return []any{r.ShipmentID, r.OrderID, r.TrackingNumber, r.EstimatedArrival}
			}),
			flatten("Warehouses", []string{"WarehouseID", "Location", "ManagerName"}, d.Warehouses, func(r Warehouse) []any {
				return []any{r.WarehouseID, r.Location, r.ManagerName}
			}),
			flatten("TrackingEvents", []string{"EventID", "ShipmentID", "WarehouseID", "Timestamp", "StatusUpdate"}, d.TrackingEvents, func(r TrackingEvent) []any {
				return []any{r.EventID, r.ShipmentID, r.WarehouseID, r.Timestamp, r.StatusUpdate}
			}),
		}, nil
	case "PayGuard":
		return []TableData{
			flatten("Wallets", []string{"WalletID", "UserID", "Balance", "Currency"}, d.Wallets, func(r Wallet) []any {
				return []any{r.WalletID, r.UserID, r.Balance, r.Currency}
			}),
			flatten("Transactions", []string{"TransactionID", "WalletID", "OrderID", "Amount", "Type"}, d.Transactions, func(r Transaction) []any {
				return []any{r.TransactionID, r.WalletID, r.OrderID, r.Amount, r.Type}
			}),
			flatten("PaymentMethods", []string{"MethodID", "WalletID", "Provider", "ExpiryDate"}, d.PaymentMethods, func(r PaymentMethod) []any {
				return []any{r.MethodID, r.WalletID, r.Provider, r.ExpiryDate}
			}),
		}, nil
	case "CareDesk":
		return []TableData{
			flatten("Tickets", []string{"TicketID", "UserID", "ReferenceID", "IssueType", "Status"}, d.Tickets, func(r Ticket) []any {
				return []any{r.TicketID, r.UserID, r.ReferenceID, r.IssueType, r.Status}
			}),
			flatten("TicketMessages", []string{"MessageID", "TicketID", "Sender", "Content", "Timestamp"}, d.Messages, func(r TicketMessage) []any {
				return []any{r.MessageID, r.TicketID, r.Sender, r.Content, r.Timestamp}
			}),
			flatten("SatisfactionSurveys", []string{"SurveyID", "TicketID", "Rating", "Comments"}, d.Surveys, func(r SatisfactionSurvey) []any {
				return []any{r.SurveyID, r.TicketID, r.Rating, r.Comments}
			}),
		}, nil
	default:
		return nil, fmt.Errorf("no fixtures for store %q", storeName)
	}
}

func flatten[T any](name string, columns []string, rows []T, values func(T) []any) TableData {
	out := TableData{Name: name, Columns: columns, Rows: make([][]any, 0, len(rows))}
	for _, row := range rows {
		out.Rows = append(out.Rows, values(row))
	}
	return out
}
