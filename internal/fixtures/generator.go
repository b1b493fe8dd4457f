package fixtures

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/omniretail/omnidesk/internal/config"
)

const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02 15:04:05"
)

var (
	firstNames   = []string{"Bea", "Carol", "David", "Emma", "Farid", "Grace", "Hiro", "Ines", "Jonas", "Kemi", "Liam", "Maya", "Noah", "Olga", "Priya", "Quinn", "Rosa", "Sven", "Tara", "Umar"}
	lastNames    = []string{"Smith", "Garcia", "Mueller", "Okafor", "Tanaka", "Novak", "Silva", "Kowalski", "Haddad", "Larsen", "Chen", "Patel", "Reyes", "Dubois", "Nguyen"}
	productTiers = []string{"Pro", "Ultra", "Basic"}
	productNames = []string{"Laptop", "Smartphone", "Headphones", "Desk Lamp", "Office Chair", "Keyboard", "Mouse", "Webcam"}
	cities       = []string{"Austin", "Rotterdam", "Lyon", "Osaka", "Leipzig", "Porto", "Calgary", "Nairobi", "Gdansk", "Monterrey", "Tacoma", "Brno"}
	orderStates  = []string{"Processing", "Shipped", "Delivered", "Delivered", "Shipped"}
	providers    = []string{"Visa", "MasterCard", "Amex"}
	issueTypes   = []string{"Refund", "Status", "Damaged", "Missing Item"}
	ticketStates = []string{"Open", "Closed", "Closed"}
	senders      = []string{"User", "Agent", "System"}
	sentences    = []string{
		"Can you confirm the delivery window?",
		"The box arrived with a dent on one corner.",
		"We have escalated this to the warehouse team.",
		"Refund has been issued to the original payment method.",
		"Please share a photo of the damaged item.",
		"Tracking has not updated for two days.",
		"Thanks, the issue is resolved now.",
		"A replacement unit is on its way.",
	}
)

type Generator struct {
	rnd *rand.Rand
	cfg config.SeedConfig
	// anchor is the "today" of the dataset so output does not drift with the clock.
	anchor time.Time
}

func NewGenerator(cfg config.SeedConfig) *Generator {
	return &Generator{
		rnd:    rand.New(rand.NewSource(cfg.Seed)),
		cfg:    cfg,
		anchor: time.Date(2026, time.January, 31, 12, 0, 0, 0, time.UTC),
	}
}

// Generate returns the fixed demo customers (Alice Johnson and Bob Smith)
// followed by the seeded bulk rows.
func (g *Generator) Generate() (Dataset, error) {
	if g.cfg.Users < 1 || g.cfg.Products < 1 || g.cfg.Warehouses < 1 {
		return Dataset{}, fmt.Errorf("users, products and warehouses must be >= 1")
	}
	var d Dataset

	d.Users = append(d.Users, User{UserID: 1, Name: "Alice Johnson", Email: "alice.j@example.com", PremiumStatus: "Yes"})
	if g.cfg.Users >= 2 {
		d.Users = append(d.Users, User{UserID: 2, Name: "Bob Smith", Email: "bob.smith@example.com", PremiumStatus: "No"})
	}
	for i := 3; i <= g.cfg.Users; i++ {
		first, last := pickOne(g.rnd, firstNames), pickOne(g.rnd, lastNames)
		d.Users = append(d.Users, User{
			UserID:        int64(i),
			Name:          first + " " + last,
			Email:         fmt.Sprintf("%s.%s%d@example.com", strings.ToLower(first), strings.ToLower(last), i),
			PremiumStatus: pickOne(g.rnd, []string{"Yes", "No"}),
		})
	}

	d.Products = append(d.Products, Product{ProductID: 1, Name: "Gaming Monitor", Category: "Electronics", Price: 499.99})
	for i := 2; i <= g.cfg.Products; i++ {
		d.Products = append(d.Products, Product{
			ProductID: int64(i),
			Name:      pickOne(g.rnd, productTiers) + " " + pickOne(g.rnd, productNames),
			Category:  "Retail",
			Price:     round2(20 + g.rnd.Float64()*1480),
		})
	}

	for i := 1; i <= g.cfg.Warehouses; i++ {
		d.Warehouses = append(d.Warehouses, Warehouse{
			WarehouseID: int64(i),
			Location:    pickOne(g.rnd, cities),
			ManagerName: pickOne(g.rnd, firstNames) + " " + pickOne(g.rnd, lastNames),
		})
	}

	g.generateOrders(&d)
	g.generatePayments(&d)
	g.generateTickets(&d)
	return d, nil
}

func (g *Generator) generateOrders(d *Dataset) {
	d.Orders = append(d.Orders, Order{OrderID: 101, UserID: 1, ProductID: 1, OrderDate: "2026-01-10", Status: "Shipped"})
	d.Shipments = append(d.Shipments, Shipment{ShipmentID: 5001, OrderID: 101, TrackingNumber: "TRK-ALICE-101", EstimatedArrival: "2026-01-20"})
	eventID := int64(1)
	d.TrackingEvents = append(d.TrackingEvents,
		TrackingEvent{EventID: eventID, ShipmentID: 5001, WarehouseID: 1, Timestamp: "2026-01-11 08:00:00", StatusUpdate: "Package Picked Up"},
		TrackingEvent{EventID: eventID + 1, ShipmentID: 5001, WarehouseID: 1, Timestamp: "2026-01-12 14:00:00", StatusUpdate: "In Transit - Distribution Center"},
	)
	eventID += 2

	for i := 2; i <= g.cfg.Orders; i++ {
		orderID := int64(i + 101)
		userID := int64(g.rnd.Intn(g.cfg.Users) + 1)
		status := pickOne(g.rnd, orderStates)
		// Bob's first order stays in processing so the demo question has an answer.
		if i == 2 && g.cfg.Users >= 2 {
			userID, status = 2, "Processing"
		}
		productID := int64(g.rnd.Intn(g.cfg.Products) + 1)
		date := g.anchor.AddDate(0, 0, -g.rnd.Intn(31))
		d.Orders = append(d.Orders, Order{OrderID: orderID, UserID: userID, ProductID: productID, OrderDate: date.Format(dateLayout), Status: status})

		if status != "Shipped" && status != "Delivered" {
			continue
		}
		shipmentID := 5000 + orderID
		d.Shipments = append(d.Shipments, Shipment{
			ShipmentID:       shipmentID,
			OrderID:          orderID,
			TrackingNumber:   fmt.Sprintf("TRK-%010d", g.rnd.Int63n(10_000_000_000)),
			EstimatedArrival: date.AddDate(0, 0, 5).Format(dateLayout),
		})
		d.TrackingEvents = append(d.TrackingEvents, TrackingEvent{
			EventID:      eventID,
			ShipmentID:   shipmentID,
			WarehouseID:  int64(g.rnd.Intn(g.cfg.Warehouses) + 1),
			Timestamp:    date.AddDate(0, 0, 1).Format(dateLayout),
			StatusUpdate: "Picked Up",
		})
		eventID++
		last := TrackingEvent{EventID: eventID, ShipmentID: shipmentID, WarehouseID: int64(g.rnd.Intn(g.cfg.Warehouses) + 1)}
		if status == "Delivered" {
			last.Timestamp, last.StatusUpdate = date.AddDate(0, 0, 4).Format(dateLayout), "Delivered"
		} else {
			last.Timestamp, last.StatusUpdate = date.AddDate(0, 0, 2).Format(dateLayout), "In Transit"
		}
		d.TrackingEvents = append(d.TrackingEvents, last)
		eventID++
	}
}

func (g *Generator) generatePayments(d *Dataset) {
	d.Wallets = append(d.Wallets, Wallet{WalletID: 10001, UserID: 1, Balance: 1500.00, Currency: "USD"})
	d.PaymentMethods = append(d.PaymentMethods, PaymentMethod{MethodID: 20001, WalletID: 10001, Provider: "Visa", ExpiryDate: "12/28"})
	d.Transactions = append(d.Transactions, Transaction{TransactionID: 30001, WalletID: 10001, OrderID: 101, Amount: 499.99, Type: "Debit"})
	txID := int64(30002)

	ordersByUser := map[int64][]int64{}
	for _, order := range d.Orders {
		ordersByUser[order.UserID] = append(ordersByUser[order.UserID], order.OrderID)
	}

	for i := 2; i <= g.cfg.Users; i++ {
		userID := int64(i)
		walletID := 10000 + userID
		d.Wallets = append(d.Wallets, Wallet{WalletID: walletID, UserID: userID, Balance: round2(100 + g.rnd.Float64()*4900), Currency: "USD"})
		d.PaymentMethods = append(d.PaymentMethods, PaymentMethod{MethodID: 20000 + userID, WalletID: walletID, Provider: pickOne(g.rnd, providers), ExpiryDate: "10/27"})
		for _, orderID := range ordersByUser[userID] {
			d.Transactions = append(d.Transactions, Transaction{TransactionID: txID, WalletID: walletID, OrderID: orderID, Amount: round2(20 + g.rnd.Float64()*980), Type: "Debit"})
			txID++
		}
	}
}

func (g *Generator) generateTickets(d *Dataset) {
	d.Tickets = append(d.Tickets, Ticket{TicketID: 7001, UserID: 1, ReferenceID: 101, IssueType: "Late Delivery", Status: "Open"})
	d.Messages = append(d.Messages,
		TicketMessage{MessageID: 1, TicketID: 7001, Sender: "Alice Johnson", Content: "Where is my monitor? It has been 10 days!", Timestamp: "2026-01-11 10:00:00"},
		TicketMessage{MessageID: 2, TicketID: 7001, Sender: "Support Agent", Content: "We are looking into the shipment delay at the Distribution Center.", Timestamp: "2026-01-11 11:30:00"},
	)
	d.Surveys = append(d.Surveys, SatisfactionSurvey{SurveyID: 8001, TicketID: 7001, Rating: 4, Comments: "Good response, but item still missing."})
	messageID, surveyID := int64(3), int64(8002)

	for i := 2; i <= g.cfg.Tickets; i++ {
		ticketID := int64(7000 + i)
		order := d.Orders[g.rnd.Intn(len(d.Orders))]
		status := pickOne(g.rnd, ticketStates)
		d.Tickets = append(d.Tickets, Ticket{TicketID: ticketID, UserID: order.UserID, ReferenceID: order.OrderID, IssueType: pickOne(g.rnd, issueTypes), Status: status})

		for n := g.rnd.Intn(3) + 1; n > 0; n-- {
			at := g.anchor.Add(-time.Duration(g.rnd.Intn(100)+1) * time.Hour)
			d.Messages = append(d.Messages, TicketMessage{
				MessageID: messageID,
				TicketID:  ticketID,
				Sender:    pickOne(g.rnd, senders),
				Content:   pickOne(g.rnd, sentences),
				Timestamp: at.Format(timestampLayout),
			})
			messageID++
		}
		if status == "Closed" {
			d.Surveys = append(d.Surveys, SatisfactionSurvey{SurveyID: surveyID, TicketID: ticketID, Rating: int64(g.rnd.Intn(5) + 1), Comments: pickOne(g.rnd, sentences)})
			surveyID++
		}
	}
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}

func pickOne(r *rand.Rand, values []string) string {
	return values[r.Intn(len(values))]
}
