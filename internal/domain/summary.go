package domain

// ProductSummary aggregates the transactions of one product.
type ProductSummary struct {
	ProductID   string      `json:"product_id"`
	ProductName string      `json:"product_name"`
	Price       NumericText `json:"price"`
	Currency    string      `json:"currency"`
	Quantity    float64     `json:"quantity"`
}

// CustomerSummary aggregates the transactions of one card.
type CustomerSummary struct {
	CardID           string  `json:"card_id"`
	CardholderName   string  `json:"cardholder_name"`
	TransactionCount int     `json:"transaction_count"`
	TotalSpent       float64 `json:"total_spent"`
}

// DashboardStats is the headline block of the dashboard screen.
type DashboardStats struct {
	TransactionCount int     `json:"transaction_count"`
	ProductCount     int     `json:"product_count"`
	CustomerCount    int     `json:"customer_count"`
	TotalAmount      float64 `json:"total_amount"`
	FormattedTotal   string  `json:"formatted_total"`
}
