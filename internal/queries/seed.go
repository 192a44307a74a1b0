package queries

import "time"

// DemoQueries returns the sample open queries shown on a fresh dashboard.
func DemoQueries() []*TxnQuery {
	day := func(d int) time.Time { return time.Date(2024, time.October, d, 0, 0, 0, 0, time.UTC) }
	return []*TxnQuery{
		{QueryID: "QRY-001", TxnID: "TXN-2024-001", Summary: "Payment not received for completed transaction", Status: StatusPending, SubmittedAt: day(25)},
		{QueryID: "QRY-002", TxnID: "TXN-2024-015", Summary: "Duplicate charge on credit card statement", Status: StatusInProgress, SubmittedAt: day(24)},
		{QueryID: "QRY-003", TxnID: "TXN-2024-023", Summary: "Incorrect product delivered - need refund", Status: StatusPending, SubmittedAt: day(23)},
		{QueryID: "QRY-004", TxnID: "TXN-2024-031", Summary: "Transaction shows PENDING but payment deducted", Status: StatusInProgress, SubmittedAt: day(22)},
		{QueryID: "QRY-005", TxnID: "TXN-2024-042", Summary: "Unable to track shipment status", Status: StatusPending, SubmittedAt: day(21)},
	}
}
