package peer

import "time"

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	// Metrics records metrics for peer requests.
	Metrics interface {
		Observe(operation, currency string, err error, started time.Time)
		ObserveRetry(operation, currency string)
	}
)
