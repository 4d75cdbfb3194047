package service

import "time"

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	Metrics interface {
		Observe(operation string, err error, started time.Time)
	}
	BatchMetrics interface {
		ObserveBatch(err error, items int, started time.Time)
		ObserveItem(err error)
	}
)
