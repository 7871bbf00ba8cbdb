package domain

import "time"

type Account struct {
	ID        int64
	Name      string
	Balance   int64
	Version   int64
	CreatedAt time.Time
}
