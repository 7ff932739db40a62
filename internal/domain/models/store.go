package models

// Store — физический магазин для самовывоза.
type Store struct {
	ID       int64
	Name     string
	Address  string
	City     string
	IsActive bool
}
