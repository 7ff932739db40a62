package models

// Типы адресов пользователя.
const (
	AddressTypePersonal = "personal"
	AddressTypeShipping = "shipping"
	AddressTypeBilling  = "billing"
)

// Address — адрес пользователя. У пользователя может быть несколько адресов,
// помеченных типом, с флагом адреса по умолчанию для каждого типа.
type Address struct {
	ID        int64
	UserID    int64
	Type      string
	Street    string
	City      string
	Postal    string
	Country   string
	IsDefault bool
}
