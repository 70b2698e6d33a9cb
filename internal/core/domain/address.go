package domain

import "strings"

// Address is a value object; two addresses are the same address when all
// fields match.
type Address struct {
	city    string
	street  string
	zipcode string
}

func NewAddress(city, street, zipcode string) Address {
	return Address{
		city:    strings.TrimSpace(city),
		street:  strings.TrimSpace(street),
		zipcode: strings.TrimSpace(zipcode),
	}
}

func (a Address) City() string    { return a.city }
func (a Address) Street() string  { return a.street }
func (a Address) Zipcode() string { return a.zipcode }

func (a Address) IsZero() bool {
	return a == Address{}
}

func (a Address) Equal(other Address) bool {
	return a == other
}

func (a Address) String() string {
	return strings.TrimSpace(strings.Join([]string{a.city, a.street, a.zipcode}, " "))
}
