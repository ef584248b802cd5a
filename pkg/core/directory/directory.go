// Package directory provides the customer directory used for identity
// verification. Lookups are synchronous, in-process, and exact-match only;
// the directory stands in for a real identity-verification backend.
package directory

// Customer is a single read-only directory record.
type Customer struct {
	// PhoneDigits is the registered mobile number, digits only.
	PhoneDigits string
	// DisplayName is the customer's full name.
	DisplayName string
	// ShortID is the internal customer identifier (e.g. "CUST001").
	ShortID string
	// VerificationID is the national ID / passport number used for
	// verification, normalized to uppercase with no whitespace.
	VerificationID string
}

// Directory is a static ordered collection of customer records.
type Directory struct {
	customers []Customer
}

// New creates a directory over the given records.
func New(customers []Customer) *Directory {
	d := &Directory{customers: make([]Customer, len(customers))}
	copy(d.customers, customers)
	return d
}

// Demo returns the demo directory shipped with the front end.
func Demo() *Directory {
	return New([]Customer{
		{PhoneDigits: "1234567890", DisplayName: "John Smith", ShortID: "CUST001", VerificationID: "A12345678"},
		{PhoneDigits: "9876543210", DisplayName: "Sarah Johnson", ShortID: "CUST002", VerificationID: "B87654321"},
		{PhoneDigits: "5555555555", DisplayName: "Mike Chen", ShortID: "CUST003", VerificationID: "C11111111"},
		{PhoneDigits: "1111222233", DisplayName: "Emily Davis", ShortID: "CUST004", VerificationID: "D22233444"},
		{PhoneDigits: "9999888877", DisplayName: "David Wilson", ShortID: "CUST005", VerificationID: "E99988877"},
	})
}

// ByVerificationID returns the record whose VerificationID matches exactly.
func (d *Directory) ByVerificationID(id string) (*Customer, bool) {
	for i := range d.customers {
		if d.customers[i].VerificationID == id {
			c := d.customers[i]
			return &c, true
		}
	}
	return nil, false
}

// ByVerificationIDAndPhone returns the record matching both the verification
// ID and the phone digits. The match is on the conjunction: a phone number
// belonging to a different customer than the ID does not match.
func (d *Directory) ByVerificationIDAndPhone(id, phone string) (*Customer, bool) {
	for i := range d.customers {
		if d.customers[i].VerificationID == id && d.customers[i].PhoneDigits == phone {
			c := d.customers[i]
			return &c, true
		}
	}
	return nil, false
}

// Customers returns a copy of all records, in directory order.
func (d *Directory) Customers() []Customer {
	out := make([]Customer, len(d.customers))
	copy(out, d.customers)
	return out
}

// Len returns the number of records.
func (d *Directory) Len() int {
	return len(d.customers)
}
