package warehouses

import "strings"

func normalize(w *Warehouse) error {
	w.Name = strings.TrimSpace(w.Name)
	w.GSTNumber = strings.ToUpper(strings.TrimSpace(w.GSTNumber))
	w.ContactName = strings.TrimSpace(w.ContactName)
	w.ContactNumber = strings.Join(strings.Fields(w.ContactNumber), "")
	w.AddressLine1 = strings.TrimSpace(w.AddressLine1)
	w.AddressLine2 = strings.TrimSpace(w.AddressLine2)
	w.City = strings.TrimSpace(w.City)
	w.State = strings.TrimSpace(w.State)
	w.PostalCode = strings.TrimSpace(w.PostalCode)
	return nil
}
