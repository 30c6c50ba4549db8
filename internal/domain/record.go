// Package domain holds the record types sheetmap moves between database
// tables and sheets. Pointer fields are nullable columns; an absent value
// is an empty cell.
package domain

import "time"

// Ownership is a vehicle ownership/operator relation.
type Ownership struct {
	PCV           int        `sheet:"0,name=PČV"`
	TypSubjektu   int        `sheet:"1,name=Typ subjektu"`
	VztahKVozidlu int        `sheet:"2,name=Vztah k vozidlu"`
	Aktualni      bool       `sheet:"3,name=Aktuální,adapter=bool.digit"`
	ICO           *int       `sheet:"4,name=IČO"`
	Nazev         *string    `sheet:"5,name=Název,adapter=trim"`
	Adresa        *string    `sheet:"6,name=Adresa,adapter=trim"`
	DatumOd       *time.Time `sheet:"7,name=Datum od,adapter=date.dmy"`
	DatumDo       *time.Time `sheet:"8,name=Datum do,adapter=date.dmy"`
}
