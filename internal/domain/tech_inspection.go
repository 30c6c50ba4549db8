package domain

import "time"

// TechInspection is a roadworthiness inspection (STK) of a vehicle.
type TechInspection struct {
	PCV            int        `sheet:"0,name=PČV"`
	Typ            *string    `sheet:"1,name=Typ"` // e.g. "E - Evidenční", "P - Pravidelná"
	Stav           *string    `sheet:"2,name=Stav"`
	KodSTK         *int       `sheet:"3,name=Kód STK"`
	NazevSTK       *string    `sheet:"4,name=Název STK,adapter=trim"`
	PlatnostOd     *time.Time `sheet:"5,name=Platnost od,adapter=date.dmy"`
	PlatnostDo     *time.Time `sheet:"6,name=Platnost do,adapter=date.dmy"`
	CisloProtokolu *string    `sheet:"7,name=Číslo protokolu"`
	Aktualni       bool       `sheet:"8,name=Aktuální,adapter=bool.digit"`
}
