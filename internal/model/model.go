package model

import (
	"strings"
	"time"
)

// Persona is the data structure for a registered person.
//
// Id is assigned by the store and never taken from a client. RegistrationDate is stamped once when
// the persona is created and is never changed afterwards.
type Persona struct {
	Id               ID        `json:"idPersona"       db:"id_persona"`
	GivenName        string    `json:"nombre"          db:"nombre"`
	FamilyName       string    `json:"apellido"        db:"apellido"`
	BirthDate        Date      `json:"fechaNacimiento" db:"fecha_nacimiento"`
	Email            string    `json:"email"           db:"email"`
	Phone            string    `json:"telefono"        db:"telefono"`
	Address          string    `json:"direccion"       db:"direccion"`
	RegistrationDate time.Time `json:"fechaRegistro"   db:"fecha_registro"`
}

// Criteria holds the optional substrings for a filtered search. A blank field imposes no
// constraint.
type Criteria struct {
	GivenName  string
	FamilyName string
	Email      string
}

// IsEmpty returns true if no criterion was supplied at all.
func (c Criteria) IsEmpty() bool {
	return isBlank(c.GivenName) && isBlank(c.FamilyName) && isBlank(c.Email)
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
