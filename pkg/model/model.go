package model

// Response is the JSON envelope that wraps every answer of the persona service.
// Data is only present on success, Error only on internal server errors.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// Persona is the client side view of a persona as it travels over the wire.
type Persona struct {
	IdPersona       *int64  `json:"idPersona,omitempty"`
	Nombre          string  `json:"nombre"`
	Apellido        string  `json:"apellido"`
	FechaNacimiento string  `json:"fechaNacimiento"`
	Email           string  `json:"email"`
	Telefono        string  `json:"telefono"`
	Direccion       string  `json:"direccion"`
	FechaRegistro   *string `json:"fechaRegistro,omitempty"`
}

// PersonaResponse is a Response whose data is a single persona.
type PersonaResponse struct {
	Success bool    `json:"success"`
	Data    Persona `json:"data"`
	Message string  `json:"message"`
	Error   string  `json:"error,omitempty"`
}

// PersonaListResponse is a Response whose data is a list of personas.
type PersonaListResponse struct {
	Success bool      `json:"success"`
	Data    []Persona `json:"data"`
	Message string    `json:"message"`
	Error   string    `json:"error,omitempty"`
}
