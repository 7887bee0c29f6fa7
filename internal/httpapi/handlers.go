package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gitlab.com/dirk.krummacker/persona-service/internal/logging"
	"gitlab.com/dirk.krummacker/persona-service/internal/model"
	"gitlab.com/dirk.krummacker/persona-service/internal/service"
	"gitlab.com/dirk.krummacker/persona-service/internal/validation"
	api "gitlab.com/dirk.krummacker/persona-service/pkg/model"
	"go.uber.org/zap"
)

// handlers binds the REST endpoints to the persona service.
type handlers struct {
	svc    PersonaService
	logger *zap.Logger
}

// personaBody is the request body of POST and PUT. Given name, family name and email must not be
// empty; an id or registration date sent by the client is ignored by the service.
type personaBody struct {
	Id         model.ID   `json:"idPersona"`
	GivenName  string     `json:"nombre"          binding:"required"`
	FamilyName string     `json:"apellido"        binding:"required"`
	BirthDate  model.Date `json:"fechaNacimiento"`
	Email      string     `json:"email"           binding:"required"`
	Phone      string     `json:"telefono"`
	Address    string     `json:"direccion"`
}

func (b personaBody) persona() model.Persona {
	return model.Persona{
		Id:         b.Id,
		GivenName:  b.GivenName,
		FamilyName: b.FamilyName,
		BirthDate:  b.BirthDate,
		Email:      b.Email,
		Phone:      b.Phone,
		Address:    b.Address,
	}
}

// findAll responds with the list of all personas, sorted by given name.
//
// Example REST API call:
//
//	> curl http://localhost:8080/personas --header "Authorization: Bearer s3cr3t"
func (h *handlers) findAll(c *gin.Context) {
	personas, err := h.svc.ListAll(c.Request.Context())
	if err != nil {
		h.internalError(c, err)
		return
	}
	c.IndentedJSON(http.StatusOK, success(personas, "Personas obtenidas exitosamente"))
}

// findByID locates the persona whose id matches the id parameter of the request URL.
//
// Example REST API call:
//
//	> curl http://localhost:8080/personas/56 --header "Authorization: Bearer s3cr3t"
func (h *handlers) findByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	persona, err := h.svc.GetByID(c.Request.Context(), id)
	if errors.Is(err, service.ErrNotFound) {
		notFound(c, id)
		return
	}
	if err != nil {
		h.internalError(c, err)
		return
	}
	c.IndentedJSON(http.StatusOK, success(persona, "Persona encontrada exitosamente"))
}

// create stores the persona specified in the request's JSON. It responds with the full persona
// including the newly assigned id and the registration date.
//
// Example REST API call:
//
//	> curl http://localhost:8080/personas --request "POST" --include --header "Authorization: Bearer s3cr3t" --header "Content-Type: application/json" --data '{"nombre": "Ana", "apellido": "Gomez", "fechaNacimiento": "2000-01-01", "email": "ana@x.com", "telefono": "600000000", "direccion": "Calle Mayor 1"}'
func (h *handlers) create(c *gin.Context) {
	var body personaBody
	if err := c.ShouldBindJSON(&body); err != nil {
		invalidBody(c, err)
		return
	}
	created, err := h.svc.Create(c.Request.Context(), body.persona())
	if h.rejected(c, err) {
		return
	}
	if err != nil {
		h.internalError(c, err)
		return
	}
	c.Header("Location", fmt.Sprintf("/personas/%d", created.Id.Int64()))
	c.IndentedJSON(http.StatusCreated, success(created, "Persona creada exitosamente"))
}

// update replaces the persona whose id matches the id parameter of the request URL with the
// values of the request's JSON, and responds with the new version of the persona.
//
// Example REST API call:
//
//	> curl http://localhost:8080/personas/56 --request "PUT" --include --header "Authorization: Bearer s3cr3t" --header "Content-Type: application/json" --data '{"nombre": "Ana", "apellido": "Gómez", "fechaNacimiento": "2000-01-01", "email": "ana@x.com"}'
func (h *handlers) update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var body personaBody
	if err := c.ShouldBindJSON(&body); err != nil {
		invalidBody(c, err)
		return
	}
	updated, err := h.svc.Update(c.Request.Context(), id, body.persona())
	if errors.Is(err, service.ErrNotFound) {
		notFound(c, id)
		return
	}
	if h.rejected(c, err) {
		return
	}
	if err != nil {
		h.internalError(c, err)
		return
	}
	c.IndentedJSON(http.StatusOK, success(updated, "Persona actualizada exitosamente"))
}

// delete removes the persona whose id matches the id parameter of the request URL.
//
// Example REST API call:
//
//	> curl http://localhost:8080/personas/56 --request "DELETE" --header "Authorization: Bearer s3cr3t"
func (h *handlers) delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	deleted, err := h.svc.Delete(c.Request.Context(), id)
	if err != nil {
		h.internalError(c, err)
		return
	}
	if !deleted {
		notFound(c, id)
		return
	}
	c.IndentedJSON(http.StatusOK, success(nil, "Persona eliminada exitosamente"))
}

// filter responds with the personas matching the URL parameters 'nombre', 'apellido' and 'email'.
// Each parameter is matched as a case-insensitive substring of the corresponding field, and all
// supplied parameters must match. At least one of them is required.
//
// REST API calls:
//
//	> curl "http://localhost:8080/personas/buscar?nombre=ana" --header "Authorization: Bearer s3cr3t"
//	> curl "http://localhost:8080/personas/buscar?apellido=gar&email=example.com" --header "Authorization: Bearer s3cr3t"
func (h *handlers) filter(c *gin.Context) {
	criteria := model.Criteria{
		GivenName:  c.Query("nombre"),
		FamilyName: c.Query("apellido"),
		Email:      c.Query("email"),
	}
	if criteria.IsEmpty() {
		c.AbortWithStatusJSON(http.StatusBadRequest,
			failure("Debe proporcionar al menos un criterio de búsqueda (nombre, apellido o email)", nil))
		return
	}
	personas, err := h.svc.Filter(c.Request.Context(), criteria)
	if err != nil {
		h.internalError(c, err)
		return
	}
	if len(personas) == 0 {
		c.IndentedJSON(http.StatusNotFound, failure("No se encontraron personas con los criterios especificados", nil))
		return
	}
	c.IndentedJSON(http.StatusOK, success(personas, "Personas encontradas exitosamente"))
}

// health responds with OK as long as the store can be reached. It is not protected by the token.
func (h *handlers) health(c *gin.Context) {
	if err := h.svc.Ping(c.Request.Context()); err != nil {
		h.logger.Error("health check failed", zap.Error(err))
		c.IndentedJSON(http.StatusServiceUnavailable, failure("Servicio no disponible", err))
		return
	}
	c.IndentedJSON(http.StatusOK, success(nil, "OK"))
}

// parseID reads the id parameter of the request URL. It answers with BAD REQUEST and returns
// false if the id is not a positive number.
func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, failure("ID inválido", nil))
		return 0, false
	}
	if id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, failure("ID debe ser mayor a 0", nil))
		return 0, false
	}
	return id, true
}

// rejected answers with BAD REQUEST and returns true if err is a business rule violation.
func (h *handlers) rejected(c *gin.Context, err error) bool {
	var validationErr *validation.Error
	if !errors.As(err, &validationErr) {
		return false
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, failure(validationErr.Reason, nil))
	return true
}

func (h *handlers) internalError(c *gin.Context, err error) {
	h.logger.Error("request failed",
		zap.String("path", c.FullPath()),
		zap.String("request_id", c.GetString(logging.RequestIDKey)),
		zap.Error(err))
	c.Error(err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, failure("Error interno del servidor", err))
}

func notFound(c *gin.Context, id int64) {
	c.AbortWithStatusJSON(http.StatusNotFound, failure(fmt.Sprintf("Persona con ID %d no encontrada", id), nil))
}

func invalidBody(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, failure("Datos inválidos", err))
}

func success(data any, message string) api.Response {
	return api.Response{Success: true, Data: data, Message: message}
}

// failure builds the envelope of an unsuccessful request. The error detail is optional.
func failure(message string, err error) api.Response {
	response := api.Response{Success: false, Message: message}
	if err != nil {
		response.Error = err.Error()
	}
	return response
}
