//go:build integration

package integrationtest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"gitlab.com/dirk.krummacker/persona-service/internal/httpapi"
	"gitlab.com/dirk.krummacker/persona-service/internal/migrations"
	"gitlab.com/dirk.krummacker/persona-service/internal/service"
	"gitlab.com/dirk.krummacker/persona-service/internal/store"
)

const token = "s3cr3t"

// databaseURL points to the PostgreSQL container shared by all tests of this package.
var databaseURL string

// TestMain starts a PostgreSQL container and creates the schema before running the tests.
func TestMain(m *testing.M) {
	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("personas"),
		tcpostgres.WithUsername("dirk"),
		tcpostgres.WithPassword("bullo92"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		fmt.Println("failed to start postgres container:", err)
		os.Exit(1)
	}

	code := func() int {
		defer container.Terminate(ctx)
		databaseURL, err = container.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			fmt.Println("failed to get postgres connection string:", err)
			return 1
		}
		runner, err := migrations.New("postgres", databaseURL, nil)
		if err != nil {
			fmt.Println("failed to initialize migrations:", err)
			return 1
		}
		defer runner.Close()
		if err := runner.Up(); err != nil {
			fmt.Println(err)
			return 1
		}
		return m.Run()
	}()
	os.Exit(code)
}

// setupRouter connects a fresh store to the container and clears the table.
func setupRouter(t *testing.T) *gin.Engine {
	s, err := store.OpenSQL("postgres", databaseURL)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	s.DB().MustExec("TRUNCATE personas RESTART IDENTITY")

	gin.SetMode(gin.ReleaseMode)
	return httpapi.SetupHttpRouter(service.New(s, nil, nil, nil), httpapi.Options{APIToken: token})
}

func runTest(router *gin.Engine, method string, url string, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	recorder := httptest.NewRecorder()
	request, _ := http.NewRequest(method, url, strings.NewReader(body))
	request.Header.Set("Authorization", "Bearer "+token)
	request.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(recorder, request)
	var response map[string]interface{}
	json.Unmarshal(recorder.Body.Bytes(), &response)
	return recorder, response
}

// TestPersonaHappyPath tests a POST, GET, PUT, and DELETE with valid data.
func TestPersonaHappyPath(t *testing.T) {
	router := setupRouter(t)

	// test the endpoint for creating a persona
	postRecorder, postBody := runTest(router, "POST", "/personas", `
		{
			"nombre": "Erika",
			"apellido": "Mustermann",
			"fechaNacimiento": "1969-03-02",
			"email": "erika@example.de",
			"telefono": "+49 0815 4711",
			"direccion": "Musterstraße 1, Köln"
		}
	`)
	require.Equal(t, http.StatusCreated, postRecorder.Code, postRecorder.Body.String())
	created := postBody["data"].(map[string]interface{})
	assert.Equal(t, "Erika", created["nombre"])
	assert.Equal(t, "1969-03-02", created["fechaNacimiento"])
	idAsFloat64 := created["idPersona"]
	idAsString := fmt.Sprintf("%.0f", idAsFloat64)
	assert.Equal(t, "/personas/"+idAsString, postRecorder.Header().Get("Location"))

	// test the endpoint for finding a persona
	getRecorder, getBody := runTest(router, "GET", "/personas/"+idAsString, "")
	assert.Equal(t, http.StatusOK, getRecorder.Code)
	found := getBody["data"].(map[string]interface{})
	assert.Equal(t, idAsFloat64, found["idPersona"])
	assert.Equal(t, "Mustermann", found["apellido"])
	assert.Equal(t, "erika@example.de", found["email"])
	assert.Equal(t, "+49 0815 4711", found["telefono"])
	assert.Equal(t, "Musterstraße 1, Köln", found["direccion"])
	assert.Equal(t, created["fechaRegistro"], found["fechaRegistro"])

	// test the endpoint for updating a persona
	putRecorder, putBody := runTest(router, "PUT", "/personas/"+idAsString, `
		{
			"nombre": "Rudi",
			"apellido": "Völler",
			"fechaNacimiento": "1960-04-13T00:00:00Z",
			"email": "rudi@example.de",
			"telefono": "+49 1234567890",
			"direccion": "Hanau"
		}
	`)
	assert.Equal(t, http.StatusOK, putRecorder.Code)
	updated := putBody["data"].(map[string]interface{})
	assert.Equal(t, idAsFloat64, updated["idPersona"])
	assert.Equal(t, created["fechaRegistro"], updated["fechaRegistro"])

	// test if a subsequent lookup of the persona returns the updated values
	_, getAgainBody := runTest(router, "GET", "/personas/"+idAsString, "")
	again := getAgainBody["data"].(map[string]interface{})
	assert.Equal(t, "Rudi", again["nombre"])
	assert.Equal(t, "Völler", again["apellido"])
	assert.Equal(t, "1960-04-13", again["fechaNacimiento"])
	assert.Equal(t, "rudi@example.de", again["email"])

	// test the endpoint for deleting a persona
	deleteRecorder, _ := runTest(router, "DELETE", "/personas/"+idAsString, "")
	assert.Equal(t, http.StatusOK, deleteRecorder.Code)

	// test if a final lookup of the persona will correctly not find it
	getFinalRecorder, _ := runTest(router, "GET", "/personas/"+idAsString, "")
	assert.Equal(t, http.StatusNotFound, getFinalRecorder.Code)
}

// TestDuplicateEmail expects the second persona with the same email to be rejected.
func TestDuplicateEmail(t *testing.T) {
	router := setupRouter(t)
	body := `{"nombre": "Ana", "apellido": "Gomez", "fechaNacimiento": "2000-01-01", "email": "ana@x.com"}`

	recorder, _ := runTest(router, "POST", "/personas", body)
	require.Equal(t, http.StatusCreated, recorder.Code)
	recorder, response := runTest(router, "POST", "/personas", body)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "Ya existe una persona con este email", response["message"])
}

// TestListAndFilter expects the list sorted by given name and a case-insensitive search.
func TestListAndFilter(t *testing.T) {
	router := setupRouter(t)
	for _, body := range []string{
		`{"nombre": "Bob", "apellido": "Smith", "fechaNacimiento": "1990-01-01", "email": "bob@x.com"}`,
		`{"nombre": "MARIANA", "apellido": "Ruiz", "fechaNacimiento": "1990-01-01", "email": "mariana@y.com"}`,
		`{"nombre": "Ana García", "apellido": "García", "fechaNacimiento": "1990-01-01", "email": "ana@x.com"}`,
		`{"nombre": "Carla", "apellido": "100%_real", "fechaNacimiento": "1990-01-01", "email": "carla@x.com"}`,
	} {
		recorder, _ := runTest(router, "POST", "/personas", body)
		require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())
	}

	recorder, response := runTest(router, "GET", "/personas", "")
	assert.Equal(t, http.StatusOK, recorder.Code)
	var names []string
	for _, p := range response["data"].([]interface{}) {
		names = append(names, p.(map[string]interface{})["nombre"].(string))
	}
	assert.Equal(t, []string{"Ana García", "Bob", "Carla", "MARIANA"}, names)

	recorder, response = runTest(router, "GET", "/personas/buscar?nombre=ana", "")
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Len(t, response["data"], 2)

	recorder, response = runTest(router, "GET", "/personas/buscar?apellido=%25_", "")
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Len(t, response["data"], 1)

	recorder, _ = runTest(router, "GET", "/personas/buscar?email=nowhere", "")
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}
