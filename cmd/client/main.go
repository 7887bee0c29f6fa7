package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"time"

	api "gitlab.com/dirk.krummacker/persona-service/pkg/model"
)

const serverPort = 8080

// Usage example on the command line:
// > API_TOKEN=s3cr3t go run main.go
func main() {
	token := os.Getenv("API_TOKEN")
	fmt.Println()
	fmt.Println("  Elements      POST       PUT       GET    DELETE ")
	fmt.Println("---------------------------------------------------")
	sizes := []int{1000, 5000, 10000, 50000, 100000}
	run := time.Now().UnixNano()
	for _, loops := range sizes {
		firstID, _ := sendPostRequest(token, personaBody(run, loops, -1))
		fmt.Printf("%10d", loops)
		{
			// POST requests
			var duration int64
			for i := 0; i < loops; i++ {
				_, d := sendPostRequest(token, personaBody(run, loops, i))
				duration += d
			}
			fmt.Printf("%10d", duration/int64(loops*1000))
		}
		{
			// PUT requests
			f := func(id int64) int64 {
				body := personaBody(run, loops, int(id-firstID-1))
				return sendPutGetDeleteRequest(token, id, http.MethodPut, body)
			}
			callInLoop(firstID, loops, f)
		}
		{
			// GET requests
			f := func(id int64) int64 {
				return sendPutGetDeleteRequest(token, id, http.MethodGet, nil)
			}
			callInLoop(firstID, loops, f)
		}
		{
			// DELETE requests
			f := func(id int64) int64 {
				return sendPutGetDeleteRequest(token, id, http.MethodDelete, nil)
			}
			callInLoop(firstID, loops, f)
		}
		sendPutGetDeleteRequest(token, firstID, http.MethodDelete, nil)
		fmt.Println()
	}
}

// personaBody returns the JSON of an adult persona. The email is unique per run, round and index
// since the service rejects duplicates.
func personaBody(run int64, round int, i int) io.Reader {
	persona := api.Persona{
		Nombre:          "Marcus",
		Apellido:        "Antonius",
		FechaNacimiento: "1983-01-14",
		Email:           fmt.Sprintf("marcus.%d.%d.%d@example.com", run, round, i),
		Telefono:        "+39 999 777 555",
		Direccion:       "Via Appia 1, Roma",
	}
	body, err := json.Marshal(persona)
	if err != nil {
		panic(err)
	}
	return bytes.NewReader(body)
}

func callInLoop(firstID int64, loops int, f func(id int64) int64) {
	ids := createRandomSliceWithIDs(firstID+1, loops)
	var duration int64
	for _, id := range ids {
		d := f(id)
		duration += d
	}
	fmt.Printf("%10d", duration/int64(loops*1000))
}

func createRandomSliceWithIDs(firstID int64, loops int) []int64 {
	ids := make([]int64, 0, loops)
	for i := 0; i < loops; i++ {
		ids = append(ids, firstID+int64(i))
	}
	rand.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})
	return ids
}

func sendPostRequest(token string, bodyReader io.Reader) (int64, int64) {
	requestURL := fmt.Sprintf("http://localhost:%d/personas", serverPort)
	resBody, duration := sendRequest(token, http.MethodPost, requestURL, bodyReader)
	var response api.PersonaResponse
	err := json.Unmarshal(resBody, &response)
	if err != nil {
		fmt.Println("could not unmarshal JSON", err)
		panic(err)
	}
	if !response.Success || response.Data.IdPersona == nil {
		panic(fmt.Sprintf("persona not created: %s %s", response.Message, response.Error))
	}
	return *response.Data.IdPersona, duration
}

func sendPutGetDeleteRequest(token string, id int64, method string, bodyReader io.Reader) int64 {
	requestURL := fmt.Sprintf("http://localhost:%d/personas/%d", serverPort, id)
	_, duration := sendRequest(token, method, requestURL, bodyReader)
	return duration
}

func sendRequest(token string, method string, requestURL string, bodyReader io.Reader) ([]byte, int64) {
	req, err := http.NewRequest(method, requestURL, bodyReader)
	if err != nil {
		fmt.Println("could not create request", err)
		panic(err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	before := time.Now().UnixNano()
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Println("error making http request", err)
		panic(err)
	}
	defer res.Body.Close()
	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		fmt.Println("could not read response body", err)
		panic(err)
	}
	after := time.Now().UnixNano()
	return resBody, after - before
}
