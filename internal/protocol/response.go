package protocol

import (
	"bytes"
	"encoding/json"
	"io"
	"strconv"
)

// Response is the result of handling one request. Body is encoded as JSON.
type Response struct {
	Status int
	Body   any
}

// OK returns a 200 response.
func OK(body any) Response {
	return Response{Status: 200, Body: body}
}

// ErrorBody is the envelope of every failure response.
type ErrorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Error returns a failure response with the given status and message.
func Error(status int, msg string) Response {
	return Response{Status: status, Body: ErrorBody{Success: false, Error: msg}}
}

var statusText = map[int]string{
	200: "OK",
	400: "Bad Request",
	401: "Unauthorized",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	500: "Internal Server Error",
}

// StatusText returns the reason phrase for a status code, or "Unknown".
func StatusText(code int) string {
	if s, ok := statusText[code]; ok {
		return s
	}
	return "Unknown"
}

// internalErrorBody is sent when a response body cannot be encoded.
var internalErrorBody = []byte(`{"error":"internal server error","success":false}`)

// WriteResponse encodes resp and writes it to w in a single Write call.
// It does not close the connection.
func WriteResponse(w io.Writer, resp Response) error {
	status := resp.Status
	body, err := json.MarshalIndent(resp.Body, "", "    ")
	if err != nil {
		status = 500
		body = internalErrorBody
	}

	var b bytes.Buffer
	b.WriteString("HTTP/1.1 ")
	b.WriteString(strconv.Itoa(status))
	b.WriteByte(' ')
	b.WriteString(StatusText(status))
	b.WriteString("\r\nContent-Type: application/json\r\nContent-Length: ")
	b.WriteString(strconv.Itoa(len(body)))
	b.WriteString("\r\nAccess-Control-Allow-Origin: *\r\n\r\n")
	b.Write(body)

	_, err = w.Write(b.Bytes())
	return err
}
