package api

import (
	"encoding/json"
	"mime"
	"net/http"

	"github.com/dardanova/dardanova"
	"github.com/gorilla/schema"
)

var decoder *schema.Decoder

func init() {
	decoder = schema.NewDecoder()
	decoder.SetAliasTag("json")
	decoder.IgnoreUnknownKeys(true)
}

const maxBodySize = 1 << 20

func returnData(w http.ResponseWriter, retData any) {
	statusData(w, "success", retData, 200)
}

func statusData(w http.ResponseWriter, status string, retData any, statusCode int) {
	dardanova.StatusData(w, status, retData, statusCode)
}

func errorData(w http.ResponseWriter, retData any, errCode int) {
	statusData(w, "error", retData, errCode)
}

// parseBody decodes a JSON body, or a form-encoded one for any other content type.
func parseBody[T any](w http.ResponseWriter, r *http.Request, output *T) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(output); err != nil {
			return &dardanova.StatusError{Code: 400, Text: "Invalid JSON input", WrappedError: err}
		}
		return nil
	}

	if err := r.ParseForm(); err != nil {
		return &dardanova.StatusError{Code: 400, Text: "Invalid form input", WrappedError: err}
	}
	if err := decoder.Decode(output, r.PostForm); err != nil {
		return &dardanova.StatusError{Code: 400, Text: "Invalid form input", WrappedError: err}
	}
	return nil
}
