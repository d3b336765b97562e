package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"tourplan/internal/model"
)

// maxBodyBytes bounds request bodies; a 500-stop matrix is about 3 MB.
const maxBodyBytes = 8 << 20

// decodeOptimizeRequest reads exactly one JSON object and rejects unknown
// fields so that misspelt options do not silently fall back to defaults.
func decodeOptimizeRequest(w http.ResponseWriter, r *http.Request) (model.OptimizeRequest, error) {
	var req model.OptimizeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return req, fmt.Errorf("body exceeds %d bytes", tooBig.Limit)
		}
		return req, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return req, errors.New("body must contain a single JSON object")
	}
	return req, nil
}
