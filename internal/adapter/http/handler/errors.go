package handler

import "net/http"

func errorResponse(w http.ResponseWriter, status int, message any) {
	env := envelope{"error": message}

	// Write the response using the writeJSON() helper. If this happens to return an
	// error then log it, and fall back to sending the client an empty response with a
	// 500 Internal Server Error status code.
	if err := writeJSON(w, status, env, nil); err != nil {
		w.WriteHeader(500)
	}
}

// serviceErrorResponse maps a service error to its HTTP status. Errors
// sharing a status carry a "code" field the client can branch on, a
// conflict from losing the assignment race reads differently from a
// conflict on an invalid transition.
func serviceErrorResponse(w http.ResponseWriter, err error) {
	env := envelope{"error": err.Error()}
	if code := ErrorCode(err); code != "" {
		env["code"] = code
	}

	if werr := writeJSON(w, GetCode(err), env, nil); werr != nil {
		w.WriteHeader(500)
	}
}

// failedValidationResponse returns 422 UnprocessableEntity status.
// The request was syntactically fine but the field values do not pass
// validation, so repeating it unchanged will fail the same way.
func failedValidationResponse(w http.ResponseWriter, errors map[string]string) {
	errorResponse(w, http.StatusUnprocessableEntity, errors)
}

// internalErrorResponse returns 500 InternalServerError status.
func internalErrorResponse(w http.ResponseWriter, message any) {
	errorResponse(w, http.StatusInternalServerError, message)
}
