// Package http provides the JSON API of the dashboard backend.
//
// This file implements utilities for decoding and validating request data.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"

	"fluxo/internal/core"
)

// maxBodyBytes bounds request bodies; a request-supplied ledger is the
// largest payload the API accepts.
const maxBodyBytes = 8 << 20

var orgIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// requestError is a client mistake in the request itself. It maps to 400.
type requestError struct {
	msg string
	err error
}

func (e *requestError) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *requestError) Unwrap() error { return e.err }

func badRequest(msg string, err error) error {
	return &requestError{msg: msg, err: err}
}

// snapshotRequest carries a ledger supplied by the caller.
type snapshotRequest struct {
	Transactions []core.RawTransaction `json:"transactions"`
	Goal         *core.GoalDescriptor  `json:"goal,omitempty"`
}

// decodeJSON reads exactly one JSON value from the body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return err
		case errors.Is(err, io.EOF):
			return badRequest("request body is empty", nil)
		default:
			return badRequest("malformed JSON body", err)
		}
	}
	if dec.More() {
		return badRequest("request body must contain a single JSON value", nil)
	}
	return nil
}

// orgIDParam returns the organization id from the route.
func orgIDParam(r *http.Request) (string, error) {
	orgID := chi.URLParam(r, "orgID")
	if !orgIDPattern.MatchString(orgID) {
		return "", badRequest(fmt.Sprintf("invalid organization id %q", orgID), nil)
	}
	return orgID, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// sanitizeTransaction cleans the free-text fields of a transaction that is
// about to be stored. Amount and date are left to the normalizer.
func sanitizeTransaction(tx core.RawTransaction) core.RawTransaction {
	tx.ID = sanitizeInput(tx.ID)
	tx.Kind = sanitizeInput(tx.Kind)
	tx.Category = sanitizeInput(tx.Category)
	tx.PaymentMethod = sanitizeInput(tx.PaymentMethod)
	if len(tx.Tags) > 0 {
		tags := make([]string, 0, len(tx.Tags))
		for _, t := range tx.Tags {
			if t = sanitizeInput(t); t != "" {
				tags = append(tags, t)
			}
		}
		tx.Tags = tags
	}
	return tx
}
