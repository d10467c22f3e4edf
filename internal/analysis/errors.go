package analysis

import (
	"errors"
	"fmt"
)

// ExcerptLimit bounds the body excerpt carried by a NetworkError.
const ExcerptLimit = 120

var (
	ErrEmptyText         = errors.New("text is empty")
	ErrMalformedResponse = errors.New("malformed response")
)

// NetworkError is a transport failure, a non-success status or an
// undecodable success body.
type NetworkError struct {
	Op         string
	StatusCode int
	Excerpt    string
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: server error %d: %s", e.Op, e.StatusCode, e.Excerpt)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServiceError is a well-formed response in which the service reports failure.
type ServiceError struct {
	Op      string
	Message string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: service error: %s", e.Op, e.Message)
}

func excerpt(body []byte) string {
	r := []rune(string(body))
	if len(r) > ExcerptLimit {
		r = r[:ExcerptLimit]
	}
	return string(r)
}
