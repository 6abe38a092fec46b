// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

import (
	"errors"
	"strconv"
	"strings"
)

// ErrInvalidID is returned by ParseID for anything that is not a positive
// base-10 integer fitting in a uint.
var ErrInvalidID = errors.New("id must be a positive integer")

// ParseID converts a path segment into a numeric record id.
//
// Example:
//
//	id, err := utils.ParseID("42")  // 42, nil
//	_, err = utils.ParseID("0")     // ErrInvalidID
//	_, err = utils.ParseID("abc")   // ErrInvalidID
func ParseID(s string) (uint, error) {
	if s == "" || strings.TrimSpace(s) != s || strings.HasPrefix(s, "+") {
		return 0, ErrInvalidID
	}
	n, err := strconv.ParseUint(s, 10, strconv.IntSize)
	if err != nil || n == 0 {
		return 0, ErrInvalidID
	}
	return uint(n), nil
}
