// Package oracle manages target database connections, provisioning and DDL
// execution against Oracle.
package oracle

import (
	"regexp"
	"strconv"
)

// ErrorClass buckets Oracle errors by how the caller should react.
type ErrorClass int

const (
	// ClassUnknown is anything without a recognizable ORA- code.
	ClassUnknown ErrorClass = iota
	// ClassTransient errors are connectivity failures worth retrying.
	ClassTransient
	// ClassAuth errors are credential failures. Never retried.
	ClassAuth
	// ClassAlreadyExists errors mean the object is already in place.
	// Safe to skip when replaying DDL into a half-provisioned schema.
	ClassAlreadyExists
	// ClassMissing errors mean the object does not exist.
	// Safe to skip when dropping.
	ClassMissing
	// ClassConstraint errors are data integrity violations during insert.
	ClassConstraint
	// ClassFatal is every other recognized ORA- error.
	ClassFatal
)

func (c ErrorClass) String() string {
	switch c {
	case ClassTransient:
		return "transient"
	case ClassAuth:
		return "auth"
	case ClassAlreadyExists:
		return "already-exists"
	case ClassMissing:
		return "missing"
	case ClassConstraint:
		return "constraint"
	case ClassFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

var oraCodePattern = regexp.MustCompile(`ORA-(\d{5})`)

// Code extracts the first ORA-NNNNN code from an error, if any.
func Code(err error) (int, bool) {
	if err == nil {
		return 0, false
	}
	m := oraCodePattern.FindStringSubmatch(err.Error())
	if m == nil {
		return 0, false
	}
	code, _ := strconv.Atoi(m[1])
	return code, true
}

// Classify maps an Oracle error to its handling class. Errors without an
// ORA- code (network errors surfaced by the driver before the server
// answered) classify as transient: the server never saw the request.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassUnknown
	}

	code, ok := Code(err)
	if !ok {
		return ClassTransient
	}

	switch code {
	case 12541, 12514, 12170, 12528, 3113, 3114, 12537:
		return ClassTransient
	case 1017, 28000, 28001:
		return ClassAuth
	case 955, 1920, 2264, 2275, 1408:
		return ClassAlreadyExists
	case 942, 1918, 1418, 2289:
		return ClassMissing
	case 1, 1400, 2291, 2292, 12899, 1438:
		return ClassConstraint
	default:
		return ClassFatal
	}
}

// Retryable reports whether a connection attempt failing with this error is
// worth repeating. Auth failures are explicitly final: retrying them can
// lock the account.
func Retryable(err error) bool {
	return Classify(err) == ClassTransient
}
