// Package repository implements data access against the relational store.
// Sentinel errors defined here let handlers and services distinguish
// failure scenarios with errors.Is without inspecting driver errors.
package repository

import "errors"

// ErrTenantNotFound is returned when no tenant matches a resolution key or
// ID. Handlers translate it into HTTP 401 so an attacker cannot tell a
// wrong key from a missing one.
var ErrTenantNotFound = errors.New("tenant not found")

// ErrTenantInactive is returned when the tenant exists but has been
// switched off. Translated into HTTP 403.
var ErrTenantInactive = errors.New("tenant inactive")

// ErrEmailExists is returned when creating a user whose (tenant, email)
// pair already exists. Translated into HTTP 409; the caller may retry with
// a different address.
var ErrEmailExists = errors.New("email already registered")

// ErrUserNotFound is returned when a lookup by id, email or federated id
// matches no user in the tenant.
var ErrUserNotFound = errors.New("user not found")

// ErrRedeemCodeExists is returned when an administrator adds a redeem code
// whose code string is already taken.
var ErrRedeemCodeExists = errors.New("redeem code already exists")

// ErrRedeemCodeInvalid is returned when a redeem code is unknown or has
// already been used. The two cases are deliberately indistinguishable so
// codes cannot be probed.
var ErrRedeemCodeInvalid = errors.New("redeem code invalid or already used")

// ErrAdNotFound is returned when no active ad with the requested name
// exists in the tenant.
var ErrAdNotFound = errors.New("ad not found")
