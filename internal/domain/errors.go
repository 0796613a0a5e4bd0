package domain

import (
	"errors"
	"fmt"
	"net/netip"
)

// Sentinel errors for each failure kind. The typed errors below match them
// through errors.Is so callers can branch without knowing the concrete type.
var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrPoolExhausted        = errors.New("address pool exhausted")
	ErrInvalidAddressFamily = errors.New("address family mismatch")
	ErrTemplateNotFound     = errors.New("template not found")
	ErrTemplateRender       = errors.New("template render failed")
	ErrDestinationNotFound  = errors.New("destination not found")
)

type InvalidInputError struct {
	Field string
	Value string
	Err   error
}

func (e *InvalidInputError) Error() string {
	msg := fmt.Sprintf("invalid %s", e.Field)
	if e.Value != "" {
		msg += fmt.Sprintf(" %q", e.Value)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InvalidInputError) Unwrap() error { return e.Err }

func (e *InvalidInputError) Is(target error) bool { return target == ErrInvalidInput }

// PoolExhaustedError is returned when the subnet runs out of usable hosts
// before every name is bound.
type PoolExhaustedError struct {
	Subnet    netip.Prefix
	LastUsed  netip.Addr
	Requested int
	Assigned  int
}

func (e *PoolExhaustedError) Error() string {
	msg := fmt.Sprintf("subnet %s too small: assigned %d of %d addresses", e.Subnet, e.Assigned, e.Requested)
	if e.LastUsed.IsValid() {
		msg += fmt.Sprintf(" after last used address %s", e.LastUsed)
	}
	return msg
}

func (e *PoolExhaustedError) Is(target error) bool { return target == ErrPoolExhausted }

type AddressFamilyError struct {
	Subnet  netip.Prefix
	Address netip.Addr
}

func (e *AddressFamilyError) Error() string {
	return fmt.Sprintf("address %s is %s but subnet %s is %s",
		e.Address, FamilyOf(e.Address), e.Subnet, FamilyOf(e.Subnet.Addr()))
}

func (e *AddressFamilyError) Is(target error) bool { return target == ErrInvalidAddressFamily }

type TemplateNotFoundError struct {
	Path string
}

func (e *TemplateNotFoundError) Error() string {
	return fmt.Sprintf("template %s not found", e.Path)
}

func (e *TemplateNotFoundError) Is(target error) bool { return target == ErrTemplateNotFound }

type TemplateRenderError struct {
	Name string
	Err  error
}

func (e *TemplateRenderError) Error() string {
	return fmt.Sprintf("failed to render template %s: %v", e.Name, e.Err)
}

func (e *TemplateRenderError) Unwrap() error { return e.Err }

func (e *TemplateRenderError) Is(target error) bool { return target == ErrTemplateRender }

type DestinationNotFoundError struct {
	Path string
}

func (e *DestinationNotFoundError) Error() string {
	return fmt.Sprintf("folder %s not found", e.Path)
}

func (e *DestinationNotFoundError) Is(target error) bool { return target == ErrDestinationNotFound }
