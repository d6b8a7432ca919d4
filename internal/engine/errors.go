package engine

import "errors"

var (
	// ErrNoCustomerContext is returned when guidance is requested before any
	// customer message was logged and no objection text was given.
	ErrNoCustomerContext = errors.New("log the latest customer message to get coaching")
	// ErrNoProposal is returned by InsertSuggestion when nothing is pending.
	ErrNoProposal = errors.New("no proposal to insert")
	// ErrEmptyGuidance is returned when the model produced no usable line
	// on every attempt.
	ErrEmptyGuidance = errors.New("guidance model returned an empty line")
	// ErrCustomerRoleplay is returned when the model kept speaking for the
	// customer after the reminder.
	ErrCustomerRoleplay = errors.New("customer_roleplay: guidance model spoke for the customer")
	// ErrPromptTooLarge is returned when no completion budget remains even
	// with an empty transcript.
	ErrPromptTooLarge = errors.New("prompt leaves no completion budget")
)
