package port

import "context"

// ConfirmationPrompter asks the user the yes/no and password questions the
// deletion workflow needs. The UI layer owns the presentation.
type ConfirmationPrompter interface {
	// Confirm presents one warning and returns the user's decision.
	Confirm(ctx context.Context, step int, message string) (bool, error)
	// Password collects a fresh password entry for re-authentication.
	Password(ctx context.Context, message string) (string, error)
}
