package port

import (
	"context"

	"github.com/arklim/social-platform-authkit/internal/core/domain"
)

// AccountAPI is the remote account management contract used by the deletion
// workflow.
type AccountAPI interface {
	Status(ctx context.Context, userID string) (domain.AccountStatus, error)
	RequestDeletion(ctx context.Context, request domain.DeletionRequest) error
	// ConfirmDeletion validates a grace-period confirmation code and returns
	// the user the pending deletion belongs to.
	ConfirmDeletion(ctx context.Context, code string) (string, error)
	CancelDeletion(ctx context.Context, userID string) error
	UserData(ctx context.Context, userID string) (map[string]any, error)
	DeleteUserData(ctx context.Context, userID string) error
}
