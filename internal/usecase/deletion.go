package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/arklim/social-platform-authkit/internal/core/domain"
	"github.com/arklim/social-platform-authkit/internal/core/port"
	"github.com/arklim/social-platform-authkit/internal/infra/config"
)

// KeyAccountBackup holds the pre-deletion data export until the workflow
// finishes tearing down local state.
const KeyAccountBackup = "authkit.account_backup"

var (
	// ErrDeletionInProgress rejects a second concurrent deletion attempt.
	ErrDeletionInProgress = errors.New("Account deletion already in progress")
	// ErrDeletionCancelled reports that the user backed out at a
	// confirmation or re-authentication step.
	ErrDeletionCancelled = errors.New("User cancelled deletion process")
)

// confirmationMessages are presented in order, one per confirmation step.
// The final configured step always gets the last, most explicit warning.
var confirmationMessages = []string{
	"Deleting your account removes your profile, posts, and messages. Continue?",
	"This cannot be undone once processed. Do you want to proceed?",
	"Final confirmation: permanently delete your account?",
}

// AccountDeletionService drives the staged account deletion workflow:
// pre-check, confirmations, re-authentication, backup, submission, and
// execution. Only one run may be active at a time.
type AccountDeletionService struct {
	api       port.AccountAPI
	backend   port.AuthBackend
	biometric port.BiometricAuthenticator
	prompter  port.ConfirmationPrompter
	session   sessionController
	store     *SecureTokenStore
	device    port.DeviceIdentity
	cfg       config.DeletionSettings
	logger    *zap.Logger
	now       func() time.Time

	inProgress atomic.Bool
}

// NewAccountDeletionService constructs an AccountDeletionService.
func NewAccountDeletionService(api port.AccountAPI, backend port.AuthBackend, prompter port.ConfirmationPrompter, store *SecureTokenStore, cfg config.DeletionSettings, log *zap.Logger) *AccountDeletionService {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.ConfirmationSteps <= 0 {
		cfg.ConfirmationSteps = len(confirmationMessages)
	}
	svc := &AccountDeletionService{
		api:      api,
		backend:  backend,
		prompter: prompter,
		store:    store,
		cfg:      cfg,
		logger:   log,
	}
	svc.now = func() time.Time { return time.Now().UTC() }
	return svc
}

// WithClock overrides the service clock for deterministic tests.
func (s *AccountDeletionService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// WithSessionController wires the state machine for the final forced logout.
func (s *AccountDeletionService) WithSessionController(session sessionController) *AccountDeletionService {
	s.session = session
	return s
}

// WithBiometric wires the biometric authenticator used when re-authentication
// requires it.
func (s *AccountDeletionService) WithBiometric(biometric port.BiometricAuthenticator) *AccountDeletionService {
	s.biometric = biometric
	return s
}

// WithDevice wires the device identity included in the deletion request.
func (s *AccountDeletionService) WithDevice(device port.DeviceIdentity) *AccountDeletionService {
	s.device = device
	return s
}

// InProgress reports whether a deletion run is currently active.
func (s *AccountDeletionService) InProgress() bool {
	return s.inProgress.Load()
}

// RequestAccountDeletion runs the full workflow for the given user. With a
// grace period configured the deletion is scheduled instead of executed, and
// the result carries the pending-until timestamp.
func (s *AccountDeletionService) RequestAccountDeletion(ctx context.Context, userID, reason string) (domain.DeletionResult, error) {
	if !s.inProgress.CompareAndSwap(false, true) {
		return domain.DeletionResult{Error: ErrDeletionInProgress.Error()}, ErrDeletionInProgress
	}
	defer s.inProgress.Store(false)

	// Stage 1: pre-check. Deletion is only offered to a live session.
	if _, found, err := s.store.GetSecureItem(ctx, KeyAccessToken); err != nil || !found {
		return domain.DeletionResult{Error: "No active session"}, errors.New("deletion requires an authenticated session")
	}

	status, err := s.api.Status(ctx, userID)
	if err != nil {
		return domain.DeletionResult{Error: "Account status check failed"}, fmt.Errorf("account status: %w", err)
	}
	if !status.CanDelete {
		msg := "Account cannot be deleted"
		if len(status.BlockingReasons) > 0 {
			msg = fmt.Sprintf("%s: %s", msg, strings.Join(status.BlockingReasons, ", "))
		}
		return domain.DeletionResult{Error: msg}, errors.New(msg)
	}

	// Stage 2: staged confirmations.
	if err := s.confirm(ctx); err != nil {
		return domain.DeletionResult{Error: err.Error()}, err
	}

	// Stage 3: re-authentication.
	if err := s.reauthenticate(ctx); err != nil {
		return domain.DeletionResult{Error: err.Error()}, err
	}

	// Stage 4: backup. A failed export hands the decision back to the
	// user; declining to continue without a backup aborts everything.
	backupLocation := ""
	if s.cfg.BackupData {
		location, err := s.backup(ctx, userID)
		if err != nil {
			s.logger.Warn("account data backup failed", zap.String("user_id", userID), zap.Error(err))
			proceed, promptErr := s.prompter.Confirm(ctx, 0, "Backing up your data failed. Delete the account without a backup?")
			if promptErr != nil || !proceed {
				return domain.DeletionResult{Error: ErrDeletionCancelled.Error()}, ErrDeletionCancelled
			}
		} else {
			backupLocation = location
		}
	}

	// Stage 5: submission.
	deviceInfo := ""
	if s.device != nil {
		if id, err := s.device.DeviceID(ctx); err == nil {
			deviceInfo = id
		}
	}
	request := domain.DeletionRequest{
		UserID:     userID,
		Reason:     reason,
		Timestamp:  s.now(),
		DeviceInfo: deviceInfo,
	}
	if err := s.api.RequestDeletion(ctx, request); err != nil {
		return domain.DeletionResult{Error: "Deletion request was rejected"}, fmt.Errorf("request deletion: %w", err)
	}

	// Stage 6: execution, or scheduling when a grace period applies.
	if s.cfg.GracePeriodDays > 0 {
		pendingUntil := s.now().AddDate(0, 0, s.cfg.GracePeriodDays)
		s.logger.Info("account deletion scheduled",
			zap.String("user_id", userID),
			zap.Time("pending_until", pendingUntil),
		)
		return domain.DeletionResult{
			Success:        true,
			DeletedData:    []string{domain.DeletionScheduled},
			BackupLocation: backupLocation,
			PendingUntil:   &pendingUntil,
		}, nil
	}

	result := s.execute(ctx, userID)
	result.BackupLocation = backupLocation
	return result, nil
}

// ConfirmAccountDeletion executes a deletion that was scheduled with a grace
// period, keyed by the confirmation code the backend issued.
func (s *AccountDeletionService) ConfirmAccountDeletion(ctx context.Context, code string) (domain.DeletionResult, error) {
	if !s.inProgress.CompareAndSwap(false, true) {
		return domain.DeletionResult{Error: ErrDeletionInProgress.Error()}, ErrDeletionInProgress
	}
	defer s.inProgress.Store(false)

	userID, err := s.api.ConfirmDeletion(ctx, code)
	if err != nil {
		return domain.DeletionResult{Error: "Deletion confirmation was rejected"}, fmt.Errorf("confirm deletion: %w", err)
	}

	return s.execute(ctx, userID), nil
}

// CancelAccountDeletion withdraws a scheduled deletion during its grace
// period.
func (s *AccountDeletionService) CancelAccountDeletion(ctx context.Context, userID string) error {
	if err := s.api.CancelDeletion(ctx, userID); err != nil {
		return fmt.Errorf("cancel deletion: %w", err)
	}
	s.logger.Info("account deletion cancelled", zap.String("user_id", userID))
	return nil
}

func (s *AccountDeletionService) confirm(ctx context.Context) error {
	for step := 1; step <= s.cfg.ConfirmationSteps; step++ {
		idx := step - 1
		if idx >= len(confirmationMessages) || step == s.cfg.ConfirmationSteps {
			idx = len(confirmationMessages) - 1
		}

		ok, err := s.prompter.Confirm(ctx, step, confirmationMessages[idx])
		if err != nil {
			return fmt.Errorf("confirmation step %d: %w", step, err)
		}
		if !ok {
			return ErrDeletionCancelled
		}
	}
	return nil
}

func (s *AccountDeletionService) reauthenticate(ctx context.Context) error {
	if s.cfg.RequirePassword {
		password, err := s.prompter.Password(ctx, "Enter your password to confirm account deletion")
		if err != nil {
			return ErrDeletionCancelled
		}
		if err := s.backend.ReauthenticateWithPassword(ctx, password); err != nil {
			return fmt.Errorf("password re-authentication failed: %w", err)
		}
	}

	if s.cfg.RequireBiometric && s.biometric != nil {
		if err := s.biometric.Authenticate(ctx, "Confirm account deletion"); err != nil {
			return fmt.Errorf("biometric re-authentication failed: %w", err)
		}
	}

	return nil
}

func (s *AccountDeletionService) backup(ctx context.Context, userID string) (string, error) {
	data, err := s.api.UserData(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("export user data: %w", err)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("encode user data: %w", err)
	}

	if err := s.store.SetSecureItem(ctx, KeyAccountBackup, string(raw), ItemOptions{}); err != nil {
		return "", err
	}

	return KeyAccountBackup, nil
}

// execute performs the irreversible teardown: server data first, then local
// secrets. Local cleanup proceeds even when the server side partially fails.
func (s *AccountDeletionService) execute(ctx context.Context, userID string) domain.DeletionResult {
	result := domain.DeletionResult{Success: true}

	if err := s.api.DeleteUserData(ctx, userID); err != nil {
		s.logger.Error("server data deletion failed", zap.String("user_id", userID), zap.Error(err))
		result.Success = false
		result.Error = "Server data deletion failed"
	} else {
		result.DeletedData = append(result.DeletedData, domain.DeletedServerData)
	}

	if err := s.store.ClearAll(ctx); err != nil {
		s.logger.Warn("local data cleanup incomplete", zap.Error(err))
	} else {
		result.DeletedData = append(result.DeletedData, domain.DeletedLocalData)
	}

	if err := s.store.RemoveSecureItem(ctx, KeyAccountBackup); err != nil {
		s.logger.Warn("backup cleanup failed", zap.Error(err))
	} else {
		result.DeletedData = append(result.DeletedData, domain.DeletedAdditionalData)
	}

	if s.session != nil {
		if err := s.session.ForceLogout(ctx, "account_deleted"); err != nil {
			s.logger.Warn("post-deletion logout reported failure", zap.Error(err))
		}
	}

	s.logger.Info("account deletion executed",
		zap.String("user_id", userID),
		zap.Strings("deleted", result.DeletedData),
		zap.Bool("success", result.Success),
	)

	return result
}
