package mapping

import (
	"context"
	"log/slog"

	rgerr "github.com/RealmGate/realmgate-core/pkg/errors"
)

// SubjectSource reports the identity provider subject attached to a local
// account, typically from the account's profile record. An account with
// no subject returns an empty string and no error.
type SubjectSource interface {
	Subject(ctx context.Context, userID int64) (string, error)
}

// IdentitySync keeps the mapping table aligned with account lifecycle
// events. Hook its methods into whatever emits account created/updated
// notifications; both converge on an idempotent upsert, so replays and
// out-of-order delivery are harmless.
type IdentitySync struct {
	store  *Store
	source SubjectSource
	logger *slog.Logger
}

// NewIdentitySync wires a sync over the store and subject source.
func NewIdentitySync(store *Store, source SubjectSource, logger *slog.Logger) *IdentitySync {
	if logger == nil {
		logger = slog.Default()
	}
	return &IdentitySync{store: store, source: source, logger: logger}
}

// AccountCreated records the mapping for a freshly created account,
// reading the subject from the claim set that accompanied the creation
// event.
func (s *IdentitySync) AccountCreated(ctx context.Context, userID int64, claims map[string]any) error {
	subject, _ := claims["sub"].(string)
	return s.sync(ctx, userID, subject, "created")
}

// AccountUpdated refreshes the mapping after an account change, reading
// the subject from the account's stored metadata. If the subject
// changed, the mapping follows it.
func (s *IdentitySync) AccountUpdated(ctx context.Context, userID int64) error {
	subject, err := s.source.Subject(ctx, userID)
	if err != nil {
		return rgerr.Wrapf(err, rgerr.CodeInternal,
			"mapping: failed to read subject for user %d", userID)
	}
	return s.sync(ctx, userID, subject, "updated")
}

func (s *IdentitySync) sync(ctx context.Context, userID int64, subject, event string) error {
	// Accounts without a provider subject (local-only admins, service
	// accounts) are not mapped.
	if subject == "" {
		s.logger.DebugContext(ctx, "account has no provider subject, skipping sync",
			"user_id", userID,
			"event", event,
		)
		return nil
	}

	if _, err := s.store.Upsert(ctx, UserMapping{UserID: userID, ExternalUserID: subject}); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "identity mapping synced",
		"user_id", userID,
		"event", event,
	)
	return nil
}
