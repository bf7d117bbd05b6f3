package constant

const (
	DefaultUserRole = "user"
	AdminRole       = "admin"

	StatusActive      = "active"
	StatusDeactivated = "deactivated"

	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"

	// FailedAttemptCeiling caps the failure counter so a retry storm
	// cannot grow it without bound.
	FailedAttemptCeiling = 50

	// LoginHistoryLimit bounds the per-user login attempt history.
	LoginHistoryLimit = 20

	// BlacklistHighWaterMark is the size at which the in-memory
	// revocation registry evicts its oldest half.
	BlacklistHighWaterMark = 10000
)
