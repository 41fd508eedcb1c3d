package errors

// Error code constants returned in API responses.
// Format: CATEGORY_SPECIFIC_DETAIL; the frontend maps these to messages.

const (
	// ==================== Authentication (AUTH_) ====================
	AuthUnauthorized       = "AUTH_UNAUTHORIZED"        // login required
	AuthInvalidCredentials = "AUTH_INVALID_CREDENTIALS" // unknown email or wrong password
	AuthTokenExpired       = "AUTH_TOKEN_EXPIRED"       // session token expired
	AuthTokenInvalid       = "AUTH_TOKEN_INVALID"       // malformed or tampered session token
	AuthEmailAlreadyExists = "AUTH_EMAIL_EXISTS"        // duplicate email on signup
	AuthResetTokenInvalid  = "AUTH_RESET_TOKEN_INVALID" // unknown, used or expired reset token

	// ==================== Validation (VALIDATION_) ====================
	ValidationInvalidInput = "VALIDATION_INVALID_INPUT" // missing or malformed input
	ValidationRequired     = "VALIDATION_REQUIRED"      // required field missing

	// ==================== Resources (RESOURCE_) ====================
	ResourceNotFound      = "RESOURCE_NOT_FOUND"      // record does not exist
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS" // unique constraint hit

	// ==================== Internal (INTERNAL_) ====================
	InternalServerError   = "INTERNAL_SERVER_ERROR"   // generic server failure
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR" // storage failure
	InternalMailError     = "INTERNAL_MAIL_ERROR"     // mail transport failure
)
