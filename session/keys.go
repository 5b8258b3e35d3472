package session

// Storage keys for the persisted session artifacts. A logical session is the
// set of these keys in one tier; it only counts as present when both the
// access token and the decoded user can be read back.
const (
	KeyAccessToken  = "access_token"
	KeyIDToken      = "id_token"
	KeyRefreshToken = "refresh_token"
	KeyCurrentUser  = "current_user"
	KeyExpiresAt    = "token_expires_at"
	KeyRememberMe   = "remember_me"
	KeyRedirectURL  = "redirect_url"
)

// credentialKeys are the artifacts of one authenticated session. Installing
// a new session replaces exactly these; a redirect target saved before the
// login must survive so it can be consumed afterwards.
var credentialKeys = []string{
	KeyAccessToken,
	KeyIDToken,
	KeyRefreshToken,
	KeyCurrentUser,
	KeyExpiresAt,
}

// sessionKeys are the keys removed by ClearSession. The remember_me
// preference survives logout for UX continuity.
var sessionKeys = []string{
	KeyAccessToken,
	KeyIDToken,
	KeyRefreshToken,
	KeyCurrentUser,
	KeyExpiresAt,
	KeyRedirectURL,
}
