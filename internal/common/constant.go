package common

// AuthorizationHeaderName carries the bearer access token on API requests.
const AuthorizationHeaderName = "Authorization"

// AdminKeyHeaderName carries the static admin API key on cache-management
// requests to the companion server.
const AdminKeyHeaderName = "X-Admin-Key"
