package httpclient

import (
	"fmt"
	"os"
	"strings"

	"github.com/kbukum/falclient/util"
)

// Credentials supplies the API key sent in the authorization header. An
// empty String() means the client is unauthenticated.
type Credentials = fmt.Stringer

// KeyCredentials is a single API key, usually in "key_id:key_secret" form.
type KeyCredentials string

// String returns the key.
func (k KeyCredentials) String() string { return string(k) }

// KeyPairCredentials holds the key id and secret separately.
type KeyPairCredentials struct {
	ID     string
	Secret string
}

// String returns "id:secret", or "" when both halves are empty.
func (k KeyPairCredentials) String() string {
	if k.ID == "" && k.Secret == "" {
		return ""
	}
	return k.ID + ":" + k.Secret
}

// NoCredentials sends requests without an authorization header.
var NoCredentials Credentials = KeyCredentials("")

// Environment variables read by CredentialsFromEnv.
const (
	EnvKey       = "FAL_KEY"
	EnvKeyID     = "FAL_KEY_ID"
	EnvKeySecret = "FAL_KEY_SECRET"
)

// CredentialsFromEnv reads FAL_KEY, falling back to FAL_KEY_ID and
// FAL_KEY_SECRET.
func CredentialsFromEnv() Credentials {
	if key := util.SanitizeEnvValue(os.Getenv(EnvKey)); key != "" {
		return KeyCredentials(key)
	}
	return KeyPairCredentials{
		ID:     util.SanitizeEnvValue(os.Getenv(EnvKeyID)),
		Secret: util.SanitizeEnvValue(os.Getenv(EnvKeySecret)),
	}
}

const (
	headerAuthorization = "Authorization"
	authScheme          = "Key "
)

// credentialString tolerates a nil provider.
func credentialString(c Credentials) string {
	if c == nil {
		return ""
	}
	return c.String()
}

// maskAuthorization keeps the scheme and key id of an authorization value
// and masks the secret.
func maskAuthorization(value string) string {
	if rest, ok := strings.CutPrefix(value, authScheme); ok {
		return authScheme + util.MaskCredential(rest)
	}
	return util.MaskCredential(value)
}
